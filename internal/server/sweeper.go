package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/novachat/nova/config"
	"github.com/novachat/nova/internal/chatstore"
)

// Sweeper prunes stale chats on a cron-gated hourly tick.
type Sweeper struct {
	Store     chatstore.Store
	Retention config.RetentionConfig
	Stop      chan struct{}

	logger    *log.Logger
	lastSweep *time.Time
}

func (s *Sweeper) Start() {
	if s.logger == nil {
		s.logger = log.New(log.Writer(), "[SWEEP] ", log.LstdFlags)
	}
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick(time.Now())
			}
		}
	}()
}

func (s *Sweeper) tick(now time.Time) {
	if !isDue(s.Retention.CronSpec, s.lastSweep, now) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pruned, err := s.Store.Prune(ctx, now.Add(-s.Retention.MaxAge))
	if err != nil {
		s.logger.Printf("prune failed: %v", err)
		return
	}
	s.lastSweep = &now
	if pruned > 0 {
		s.logger.Printf("pruned %d chats older than %v", pruned, s.Retention.MaxAge)
	}
}

// isDue determines if a sweep with cronSpec should run now based on the last
// sweep time. Supports "@daily", "@hourly", and standard 5-field cron
// expressions.
func isDue(cronSpec string, last *time.Time, now time.Time) bool {
	switch cronSpec {
	case "", "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			// invalid spec degrades to daily
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
