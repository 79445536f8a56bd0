package chatstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/novachat/nova/config"
	"github.com/novachat/nova/internal/agent"
)

// ErrNotFound indicates the requested chat does not exist.
var ErrNotFound = errors.New("chat not found")

// Chat is one persisted conversation.
type Chat struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	SystemPrompt string       `json:"system_prompt,omitempty"`
	Messages     []agent.Turn `json:"messages"`
	CreatedAt    time.Time    `json:"created_at"`
	LastUpdated  time.Time    `json:"last_updated"`
}

// Store persists conversations. List returns chats ordered by last update,
// newest first.
type Store interface {
	Create(ctx context.Context, systemPrompt string) (Chat, error)
	Get(ctx context.Context, id string) (Chat, error)
	List(ctx context.Context) ([]Chat, error)
	Delete(ctx context.Context, id string) error
	Rename(ctx context.Context, id, title string) error
	AppendTurn(ctx context.Context, id string, turn agent.Turn) error
	Prune(ctx context.Context, olderThan time.Time) (int, error)
	Close() error
}

// Open builds the store selected by config.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", "file":
		return NewFileStore(cfg.File.ChatDir)
	case "postgres":
		return NewPostgresStore(ctx, cfg.Postgres.DSN())
	case "redis":
		return NewRedisStore(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}
