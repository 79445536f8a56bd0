package chatstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/novachat/nova/config"
	"github.com/novachat/nova/internal/agent"
)

const chatKeyPrefix = "chat:"

// RedisStore keeps each chat as a JSON value under chat:<id>.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and pings the configured Redis server.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.Timeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed (%s:%s): %w", cfg.Host, cfg.Port, err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Create(ctx context.Context, systemPrompt string) (Chat, error) {
	now := time.Now().UTC()
	chat := Chat{
		ID:           uuid.NewString(),
		Title:        "New Chat",
		SystemPrompt: systemPrompt,
		Messages:     []agent.Turn{},
		CreatedAt:    now,
		LastUpdated:  now,
	}
	if err := s.write(ctx, chat); err != nil {
		return Chat{}, err
	}
	return chat, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Chat, error) {
	val, err := s.client.Get(ctx, chatKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return Chat{}, ErrNotFound
	}
	if err != nil {
		return Chat{}, err
	}
	var chat Chat
	if err := json.Unmarshal([]byte(val), &chat); err != nil {
		return Chat{}, err
	}
	return chat, nil
}

func (s *RedisStore) List(ctx context.Context) ([]Chat, error) {
	keys, err := s.client.Keys(ctx, chatKeyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}
	var chats []Chat
	for _, key := range keys {
		val, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var chat Chat
		if err := json.Unmarshal([]byte(val), &chat); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].LastUpdated.After(chats[j].LastUpdated) })
	return chats, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, chatKeyPrefix+id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Rename(ctx context.Context, id, title string) error {
	chat, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	chat.Title = title
	chat.LastUpdated = time.Now().UTC()
	return s.write(ctx, chat)
}

func (s *RedisStore) AppendTurn(ctx context.Context, id string, turn agent.Turn) error {
	chat, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	chat.Messages = append(chat.Messages, turn)
	chat.LastUpdated = time.Now().UTC()
	return s.write(ctx, chat)
}

func (s *RedisStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	chats, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, chat := range chats {
		if chat.LastUpdated.Before(olderThan) {
			if err := s.Delete(ctx, chat.ID); err == nil {
				pruned++
			}
		}
	}
	return pruned, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) write(ctx context.Context, chat Chat) error {
	data, err := json.Marshal(chat)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, chatKeyPrefix+chat.ID, data, 0).Err()
}
