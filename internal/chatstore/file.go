package chatstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/novachat/nova/internal/agent"
)

// FileStore keeps one JSON file per chat in a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the chat directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "chat_history"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("chat dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) Create(ctx context.Context, systemPrompt string) (Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	chat := Chat{
		ID:           uuid.NewString(),
		Title:        "New Chat",
		SystemPrompt: systemPrompt,
		Messages:     []agent.Turn{},
		CreatedAt:    now,
		LastUpdated:  now,
	}
	if err := s.write(chat); err != nil {
		return Chat{}, err
	}
	return chat, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id)
}

func (s *FileStore) List(ctx context.Context) ([]Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var chats []Chat
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		chat, err := s.read(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue // skip unreadable files rather than failing the listing
		}
		chats = append(chats, chat)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].LastUpdated.After(chats[j].LastUpdated) })
	return chats, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

func (s *FileStore) Rename(ctx context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, err := s.read(id)
	if err != nil {
		return err
	}
	chat.Title = title
	chat.LastUpdated = time.Now().UTC()
	return s.write(chat)
}

func (s *FileStore) AppendTurn(ctx context.Context, id string, turn agent.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, err := s.read(id)
	if err != nil {
		return err
	}
	chat.Messages = append(chat.Messages, turn)
	chat.LastUpdated = time.Now().UTC()
	return s.write(chat)
}

func (s *FileStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	chats, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pruned := 0
	for _, chat := range chats {
		if chat.LastUpdated.Before(olderThan) {
			if err := os.Remove(s.path(chat.ID)); err == nil {
				pruned++
			}
		}
	}
	return pruned, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) read(id string) (Chat, error) {
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return Chat{}, ErrNotFound
	}
	if err != nil {
		return Chat{}, err
	}
	var chat Chat
	if err := json.Unmarshal(data, &chat); err != nil {
		return Chat{}, fmt.Errorf("chat %s is corrupt: %w", id, err)
	}
	return chat, nil
}

func (s *FileStore) write(chat Chat) error {
	data, err := json.MarshalIndent(chat, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path(chat.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(chat.ID))
}
