package chatstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/novachat/nova/internal/agent"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func TestFileStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	chat, err := store.Create(ctx, "be brief")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if chat.ID == "" || chat.Title != "New Chat" {
		t.Fatalf("unexpected new chat: %+v", chat)
	}

	got, err := store.Get(ctx, chat.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SystemPrompt != "be brief" {
		t.Fatalf("system prompt lost: %+v", got)
	}
	if len(got.Messages) != 0 {
		t.Fatalf("new chat should have no messages: %+v", got.Messages)
	}
}

func TestFileStoreGetMissing(t *testing.T) {
	store := newFileStore(t)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreAppendTurn(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)
	chat, _ := store.Create(ctx, "")

	if err := store.AppendTurn(ctx, chat.ID, agent.Turn{Role: "user", Content: "hi"}); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if err := store.AppendTurn(ctx, chat.ID, agent.Turn{Role: "assistant", Content: "hello"}); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	got, err := store.Get(ctx, chat.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "user" || got.Messages[1].Content != "hello" {
		t.Fatalf("turns not persisted in order: %+v", got.Messages)
	}
	if !got.LastUpdated.After(chat.LastUpdated) {
		t.Fatalf("append should bump last update")
	}

	if err := store.AppendTurn(ctx, "nope", agent.Turn{Role: "user", Content: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	first, _ := store.Create(ctx, "")
	second, _ := store.Create(ctx, "")

	// touching the older chat moves it to the front
	if err := store.AppendTurn(ctx, first.ID, agent.Turn{Role: "user", Content: "hi"}); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	chats, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("expected 2 chats, got %d", len(chats))
	}
	if chats[0].ID != first.ID || chats[1].ID != second.ID {
		t.Fatalf("wrong order: %s, %s", chats[0].ID, chats[1].ID)
	}
}

func TestFileStoreListSkipsCorruptFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.Create(ctx, ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	chats, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(chats) != 1 {
		t.Fatalf("corrupt file should be skipped, got %d chats", len(chats))
	}
}

func TestFileStoreRename(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)
	chat, _ := store.Create(ctx, "")

	if err := store.Rename(ctx, chat.ID, "Trip Planning"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	got, _ := store.Get(ctx, chat.ID)
	if got.Title != "Trip Planning" {
		t.Fatalf("title not updated: %q", got.Title)
	}

	if err := store.Rename(ctx, "nope", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)
	chat, _ := store.Create(ctx, "")

	if err := store.Delete(ctx, chat.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, chat.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, chat.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete should report ErrNotFound, got %v", err)
	}
}

func TestFileStorePrune(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)
	if _, err := store.Create(ctx, ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, ""); err != nil {
		t.Fatalf("Create: %v", err)
	}

	pruned, err := store.Prune(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if pruned != 0 {
		t.Fatalf("fresh chats must survive, pruned %d", pruned)
	}

	pruned, err = store.Prune(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if pruned != 2 {
		t.Fatalf("expected both chats pruned, got %d", pruned)
	}
	chats, _ := store.List(ctx)
	if len(chats) != 0 {
		t.Fatalf("chats remain after prune: %d", len(chats))
	}
}
