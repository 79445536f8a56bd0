package chatstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/novachat/nova/internal/agent"
)

// PostgresStore persists chats in two tables, chats and chat_messages
// (see migrations/).
type PostgresStore struct {
	DB *sql.DB
}

// NewPostgresStore connects using an explicit Postgres DSN.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &PostgresStore{DB: db}, nil
}

func (s *PostgresStore) Create(ctx context.Context, systemPrompt string) (Chat, error) {
	chat := Chat{ID: uuid.NewString(), Title: "New Chat", SystemPrompt: systemPrompt, Messages: []agent.Turn{}}
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO chats (id, title, system_prompt) VALUES ($1,$2,$3) RETURNING created_at, last_updated`,
		chat.ID, chat.Title, chat.SystemPrompt,
	).Scan(&chat.CreatedAt, &chat.LastUpdated)
	if err != nil {
		return Chat{}, err
	}
	return chat, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Chat, error) {
	var chat Chat
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, title, system_prompt, created_at, last_updated FROM chats WHERE id=$1`, id,
	).Scan(&chat.ID, &chat.Title, &chat.SystemPrompt, &chat.CreatedAt, &chat.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return Chat{}, ErrNotFound
	}
	if err != nil {
		return Chat{}, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT role, content FROM chat_messages WHERE chat_id=$1 ORDER BY id`, id)
	if err != nil {
		return Chat{}, err
	}
	defer rows.Close()
	chat.Messages = []agent.Turn{}
	for rows.Next() {
		var turn agent.Turn
		if err := rows.Scan(&turn.Role, &turn.Content); err != nil {
			return Chat{}, err
		}
		chat.Messages = append(chat.Messages, turn)
	}
	return chat, rows.Err()
}

func (s *PostgresStore) List(ctx context.Context) ([]Chat, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, title, system_prompt, created_at, last_updated FROM chats ORDER BY last_updated DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chats []Chat
	for rows.Next() {
		var chat Chat
		if err := rows.Scan(&chat.ID, &chat.Title, &chat.SystemPrompt, &chat.CreatedAt, &chat.LastUpdated); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM chats WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Rename(ctx context.Context, id, title string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE chats SET title=$2, last_updated=now() WHERE id=$1`, id, title)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendTurn(ctx context.Context, id string, turn agent.Turn) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE chats SET last_updated=now() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chat_messages (chat_id, role, content) VALUES ($1,$2,$3)`,
		id, turn.Role, turn.Content); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM chats WHERE last_updated < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *PostgresStore) Close() error { return s.DB.Close() }
