package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/folio/internal/db"
)

// Store persists contact messages.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Save validates sub and inserts it, returning the stored message.
func (s *Store) Save(ctx context.Context, sub Submission, remoteAddr string) (*Message, error) {
	sub.Normalize()
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	m := &Message{
		ID:         uuid.New().String(),
		Name:       sub.Name,
		Email:      sub.Email,
		Message:    sub.Message,
		RemoteAddr: remoteAddr,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contact_messages (id, name, email, message, remote_addr, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Email, m.Message, m.RemoteAddr, m.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting contact message: %w", err)
	}
	return m, nil
}

// Get retrieves a single message.
func (s *Store) Get(ctx context.Context, id string) (*Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, message, remote_addr, created_at
		FROM contact_messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contact message %s: %w", id, err)
	}
	return m, err
}

// List returns messages newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Message, error) {
	query := `SELECT id, name, email, message, remote_addr, created_at
		FROM contact_messages ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying contact messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(sc scanner) (*Message, error) {
	var (
		m  Message
		ts string
	)
	if err := sc.Scan(&m.ID, &m.Name, &m.Email, &m.Message, &m.RemoteAddr, &ts); err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.DateTime, ts); err == nil {
		m.CreatedAt = t
	} else if t, err := time.Parse(time.RFC3339, ts); err == nil {
		m.CreatedAt = t
	}
	return &m, nil
}
