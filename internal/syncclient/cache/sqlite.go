// Package cache is the sync agent's local mailbox mirror.
package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"jobhunt-backend/internal/syncclient"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const upsertEmail = `
	INSERT INTO emails (id, thread_id, subject, sender, snippet, labels, received_at, category, company, position, cached_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		thread_id = excluded.thread_id,
		subject = excluded.subject,
		sender = excluded.sender,
		snippet = excluded.snippet,
		labels = excluded.labels,
		received_at = excluded.received_at,
		category = excluded.category,
		company = excluded.company,
		position = excluded.position,
		cached_at = excluded.cached_at`

// Store is a sqlite-backed syncclient.Cache.
type Store struct {
	DB  *sql.DB
	now func() time.Time
}

var _ syncclient.Cache = (*Store)(nil)

// Open opens or creates the cache database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{DB: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) Merge(ctx context.Context, emails []syncclient.Email) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.upsertAll(ctx, tx, emails)
	})
}

func (s *Store) Replace(ctx context.Context, emails []syncclient.Email) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM emails`); err != nil {
			return fmt.Errorf("clear emails: %w", err)
		}
		return s.upsertAll(ctx, tx, emails)
	})
}

// List returns cached emails, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]syncclient.Email, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, thread_id, subject, sender, snippet, labels, received_at, category, company, position
		FROM emails
		ORDER BY received_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query emails: %w", err)
	}
	defer rows.Close()

	var emails []syncclient.Email
	for rows.Next() {
		var (
			e          syncclient.Email
			receivedAt int64
		)
		if err := rows.Scan(&e.ID, &e.ThreadID, &e.Subject, &e.Sender, &e.Snippet, &e.Labels,
			&receivedAt, &e.Category, &e.Company, &e.Position); err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		if receivedAt > 0 {
			e.ReceivedAt = time.UnixMilli(receivedAt).UTC()
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM emails`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count emails: %w", err)
	}
	return n, nil
}

func (s *Store) upsertAll(ctx context.Context, tx *sql.Tx, emails []syncclient.Email) error {
	stmt, err := tx.PrepareContext(ctx, upsertEmail)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	cachedAt := s.now().UnixMilli()
	for _, e := range emails {
		var receivedAt int64
		if !e.ReceivedAt.IsZero() {
			receivedAt = e.ReceivedAt.UnixMilli()
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.ThreadID, e.Subject, e.Sender, e.Snippet, e.Labels,
			receivedAt, e.Category, e.Company, e.Position, cachedAt); err != nil {
			return fmt.Errorf("upsert email %s: %w", e.ID, err)
		}
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
