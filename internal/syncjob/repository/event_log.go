// Package repository holds the append-only sync job event log.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"jobhunt-backend/internal/errs"
	"jobhunt-backend/internal/syncjob/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the part of a Postgres pool the event log uses.
// It is implemented by *pgxpool.Pool and pgxmock.PgxPoolIface.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// EventLog stores job history as immutable rows. Rows are never updated;
// state is derived by folding a job's events.
type EventLog struct{ pool PgxPool }

func NewEventLog(pool PgxPool) *EventLog { return &EventLog{pool: pool} }

const (
	lockJob    = `SELECT pg_advisory_xact_lock(hashtext($1))`
	lastStatus = `SELECT status FROM sync_job_events WHERE job_id=$1 ORDER BY seq DESC LIMIT 1`
	insertEv   = `INSERT INTO sync_job_events (job_id, owner_id, kind, status, progress, phase, message, summary) VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING seq, created_at`
	selectEvs  = `SELECT seq, job_id, owner_id, kind, status, progress, phase, message, summary, created_at FROM sync_job_events WHERE job_id=$1 ORDER BY seq`
)

// Append writes ev if it is a legal successor of the job's latest event and
// fills in its sequence number and timestamp. The check and the insert run
// under a per-job advisory lock.
func (l *EventLog) Append(ctx context.Context, ev *domain.Event) (err error) {
	var summary []byte
	if ev.Summary != nil {
		if summary, err = json.Marshal(ev.Summary); err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
	}

	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	if _, err = tx.Exec(ctx, lockJob, ev.JobID); err != nil {
		return err
	}

	var last string
	scanErr := tx.QueryRow(ctx, lastStatus, ev.JobID).Scan(&last)
	if scanErr != nil && !errors.Is(scanErr, pgx.ErrNoRows) {
		return scanErr
	}
	if !domain.CanAppend(domain.Status(last), ev.Status) {
		return fmt.Errorf("job %s: %w: %s -> %s", ev.JobID, errs.ErrIllegalTransition, last, ev.Status)
	}

	err = tx.QueryRow(ctx, insertEv,
		ev.JobID, ev.OwnerID, string(ev.Kind), string(ev.Status), ev.Progress, ev.Phase, ev.Message, summary,
	).Scan(&ev.Seq, &ev.CreatedAt)
	return err
}

// Events returns a job's history in append order.
func (l *EventLog) Events(ctx context.Context, jobID string) ([]domain.Event, error) {
	rows, err := l.pool.Query(ctx, selectEvs, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var (
			ev           domain.Event
			kind, status string
			summary      []byte
		)
		if err := rows.Scan(&ev.Seq, &ev.JobID, &ev.OwnerID, &kind, &status,
			&ev.Progress, &ev.Phase, &ev.Message, &summary, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Kind = domain.Kind(kind)
		ev.Status = domain.Status(status)
		if len(summary) > 0 {
			ev.Summary = &domain.Summary{}
			if err := json.Unmarshal(summary, ev.Summary); err != nil {
				return nil, fmt.Errorf("job %s seq %d: %w: %v", jobID, ev.Seq, errs.ErrCorruptState, err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Job folds the job's events. Unknown jobs return errs.ErrNotFound.
func (l *EventLog) Job(ctx context.Context, jobID string) (*domain.Job, error) {
	events, err := l.Events(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return domain.Fold(events)
}
