package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	authdomain "jobhunt-backend/internal/auth/domain"
	"jobhunt-backend/internal/errs"
	"jobhunt-backend/internal/push/domain"
	"jobhunt-backend/internal/push/repository"
	syncdomain "jobhunt-backend/internal/syncjob/domain"

	"go.uber.org/zap"
)

// AccountFinder resolves the mailbox in a notification to its owner.
type AccountFinder interface {
	FindByEmail(ctx context.Context, email string) (*authdomain.Account, error)
}

// JobSubmitter queues sync jobs.
type JobSubmitter interface {
	Submit(ctx context.Context, req syncdomain.Request) (string, error)
}

// Result describes what Ingest did with a notification.
type Result struct {
	Outcome domain.Outcome
	OwnerID string
	JobID   string
}

// Ingestor turns mailbox change notifications into incremental sync jobs,
// at most once per notification id.
type Ingestor struct {
	processed repository.ProcessedRepository
	accounts  AccountFinder
	jobs      JobSubmitter
	logger    *zap.Logger
}

func NewIngestor(processed repository.ProcessedRepository, accounts AccountFinder, jobs JobSubmitter, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		processed: processed,
		accounts:  accounts,
		jobs:      jobs,
		logger:    logger.Named("push_ingestor"),
	}
}

// Ingest decodes a push message and hands it to IngestPayload.
func (i *Ingestor) Ingest(ctx context.Context, msg domain.PushMessage) (*Result, error) {
	data, err := base64.StdEncoding.DecodeString(msg.Data)
	if err != nil {
		// Some publishers omit padding.
		if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(msg.Data, "=")); err != nil {
			return nil, fmt.Errorf("%w: message data is not base64", errs.ErrInvalidArgument)
		}
	}
	return i.IngestPayload(ctx, msg.MessageID, data)
}

// IngestPayload records notificationID and, the first time it is seen,
// queues an incremental sync for the mailbox named in data. The id is
// recorded before the job is queued so a redelivery that races this call is
// still dropped. When the job cannot be queued the record is removed again
// so the redelivery that the error asks for is not mistaken for a duplicate.
func (i *Ingestor) IngestPayload(ctx context.Context, notificationID string, data []byte) (*Result, error) {
	if notificationID == "" {
		return nil, fmt.Errorf("%w: missing message id", errs.ErrInvalidArgument)
	}

	var n domain.MailboxNotification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("%w: decode notification: %v", errs.ErrInvalidArgument, err)
	}
	if n.EmailAddress == "" {
		return nil, fmt.Errorf("%w: notification has no email address", errs.ErrInvalidArgument)
	}

	log := i.logger.With(
		zap.String("notification_id", notificationID),
		zap.String("email", n.EmailAddress),
		zap.String("history_id", n.HistoryID.String()))

	first, err := i.processed.MarkProcessed(ctx, notificationID)
	if err != nil {
		return nil, fmt.Errorf("record notification: %w", err)
	}
	if !first {
		log.Info("duplicate notification ignored")
		return &Result{Outcome: domain.OutcomeDuplicate}, nil
	}

	account, err := i.accounts.FindByEmail(ctx, n.EmailAddress)
	if err != nil {
		i.forget(ctx, log, notificationID)
		return nil, fmt.Errorf("find account: %w", err)
	}
	if account == nil {
		log.Warn("notification for unknown mailbox")
		return &Result{Outcome: domain.OutcomeIgnored}, nil
	}

	jobID, err := i.jobs.Submit(ctx, syncdomain.Request{Kind: syncdomain.KindIncremental, OwnerID: account.OwnerID})
	if err != nil {
		i.forget(ctx, log, notificationID)
		return nil, fmt.Errorf("submit sync job: %w", err)
	}

	log.Info("notification queued sync", zap.String("owner_id", account.OwnerID), zap.String("job_id", jobID))
	return &Result{Outcome: domain.OutcomeQueued, OwnerID: account.OwnerID, JobID: jobID}, nil
}

func (i *Ingestor) forget(ctx context.Context, log *zap.Logger, notificationID string) {
	if err := i.processed.Forget(context.WithoutCancel(ctx), notificationID); err != nil {
		log.Error("release notification record", zap.Error(err))
	}
}

// processedRetention outlasts Pub/Sub's maximum redelivery window.
const processedRetention = 8 * 24 * time.Hour

// Housekeep drops idempotency records older than any possible redelivery.
func (i *Ingestor) Housekeep(ctx context.Context) error {
	n, err := i.processed.Purge(ctx, time.Now().Add(-processedRetention))
	if err != nil {
		return fmt.Errorf("purge processed notifications: %w", err)
	}
	if n > 0 {
		i.logger.Info("purged processed notifications", zap.Int64("count", n))
	}
	return nil
}
