package usecase

import (
	"context"
	"fmt"

	"jobhunt-backend/internal/application/domain"
	"jobhunt-backend/internal/application/repository"
	emailrepo "jobhunt-backend/internal/email/repository"
	"jobhunt-backend/pkg/fuzzy"

	"go.uber.org/zap"
)

const (
	// Minimum company score for a message to count as about an application.
	linkThreshold = 0.8
	linkBatchSize = 200
)

// Linker attaches classified messages to the tracked application they are
// about and moves the application's status forward.
type Linker struct {
	records emailrepo.MailRecordRepository
	apps    repository.ApplicationRepository
	logger  *zap.Logger
}

func NewLinker(records emailrepo.MailRecordRepository, apps repository.ApplicationRepository, logger *zap.Logger) *Linker {
	return &Linker{
		records: records,
		apps:    apps,
		logger:  logger.Named("linker"),
	}
}

// LinkPending links the owner's classified, unlinked messages and returns how
// many were linked. A failure on one message does not stop the pass.
func (l *Linker) LinkPending(ctx context.Context, ownerID string) (int, error) {
	candidates, err := l.records.ListLinkCandidates(ctx, ownerID, linkBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list link candidates: %w", err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	apps, err := l.apps.ListByOwner(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("list applications: %w", err)
	}
	if len(apps) == 0 {
		return 0, nil
	}

	linked := 0
	// Candidates are newest first; walk oldest first so status ends on the latest mail.
	for i := len(candidates) - 1; i >= 0; i-- {
		rec := candidates[i]
		app := bestMatch(apps, rec.Company, rec.Position)
		if app == nil {
			continue
		}
		if err := l.records.SetApplication(ctx, ownerID, rec.ID, app.ID); err != nil {
			l.logger.Warn("link message failed",
				zap.String("owner_id", ownerID), zap.String("message_id", rec.ID), zap.Error(err))
			continue
		}
		linked++

		next := domain.StatusForCategory(rec.Category)
		if app.Status.Advances(next) {
			if err := l.apps.UpdateStatus(ctx, app.ID, next); err != nil {
				l.logger.Warn("update application status failed",
					zap.String("application_id", app.ID), zap.Error(err))
				continue
			}
			app.Status = next
		}
	}
	return linked, nil
}

// bestMatch returns the application whose company matches best, using the
// position to break near-ties.
func bestMatch(apps []*domain.JobApplication, company, position string) *domain.JobApplication {
	var (
		best      *domain.JobApplication
		bestScore float64
	)
	for _, app := range apps {
		score := fuzzy.CompanyScore(company, app.Company)
		if score < linkThreshold {
			continue
		}
		if position != "" && app.Position != "" {
			score += 0.2 * fuzzy.Similarity(position, app.Position)
		}
		if score > bestScore {
			best, bestScore = app, score
		}
	}
	return best
}
