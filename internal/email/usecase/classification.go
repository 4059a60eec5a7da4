package usecase

import (
	"context"
	"fmt"

	emaildomain "jobhunt-backend/internal/email/domain"
	"jobhunt-backend/internal/email/repository"
	"jobhunt-backend/pkg/ai"

	"go.uber.org/zap"
)

const classifyBatchSize = 50

// Classifier runs the AI classifier over mirrored messages that have not
// been classified yet.
type Classifier struct {
	records    repository.MailRecordRepository
	classifier ai.Classifier
	logger     *zap.Logger
}

func NewClassifier(records repository.MailRecordRepository, classifier ai.Classifier, logger *zap.Logger) *Classifier {
	return &Classifier{
		records:    records,
		classifier: classifier,
		logger:     logger.Named("classifier"),
	}
}

// ClassifyPending classifies up to one batch of the owner's unclassified
// messages and returns how many were classified. Failed messages stay
// unclassified and are picked up by the next pass.
func (c *Classifier) ClassifyPending(ctx context.Context, ownerID string) (int, error) {
	pending, err := c.records.ListUnclassified(ctx, ownerID, classifyBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list unclassified: %w", err)
	}

	classified := 0
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return classified, err
		}

		cls, err := c.classifier.Classify(ctx, emailText(rec))
		if err != nil {
			c.logger.Warn("classify message failed",
				zap.String("owner_id", ownerID), zap.String("message_id", rec.ID), zap.Error(err))
			continue
		}

		err = c.records.UpdateClassification(ctx, ownerID, rec.ID, &emaildomain.Classification{
			Category:   cls.Category,
			Company:    cls.Company,
			Position:   cls.Position,
			Confidence: cls.Confidence,
		})
		if err != nil {
			c.logger.Warn("store classification failed",
				zap.String("owner_id", ownerID), zap.String("message_id", rec.ID), zap.Error(err))
			continue
		}
		classified++
	}
	return classified, nil
}

func emailText(rec *emaildomain.MailRecord) string {
	return fmt.Sprintf("From: %s\nSubject: %s\n\n%s", rec.Sender, rec.Subject, rec.Snippet)
}
