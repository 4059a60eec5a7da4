package notification

import (
	"context"
	"fmt"

	authdomain "jobhunt-backend/internal/auth/domain"
	syncdomain "jobhunt-backend/internal/syncjob/domain"
	"jobhunt-backend/pkg/fcm"

	"go.uber.org/zap"
)

// DeviceSender delivers a notification to device tokens and returns the
// tokens that could not be reached.
type DeviceSender interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

type TokenStore interface {
	GetTokensByUserID(ctx context.Context, userID string) ([]authdomain.FCMToken, error)
	DeleteToken(ctx context.Context, token string) error
}

// Notifier pushes a device notification when a sync job brought in new mail.
type Notifier struct {
	sender DeviceSender
	tokens TokenStore
	logger *zap.Logger
}

func NewNotifier(sender DeviceSender, tokens TokenStore, logger *zap.Logger) *Notifier {
	return &Notifier{sender: sender, tokens: tokens, logger: logger.Named("notifier")}
}

func (n *Notifier) JobCompleted(ctx context.Context, job *syncdomain.Job) {
	if job == nil || job.Summary == nil || job.Summary.Sync == nil || job.Summary.Sync.MessagesSynced == 0 {
		return
	}
	log := n.logger.With(zap.String("owner_id", job.OwnerID), zap.String("job_id", job.ID))

	tokens, err := n.tokens.GetTokensByUserID(ctx, job.OwnerID)
	if err != nil {
		log.Warn("load device tokens", zap.Error(err))
		return
	}
	if len(tokens) == 0 {
		return
	}
	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	synced := job.Summary.Sync.MessagesSynced
	title := "New email"
	if synced > 1 {
		title = fmt.Sprintf("%d new emails", synced)
	}
	body := "Your mailbox is up to date"
	if job.Summary.Linked > 0 {
		body = fmt.Sprintf("%d linked to your applications", job.Summary.Linked)
	}

	failed, err := n.sender.SendToDevices(ctx, tokenStrings, fcm.NotificationData{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":           "sync_completed",
			"jobId":          job.ID,
			"messagesSynced": fmt.Sprintf("%d", synced),
		},
		ClickAction: "/inbox",
	})
	if err != nil {
		log.Warn("send sync notification", zap.Error(err))
		return
	}

	for _, token := range failed {
		if err := n.tokens.DeleteToken(ctx, token); err != nil {
			log.Warn("prune device token", zap.Error(err))
		}
	}
	log.Debug("sync notification sent",
		zap.Int("devices", len(tokenStrings)-len(failed)),
		zap.Int("pruned", len(failed)))
}
