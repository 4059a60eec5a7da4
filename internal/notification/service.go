package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobhunt-backend/internal/errs"
	pushusecase "jobhunt-backend/internal/push/usecase"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// PayloadIngestor is the push ingestor's entry point for raw payloads.
type PayloadIngestor interface {
	IngestPayload(ctx context.Context, notificationID string, data []byte) (*pushusecase.Result, error)
}

// Service pulls mailbox notifications from a Pub/Sub subscription, for
// deployments that cannot expose the push endpoint.
type Service struct {
	pubsubClient *pubsub.Client
	ingestor     PayloadIngestor
	topicName    string
	subName      string
	logger       *zap.Logger
}

func NewService(ctx context.Context, projectID, topicName, subName, credentialsFile string, ingestor PayloadIngestor, logger *zap.Logger) (*Service, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	if subName == "" {
		subName = topicName + "-sub"
	}
	return &Service{
		pubsubClient: client,
		ingestor:     ingestor,
		topicName:    topicName,
		subName:      subName,
		logger:       logger.Named("pubsub"),
	}, nil
}

// Start receives messages until ctx is cancelled. It creates the
// subscription if the topic exists but the subscription does not.
func (s *Service) Start(ctx context.Context) error {
	sub, err := s.ensureSubscription(ctx)
	if err != nil {
		return err
	}

	s.logger.Info("listening for notifications", zap.String("subscription", s.subName))
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if s.handle(ctx, msg.ID, msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

func (s *Service) Close() error {
	return s.pubsubClient.Close()
}

func (s *Service) ensureSubscription(ctx context.Context) (*pubsub.Subscription, error) {
	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check subscription %s: %w", s.subName, err)
	}
	if exists {
		return sub, nil
	}

	topic := s.pubsubClient.Topic(s.topicName)
	topicExists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic %s: %w", s.topicName, err)
	}
	if !topicExists {
		return nil, fmt.Errorf("topic %s does not exist", s.topicName)
	}

	sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("create subscription %s: %w", s.subName, err)
	}
	s.logger.Info("created subscription", zap.String("subscription", s.subName))
	return sub, nil
}

// handle reports whether the message should be acked. Payloads that can
// never be processed are acked; storage failures are redelivered.
func (s *Service) handle(ctx context.Context, id string, data []byte) bool {
	res, err := s.ingestor.IngestPayload(ctx, id, data)
	switch {
	case errors.Is(err, errs.ErrInvalidArgument):
		s.logger.Warn("undecodable notification dropped", zap.String("message_id", id), zap.Error(err))
		return true
	case err != nil:
		s.logger.Error("ingest notification", zap.String("message_id", id), zap.Error(err))
		return false
	}
	s.logger.Debug("notification ingested",
		zap.String("message_id", id),
		zap.String("outcome", string(res.Outcome)),
		zap.String("job_id", res.JobID))
	return true
}
