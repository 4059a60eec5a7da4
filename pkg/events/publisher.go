// Package events publishes sync job events to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jobhunt-backend/internal/syncjob/domain"

	"github.com/nats-io/nats.go"
)

const streamName = "USER_EVENTS"

// JetStream is the part of nats.JetStreamContext the publisher uses.
type JetStream interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Publisher wraps NATS JetStream for publishing job events
type Publisher struct {
	nc *nats.Conn
	js JetStream
}

// NewPublisher connects to NATS and opens a JetStream context.
func NewPublisher(url string) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("jobhunt-backend"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	return &Publisher{nc: nc, js: js}, nil
}

// NewPublisherWith uses an existing JetStream context.
func NewPublisherWith(js JetStream) *Publisher {
	return &Publisher{js: js}
}

// EnsureStream ensures the USER_EVENTS stream exists
func (p *Publisher) EnsureStream(ctx context.Context) error {
	if info, err := p.js.StreamInfo(streamName, nats.Context(ctx)); err == nil && info != nil {
		return nil
	}

	_, err := p.js.AddStream(&nats.StreamConfig{
		Name:       streamName,
		Subjects:   []string{"user.*.>"},
		Storage:    nats.FileStorage,
		Retention:  nats.LimitsPolicy,
		Duplicates: 10 * time.Minute,
		MaxAge:     7 * 24 * time.Hour,
	}, nats.Context(ctx))
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Subject is where events for an owner's jobs with the given status go.
func Subject(ownerID string, status domain.Status) string {
	return fmt.Sprintf("user.%s.sync.%s", ownerID, status)
}

// MsgID makes redelivered appends of the same event collapse in the stream.
func MsgID(ev domain.Event) string {
	return fmt.Sprintf("%s:%d", ev.JobID, ev.Seq)
}

// PublishJobEvent publishes ev with JetStream de-duplication on job and seq.
func (p *Publisher) PublishJobEvent(ctx context.Context, ev domain.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := p.js.Publish(Subject(ev.OwnerID, ev.Status), payload, nats.MsgId(MsgID(ev)), nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
