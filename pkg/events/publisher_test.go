package events

import (
	"context"
	"encoding/json"
	"testing"

	"jobhunt-backend/internal/syncjob/domain"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    []byte
	opts    int
}

type fakeJetStream struct {
	streams   map[string]bool
	addErr    error
	published []published
}

func (f *fakeJetStream) StreamInfo(stream string, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	if f.streams[stream] {
		return &nats.StreamInfo{Config: nats.StreamConfig{Name: stream}}, nil
	}
	return nil, nats.ErrStreamNotFound
}

func (f *fakeJetStream) AddStream(cfg *nats.StreamConfig, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	if f.streams == nil {
		f.streams = map[string]bool{}
	}
	f.streams[cfg.Name] = true
	return &nats.StreamInfo{Config: *cfg}, nil
}

func (f *fakeJetStream) Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error) {
	f.published = append(f.published, published{subject: subj, data: data, opts: len(opts)})
	return &nats.PubAck{Stream: streamName}, nil
}

func TestEnsureStream(t *testing.T) {
	js := &fakeJetStream{}
	p := NewPublisherWith(js)

	require.NoError(t, p.EnsureStream(context.Background()))
	require.True(t, js.streams[streamName])
	require.NoError(t, p.EnsureStream(context.Background()))

	raced := &fakeJetStream{addErr: nats.ErrStreamNameAlreadyInUse}
	require.NoError(t, NewPublisherWith(raced).EnsureStream(context.Background()))
}

func TestPublishJobEvent(t *testing.T) {
	js := &fakeJetStream{}
	p := NewPublisherWith(js)

	ev := domain.Event{Seq: 4, JobID: "j1", OwnerID: "o1", Status: domain.StatusCompleted, Progress: 100}
	require.NoError(t, p.PublishJobEvent(context.Background(), ev))

	require.Len(t, js.published, 1)
	require.Equal(t, "user.o1.sync.completed", js.published[0].subject)
	require.Equal(t, 2, js.published[0].opts)

	var got domain.Event
	require.NoError(t, json.Unmarshal(js.published[0].data, &got))
	require.Equal(t, "j1", got.JobID)
	require.Equal(t, "j1:4", MsgID(ev))
}
