package fcm

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMessaging struct {
	sent *messaging.MulticastMessage
	resp *messaging.BatchResponse
	err  error
}

func (f *fakeMessaging) SendEachForMulticast(_ context.Context, m *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	f.sent = m
	return f.resp, f.err
}

func TestSendToDevices_ReturnsFailedTokens(t *testing.T) {
	m := &fakeMessaging{resp: &messaging.BatchResponse{
		SuccessCount: 1,
		FailureCount: 1,
		Responses: []*messaging.SendResponse{
			{Success: true, MessageID: "x"},
			{Success: false, Error: errors.New("unregistered")},
		},
	}}
	c := NewClientWith(m, zap.NewNop())

	failed, err := c.SendToDevices(context.Background(), []string{"good", "stale"}, NotificationData{
		Title:       "3 new messages",
		Body:        "Your mailbox was synced",
		Data:        map[string]string{"type": "sync_completed"},
		ClickAction: "/inbox",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"stale"}, failed)
	require.Equal(t, []string{"good", "stale"}, m.sent.Tokens)
	require.Equal(t, "/inbox", m.sent.Data["click_action"])
	require.Equal(t, "sync_completed", m.sent.Data["type"])
	require.Equal(t, "3 new messages", m.sent.Notification.Title)
}

func TestSendToDevices_NoTokens(t *testing.T) {
	m := &fakeMessaging{}
	c := NewClientWith(m, zap.NewNop())

	failed, err := c.SendToDevices(context.Background(), nil, NotificationData{})
	require.NoError(t, err)
	require.Nil(t, failed)
	require.Nil(t, m.sent)
}

func TestSendToDevices_Error(t *testing.T) {
	c := NewClientWith(&fakeMessaging{err: errors.New("quota")}, zap.NewNop())

	_, err := c.SendToDevices(context.Background(), []string{"a"}, NotificationData{})
	require.Error(t, err)
}
