package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Messaging is the part of the Firebase messaging client used here.
type Messaging interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Client wraps Firebase Cloud Messaging functionality
type Client struct {
	messaging Messaging
	logger    *zap.Logger
}

// NewClient creates a new FCM client using the provided credentials file
func NewClient(ctx context.Context, credentialsFile string, logger *zap.Logger) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	logger.Named("fcm").Info("client initialized")
	return NewClientWith(messagingClient, logger), nil
}

func NewClientWith(m Messaging, logger *zap.Logger) *Client {
	return &Client{messaging: m, logger: logger.Named("fcm")}
}

// NotificationData contains the data to send in a push notification
type NotificationData struct {
	Title string
	Body  string
	// Data is the custom payload delivered to the app.
	Data map[string]string
	// ClickAction is the path opened when the notification is clicked.
	ClickAction string
}

// SendToDevices sends a push notification to multiple device tokens
// Returns a list of tokens that failed to receive the notification
func (c *Client) SendToDevices(ctx context.Context, tokens []string, notification NotificationData) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	data := notification.Data
	if notification.ClickAction != "" {
		data = make(map[string]string, len(notification.Data)+1)
		for k, v := range notification.Data {
			data[k] = v
		}
		data["click_action"] = notification.ClickAction
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		},
		Data: data,
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: notification.Title,
				Body:  notification.Body,
				Icon:  "/icon-192.svg",
			},
		},
	}

	response, err := c.messaging.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM multicast message: %w", err)
	}

	c.logger.Debug("multicast sent",
		zap.Int("success", response.SuccessCount),
		zap.Int("failure", response.FailureCount))

	var failedTokens []string
	for i, resp := range response.Responses {
		if i >= len(tokens) {
			break
		}
		if !resp.Success {
			failedTokens = append(failedTokens, tokens[i])
			c.logger.Debug("send to device failed", zap.String("token", truncate(tokens[i])), zap.Error(resp.Error))
		}
	}

	return failedTokens, nil
}

func truncate(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
