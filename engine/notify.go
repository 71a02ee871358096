package engine

import (
	"context"

	"github.com/pilacorp/go-context-sdk/common/model"
)

// WithNotification wraps a messaging engine so every successful send pings
// the recipient's notification server. The ping is best effort: a ping
// failure never fails the send.
func WithNotification(messaging MessagingEngine, notification NotificationEngine, contextHash string) MessagingEngine {
	if notification == nil {
		return messaging
	}

	return &notifyingMessaging{
		MessagingEngine: messaging,
		notification:    notification,
		contextHash:     contextHash,
	}
}

type notifyingMessaging struct {
	MessagingEngine
	notification NotificationEngine
	contextHash  string
}

func (n *notifyingMessaging) Send(ctx context.Context, toDID, messageType string, data any, message string, config MessageSendConfig) (*model.Message, error) {
	sent, err := n.MessagingEngine.Send(ctx, toDID, messageType, data, message, config)
	if err != nil {
		return nil, err
	}

	// Best effort: the recipient polls eventually even without a ping.
	_ = n.notification.Ping(ctx, toDID, n.contextHash)

	return sent, nil
}
