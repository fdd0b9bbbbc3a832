package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/mq"
)

// DefaultChannel is the queue or topic notifications are published to.
const DefaultChannel = "identity.notifications"

// QueueNotifier hands messages to a broker for a Relay to deliver.
type QueueNotifier struct {
	Publisher mq.Publisher
	Channel   string
}

func (n *QueueNotifier) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: encode message: %w", err)
	}

	channel := n.Channel
	if channel == "" {
		channel = DefaultChannel
	}

	if _, err := n.Publisher.Publish(ctx, channel, data, map[string]string{"kind": string(msg.Kind)}); err != nil {
		return fmt.Errorf("notify: publish to %s: %w", channel, err)
	}
	return nil
}
