package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/mq"
)

// Relay drains the notification channel into a downstream Notifier. A
// delivery failure nacks the message so the broker redelivers it.
type Relay struct {
	Subscriber mq.Subscriber
	Channel    string
	Downstream Notifier
	Logger     *slog.Logger
}

// Run blocks until ctx is cancelled or the subscription fails.
func (r *Relay) Run(ctx context.Context) error {
	channel := r.Channel
	if channel == "" {
		channel = DefaultChannel
	}

	r.Logger.Info("relay started", slog.String("channel", channel))
	err := r.Subscriber.Subscribe(ctx, channel, r.handle)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	r.Logger.Info("relay stopped", slog.String("channel", channel))
	return err
}

func (r *Relay) handle(ctx context.Context, m mq.Message) error {
	var msg Message
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		// Undecodable messages are acked and dropped.
		r.Logger.Error("dropping undecodable notification",
			slog.String("message_id", m.ID),
			slog.Any("error", err),
		)
		return nil
	}

	if err := r.Downstream.Send(ctx, msg); err != nil {
		r.Logger.Warn("notification delivery failed",
			slog.String("message_id", m.ID),
			slog.String("to", msg.To),
			slog.Any("error", err),
		)
		return err
	}

	r.Logger.Info("notification delivered",
		slog.String("message_id", m.ID),
		slog.String("to", msg.To),
		slog.String("kind", string(msg.Kind)),
	)
	return nil
}
