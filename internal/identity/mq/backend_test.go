package mq_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/mq"
)

// exerciseBackend runs the delivery contract every broker backend must keep.
func exerciseBackend(t *testing.T, b mq.Backend) {
	t.Run("round trip", func(t *testing.T) {
		got := make(chan mq.Message, 8)
		subscribe(t, b, "identity.emails.rt", func(_ context.Context, msg mq.Message) error {
			got <- msg
			return nil
		})

		id := publishUntil(t, b, "identity.emails.rt", []byte(`{"to":"a@x.com"}`),
			map[string]string{"kind": "password_reset"}, got)

		msg := <-got
		require.NotEmpty(t, id)
		require.NotEmpty(t, msg.ID)
		require.JSONEq(t, `{"to":"a@x.com"}`, string(msg.Data))
		require.Equal(t, "password_reset", msg.Attributes["kind"])
	})

	t.Run("nack redelivers", func(t *testing.T) {
		var mu sync.Mutex
		attempts := map[string]int{}
		done := make(chan mq.Message, 8)
		subscribe(t, b, "identity.emails.nack", func(_ context.Context, msg mq.Message) error {
			mu.Lock()
			defer mu.Unlock()
			attempts[msg.ID]++
			if attempts[msg.ID] < 3 {
				return errors.New("smtp down")
			}
			done <- msg
			return nil
		})

		publishUntil(t, b, "identity.emails.nack", []byte("retry me"), nil, done)

		msg := <-done
		require.Equal(t, "retry me", string(msg.Data))
		mu.Lock()
		require.Equal(t, 3, attempts[msg.ID])
		mu.Unlock()
	})
}

// subscribe runs handler on channel until the test ends.
func subscribe(t *testing.T, b mq.Backend, channel string, handler mq.Handler) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		_ = b.Subscribe(ctx, channel, handler)
	}()
	t.Cleanup(func() {
		cancel()
		<-exited
	})
}

// publishUntil keeps publishing until something arrives on delivered. Brokers
// that drop messages sent before the subscription exists need the retries.
func publishUntil(t *testing.T, b mq.Backend, channel string, data []byte, attrs map[string]string, delivered chan mq.Message) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	var first string
	for {
		id, err := b.Publish(ctx, channel, data, attrs)
		require.NoError(t, err)
		if first == "" {
			first = id
		}

		select {
		case msg := <-delivered:
			delivered <- msg
			return first
		case <-ticker.C:
		case <-ctx.Done():
			t.Fatalf("no delivery on %s", channel)
		}
	}
}
