package mq_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/mq"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_PublishSubscribe(t *testing.T) {
	b := mq.New(mq.NewMemoryBackend(4))
	defer func() { _ = b.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, err := b.Publish(ctx, "identity.emails", []byte(`{"to":"a@x.com"}`), map[string]string{"kind": "password_reset"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got := make(chan mq.Message, 1)
	go func() {
		_ = b.Subscribe(ctx, "identity.emails", func(_ context.Context, msg mq.Message) error {
			got <- msg
			return nil
		})
	}()

	select {
	case msg := <-got:
		require.Equal(t, id, msg.ID)
		require.JSONEq(t, `{"to":"a@x.com"}`, string(msg.Data))
		require.Equal(t, "password_reset", msg.Attributes["kind"])
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestMemoryBackend_NackRedelivers(t *testing.T) {
	b := mq.NewMemoryBackend(4)
	defer func() { _ = b.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := b.Publish(ctx, "q", []byte("x"), nil)
	require.NoError(t, err)

	var attempts atomic.Int32
	done := make(chan struct{})
	go func() {
		_ = b.Subscribe(ctx, "q", func(context.Context, mq.Message) error {
			if attempts.Add(1) < 3 {
				return errors.New("smtp down")
			}
			close(done)
			return nil
		})
	}()

	select {
	case <-done:
		require.EqualValues(t, 3, attempts.Load())
	case <-time.After(2 * time.Second):
		t.Fatal("message was not redelivered")
	}
}

func TestMemoryBackend_Closed(t *testing.T) {
	b := mq.NewMemoryBackend(1)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, err := b.Publish(context.Background(), "q", nil, nil)
	require.ErrorIs(t, err, mq.ErrClosed)

	err = b.Subscribe(context.Background(), "q", func(context.Context, mq.Message) error { return nil })
	require.ErrorIs(t, err, mq.ErrClosed)
}
