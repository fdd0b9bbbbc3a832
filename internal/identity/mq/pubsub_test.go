package mq_test

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/mq"
)

// newPubSubClient points the SDK at an in-process fake Pub/Sub server.
func newPubSubClient(t *testing.T) *mq.PubSubClient {
	t.Helper()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })
	t.Setenv("PUBSUB_EMULATOR_HOST", srv.Addr)

	client, err := mq.NewPubSubClient(context.Background(), mq.PubSubConfig{ProjectID: "ooh-marketplace-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPubSubClient(t *testing.T) {
	exerciseBackend(t, newPubSubClient(t))
}

func TestPubSubClient_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := mq.NewPubSubClient(ctx, mq.PubSubConfig{})
	require.EqualError(t, err, "pubsub project id is required")

	client := newPubSubClient(t)
	_, err = client.Publish(ctx, " ", []byte("x"), nil)
	require.EqualError(t, err, "pubsub channel is required")
	require.EqualError(t, client.Subscribe(ctx, "", nil), "pubsub channel is required")
}
