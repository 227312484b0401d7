package pubsub_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/DojoBits/cncf-kubestronauts/internal/kubestronaut"
	pspublisher "github.com/DojoBits/cncf-kubestronauts/internal/publisher/pubsub"
)

func TestPublisherPublishAndClose(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Create a fake Pub/Sub server.
	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	admin, err := pubsub.NewClient(ctx, "project-id", option.WithGRPCConn(conn))
	require.NoError(t, err)
	defer admin.Close()

	topic, err := admin.CreateTopic(ctx, "kubestronaut-runs")
	require.NoError(t, err)
	sub, err := admin.CreateSubscription(ctx, "runs-sub", pubsub.SubscriptionConfig{Topic: topic})
	require.NoError(t, err)

	publisher, err := pspublisher.Open(ctx, pspublisher.Config{ProjectID: "project-id", Topic: "kubestronaut-runs"},
		option.WithGRPCConn(conn))
	require.NoError(t, err)

	summary := kubestronaut.Summary{RunID: "run-42", Regions: 6, Countries: 80, Total: 1500}
	id, err := publisher.Publish(ctx, summary, map[string]string{"run_id": "run-42"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	received := make(chan *pubsub.Message, 1)
	recvCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		_ = sub.Receive(recvCtx, func(_ context.Context, msg *pubsub.Message) {
			msg.Ack()
			select {
			case received <- msg:
			default:
			}
		})
	}()

	select {
	case msg := <-received:
		var got kubestronaut.Summary
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, summary.RunID, got.RunID)
		assert.Equal(t, 80, got.Countries)
		assert.Equal(t, "run-42", msg.Attributes["run_id"])
	case <-ctx.Done():
		t.Fatal("message was not delivered")
	}
	stop()

	assert.NoError(t, publisher.Close())
}

func TestOpenRequiresTopic(t *testing.T) {
	_, err := pspublisher.Open(context.Background(), pspublisher.Config{ProjectID: "p"})
	require.Error(t, err)
}

func TestPublishWithoutTopic(t *testing.T) {
	_, err := pspublisher.New(nil).Publish(context.Background(), "x", nil)
	require.Error(t, err)
}
