package sinks

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
)

func TestPubSubSinkPublishes(t *testing.T) {
	// Use the in-memory Pub/Sub emulator.
	server := pstest.NewServer()
	defer server.Close()
	defer os.Unsetenv("PUBSUB_EMULATOR_HOST")
	os.Setenv("PUBSUB_EMULATOR_HOST", server.Addr)

	ctx := context.Background()
	client, err := pubsub.NewClient(ctx, "test-project")
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	if _, err := client.CreateTopic(ctx, "publish-events"); err != nil {
		t.Fatalf("create topic: %v", err)
	}

	sink, err := newPubSubSink(ctx, SinkConfig{
		ID:   "ps-1",
		Type: TypePubSub,
		PubSub: &PubSubSinkConfig{
			ProjectID: "test-project",
			Topic:     "publish-events",
		},
	}, nil)
	if err != nil {
		t.Fatalf("newPubSubSink: %v", err)
	}

	if err := sink.Send(ctx, NewEvent("a1", "u1", TriggerImmediate, nil)); err != nil {
		t.Fatalf("Send: %v", err)
	}
}
