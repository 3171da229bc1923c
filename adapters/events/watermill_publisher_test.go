package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillPublisher(t *testing.T) {
	t.Parallel()

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubsub.Close() })

	messages, err := pubsub.Subscribe(context.Background(), TopicRefreshed)
	require.NoError(t, err)

	publisher := NewWatermillPublisher(pubsub)

	require.NoError(t, publisher.PublishRefreshed(context.Background(), 42))

	select {
	case msg := <-messages:
		msg.Ack()

		assert.Equal(t, "42", msg.Metadata.Get("principal_id"))

		var event SessionEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, int64(42), event.PrincipalID)
		assert.WithinDuration(t, time.Now(), event.OccurredAt, time.Second)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}
