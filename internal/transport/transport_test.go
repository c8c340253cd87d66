package transport_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secwallet/internal/notify"
	"github.com/systmms/secwallet/internal/transport"
)

func TestLocalTransportRoutesToRegisteredHandler(t *testing.T) {
	tr := transport.NewLocalTransport()
	tr.Register("sws-test", func(_ context.Context, sender string, frame []string) ([]string, error) {
		return []string{frame[0], "pong:" + sender}, nil
	})

	reply, err := tr.Call(context.Background(), "sws-test", "client-1", []string{"corr-1", "PING"})
	require.NoError(t, err)
	assert.Equal(t, []string{"corr-1", "pong:client-1"}, reply)
}

func TestLocalTransportUnknownAgentErrors(t *testing.T) {
	tr := transport.NewLocalTransport()
	_, err := tr.Call(context.Background(), "missing", "sender", []string{"corr-1", "CMD"})
	assert.Error(t, err)
}

func TestLocalPublisherFansOutToSubscribers(t *testing.T) {
	pub := transport.NewLocalPublisher()

	var received []byte
	pub.Subscribe(func(topic string, payload []byte) {
		assert.Equal(t, transport.NotificationTopic, topic)
		received = payload
	})

	err := pub.Publish(context.Background(), notify.Event{Action: notify.ActionCreated, Portfolio: "default"})
	require.NoError(t, err)
	assert.Contains(t, string(received), `"action":"CREATED"`)
}
