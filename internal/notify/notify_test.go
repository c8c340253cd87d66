package notify_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secwallet/internal/notify"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) snapshot() []notify.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notify.Event(nil), p.events...)
}

func TestSendDeliversInOrder(t *testing.T) {
	pub := &recordingPublisher{}
	mgr := notify.NewManager(pub, 10)
	mgr.Start(context.Background())
	defer mgr.Stop()

	for i := 0; i < 5; i++ {
		mgr.Send(notify.Event{Action: notify.ActionCreated, Portfolio: "default"})
	}

	require.Eventually(t, func() bool {
		return len(pub.snapshot()) == 5
	}, time.Second, time.Millisecond)
}

func TestSendNeverBlocksWhenQueueFull(t *testing.T) {
	blocking := make(chan struct{})
	pub := blockingPublisher{ready: blocking}
	mgr := notify.NewManager(pub, 1)
	mgr.Start(context.Background())
	defer func() {
		close(blocking)
		mgr.Stop()
	}()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			mgr.Send(notify.Event{Action: notify.ActionUpdated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked despite full queue")
	}

	assert.Greater(t, mgr.DroppedCount(), int64(0))
}

type blockingPublisher struct {
	ready chan struct{}
}

func (p blockingPublisher) Publish(_ context.Context, _ notify.Event) error {
	<-p.ready
	return nil
}

func TestOnDroppedCallbackFires(t *testing.T) {
	blocking := make(chan struct{})
	pub := blockingPublisher{ready: blocking}

	var dropped int
	var mu sync.Mutex
	mgr := notify.NewManager(pub, 1, notify.WithOnDropped(func() {
		mu.Lock()
		dropped++
		mu.Unlock()
	}))
	mgr.Start(context.Background())
	defer func() {
		close(blocking)
		mgr.Stop()
	}()

	for i := 0; i < 10; i++ {
		mgr.Send(notify.Event{})
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return dropped > 0
	}, time.Second, time.Millisecond)
}
