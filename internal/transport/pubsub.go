package transport

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/systmms/secwallet/internal/notify"
)

// NotificationTopic is the single topic every notification is published
// on, matching the original system's "SECW_NOTIFICATIONS" stream.
const NotificationTopic = "SECW_NOTIFICATIONS"

// Subscriber receives notification payloads as they are published.
type Subscriber func(topic string, payload []byte)

// LocalPublisher is an in-process stand-in for the stream publisher
// collaborator (spec.md §1, §6.2): Publish fans a notify.Event out to every
// subscribed callback on the notification topic.
type LocalPublisher struct {
	mu          sync.RWMutex
	subscribers []Subscriber
}

// NewLocalPublisher creates a publisher with no subscribers.
func NewLocalPublisher() *LocalPublisher {
	return &LocalPublisher{}
}

// Subscribe registers a callback invoked for every future publication.
func (p *LocalPublisher) Subscribe(sub Subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, sub)
}

// wireEvent is the single-frame JSON payload from spec.md §6.2.
type wireEvent struct {
	Action            notify.Action          `json:"action"`
	Portfolio         string                 `json:"portfolio"`
	OldData           map[string]interface{} `json:"old_data"`
	NewData           map[string]interface{} `json:"new_data"`
	NonSecretChanged  *bool                  `json:"non_secret_changed,omitempty"`
	SecretChanged     *bool                  `json:"secret_changed,omitempty"`
}

// Publish implements notify.Publisher.
func (p *LocalPublisher) Publish(_ context.Context, event notify.Event) error {
	payload, err := json.Marshal(wireEvent{
		Action:           event.Action,
		Portfolio:        event.Portfolio,
		OldData:          event.OldData,
		NewData:          event.NewData,
		NonSecretChanged: event.NonSecretChanged,
		SecretChanged:    event.SecretChanged,
	})
	if err != nil {
		return err
	}

	p.mu.RLock()
	subs := append([]Subscriber(nil), p.subscribers...)
	p.mu.RUnlock()

	for _, sub := range subs {
		sub(NotificationTopic, payload)
	}
	return nil
}
