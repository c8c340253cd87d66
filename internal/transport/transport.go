// Package transport provides in-process stand-ins for the two transport
// collaborators spec.md names as out of scope: the broker-based mailbox
// request/reply transport and the stream publisher used for notifications.
// Only their interfaces are part of the module's core; these
// implementations let the servers run and be tested end to end without an
// external broker.
package transport

import (
	"context"
	"sync"
)

// Handler processes one request frame and returns the reply frame.
type Handler func(ctx context.Context, sender string, frame []string) ([]string, error)

// RequestTransport is the narrow collaborator interface named in spec.md
// §4.3: something that can deliver a (sender, frame) request to a
// dispatcher and return its reply.
type RequestTransport interface {
	// Register binds a handler to an agent name (the SWS/CAMS agent
	// identity from the startup config).
	Register(agentName string, handler Handler)
	// Call sends a frame to agentName and blocks for the reply.
	Call(ctx context.Context, agentName, sender string, frame []string) ([]string, error)
}

// LocalTransport is an in-process RequestTransport: every agent registered
// runs in the caller's goroutine, so Call simply invokes the handler
// directly. Requests to distinct agents may run concurrently; each
// handler is responsible for its own internal serialization (the server's
// mutation lock, per spec.md §5).
type LocalTransport struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewLocalTransport creates an empty in-process transport.
func NewLocalTransport() *LocalTransport {
	return &LocalTransport{handlers: make(map[string]Handler)}
}

// Register implements RequestTransport.
func (t *LocalTransport) Register(agentName string, handler Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[agentName] = handler
}

// Call implements RequestTransport.
func (t *LocalTransport) Call(ctx context.Context, agentName, sender string, frame []string) ([]string, error) {
	t.mu.RLock()
	handler, ok := t.handlers[agentName]
	t.mu.RUnlock()
	if !ok {
		return nil, errUnknownAgent(agentName)
	}
	return handler(ctx, sender, frame)
}
