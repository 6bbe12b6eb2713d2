package relay

import (
	"sync"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/service/engine"
)

// Transport delivers outbound frames to one client connection. The
// WebSocket handler supplies the real implementation; tests supply
// fakes.
type Transport interface {
	Send(frame string) error
}

// Registry owns the two shared tables of the multiplexer: session id
// to live transport, and owner uid to live session handle. One mutex
// gates every mutation so a delivery never races a bind or close.
type Registry struct {
	mu      sync.Mutex
	conns   map[string]Transport
	handles map[string]engine.Conversation
}

func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[string]Transport),
		handles: make(map[string]engine.Conversation),
	}
}

// Bind associates a session id with a transport. Rebinding an id to a
// new transport is last-writer-wins; the old transport stops receiving.
func (r *Registry) Bind(sessionID string, t Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[sessionID] = t
}

// Unbind releases the binding, but only if it still points at the
// given transport. A reconnect that already rebound the session id is
// left alone.
func (r *Registry) Unbind(sessionID string, t Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.conns[sessionID]; ok && current == t {
		delete(r.conns, sessionID)
	}
}

// Deliver sends a frame to whatever transport the session id is bound
// to. Delivering to an unbound id is a detectable no-op, never a
// fault.
func (r *Registry) Deliver(sessionID, frame string) bool {
	r.mu.Lock()
	t, ok := r.conns[sessionID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return t.Send(frame) == nil
}

// Handle returns the resident live handle for an owner identity.
func (r *Registry) Handle(uid string) (engine.Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.handles[uid]
	return conv, ok
}

// PutHandle installs the live handle for an owner identity. At most
// one handle is resident per identity; a second attach reuses it.
func (r *Registry) PutHandle(uid string, conv engine.Conversation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[uid] = conv
}
