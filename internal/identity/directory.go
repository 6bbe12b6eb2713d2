package identity

import (
	"context"
	"sync"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/model/identity"
)

// Directory is the per-user bookkeeping the resolver and multiplexer
// rely on: the insertion-ordered list of a user's session ids and the
// profile folded into greetings and prompts. A missing profile is not
// an error; callers degrade to generic behavior.
type Directory interface {
	Sessions(ctx context.Context, uid string) ([]string, error)
	AddSession(ctx context.Context, uid, sessionID string) error
	Profile(ctx context.Context, uid string) (identity.Profile, error)
}

// MemoryDirectory implements Directory with in-memory maps, suitable
// for tests and local runs without Redis.
type MemoryDirectory struct {
	mu       sync.RWMutex
	sessions map[string][]string
	profiles map[string]identity.Profile
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		sessions: make(map[string][]string),
		profiles: make(map[string]identity.Profile),
	}
}

func (d *MemoryDirectory) Sessions(_ context.Context, uid string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := d.sessions[uid]
	copied := make([]string, len(ids))
	copy(copied, ids)
	return copied, nil
}

func (d *MemoryDirectory) AddSession(_ context.Context, uid, sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions[uid] = append(d.sessions[uid], sessionID)
	return nil
}

func (d *MemoryDirectory) Profile(_ context.Context, uid string) (identity.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.profiles[uid], nil
}

// SetProfile seeds a profile. Not part of the Directory contract; the
// relay never writes profiles.
func (d *MemoryDirectory) SetProfile(uid string, profile identity.Profile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[uid] = profile
}
