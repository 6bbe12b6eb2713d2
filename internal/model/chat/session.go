package chat

import "time"

// IdleThreshold is how long a session may sit without activity before
// it stops being resumable.
const IdleThreshold = 5 * time.Minute

// Status of a session relative to the idle threshold. Evaluated lazily
// from the transcript; nothing sweeps sessions in the background.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusStale  Status = "STALE"
)

// Session is one logical conversation thread owned by a single user.
type Session struct {
	ID        string    `json:"id"`
	OwnerUID  string    `json:"ownerUid"`
	CreatedAt time.Time `json:"createdAt"`
}

// StatusAt derives the session status from its last transcript
// activity. A zero lastActivity means the transcript is empty, which
// counts as stale.
func StatusAt(lastActivity, now time.Time) Status {
	if lastActivity.IsZero() {
		return StatusStale
	}
	if now.Sub(lastActivity) >= IdleThreshold {
		return StatusStale
	}
	return StatusActive
}
