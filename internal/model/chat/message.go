package chat

// Sender labels match the rows the mobile clients already have stored,
// so they are part of the wire/persistence contract.
const (
	SenderUser  = "User"
	SenderAgent = "Kore Bot"
)

// Message is one persisted turn of a conversation. Immutable once
// written; Timestamp is seconds since epoch and never decreases within
// a session.
type Message struct {
	SessionID string `json:"sessionId" db:"session_id"`
	Sender    string `json:"sender" db:"sender"`
	Body      string `json:"body" db:"body"`
	Timestamp int64  `json:"timestamp" db:"ts"`
	OwnerUID  string `json:"ownerUid" db:"owner_uid"`
}

// FromUser reports whether the message was sent by the session owner
// rather than the agent.
func (m Message) FromUser() bool {
	return m.Sender == SenderUser
}
