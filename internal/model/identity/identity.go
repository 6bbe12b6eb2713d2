package identity

// Identity is the verified result of an identity-provider token.
type Identity struct {
	UID       string `json:"uid"`
	ContactID string `json:"contactId,omitempty"`
}

// Profile carries the per-user data folded into the agent's system
// instruction. Any field may be empty when an adapter lookup fails;
// callers degrade to a generic instruction instead of erroring.
type Profile struct {
	Name           string `json:"name"`
	ContactID      string `json:"contactId"`
	ProgramDetails string `json:"programDetails,omitempty"`
}
