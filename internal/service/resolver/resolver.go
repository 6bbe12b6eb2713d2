// Package resolver decides whether an inbound start-chat begins a new
// conversation or resumes the user's most recent one.
package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/identity"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/model/chat"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/store"
)

// Kind is the resolution outcome.
type Kind int

const (
	KindNew Kind = iota
	KindResume
)

func (k Kind) String() string {
	if k == KindResume {
		return "RESUME"
	}
	return "NEW"
}

// Decision carries the outcome and, for RESUME, the session to rejoin.
// A NEW decision leaves SessionID empty; the caller mints a fresh id.
type Decision struct {
	Kind      Kind
	SessionID string
}

// Resolver applies the recency policy over the identity directory and
// the transcript store.
type Resolver struct {
	directory   identity.Directory
	transcripts store.TranscriptStore
	logger      zerolog.Logger
	now         func() time.Time
}

func New(directory identity.Directory, transcripts store.TranscriptStore, logger zerolog.Logger) *Resolver {
	return &Resolver{
		directory:   directory,
		transcripts: transcripts,
		logger:      logger.With().Str("component", "resolver").Logger(),
		now:         time.Now,
	}
}

// Resolve walks the policy:
//  1. no known sessions -> NEW
//  2. latest session has no stored message or no timestamp -> NEW
//  3. latest message older than the idle threshold -> NEW, else RESUME
//
// The tie-break is strictly "last session id in the list"; timestamps
// across multiple sessions are never compared. Adapter errors
// propagate so the caller can fail open into a new session.
func (r *Resolver) Resolve(ctx context.Context, uid string) (Decision, error) {
	sessions, err := r.directory.Sessions(ctx, uid)
	if err != nil {
		return Decision{}, fmt.Errorf("resolve sessions for %s: %w", uid, err)
	}
	if len(sessions) == 0 {
		return Decision{Kind: KindNew}, nil
	}

	mostRecent := sessions[len(sessions)-1]
	latest, err := r.transcripts.Latest(ctx, mostRecent)
	if err != nil {
		return Decision{}, fmt.Errorf("resolve latest message for %s: %w", mostRecent, err)
	}
	if latest == nil || latest.Timestamp == 0 {
		// An empty or unstamped transcript is not resumable. Mint a
		// fresh id rather than reusing a degenerate placeholder.
		return Decision{Kind: KindNew}, nil
	}

	lastActivity := time.Unix(latest.Timestamp, 0)
	status := chat.StatusAt(lastActivity, r.now())
	r.logger.Debug().
		Str("uid", uid).
		Str("session_id", mostRecent).
		Str("status", string(status)).
		Msg("resolved most recent session")

	if status == chat.StatusStale {
		return Decision{Kind: KindNew}, nil
	}
	return Decision{Kind: KindResume, SessionID: mostRecent}, nil
}
