package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/identity"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/model/chat"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/store"
)

func newFixture(t *testing.T) (*Resolver, *identity.MemoryDirectory, *store.MemoryStore) {
	t.Helper()
	directory := identity.NewMemoryDirectory()
	transcripts := store.NewMemoryStore()
	r := New(directory, transcripts, zerolog.Nop())
	return r, directory, transcripts
}

func TestResolveBrandNewIdentity(t *testing.T) {
	r, _, _ := newFixture(t)

	decision, err := r.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, KindNew, decision.Kind)
	assert.Empty(t, decision.SessionID)
}

func TestResolveRecentSessionResumes(t *testing.T) {
	r, directory, transcripts := newFixture(t)
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	r.now = func() time.Time { return now }

	require.NoError(t, directory.AddSession(ctx, "u1", "s1"))
	require.NoError(t, transcripts.Append(ctx, chat.Message{
		SessionID: "s1", Sender: chat.SenderUser, Body: "hi",
		Timestamp: now.Add(-time.Minute).Unix(), OwnerUID: "u1",
	}))

	decision, err := r.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, KindResume, decision.Kind)
	assert.Equal(t, "s1", decision.SessionID)
}

func TestResolveStaleSessionStartsNew(t *testing.T) {
	r, directory, transcripts := newFixture(t)
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	r.now = func() time.Time { return now }

	require.NoError(t, directory.AddSession(ctx, "u1", "s1"))
	require.NoError(t, transcripts.Append(ctx, chat.Message{
		SessionID: "s1", Sender: chat.SenderUser, Body: "hi",
		Timestamp: now.Add(-chat.IdleThreshold).Unix(), OwnerUID: "u1",
	}))

	decision, err := r.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, KindNew, decision.Kind)
}

func TestResolveEmptyTranscriptStartsNewWithoutPlaceholder(t *testing.T) {
	r, directory, _ := newFixture(t)
	ctx := context.Background()

	require.NoError(t, directory.AddSession(ctx, "u1", "s1"))

	decision, err := r.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, KindNew, decision.Kind)
	assert.Empty(t, decision.SessionID, "caller mints a fresh id, never a placeholder")
}

func TestResolveUsesLastSessionOnly(t *testing.T) {
	r, directory, transcripts := newFixture(t)
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	r.now = func() time.Time { return now }

	require.NoError(t, directory.AddSession(ctx, "u1", "s1"))
	require.NoError(t, directory.AddSession(ctx, "u1", "s2"))

	// s1 is fresh but not the most recent entry; s2 is stale.
	require.NoError(t, transcripts.Append(ctx, chat.Message{
		SessionID: "s1", Sender: chat.SenderUser, Body: "fresh",
		Timestamp: now.Add(-time.Second).Unix(), OwnerUID: "u1",
	}))
	require.NoError(t, transcripts.Append(ctx, chat.Message{
		SessionID: "s2", Sender: chat.SenderUser, Body: "old",
		Timestamp: now.Add(-time.Hour).Unix(), OwnerUID: "u1",
	}))

	decision, err := r.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, KindNew, decision.Kind, "only the last listed session is considered")
}

type failingDirectory struct {
	identity.MemoryDirectory
}

func (f *failingDirectory) Sessions(context.Context, string) ([]string, error) {
	return nil, errors.New("directory down")
}

func TestResolveAdapterErrorPropagates(t *testing.T) {
	transcripts := store.NewMemoryStore()
	r := New(&failingDirectory{}, transcripts, zerolog.Nop())

	_, err := r.Resolve(context.Background(), "u1")
	require.Error(t, err)
}
