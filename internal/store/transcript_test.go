package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/database"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/model/chat"
)

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()

	db, err := database.Connect("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewSQLStore(db)
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func TestSQLStoreAppendAndHistory(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	msgs := []chat.Message{
		{SessionID: "s1", Sender: chat.SenderUser, Body: "hi", Timestamp: 100, OwnerUID: "u1"},
		{SessionID: "s1", Sender: chat.SenderAgent, Body: "hello", Timestamp: 101, OwnerUID: "u1"},
		{SessionID: "s2", Sender: chat.SenderUser, Body: "other", Timestamp: 50, OwnerUID: "u2"},
	}
	for _, m := range msgs {
		require.NoError(t, s.Append(ctx, m))
	}

	history, err := s.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hi", history[0].Body)
	assert.Equal(t, "hello", history[1].Body)
	assert.Equal(t, "u1", history[0].OwnerUID)

	for i := 1; i < len(history); i++ {
		assert.GreaterOrEqual(t, history[i].Timestamp, history[i-1].Timestamp)
	}
}

func TestSQLStoreLatest(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	latest, err := s.Latest(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, s.Append(ctx, chat.Message{SessionID: "s1", Sender: chat.SenderUser, Body: "first", Timestamp: 10, OwnerUID: "u1"}))
	require.NoError(t, s.Append(ctx, chat.Message{SessionID: "s1", Sender: chat.SenderAgent, Body: "second", Timestamp: 20, OwnerUID: "u1"}))

	latest, err = s.Latest(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "second", latest.Body)
	assert.Equal(t, int64(20), latest.Timestamp)
}

func TestMemoryStoreClampsTimestamps(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, chat.Message{SessionID: "s1", Sender: chat.SenderUser, Body: "a", Timestamp: 100, OwnerUID: "u1"}))
	require.NoError(t, s.Append(ctx, chat.Message{SessionID: "s1", Sender: chat.SenderAgent, Body: "b", Timestamp: 99, OwnerUID: "u1"}))

	history, err := s.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(100), history[1].Timestamp)

	latest, err := s.Latest(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "b", latest.Body)
}
