package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type nullConversation struct{}

func (nullConversation) Reply(context.Context, string) (string, error) { return "", nil }

func TestRegistryDeliverUnboundIsNoOp(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Deliver("nope", "frame"))
}

func TestRegistryRebindIsLastWriterWins(t *testing.T) {
	r := NewRegistry()
	first := &fakeTransport{}
	second := &fakeTransport{}

	r.Bind("s1", first)
	r.Bind("s1", second)
	assert.True(t, r.Deliver("s1", "hello"))
	assert.Empty(t, first.Frames())
	assert.Equal(t, []string{"hello"}, second.Frames())

	// Unbinding with the stale transport must not break the new binding.
	r.Unbind("s1", first)
	assert.True(t, r.Deliver("s1", "again"))

	r.Unbind("s1", second)
	assert.False(t, r.Deliver("s1", "gone"))
}

func TestRegistryHandlePerIdentity(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Handle("u1")
	assert.False(t, ok)

	conv := nullConversation{}
	r.PutHandle("u1", conv)
	got, ok := r.Handle("u1")
	assert.True(t, ok)
	assert.Equal(t, conv, got)
}
