package identity

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACVerifierRoundTrip(t *testing.T) {
	v := NewHMACVerifier("test-secret")
	token := v.Mint("u1", time.Minute)

	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UID)
}

func TestHMACVerifierRejectsTampering(t *testing.T) {
	v := NewHMACVerifier("test-secret")
	token := v.Mint("u1", time.Minute)
	forged := strings.Replace(token, "u1.", "u2.", 1)

	_, err := v.Verify(context.Background(), forged)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestHMACVerifierRejectsExpired(t *testing.T) {
	v := NewHMACVerifier("test-secret")
	token := v.Mint("u1", -time.Minute)

	_, err := v.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestHMACVerifierRejectsWrongSecret(t *testing.T) {
	minted := NewHMACVerifier("secret-a").Mint("u1", time.Minute)

	_, err := NewHMACVerifier("secret-b").Verify(context.Background(), minted)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestHMACVerifierRejectsMalformed(t *testing.T) {
	v := NewHMACVerifier("test-secret")
	for _, token := range []string{"", "u1", "u1.123", "u1.notanumber." + v.sign("u1.notanumber")} {
		_, err := v.Verify(context.Background(), token)
		require.ErrorIs(t, err, ErrInvalidToken, "token %q", token)
	}
}

func TestMemoryDirectorySessionsInsertionOrdered(t *testing.T) {
	d := NewMemoryDirectory()
	ctx := context.Background()

	require.NoError(t, d.AddSession(ctx, "u1", "s1"))
	require.NoError(t, d.AddSession(ctx, "u1", "s2"))
	require.NoError(t, d.AddSession(ctx, "u2", "other"))

	ids, err := d.Sessions(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)

	ids, err = d.Sessions(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
