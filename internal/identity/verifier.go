// Package identity adapts the external identity provider: token
// verification plus per-user session-id bookkeeping and profile
// lookup.
package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/model/identity"
)

// ErrInvalidToken is the AuthError of the relay: the token failed
// verification or expired. Fatal to the connection that presented it.
var ErrInvalidToken = errors.New("invalid identity token")

// Verifier turns an opaque client token into a stable identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (identity.Identity, error)
}

// HMACVerifier verifies self-issued tokens of the form
// uid.expiry.signature. It stands in for the hosted identity provider
// in environments that do not have one.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

// Mint issues a token for uid valid for ttl. Used by tooling and
// tests; production tokens come from the identity provider.
func (v *HMACVerifier) Mint(uid string, ttl time.Duration) string {
	expiry := strconv.FormatInt(time.Now().Add(ttl).Unix(), 10)
	payload := uid + "." + expiry
	return payload + "." + v.sign(payload)
}

func (v *HMACVerifier) Verify(_ context.Context, token string) (identity.Identity, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return identity.Identity{}, fmt.Errorf("%w: malformed token", ErrInvalidToken)
	}

	uid, expiryRaw, sig := parts[0], parts[1], parts[2]
	if uid == "" {
		return identity.Identity{}, fmt.Errorf("%w: empty uid", ErrInvalidToken)
	}

	payload := uid + "." + expiryRaw
	if !hmac.Equal([]byte(v.sign(payload)), []byte(sig)) {
		return identity.Identity{}, fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	}

	expiry, err := strconv.ParseInt(expiryRaw, 10, 64)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%w: malformed expiry", ErrInvalidToken)
	}
	if time.Now().Unix() >= expiry {
		return identity.Identity{}, fmt.Errorf("%w: token expired", ErrInvalidToken)
	}

	return identity.Identity{UID: uid}, nil
}

func (v *HMACVerifier) sign(payload string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
