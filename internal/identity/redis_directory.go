package identity

import (
	"context"
	"fmt"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/model/identity"
	redisclient "github.com/ilam0602/glg-mobile-messages-ws/internal/redis"
)

// RedisDirectory keeps session lists and profiles in Redis so they
// survive process restarts and are shared across relay instances.
type RedisDirectory struct {
	client *redisclient.Client
}

func NewRedisDirectory(client *redisclient.Client) *RedisDirectory {
	return &RedisDirectory{client: client}
}

func (d *RedisDirectory) Sessions(ctx context.Context, uid string) ([]string, error) {
	ids, err := d.client.LRange(ctx, redisclient.SessionListKey(uid), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions for %s: %w", uid, err)
	}
	return ids, nil
}

func (d *RedisDirectory) AddSession(ctx context.Context, uid, sessionID string) error {
	if err := d.client.RPush(ctx, redisclient.SessionListKey(uid), sessionID).Err(); err != nil {
		return fmt.Errorf("record session for %s: %w", uid, err)
	}
	return nil
}

func (d *RedisDirectory) Profile(ctx context.Context, uid string) (identity.Profile, error) {
	fields, err := d.client.HGetAll(ctx, redisclient.ProfileKey(uid)).Result()
	if err != nil {
		return identity.Profile{}, fmt.Errorf("load profile for %s: %w", uid, err)
	}
	// An absent hash comes back empty, which callers treat as a
	// degraded (generic) profile rather than a failure.
	return identity.Profile{
		Name:      fields["name"],
		ContactID: fields["contact_id"],
	}, nil
}
