package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// SessionListKey is the insertion-ordered list of a user's session ids.
func SessionListKey(uid string) string {
	return fmt.Sprintf("user:%s:sessions", uid)
}

// ProfileKey is the hash holding a user's profile fields.
func ProfileKey(uid string) string {
	return fmt.Sprintf("user:%s:profile", uid)
}
