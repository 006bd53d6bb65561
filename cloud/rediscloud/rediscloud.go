// Package rediscloud provides a Redis-backed leaderduty.CloudManager.
// Scale requests are fire-and-forget (spec §6): each call pushes a
// small JSON envelope onto a Redis list for an external fulfillment
// agent (the actual cloud-provider integration) to pop and act on.
package rediscloud

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKey = "leaderduty:scale_requests"

// request is the envelope pushed to Redis for each ScaleUp/ScaleDown
// call.
type request struct {
	Kind      string   `json:"kind"` // "scale_up" | "scale_down"
	N         int      `json:"n,omitempty"`
	NodeIds   []string `json:"node_ids,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// CloudManager is a redis/go-redis/v9-backed leaderduty.CloudManager.
type CloudManager struct {
	Client *redis.Client
	// Key is the Redis list scale requests are pushed to.
	// Defaults to "leaderduty:scale_requests" if empty.
	Key string

	// Now is overridable for tests; defaults to time.Now().Unix().
	Now func() int64
}

func (c *CloudManager) key() string {
	if c.Key == "" {
		return defaultKey
	}
	return c.Key
}

func (c *CloudManager) now() int64 {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().Unix()
}

func (c *CloudManager) push(ctx context.Context, req request) error {
	req.Timestamp = c.now()
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal scale request: %w", err)
	}
	return c.Client.RPush(ctx, c.key(), payload).Err()
}

// ScaleUp requests n new nodes.
func (c *CloudManager) ScaleUp(n int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.push(ctx, request{Kind: "scale_up", N: n})
}

// ScaleDown requests removal of nodeIds.
func (c *CloudManager) ScaleDown(nodeIds []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.push(ctx, request{Kind: "scale_down", NodeIds: nodeIds})
}
