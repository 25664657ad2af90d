package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// MembershipSequence hands out gap-free membership ticket numbers.
// Counting existing rows and formatting an index races under concurrent
// creation; a shared atomic counter does not.
type MembershipSequence interface {
	Next(ctx context.Context, year int) (int64, error)
}

type redisSequence struct {
	client *redis.Client
}

// NewMembershipSequence returns a Redis-backed sequence using INCR on a
// per-year key.
func NewMembershipSequence(client *redis.Client) MembershipSequence {
	return &redisSequence{client: client}
}

func (s *redisSequence) Next(ctx context.Context, year int) (int64, error) {
	key := fmt.Sprintf("registration:membership-seq:%d", year)
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("membership sequence: %w", err)
	}
	return n, nil
}
