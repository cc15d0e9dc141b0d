package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper tracks which message identifiers have already been
// dispatched. IsNew reports whether the id is unseen and records it
// atomically, so a message is dispatched at most once per filter.
type Deduper interface {
	IsNew(ctx context.Context, id string) (bool, error)
}

// MemorySeen is the default in-process seen-set. It grows
// monotonically for the lifetime of one watch session and is never
// persisted; a restart re-scans and may reprocess messages whose
// identifiers were not yet flagged seen on the server.
type MemorySeen struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewMemorySeen creates an empty in-memory seen-set.
func NewMemorySeen() *MemorySeen {
	return &MemorySeen{ids: make(map[string]struct{})}
}

// IsNew reports whether id was unseen, recording it as seen.
func (s *MemorySeen) IsNew(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		return false, nil
	}
	s.ids[id] = struct{}{}
	return true, nil
}

// Len returns the number of recorded identifiers.
func (s *MemorySeen) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

const (
	// redisKeyPrefix namespaces seen-set keys in Redis.
	redisKeyPrefix = "mailplane:seen:"

	// DefaultRedisTTL is how long a seen identifier is remembered.
	// The server-side \Seen flag keeps already-processed messages out
	// of the search, so a bounded memory is safe.
	DefaultRedisTTL = 24 * time.Hour
)

// RedisSeen is a Redis-backed seen-filter for deployments where more
// than one watcher instance may observe the same mailbox.
type RedisSeen struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSeen creates a seen-filter backed by Redis.
func NewRedisSeen(rdb *redis.Client) *RedisSeen {
	return &RedisSeen{rdb: rdb, ttl: DefaultRedisTTL}
}

// IsNew returns true if the identifier has NOT been seen before. If
// true, the identifier is marked as seen atomically (SETNX).
func (s *RedisSeen) IsNew(ctx context.Context, id string) (bool, error) {
	key := redisKeyPrefix + id

	set, err := s.rdb.SetNX(ctx, key, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}
	return set, nil
}
