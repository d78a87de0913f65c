// Package selection tracks, per client, the set of selected record ids.
//
// Buckets are created lazily on first reference to a client id and held in
// a bounded LRU with an optional idle TTL, so arbitrary client ids cannot
// grow the store without limit. An evicted client simply reappears with an
// empty selection. The store has no notion of list position: range toggles
// are expanded to ids by the caller.
//
// A bucket evicted between being fetched and being locked is marked dead,
// and the caller retries against a fresh bucket, so a write racing an
// eviction lands in the live bucket rather than being lost.
package selection

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bft-labs/orderly/internal/metrics"
	"github.com/bft-labs/orderly/pkg/log"
)

// Default limits for client buckets.
const (
	DefaultMaxClients = 10000
	DefaultTTL        = 24 * time.Hour
)

// Config holds the lifecycle limits of client buckets.
type Config struct {
	// MaxClients caps the number of buckets held; the least recently used
	// bucket is evicted beyond it.
	MaxClients int

	// TTL evicts buckets idle for longer than this. Zero disables expiry.
	TTL time.Duration
}

// DefaultConfig returns a Config with default limits.
func DefaultConfig() Config {
	return Config{
		MaxClients: DefaultMaxClients,
		TTL:        DefaultTTL,
	}
}

// bucket is one client's selection, guarded by its own lock.
type bucket struct {
	mu      sync.Mutex
	ids     map[int64]struct{}
	evicted bool
}

// Store holds the selection of every known client.
type Store struct {
	// mu serialises get-or-create only; mutation uses the bucket lock.
	mu      sync.Mutex
	clients *expirable.LRU[string, *bucket]

	// live counts buckets held, kept without calling into the LRU.
	live atomic.Int64

	logger log.Logger
}

// New creates a selection store.
func New(cfg Config, logger log.Logger) *Store {
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = DefaultMaxClients
	}
	if cfg.TTL < 0 {
		cfg.TTL = 0
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	s := &Store{logger: logger}
	s.clients = expirable.NewLRU[string, *bucket](cfg.MaxClients, s.onEvict, cfg.TTL)
	return s
}

// onEvict runs under the LRU's lock and must not call back into it. Bucket
// locks are never held while taking the LRU's lock, so locking b is safe.
func (s *Store) onEvict(clientID string, b *bucket) {
	b.mu.Lock()
	b.evicted = true
	b.mu.Unlock()

	metrics.SelectionClients.Set(float64(s.live.Add(-1)))
	metrics.SelectionEvictions.Inc()
	s.logger.Debug("selection evicted", log.String("client", clientID))
}

// bucket returns the client's bucket, creating it on first reference.
func (s *Store) bucket(clientID string) *bucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.clients.Get(clientID); ok {
		// re-adding refreshes the idle deadline
		s.clients.Add(clientID, b)
		return b
	}
	// an expired entry lingers until the reaper runs; drop it so it is
	// evicted and counted before its replacement is added
	s.clients.Remove(clientID)

	b := &bucket{ids: make(map[int64]struct{})}
	s.clients.Add(clientID, b)
	metrics.SelectionClients.Set(float64(s.live.Add(1)))
	return b
}

// locked returns the client's live bucket with its lock held.
func (s *Store) locked(clientID string) *bucket {
	for {
		b := s.bucket(clientID)
		b.mu.Lock()
		if !b.evicted {
			return b
		}
		b.mu.Unlock()
	}
}

// Selected returns the client's selected ids in ascending order.
func (s *Store) Selected(clientID string) []int64 {
	b := s.locked(clientID)
	out := make([]int64, 0, len(b.ids))
	for id := range b.ids {
		out = append(out, id)
	}
	b.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsSelected reports whether id is in the client's selection.
func (s *Store) IsSelected(clientID string, id int64) bool {
	b := s.locked(clientID)
	defer b.mu.Unlock()
	_, ok := b.ids[id]
	return ok
}

// Count returns the size of the client's selection.
func (s *Store) Count(clientID string) int {
	b := s.locked(clientID)
	defer b.mu.Unlock()
	return len(b.ids)
}

// Set adds every id to the client's selection when selected is true and
// removes them otherwise. Repeating a call has no further effect. It
// returns the number of ids whose membership changed.
func (s *Store) Set(clientID string, ids []int64, selected bool) int {
	b := s.locked(clientID)
	defer b.mu.Unlock()

	changed := 0
	for _, id := range ids {
		_, had := b.ids[id]
		switch {
		case selected && !had:
			b.ids[id] = struct{}{}
			changed++
		case !selected && had:
			delete(b.ids, id)
			changed++
		}
	}
	return changed
}

// Clients returns the number of buckets currently held.
func (s *Store) Clients() int {
	n := s.live.Load()
	metrics.SelectionClients.Set(float64(n))
	return int(n)
}
