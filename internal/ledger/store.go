package ledger

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// shardCount is the number of lock stripes; must stay a power of two.
const shardCount = 32

type shard struct {
	mu      sync.RWMutex
	seconds map[uuid.UUID]int64
}

// Store is the in-memory source of truth for accumulated playtime.
//
// Per-identity operations hold the table lock shared and lock only the shard
// owning the identity, so updates to unrelated players never serialize.
// Full-table reads (Snapshot, Sorted, TopN, Rank, Page) hold the table lock
// exclusively just long enough to copy every shard, which yields one
// consistent point-in-time view.
type Store struct {
	table   sync.RWMutex
	shards  [shardCount]*shard
	version atomic.Uint64
}

// NewStore creates an empty ledger
func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{seconds: make(map[uuid.UUID]int64)}
	}
	return s
}

func (s *Store) shardFor(id uuid.UUID) *shard {
	return s.shards[binary.LittleEndian.Uint64(id[8:])&(shardCount-1)]
}

// Get returns the accumulated seconds for id, or 0 when the identity is unknown.
func (s *Store) Get(id uuid.UUID) int64 {
	s.table.RLock()
	defer s.table.RUnlock()

	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.seconds[id]
}

// Set overwrites the stored value with max(0, seconds).
func (s *Store) Set(id uuid.UUID, seconds int64) {
	s.table.RLock()
	defer s.table.RUnlock()

	sh := s.shardFor(id)
	sh.mu.Lock()
	sh.seconds[id] = clamp(seconds)
	sh.mu.Unlock()

	s.version.Add(1)
}

// Add atomically applies delta to the stored value and returns the result.
// The result never drops below zero and saturates at math.MaxInt64.
func (s *Store) Add(id uuid.UUID, delta int64) int64 {
	s.table.RLock()
	defer s.table.RUnlock()

	sh := s.shardFor(id)
	sh.mu.Lock()
	next := saturatingAdd(sh.seconds[id], delta)
	sh.seconds[id] = next
	sh.mu.Unlock()

	s.version.Add(1)
	return next
}

// Touch makes sure a record exists for id without changing its value.
func (s *Store) Touch(id uuid.UUID) {
	s.table.RLock()
	defer s.table.RUnlock()

	sh := s.shardFor(id)
	sh.mu.Lock()
	if _, ok := sh.seconds[id]; !ok {
		sh.seconds[id] = 0
		s.version.Add(1)
	}
	sh.mu.Unlock()
}

// Tick adds exactly one second to every distinct identity in active.
// Each increment is atomic for its identity; the batch as a whole is not.
func (s *Store) Tick(active []uuid.UUID) {
	if len(active) == 0 {
		return
	}

	var seen map[uuid.UUID]struct{}
	if len(active) > 1 {
		seen = make(map[uuid.UUID]struct{}, len(active))
	}

	s.table.RLock()
	defer s.table.RUnlock()

	for _, id := range active {
		if seen != nil {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}

		sh := s.shardFor(id)
		sh.mu.Lock()
		sh.seconds[id] = saturatingAdd(sh.seconds[id], 1)
		sh.mu.Unlock()
	}

	s.version.Add(1)
}

// Snapshot returns a consistent copy of the whole table.
func (s *Store) Snapshot() map[uuid.UUID]int64 {
	s.table.Lock()
	defer s.table.Unlock()

	total := 0
	for _, sh := range s.shards {
		total += len(sh.seconds)
	}

	out := make(map[uuid.UUID]int64, total)
	for _, sh := range s.shards {
		for id, secs := range sh.seconds {
			out[id] = secs
		}
	}
	return out
}

// Load replaces the entire table with m. Negative values are stored as zero.
func (s *Store) Load(m map[uuid.UUID]int64) {
	fresh := make([]map[uuid.UUID]int64, shardCount)
	for i := range fresh {
		fresh[i] = make(map[uuid.UUID]int64)
	}
	for id, secs := range m {
		fresh[binary.LittleEndian.Uint64(id[8:])&(shardCount-1)][id] = clamp(secs)
	}

	s.table.Lock()
	for i, sh := range s.shards {
		sh.seconds = fresh[i]
	}
	s.table.Unlock()

	s.version.Add(1)
}

// Len returns the number of known identities.
func (s *Store) Len() int {
	s.table.RLock()
	defer s.table.RUnlock()

	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.seconds)
		sh.mu.RUnlock()
	}
	return total
}

// Version is bumped on every mutation. Watchers compare it between polls to
// detect change without copying the table.
func (s *Store) Version() uint64 {
	return s.version.Load()
}

func clamp(seconds int64) int64 {
	if seconds < 0 {
		return 0
	}
	return seconds
}

func saturatingAdd(current, delta int64) int64 {
	if delta > 0 && current > math.MaxInt64-delta {
		return math.MaxInt64
	}
	return clamp(current + delta)
}
