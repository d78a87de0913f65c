package orderstore

import (
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/google/btree"

	"github.com/bft-labs/orderly/internal/domain"
	"github.com/bft-labs/orderly/internal/metrics"
	"github.com/bft-labs/orderly/pkg/log"
)

// DefaultKeySpacing is the gap between neighbouring keys at creation and
// after a rebalance.
const DefaultKeySpacing = 1.0

const btreeDegree = 32

// entry is one node of the ordered index.
type entry struct {
	key float64
	id  int64
}

func lessEntry(a, b entry) bool {
	if a.key != b.key {
		return a.key < b.key
	}
	return a.id < b.id
}

// Option configures optional behavior of a Store.
type Option func(*Store)

// WithKeySpacing sets the gap between neighbouring keys. Non-positive
// values are ignored.
func WithKeySpacing(spacing float64) Option {
	return func(s *Store) {
		if spacing > 0 && !math.IsInf(spacing, 0) && !math.IsNaN(spacing) {
			s.spacing = spacing
		}
	}
}

// WithValues sets the function producing the display value of each record.
// Defaults to domain.DefaultValue.
func WithValues(fn func(id int64) string) Option {
	return func(s *Store) {
		if fn != nil {
			s.valueFn = fn
		}
	}
}

// WithLogger sets the logger used for rebalance and other notable events.
func WithLogger(logger log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store holds the authoritative order key of every record.
type Store struct {
	mu sync.RWMutex

	// keys[id-1] is the current order key of record id
	keys   []float64
	values []string
	tree   *btree.BTreeG[entry]

	spacing    float64
	generation uint64

	valueFn func(id int64) string
	logger  log.Logger
}

// New creates a store holding size records with ids 1..size in id order.
func New(size int, opts ...Option) (*Store, error) {
	if size <= 0 {
		return nil, domain.ErrEmptyCollection
	}

	s := &Store{
		spacing: DefaultKeySpacing,
		valueFn: domain.DefaultValue,
		logger:  log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.keys = make([]float64, size)
	s.values = make([]string, size)
	s.tree = btree.NewG[entry](btreeDegree, lessEntry)
	for i := 0; i < size; i++ {
		id := int64(i + 1)
		s.keys[i] = float64(id) * s.spacing
		s.values[i] = s.valueFn(id)
		s.tree.ReplaceOrInsert(entry{key: s.keys[i], id: id})
	}

	return s, nil
}

// Len returns the number of records in the collection.
func (s *Store) Len() int {
	return len(s.keys)
}

// Has reports whether id is part of the collection.
func (s *Store) Has(id int64) bool {
	return id >= 1 && id <= int64(len(s.keys))
}

// Get returns the record with the given id.
func (s *Store) Get(id int64) (domain.Record, bool) {
	if !s.Has(id) {
		return domain.Record{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record(id), true
}

// Value returns the display value of id. Values never change, so no lock
// is taken.
func (s *Store) Value(id int64) (string, bool) {
	if !s.Has(id) {
		return "", false
	}
	return s.values[id-1], true
}

// Generation returns a counter bumped by every mutation of the order.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// ReadOrdered returns every record sorted ascending by order key.
func (s *Store) ReadOrdered() []domain.Record {
	out := make([]domain.Record, 0, len(s.keys))
	s.Ascend(func(r domain.Record) bool {
		out = append(out, r)
		return true
	})
	return out
}

// Ascend calls fn for each record in order until fn returns false. It
// returns the generation the iteration observed. The read lock is held for
// the whole iteration, so fn must not call back into the store's mutators.
func (s *Store) Ascend(fn func(domain.Record) bool) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.tree.Ascend(func(e entry) bool {
		return fn(domain.Record{ID: e.id, Value: s.values[e.id-1], OrderKey: e.key})
	})
	return s.generation
}

// AscendIDs is Ascend without building records.
func (s *Store) AscendIDs(fn func(id int64) bool) uint64 {
	var gen uint64
	s.Read(func(sn Snapshot) {
		sn.AscendIDs(fn)
		gen = sn.Generation()
	})
	return gen
}

// Snapshot reads the store at a single generation. It is valid only inside
// the Read callback that produced it and takes no locks of its own.
type Snapshot struct {
	s *Store
}

// Generation returns the generation the snapshot observes.
func (sn Snapshot) Generation() uint64 {
	return sn.s.generation
}

// Record returns the record with the given id. id must satisfy Has.
func (sn Snapshot) Record(id int64) domain.Record {
	return sn.s.record(id)
}

// AscendIDs calls fn for each id in order until fn returns false.
func (sn Snapshot) AscendIDs(fn func(id int64) bool) {
	sn.s.tree.Ascend(func(e entry) bool {
		return fn(e.id)
	})
}

// Read calls fn with a snapshot under the read lock, so every key fn sees
// belongs to the same generation. fn must not call other Store methods.
func (s *Store) Read(fn func(Snapshot)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(Snapshot{s: s})
}

// Result describes the effect of one ApplyReorder call.
type Result struct {
	// Applied is the number of ids that took part after filtering
	Applied int

	// Dropped is the number of unknown or duplicate ids ignored
	Dropped int

	// Moved is the number of ids whose order key changed
	Moved int

	// Mode is one of metrics.ModeContiguous, metrics.ModeSparse or metrics.ModeNoop
	Mode string

	// Rebalanced is true when the key space was renumbered
	Rebalanced bool
}

// ApplyReorder makes the submitted ids appear in the given sequence order.
// ids is the full materialised view after a move. Unknown ids and repeated
// ids are skipped.
func (s *Store) ApplyReorder(ids []int64) Result {
	clean, dropped := s.filter(ids)
	res := Result{Applied: len(clean), Dropped: dropped, Mode: metrics.ModeNoop}
	if len(clean) < 2 {
		return res
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.contiguous(clean) {
		res.Mode = metrics.ModeContiguous
		res.Moved = s.redistribute(clean)
	} else {
		res.Mode = metrics.ModeSparse
		res.Moved, res.Rebalanced = s.interpolate(clean)
	}

	if res.Moved > 0 {
		s.generation++
	} else {
		res.Mode = metrics.ModeNoop
	}
	return res
}

// Rebalance renumbers every key to rank*spacing, preserving the order.
func (s *Store) Rebalance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebalance()
	s.generation++
}

func (s *Store) record(id int64) domain.Record {
	return domain.Record{ID: id, Value: s.values[id-1], OrderKey: s.keys[id-1]}
}

func (s *Store) entryOf(id int64) entry {
	return entry{key: s.keys[id-1], id: id}
}

// filter drops unknown ids and repeats, keeping first occurrences.
func (s *Store) filter(ids []int64) ([]int64, int) {
	clean := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if !s.Has(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		clean = append(clean, id)
	}
	return clean, len(ids) - len(clean)
}

// contiguous reports whether ids occupy one unbroken run of the order.
func (s *Store) contiguous(ids []int64) bool {
	set := make(map[int64]struct{}, len(ids))
	first := s.entryOf(ids[0])
	for _, id := range ids {
		set[id] = struct{}{}
		if e := s.entryOf(id); lessEntry(e, first) {
			first = e
		}
	}

	n := 0
	ok := true
	s.tree.AscendGreaterOrEqual(first, func(e entry) bool {
		if _, in := set[e.id]; !in {
			ok = false
			return false
		}
		n++
		return n < len(ids)
	})
	return ok && n == len(ids)
}

// redistribute hands the sorted key set of ids back out in sequence order.
func (s *Store) redistribute(ids []int64) int {
	keys := make([]float64, len(ids))
	for i, id := range ids {
		keys[i] = s.keys[id-1]
	}
	sort.Float64s(keys)

	moved := make([]int, 0, len(ids))
	for i, id := range ids {
		if s.keys[id-1] != keys[i] {
			s.tree.Delete(s.entryOf(id))
			moved = append(moved, i)
		}
	}
	for _, i := range moved {
		id := ids[i]
		s.keys[id-1] = keys[i]
		s.tree.ReplaceOrInsert(s.entryOf(id))
	}
	return len(moved)
}

// interpolate keeps the longest already-ordered subsequence of ids in place
// and gives every other id a key between its new neighbours.
func (s *Store) interpolate(ids []int64) (int, bool) {
	keep := s.longestOrderedRun(ids)

	first := -1
	for i := range ids {
		if keep[i] {
			first = i
			break
		}
	}

	moved := 0
	rebalanced := false
	place := func(id, anchor int64, after bool) {
		if err := s.placeNear(id, anchor, after); errors.Is(err, domain.ErrKeySpaceExhausted) {
			s.rebalance()
			rebalanced = true
			_ = s.placeNear(id, anchor, after)
		}
		moved++
	}

	// Leading ids go in front of their right-hand neighbour, walking left.
	for i := first - 1; i >= 0; i-- {
		place(ids[i], ids[i+1], false)
	}
	// Everything else goes right after its left-hand neighbour.
	for i := first + 1; i < len(ids); i++ {
		if keep[i] {
			continue
		}
		place(ids[i], ids[i-1], true)
	}
	return moved, rebalanced
}

// placeNear moves id directly after (or before) anchor in the global order.
// It returns ErrKeySpaceExhausted, leaving the store unchanged, when no
// representable key exists between the two neighbours.
func (s *Store) placeNear(id, anchor int64, after bool) error {
	old := s.entryOf(id)
	s.tree.Delete(old)

	a := s.entryOf(anchor)
	var lo, hi float64
	if after {
		lo = a.key
		hi = math.Inf(1)
		if next, ok := s.successor(a); ok {
			hi = next.key
		}
	} else {
		hi = a.key
		lo = math.Inf(-1)
		if prev, ok := s.predecessor(a); ok {
			lo = prev.key
		}
	}

	key, ok := s.between(lo, hi)
	if !ok {
		s.tree.ReplaceOrInsert(old)
		return domain.ErrKeySpaceExhausted
	}
	s.keys[id-1] = key
	s.tree.ReplaceOrInsert(entry{key: key, id: id})
	return nil
}

// between picks a key strictly inside (lo, hi).
func (s *Store) between(lo, hi float64) (float64, bool) {
	switch {
	case math.IsInf(lo, -1) && math.IsInf(hi, 1):
		return s.spacing, true
	case math.IsInf(hi, 1):
		k := lo + s.spacing
		return k, k > lo && !math.IsInf(k, 1)
	case math.IsInf(lo, -1):
		k := hi - s.spacing
		return k, k < hi && !math.IsInf(k, -1)
	}
	mid := lo + (hi-lo)/2
	return mid, mid > lo && mid < hi
}

func (s *Store) successor(e entry) (entry, bool) {
	var out entry
	found := false
	s.tree.AscendGreaterOrEqual(e, func(n entry) bool {
		if n == e {
			return true
		}
		out, found = n, true
		return false
	})
	return out, found
}

func (s *Store) predecessor(e entry) (entry, bool) {
	var out entry
	found := false
	s.tree.DescendLessOrEqual(e, func(n entry) bool {
		if n == e {
			return true
		}
		out, found = n, true
		return false
	})
	return out, found
}

// longestOrderedRun marks a longest subsequence of ids whose current keys
// are already increasing. Patience sorting, O(k log k).
func (s *Store) longestOrderedRun(ids []int64) []bool {
	n := len(ids)
	tails := make([]int, 0, n) // index into ids of the smallest tail per length
	prev := make([]int, n)

	for i, id := range ids {
		e := s.entryOf(id)
		j := sort.Search(len(tails), func(k int) bool {
			return !lessEntry(s.entryOf(ids[tails[k]]), e)
		})
		if j > 0 {
			prev[i] = tails[j-1]
		} else {
			prev[i] = -1
		}
		if j == len(tails) {
			tails = append(tails, i)
		} else {
			tails[j] = i
		}
	}

	keep := make([]bool, n)
	for i := tails[len(tails)-1]; i >= 0; i = prev[i] {
		keep[i] = true
	}
	return keep
}

// rebalance renumbers every key by rank. Caller holds the write lock.
func (s *Store) rebalance() {
	order := make([]int64, 0, len(s.keys))
	s.tree.Ascend(func(e entry) bool {
		order = append(order, e.id)
		return true
	})

	s.tree.Clear(false)
	for rank, id := range order {
		s.keys[id-1] = float64(rank+1) * s.spacing
		s.tree.ReplaceOrInsert(entry{key: s.keys[id-1], id: id})
	}

	metrics.RebalancesTotal.Inc()
	s.logger.Info("order keys rebalanced",
		log.Int("records", len(order)),
		log.Float64("spacing", s.spacing),
	)
}
