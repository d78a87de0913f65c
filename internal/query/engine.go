// Package query serves filtered, paginated windows of the current order.
package query

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bft-labs/orderly/internal/domain"
	"github.com/bft-labs/orderly/internal/metrics"
	"github.com/bft-labs/orderly/internal/orderstore"
	"github.com/bft-labs/orderly/pkg/log"
)

// Default paging limits.
const (
	DefaultLimit     = 20
	DefaultMaxLimit  = 1000
	DefaultCacheSize = 64

	// DefaultMaxCachedIDs is about 32 MiB of cached ids.
	DefaultMaxCachedIDs = 1 << 22
)

// ctxCheckEvery is how many records are scanned between context checks.
const ctxCheckEvery = 1 << 16

// Config holds QueryEngine tuning.
type Config struct {
	// DefaultLimit is used when the requested limit is not positive.
	DefaultLimit int

	// MaxLimit caps the requested limit.
	MaxLimit int

	// CacheSize is the number of filtered views kept.
	CacheSize int

	// MaxCachedIDs caps the ids held across all cached views. Least
	// recently used views are dropped beyond it, though the newest view is
	// always kept.
	MaxCachedIDs int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		DefaultLimit: DefaultLimit,
		MaxLimit:     DefaultMaxLimit,
		CacheSize:    DefaultCacheSize,
		MaxCachedIDs: DefaultMaxCachedIDs,
	}
}

// view is the filtered id sequence for one term at one store generation.
type view struct {
	generation uint64
	ids        []int64
}

// Engine produces pages of the order held by an orderstore.Store.
type Engine struct {
	store *orderstore.Store
	cfg   Config
	lower []string

	// cacheMu serialises insertions so cachedIDs tracks views exactly.
	cacheMu   sync.Mutex
	views     *lru.Cache[string, *view]
	cachedIDs atomic.Int64

	logger log.Logger
}

// New creates an engine over store. Lowercased values are computed once
// since record values never change.
func New(store *orderstore.Store, cfg Config, logger log.Logger) (*Engine, error) {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = cfg.DefaultLimit
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.MaxCachedIDs <= 0 {
		cfg.MaxCachedIDs = DefaultMaxCachedIDs
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	lower := make([]string, store.Len())
	for i := range lower {
		v, _ := store.Value(int64(i + 1))
		lower[i] = strings.ToLower(v)
	}

	e := &Engine{
		store:  store,
		cfg:    cfg,
		lower:  lower,
		logger: logger,
	}
	views, err := lru.NewWithEvict[string, *view](cfg.CacheSize, e.onEvict)
	if err != nil {
		return nil, err
	}
	e.views = views
	return e, nil
}

// onEvict may run under the cache's lock and must not call back into it.
func (e *Engine) onEvict(_ string, v *view) {
	e.cachedIDs.Add(-int64(len(v.ids)))
}

// Query returns the records at [offset, offset+limit) of the order filtered
// by a case-insensitive substring match of term. An empty term matches
// everything. A negative offset reads from 0; a non-positive limit uses the
// configured default.
//
// Membership, order and the returned order keys all come from one store
// generation; a reorder landing mid-query is seen by the next call.
func (e *Engine) Query(ctx context.Context, term string, offset, limit int) (domain.Page, error) {
	start := time.Now()
	defer func() { metrics.QueryDuration.Observe(time.Since(start).Seconds()) }()

	offset, limit = e.normalize(offset, limit)

	var (
		page domain.Page
		err  error
	)
	e.store.Read(func(sn orderstore.Snapshot) {
		var v *view
		if v, err = e.view(ctx, sn, term); err != nil {
			return
		}
		page = e.page(sn, v, offset, limit)
	})
	if err != nil {
		return domain.Page{}, err
	}
	return page, nil
}

// Count returns the number of records matching term.
func (e *Engine) Count(ctx context.Context, term string) (int, error) {
	var (
		n   int
		err error
	)
	e.store.Read(func(sn orderstore.Snapshot) {
		var v *view
		if v, err = e.view(ctx, sn, term); err == nil {
			n = len(v.ids)
		}
	})
	return n, err
}

func (e *Engine) page(sn orderstore.Snapshot, v *view, offset, limit int) domain.Page {
	page := domain.Page{Offset: offset}
	if offset >= len(v.ids) {
		page.Items = []domain.Record{}
		return page
	}

	end := offset + limit
	if end > len(v.ids) {
		end = len(v.ids)
	}
	page.Items = make([]domain.Record, 0, end-offset)
	for _, id := range v.ids[offset:end] {
		page.Items = append(page.Items, sn.Record(id))
	}
	page.HasMore = end < len(v.ids)
	return page
}

func (e *Engine) normalize(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if limit > e.cfg.MaxLimit {
		limit = e.cfg.MaxLimit
	}
	return offset, limit
}

// view returns the cached view for term, rebuilding it when the store has
// been reordered since it was built.
func (e *Engine) view(ctx context.Context, sn orderstore.Snapshot, term string) (*view, error) {
	key := strings.ToLower(term)
	gen := sn.Generation()

	if v, ok := e.views.Get(key); ok && v.generation == gen {
		metrics.ViewCacheLookups.WithLabelValues("hit").Inc()
		return v, nil
	}
	metrics.ViewCacheLookups.WithLabelValues("miss").Inc()

	v, err := e.build(ctx, sn, key)
	if err != nil {
		return nil, err
	}
	e.cache(key, v)

	e.logger.Debug("view built",
		log.String("term", key),
		log.Int("matches", len(v.ids)),
		log.Uint64("generation", v.generation),
	)
	return v, nil
}

// cache stores v under key, then drops least recently used views until the
// cached ids fit MaxCachedIDs or only v is left.
func (e *Engine) cache(key string, v *view) {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()

	// replacing an entry does not fire onEvict
	if old, ok := e.views.Peek(key); ok {
		e.cachedIDs.Add(-int64(len(old.ids)))
	}
	e.views.Add(key, v)
	e.cachedIDs.Add(int64(len(v.ids)))

	for e.cachedIDs.Load() > int64(e.cfg.MaxCachedIDs) && e.views.Len() > 1 {
		if _, _, ok := e.views.RemoveOldest(); !ok {
			break
		}
	}
	metrics.ViewCacheIDs.Set(float64(e.cachedIDs.Load()))
}

func (e *Engine) build(ctx context.Context, sn orderstore.Snapshot, key string) (*view, error) {
	ids := make([]int64, 0, 1024)
	if key == "" {
		ids = make([]int64, 0, e.store.Len())
	}

	var err error
	scanned := 0
	sn.AscendIDs(func(id int64) bool {
		scanned++
		if scanned%ctxCheckEvery == 0 {
			if err = ctx.Err(); err != nil {
				return false
			}
		}
		if key == "" || strings.Contains(e.lower[id-1], key) {
			ids = append(ids, id)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &view{generation: sn.Generation(), ids: ids}, nil
}
