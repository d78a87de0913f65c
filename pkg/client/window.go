package client

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bft-labs/orderly/pkg/log"
)

// Window defaults.
const (
	DefaultPageSize = 20
	DefaultDebounce = 300 * time.Millisecond
)

// ErrIndexOutOfRange is returned when an index does not name a loaded item.
var ErrIndexOutOfRange = errors.New("client: index out of range")

// Window is the client-side state of a scrolling, searchable list.
// All methods are safe for concurrent use.
type Window struct {
	client   *Client
	pageSize int
	delay    time.Duration
	onChange func()
	logger   log.Logger

	mu       sync.Mutex
	term     string
	items    []Item
	hasMore  bool
	selected map[int64]struct{}
	last     int

	// seq is the stamp of the most recently issued fetch; a response
	// carrying an older stamp is dropped.
	seq      uint64
	inflight bool
	debounce *time.Timer
}

// WindowOption configures optional behavior of a Window.
type WindowOption func(*Window)

// WithPageSize sets how many items each fetch requests.
func WithPageSize(n int) WindowOption {
	return func(w *Window) {
		if n > 0 {
			w.pageSize = n
		}
	}
}

// WithDebounce sets the quiet period Search waits before reloading.
func WithDebounce(d time.Duration) WindowOption {
	return func(w *Window) {
		if d >= 0 {
			w.delay = d
		}
	}
}

// WithOnChange registers fn to run after the items change.
func WithOnChange(fn func()) WindowOption {
	return func(w *Window) {
		w.onChange = fn
	}
}

// NewWindow creates an empty window over c.
func NewWindow(c *Client, opts ...WindowOption) *Window {
	w := &Window{
		client:   c,
		pageSize: DefaultPageSize,
		delay:    DefaultDebounce,
		logger:   c.logger,
		hasMore:  true,
		selected: make(map[int64]struct{}),
		last:     -1,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Items returns a copy of the loaded items in display order.
func (w *Window) Items() []Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Item, len(w.items))
	copy(out, w.items)
	return out
}

// Selected returns the selected ids in ascending order.
func (w *Window) Selected() []int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]int64, 0, len(w.selected))
	for id := range w.selected {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsSelected reports whether id is selected.
func (w *Window) IsSelected(id int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.selected[id]
	return ok
}

// HasMore reports whether another page may exist past the loaded items.
func (w *Window) HasMore() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hasMore
}

// Term returns the active search term.
func (w *Window) Term() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.term
}

// SyncSelection replaces the local selection with the server's.
func (w *Window) SyncSelection(ctx context.Context) error {
	ids, err := w.client.State(ctx)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.selected = make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		w.selected[id] = struct{}{}
	}
	w.mu.Unlock()
	return nil
}

// Search schedules a reload for term once no other Search call has
// arrived for the debounce period.
func (w *Window) Search(ctx context.Context, term string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.delay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := w.Reload(ctx, term); err != nil {
			w.logger.Warn("search reload failed", log.String("term", term), log.Err(err))
		}
	})
}

// Reload discards the loaded items and fetches the first page for term.
// Any fetch still outstanding is superseded.
func (w *Window) Reload(ctx context.Context, term string) error {
	w.mu.Lock()
	w.term = term
	w.items = nil
	w.hasMore = true
	w.last = -1
	w.seq++
	w.inflight = false
	w.mu.Unlock()

	return w.LoadMore(ctx)
}

// LoadMore fetches the page after the loaded items. It does nothing when
// a fetch is already outstanding or the previous page was the last.
func (w *Window) LoadMore(ctx context.Context) error {
	w.mu.Lock()
	if w.inflight || !w.hasMore {
		w.mu.Unlock()
		return nil
	}
	w.seq++
	seq := w.seq
	w.inflight = true
	term, offset, limit := w.term, len(w.items), w.pageSize
	w.mu.Unlock()

	page, err := w.client.Items(ctx, term, offset, limit)

	w.mu.Lock()
	if seq != w.seq {
		w.mu.Unlock()
		w.logger.Debug("dropping stale page", log.Uint64("seq", seq), log.String("term", term))
		return nil
	}
	w.inflight = false
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.items = append(w.items, page.Items...)
	w.hasMore = page.HasMore
	w.mu.Unlock()

	w.changed()
	return nil
}

// Toggle flips the selection of the item at index. With shift set and a
// previous toggle recorded, every item between the two indices, inclusive,
// takes the new state of the item at index.
func (w *Window) Toggle(ctx context.Context, index int, shift bool) error {
	w.mu.Lock()
	if index < 0 || index >= len(w.items) {
		w.mu.Unlock()
		return ErrIndexOutOfRange
	}

	_, was := w.selected[w.items[index].ID]
	selected := !was

	indices := []int{index}
	if shift && w.last >= 0 && w.last < len(w.items) {
		indices = RangeIndices(w.last, index)
	}

	ids := make([]int64, len(indices))
	for i, idx := range indices {
		id := w.items[idx].ID
		ids[i] = id
		if selected {
			w.selected[id] = struct{}{}
		} else {
			delete(w.selected, id)
		}
	}
	w.last = index
	w.mu.Unlock()

	w.changed()
	return w.client.Select(ctx, ids, selected)
}

// Move moves the item at from to position to, shifting the items between,
// and submits the resulting order of the whole window. The local order is
// kept even if the submission fails.
func (w *Window) Move(ctx context.Context, from, to int) error {
	w.mu.Lock()
	if from < 0 || from >= len(w.items) || to < 0 || to >= len(w.items) {
		w.mu.Unlock()
		return ErrIndexOutOfRange
	}
	if from == to {
		w.mu.Unlock()
		return nil
	}
	w.items = arrayMove(w.items, from, to)
	order := make([]int64, len(w.items))
	for i, it := range w.items {
		order[i] = it.ID
	}
	w.mu.Unlock()

	w.changed()
	return w.client.Order(ctx, order)
}

// Close stops a pending debounced search.
func (w *Window) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
		w.debounce = nil
	}
}

func (w *Window) changed() {
	if w.onChange != nil {
		w.onChange()
	}
}

// RangeIndices returns the indices from min(last, current) to
// max(last, current) inclusive.
func RangeIndices(last, current int) []int {
	lo, hi := last, current
	if lo > hi {
		lo, hi = hi, lo
	}
	out := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}

// arrayMove moves items[from] to index to in place.
func arrayMove(items []Item, from, to int) []Item {
	it := items[from]
	if from < to {
		copy(items[from:to], items[from+1:to+1])
	} else {
		copy(items[to+1:from+1], items[to:from])
	}
	items[to] = it
	return items
}
