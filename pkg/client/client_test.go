package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/orderly/internal/httpapi"
	"github.com/bft-labs/orderly/internal/orderstore"
	"github.com/bft-labs/orderly/internal/query"
	"github.com/bft-labs/orderly/internal/reorder"
	"github.com/bft-labs/orderly/internal/selection"
)

func newTestServer(t *testing.T, size int) *httptest.Server {
	t.Helper()
	store, err := orderstore.New(size)
	require.NoError(t, err)
	engine, err := query.New(store, query.DefaultConfig(), nil)
	require.NoError(t, err)
	h := httpapi.NewHandler(engine, selection.New(selection.DefaultConfig(), nil), reorder.New(store, nil))
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

// gatedClient holds requests whose URL contains block until release is
// closed.
type gatedClient struct {
	block   string
	release chan struct{}
	started atomic.Int32
	items   atomic.Int32
}

func (g *gatedClient) Do(req *http.Request) (*http.Response, error) {
	if strings.Contains(req.URL.Path, itemsEndpoint) {
		g.items.Add(1)
	}
	if g.block != "" && strings.Contains(req.URL.RawQuery, g.block) {
		g.started.Add(1)
		<-g.release
	}
	return http.DefaultClient.Do(req)
}

func ids(items []Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestClient_DefaultClientIDIsUUID(t *testing.T) {
	a, b := New("http://x"), New("http://x")
	assert.Len(t, a.ClientID(), 36)
	assert.NotEqual(t, a.ClientID(), b.ClientID())
	assert.Equal(t, "test-client", New("http://x", WithClientID("test-client")).ClientID())
}

func TestClient_RoundTrip(t *testing.T) {
	srv := newTestServer(t, 50)
	c := New(srv.URL+"/", WithClientID("rt"))
	ctx := context.Background()

	page, err := c.Items(ctx, "item 4", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 40, 41, 42, 43}, ids(page.Items))
	assert.True(t, page.HasMore)
	assert.Equal(t, 11, page.Total)

	require.NoError(t, c.Select(ctx, []int64{7, 3}, true))
	sel, err := c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 7}, sel)

	require.NoError(t, c.Order(ctx, []int64{2, 1}))
	page, err = c.Items(ctx, "", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 3}, ids(page.Items))
}

func TestClient_StatusError(t *testing.T) {
	srv := newTestServer(t, 5)
	c := New(srv.URL)

	err := c.do(context.Background(), http.MethodGet, "/nope", nil, nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, se.Body, "Resource not found.")
}

func TestWindow_LoadMoreUntilExhausted(t *testing.T) {
	srv := newTestServer(t, 45)
	w := NewWindow(New(srv.URL), WithPageSize(20))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, w.LoadMore(ctx))
	}
	items := w.Items()
	require.Len(t, items, 45)
	assert.False(t, w.HasMore())
	for i, it := range items {
		assert.Equal(t, int64(i+1), it.ID)
	}
}

func TestWindow_LoadMoreInFlightGuard(t *testing.T) {
	srv := newTestServer(t, 30)
	gc := &gatedClient{block: "offset=0", release: make(chan struct{})}
	w := NewWindow(New(srv.URL, WithHTTPClient(gc)))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- w.LoadMore(ctx) }()
	require.Eventually(t, func() bool { return gc.started.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, w.LoadMore(ctx))
	assert.Equal(t, int32(1), gc.items.Load())

	close(gc.release)
	require.NoError(t, <-done)
	assert.Len(t, w.Items(), DefaultPageSize)
}

func TestWindow_StaleResponseDropped(t *testing.T) {
	srv := newTestServer(t, 100)
	gc := &gatedClient{block: "search=old", release: make(chan struct{})}
	w := NewWindow(New(srv.URL, WithHTTPClient(gc)))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- w.Reload(ctx, "old") }()
	require.Eventually(t, func() bool { return gc.started.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, w.Reload(ctx, "item 7"))
	close(gc.release)
	require.NoError(t, <-done)

	assert.Equal(t, "item 7", w.Term())
	items := w.Items()
	require.NotEmpty(t, items)
	assert.Equal(t, int64(7), items[0].ID)
}

func TestWindow_SearchDebounced(t *testing.T) {
	srv := newTestServer(t, 100)
	gc := &gatedClient{}
	var changes atomic.Int32
	w := NewWindow(New(srv.URL, WithHTTPClient(gc)),
		WithDebounce(30*time.Millisecond),
		WithOnChange(func() { changes.Add(1) }),
	)
	defer w.Close()
	ctx := context.Background()

	w.Search(ctx, "i")
	w.Search(ctx, "it")
	w.Search(ctx, "item 9")

	require.Eventually(t, func() bool { return changes.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), gc.items.Load())
	assert.Equal(t, "item 9", w.Term())
	assert.Equal(t, int64(9), w.Items()[0].ID)
}

func TestWindow_ToggleRange(t *testing.T) {
	srv := newTestServer(t, 30)
	c := New(srv.URL)
	w := NewWindow(c)
	ctx := context.Background()
	require.NoError(t, w.LoadMore(ctx))

	require.NoError(t, w.Toggle(ctx, 2, false))
	require.NoError(t, w.Toggle(ctx, 5, true))
	assert.Equal(t, []int64{3, 4, 5, 6}, w.Selected())

	// Item at index 3 is selected, so the range 3..5 is deselected.
	require.NoError(t, w.Toggle(ctx, 3, true))
	assert.Equal(t, []int64{3}, w.Selected())

	remote, err := c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, remote)

	assert.ErrorIs(t, w.Toggle(ctx, 99, false), ErrIndexOutOfRange)
}

func TestWindow_SyncSelection(t *testing.T) {
	srv := newTestServer(t, 10)
	c := New(srv.URL, WithClientID("sync"))
	ctx := context.Background()
	require.NoError(t, c.Select(ctx, []int64{4, 9}, true))

	w := NewWindow(c)
	require.NoError(t, w.SyncSelection(ctx))
	assert.True(t, w.IsSelected(4))
	assert.Equal(t, []int64{4, 9}, w.Selected())
}

func TestWindow_Move(t *testing.T) {
	srv := newTestServer(t, 30)
	c := New(srv.URL)
	w := NewWindow(c, WithPageSize(10))
	ctx := context.Background()
	require.NoError(t, w.LoadMore(ctx))

	require.NoError(t, w.Move(ctx, 0, 3))
	assert.Equal(t, []int64{2, 3, 4, 1, 5, 6, 7, 8, 9, 10}, ids(w.Items()))

	page, err := c.Items(ctx, "", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 4, 1, 5}, ids(page.Items))

	require.NoError(t, w.Move(ctx, 2, 2))
	assert.ErrorIs(t, w.Move(ctx, 0, 10), ErrIndexOutOfRange)
}

func TestWindow_MoveKeepsLocalOrderOnFailure(t *testing.T) {
	srv := newTestServer(t, 10)
	w := NewWindow(New(srv.URL), WithPageSize(5))
	ctx := context.Background()
	require.NoError(t, w.LoadMore(ctx))

	srv.Close()
	require.Error(t, w.Move(ctx, 4, 0))
	assert.Equal(t, []int64{5, 1, 2, 3, 4}, ids(w.Items()))
}

func TestRangeIndices(t *testing.T) {
	tests := []struct {
		last, current int
		want          []int
	}{
		{2, 5, []int{2, 3, 4, 5}},
		{5, 2, []int{2, 3, 4, 5}},
		{3, 3, []int{3}},
	}
	for _, tt := range tests {
		got := RangeIndices(tt.last, tt.current)
		assert.Equal(t, tt.want, got, "RangeIndices(%d, %d)", tt.last, tt.current)
	}
}

func TestArrayMove(t *testing.T) {
	mk := func(ids ...int64) []Item {
		out := make([]Item, len(ids))
		for i, id := range ids {
			out[i] = Item{ID: id}
		}
		return out
	}
	tests := []struct {
		from, to int
		want     []int64
	}{
		{0, 3, []int64{2, 3, 4, 1}},
		{3, 0, []int64{4, 1, 2, 3}},
		{1, 2, []int64{1, 3, 2, 4}},
	}
	for _, tt := range tests {
		got := ids(arrayMove(mk(1, 2, 3, 4), tt.from, tt.to))
		assert.Equal(t, tt.want, got, "arrayMove(%d, %d)", tt.from, tt.to)
	}
}

