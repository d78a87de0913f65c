package reorder

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/bft-labs/orderly/internal/metrics"
	"github.com/bft-labs/orderly/internal/orderstore"
	"github.com/bft-labs/orderly/internal/selection"
)

func setup(t *testing.T, size int) (*Protocol, *orderstore.Store) {
	t.Helper()
	store, err := orderstore.New(size)
	if err != nil {
		t.Fatalf("orderstore.New() error = %v", err)
	}
	return New(store, nil), store
}

func order(s *orderstore.Store) []int64 {
	var out []int64
	s.AscendIDs(func(id int64) bool {
		out = append(out, id)
		return true
	})
	return out
}

func TestSubmit_UnknownIDIgnored(t *testing.T) {
	p, store := setup(t, 10)
	before := store.ReadOrdered()

	res, err := p.Submit(context.Background(), "c", []int64{4, 999999999})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if res.Applied != 1 || res.Dropped != 1 || res.Moved != 0 {
		t.Errorf("result = %+v, want Applied=1 Dropped=1 Moved=0", res)
	}
	if !reflect.DeepEqual(store.ReadOrdered(), before) {
		t.Error("order changed")
	}
}

func TestSubmit_Move(t *testing.T) {
	p, store := setup(t, 5)

	res, err := p.Submit(context.Background(), "c", []int64{1, 3, 4, 5, 2})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.Mode != metrics.ModeContiguous {
		t.Errorf("Mode = %s, want %s", res.Mode, metrics.ModeContiguous)
	}
	if got, want := order(store), []int64{1, 3, 4, 5, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestSubmit_Empty(t *testing.T) {
	p, _ := setup(t, 5)

	res, err := p.Submit(context.Background(), "c", nil)
	if err != nil {
		t.Fatalf("Submit(nil) error = %v", err)
	}
	if res.Mode != metrics.ModeNoop {
		t.Errorf("Mode = %s, want noop", res.Mode)
	}
}

func TestSubmit_CanceledContext(t *testing.T) {
	p, _ := setup(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Submit(ctx, "c", []int64{2, 1}); !errors.Is(err, context.Canceled) {
		t.Errorf("Submit() error = %v, want context.Canceled", err)
	}
}

func TestSubmit_SelectionSurvivesReorder(t *testing.T) {
	p, _ := setup(t, 10)
	sel := selection.New(selection.DefaultConfig(), nil)
	sel.Set("c", []int64{2, 5, 7}, true)

	if _, err := p.Submit(context.Background(), "c", []int64{7, 2, 5, 1}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if got := sel.Selected("c"); !reflect.DeepEqual(got, []int64{2, 5, 7}) {
		t.Errorf("Selected = %v, want [2 5 7]", got)
	}
}
