// Package reorder is the boundary between a client-submitted order and the
// order store. Submissions are permissive: unknown and repeated ids are
// dropped rather than rejected, and no version check is made, so a
// submission always applies to whatever order exists when it arrives.
package reorder

import (
	"context"

	"github.com/bft-labs/orderly/internal/metrics"
	"github.com/bft-labs/orderly/internal/orderstore"
	"github.com/bft-labs/orderly/pkg/log"
)

// Protocol validates submitted orders and applies them.
type Protocol struct {
	store  *orderstore.Store
	logger log.Logger
}

// New creates a Protocol writing to store.
func New(store *orderstore.Store, logger log.Logger) *Protocol {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Protocol{store: store, logger: logger}
}

// Submit applies ids as the new order of the client's current view.
// The only error is a canceled context.
func (p *Protocol) Submit(ctx context.Context, clientID string, ids []int64) (orderstore.Result, error) {
	if err := ctx.Err(); err != nil {
		return orderstore.Result{}, err
	}

	known := make([]int64, 0, len(ids))
	for _, id := range ids {
		if p.store.Has(id) {
			known = append(known, id)
		}
	}

	res := p.store.ApplyReorder(known)
	res.Dropped += len(ids) - len(known)

	metrics.ReordersTotal.WithLabelValues(res.Mode).Inc()
	if res.Dropped > 0 {
		metrics.ReorderDroppedIDs.Add(float64(res.Dropped))
	}

	p.logger.Debug("order submitted",
		log.String("client", clientID),
		log.IDs("ids", ids),
		log.Int("submitted", len(ids)),
		log.Int("applied", res.Applied),
		log.Int("moved", res.Moved),
		log.String("mode", res.Mode),
		log.Bool("rebalanced", res.Rebalanced),
	)
	return res, nil
}
