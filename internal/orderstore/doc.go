// Package orderstore owns the total order of the collection.
//
// The store is the only writer of order keys. Records are held in flat
// slices indexed by id, and a B-tree ordered by (key, id) gives ordered
// iteration and neighbour lookups in O(log n).
//
// # Reordering
//
// ApplyReorder receives the complete materialised view after a move. Two
// modes exist:
//
//   - Contiguous: the submitted ids occupy one unbroken run of the global
//     order. Their keys are collected, sorted, and handed back out in the
//     submitted sequence. Records outside the run are never touched.
//   - Sparse: the ids are scattered (a partial or search-filtered view).
//     The longest run already in order stays put and every other id is
//     given a fresh key between its new neighbours. Only moved ids change.
//
// When a midpoint key can no longer be represented, the store renumbers
// every key by rank (a rebalance) and carries on.
package orderstore
