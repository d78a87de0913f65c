// Package domain contains the core entities and value objects for orderly.
//
// This package is the innermost layer. It has no dependencies on HTTP,
// logging or storage and holds only the data model and its invariants.
//
// # Entities
//
//   - [Record]: one row of the collection (immutable id and value, mutable order key)
//   - [Page]: one window of the filtered, ordered collection
//
// Record ids are assigned once at startup and never reused. Order keys are
// owned by the order store; nothing else writes them.
package domain
