package domain

import "strconv"

// Record is a single entry of the ordered collection.
type Record struct {
	// ID is unique and immutable, assigned at creation
	ID int64

	// Value is the display text
	Value string

	// OrderKey defines the total order of the collection
	OrderKey float64
}

// DefaultValue returns the display text given to a record at creation.
func DefaultValue(id int64) string {
	return "Item " + strconv.FormatInt(id, 10)
}

// Less reports whether r sorts before o. Keys are distinct by invariant;
// a tie is broken by ascending id so the order stays deterministic.
func (r Record) Less(o Record) bool {
	if r.OrderKey != o.OrderKey {
		return r.OrderKey < o.OrderKey
	}
	return r.ID < o.ID
}

// Item is the wire representation of a Record. Order keys are internal
// and never leave the server.
type Item struct {
	ID    int64  `json:"id"`
	Value string `json:"value"`
}

// ToItem converts a Record to its wire representation.
func (r Record) ToItem() Item {
	return Item{ID: r.ID, Value: r.Value}
}
