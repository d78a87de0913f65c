package domain

// Page is one contiguous window of the filtered, ordered collection.
type Page struct {
	// Items holds at most the requested limit of records, in order
	Items []Record

	// Offset is the position of Items[0] within the filtered sequence
	Offset int

	// HasMore is true when records exist past the end of Items.
	// A page shorter than the requested limit always has HasMore == false.
	HasMore bool
}

// Len returns the number of records in the page.
func (p Page) Len() int {
	return len(p.Items)
}

// WireItems converts the page records to their wire representation.
func (p Page) WireItems() []Item {
	out := make([]Item, len(p.Items))
	for i, r := range p.Items {
		out[i] = r.ToItem()
	}
	return out
}
