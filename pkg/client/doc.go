// Package client talks to an orderly server.
//
// [Client] wraps the HTTP API with typed calls. [Window] keeps a growing,
// searchable view of the order the way a virtualized list does: searches
// are debounced, at most one page fetch is outstanding, responses that
// arrive after a newer fetch was issued are dropped, and drag moves and
// checkbox toggles are applied locally before they are sent.
//
// Basic usage:
//
//	c := client.New("http://localhost:3000")
//	w := client.NewWindow(c)
//	if err := w.LoadMore(ctx); err != nil {
//		return err
//	}
//	for _, it := range w.Items() {
//		fmt.Println(it.ID, it.Value)
//	}
package client
