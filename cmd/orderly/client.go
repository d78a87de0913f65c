package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bft-labs/orderly/pkg/client"
	"github.com/bft-labs/orderly/pkg/log"
)

const defaultServerURL = "http://localhost:3000"

type clientFlags struct {
	server   string
	clientID string
}

func (f *clientFlags) client(logger log.Logger) *client.Client {
	opts := []client.Option{client.WithLogger(logger)}
	if f.clientID != "" {
		opts = append(opts, client.WithClientID(f.clientID))
	}
	return client.New(f.server, opts...)
}

func addClientCmds(root *cobra.Command, logger log.Logger) {
	f := &clientFlags{}

	items := &cobra.Command{
		Use:   "items",
		Short: "Print a page of the filtered order",
		Args:  cobra.NoArgs,
	}
	search := items.Flags().String("search", "", "case-insensitive substring filter")
	offset := items.Flags().Int("offset", 0, "records to skip")
	limit := items.Flags().Int("limit", 20, "records to return")
	items.RunE = func(cmd *cobra.Command, args []string) error {
		page, err := f.client(logger).Items(cmd.Context(), *search, *offset, *limit)
		if err != nil {
			return err
		}
		return printJSON(page)
	}

	sel := &cobra.Command{
		Use:   "select ID...",
		Short: "Select or deselect records",
		Args:  cobra.MinimumNArgs(1),
	}
	deselect := sel.Flags().Bool("deselect", false, "deselect instead of select")
	sel.RunE = func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		return f.client(logger).Select(cmd.Context(), ids, !*deselect)
	}

	order := &cobra.Command{
		Use:   "order ID...",
		Short: "Submit a new relative order for records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return f.client(logger).Order(cmd.Context(), ids)
		},
	}

	state := &cobra.Command{
		Use:   "state",
		Short: "Print the selected ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := f.client(logger).State(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(map[string][]int64{"selected": ids})
		},
	}

	for _, c := range []*cobra.Command{items, sel, order, state} {
		c.Flags().StringVar(&f.server, "server", defaultServerURL, "server base URL")
		c.Flags().StringVar(&f.clientID, "client-id", "", "client id for selections (default: random)")
		root.AddCommand(c)
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", a, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
