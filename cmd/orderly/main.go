package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bft-labs/orderly/internal/cliconfig"
	"github.com/bft-labs/orderly/pkg/log"
)

const helpDescription = `
Serve a large ordered collection to virtualized list clients.

Highlights:
  - Filtered, paginated windows with case-insensitive search.
  - Drag-and-drop reorders that only touch the records that moved.
  - Independent selections per client, including range toggles.
  - Configure via file, env, or flags; log level reloads live.
`

var exampleUsage = strings.TrimSpace(`
  orderly serve --addr :3000 --size 1000000
  orderly serve --config $HOME/.orderly/config.toml
  orderly items --search "item 42" --limit 5
  orderly select --client-id me 3 4 5
  orderly order 2 1
  orderly state --client-id me
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	logger := cliconfig.Logger()

	root := &cobra.Command{
		Use:           "orderly",
		Short:         "Serve a large ordered collection to virtualized list clients",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd(logger))
	addClientCmds(root, logger)

	if err := root.Execute(); err != nil {
		logger.Error("orderly", log.Err(err))
		os.Exit(1)
	}
}
