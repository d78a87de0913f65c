package cliconfig

import "github.com/bft-labs/orderly/pkg/log"

// Logger returns the console logger used by the CLI, at DefaultLogLevel
// until the loaded configuration says otherwise.
func Logger() *log.ZerologAdapter {
	l := log.NewZerologAdapter()
	l.SetLevel(DefaultLogLevel)
	return l
}
