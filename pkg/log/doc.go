// Package log provides the logging abstraction used across orderly.
//
// Components depend on the Logger interface only. A zerolog-backed
// implementation is used by the server and a no-op logger by tests.
//
//	logger := log.NewZerologAdapter()
//	logger.Info("listening", log.String("addr", addr))
//
// The zerolog adapter's level can be changed at runtime with SetLevel,
// which the config watcher uses to apply log_level edits without a restart.
package log
