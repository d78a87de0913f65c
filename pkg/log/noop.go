package log

// Nop discards everything. Components fall back to it when no logger is
// configured.
var Nop Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}

// NewNoopLogger returns Nop.
func NewNoopLogger() Logger {
	return Nop
}
