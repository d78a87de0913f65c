package log

import "time"

// Logger is the structured logger every orderly component accepts.
// Implementations must be safe for concurrent use.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key-value pair attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

// maxLoggedIDs caps the ids written by IDs.
const maxLoggedIDs = 16

func String(key, value string) Field             { return Field{Key: key, Value: value} }
func Int(key string, value int) Field            { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field        { return Field{Key: key, Value: value} }
func Uint64(key string, value uint64) Field      { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field    { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field          { return Field{Key: key, Value: value} }
func Duration(key string, d time.Duration) Field { return Field{Key: key, Value: d} }

// Err attaches err under the key "error".
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// IDs attaches a list of record ids. Long lists are cut to their first
// entries so a full-window reorder does not flood the log.
func IDs(key string, ids []int64) Field {
	if len(ids) > maxLoggedIDs {
		ids = ids[:maxLoggedIDs]
	}
	return Field{Key: key, Value: ids}
}

// Any attaches a value of any type, encoded by the backend.
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}
