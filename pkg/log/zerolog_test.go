package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWriter(&buf)

	l.Info("reorder applied",
		String("client", "c1"),
		Int("moved", 3),
		Bool("contiguous", true),
		Err(errors.New("boom")),
	)

	out := buf.String()
	for _, want := range []string{`"message":"reorder applied"`, `"client":"c1"`, `"moved":3`, `"contiguous":true`, `"error":"boom"`, `"level":"info"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %s missing %s", out, want)
		}
	}
}

func TestZerologAdapter_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWriter(&buf)

	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug logged at info level: %s", buf.String())
	}

	if got := l.SetLevel("DEBUG"); got != zerolog.DebugLevel {
		t.Errorf("SetLevel(DEBUG) = %v, want debug", got)
	}
	l.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("debug message not logged after SetLevel: %s", buf.String())
	}

	buf.Reset()
	if got := l.SetLevel("nonsense"); got != zerolog.InfoLevel {
		t.Errorf("SetLevel(nonsense) = %v, want info", got)
	}
	l.Warn("warned")
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("warn not logged: %s", buf.String())
	}
}

func TestZerologAdapter_IDsCapped(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWriter(&buf)

	ids := make([]int64, 40)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	l.Info("order", IDs("ids", ids))

	out := buf.String()
	if !strings.Contains(out, `"ids":[1,2,3`) {
		t.Errorf("output %s missing ids array", out)
	}
	if strings.Contains(out, ",17,") || strings.Contains(out, ",17]") {
		t.Errorf("output %s not capped at %d ids", out, maxLoggedIDs)
	}
}

func TestNoopLogger(t *testing.T) {
	l := NewNoopLogger()
	l.Debug("x")
	l.Info("x", String("k", "v"))
	l.Warn("x")
	l.Error("x", Err(errors.New("e")))
}
