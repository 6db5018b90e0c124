package debug

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetEnabled(true)
	SetOutput(&buf)
	t.Cleanup(func() { SetEnabled(false) })
	return &buf
}

func TestLogWritesWhenEnabled(t *testing.T) {
	buf := capture(t)
	Log("loaded %d nodes", 7)
	LogIf(false, "hidden")
	LogIf(true, "shown")
	LogTiming("layout", 3*time.Millisecond)
	Section("render")

	out := buf.String()
	for _, want := range []string{"loaded 7 nodes", "shown", "layout took 3ms", "=== render ==="} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Error("LogIf(false) should not write")
	}
}

func TestLogSilentWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetEnabled(false)
	Log("nothing")
	LogEnterExit("noop")()
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestLogEnterExit(t *testing.T) {
	buf := capture(t)
	LogEnterExit("build")()
	out := buf.String()
	if !strings.Contains(out, "-> build") || !strings.Contains(out, "<- build") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestAssertNoErrorPanics(t *testing.T) {
	capture(t)
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	AssertNoError(errors.New("boom"), "ctx")
}
