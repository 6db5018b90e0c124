// Package debug provides conditional debug logging for sviz.
//
// Debug logging is enabled by setting the SV_DEBUG environment variable:
//
//	SV_DEBUG=1 sviz render bom.json
//
// Messages go to stderr with timestamps. When disabled (the default) every
// function returns immediately.
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

const prefix = "[SV_DEBUG] "

var (
	mu      sync.Mutex
	enabled bool
	logger  *log.Logger
)

func init() {
	if os.Getenv("SV_DEBUG") != "" {
		enabled = true
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// SetEnabled turns debug logging on or off at runtime.
func SetEnabled(e bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output. Tests use it to capture messages.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, prefix, 0)
}

func printf(format string, args ...any) {
	mu.Lock()
	l, on := logger, enabled
	mu.Unlock()
	if !on || l == nil {
		return
	}
	l.Printf(format, args...)
}

// Log writes a printf-style debug message.
func Log(format string, args ...any) {
	printf(format, args...)
}

// LogIf writes a debug message only if cond is true.
func LogIf(cond bool, format string, args ...any) {
	if !cond {
		return
	}
	printf(format, args...)
}

// LogTiming writes how long an operation took.
func LogTiming(name string, d time.Duration) {
	printf("%s took %v", name, d)
}

// LogEnterExit logs entry immediately and exit with timing when the returned
// func runs:
//
//	defer debug.LogEnterExit("layout.Compute")()
func LogEnterExit(name string) func() {
	if !Enabled() {
		return func() {}
	}
	printf("-> %s", name)
	start := time.Now()
	return func() {
		printf("<- %s (%v)", name, time.Since(start))
	}
}

// Dump logs a value with its type.
func Dump(name string, v any) {
	printf("%s: %T = %+v", name, v, v)
}

// Section logs a header line to group related output.
func Section(name string) {
	printf("=== %s ===", name)
}

// AssertNoError panics when err is non-nil. Only active when debug is enabled.
func AssertNoError(err error, context string) {
	if err == nil || !Enabled() {
		return
	}
	printf("ASSERTION FAILED: %s: %v", context, err)
	panic(fmt.Sprintf("debug assertion failed: %s: %v", context, err))
}
