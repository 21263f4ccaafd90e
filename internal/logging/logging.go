// Package logging builds the component loggers shared across rover.
//
// Every package asks for its own prefixed logger at construction time:
//
//	log := logging.New("pilot")
//	log.Warn("speed over capacity", "scale", 0.8)
//
// Level and output are process wide and apply to loggers created afterwards,
// so the CLI configures them before building the drivetrain.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu   sync.Mutex
	base = newBase(os.Stderr, log.InfoLevel)
)

func newBase(w io.Writer, lvl log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
		Level:           lvl,
	})
}

// New returns a logger whose lines are prefixed with component.
func New(component string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	return base.WithPrefix(component)
}

// SetLevel parses a level name (debug, info, warn, error) and applies it.
func SetLevel(name string) error {
	lvl, err := log.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("log level %q: %w", name, err)
	}
	mu.Lock()
	base.SetLevel(lvl)
	mu.Unlock()
	return nil
}

// SetOutput redirects loggers created after the call.
func SetOutput(w io.Writer) {
	mu.Lock()
	base.SetOutput(w)
	mu.Unlock()
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	return newBase(io.Discard, log.FatalLevel)
}
