// Package logflags provides PBD's internal structured logging, built on
// logrus the way the teacher's pkg/logflags package does (stack.go
// imports "github.com/go-delve/delve/pkg/logflags" for exactly this
// purpose). Internal diagnostics go through these loggers; user-facing
// change events never do — those go through a proc.Sink.
package logflags

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu      sync.Mutex
	enabled bool
	out     io.Writer = os.Stderr
)

// Configure enables or disables internal logging and sets its
// destination, mirroring delve's --log/--log-dest flags.
func Configure(on bool, dest io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	enabled = on
	if dest != nil {
		out = dest
	}
}

func newLogger(component string) *logrus.Entry {
	l := logrus.New()
	l.Out = out
	if enabled {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.ErrorLevel)
	}
	return l.WithField("component", component)
}

// PTrace returns the logger for the Child Process Handle / Breakpoint
// Table layer.
func PTrace() *logrus.Entry { return newLogger("ptrace") }

// Debugger returns the logger for the controller/state-machine layer.
func Debugger() *logrus.Entry { return newLogger("debugger") }

// DWARF returns the logger for debug-info extraction.
func DWARF() *logrus.Entry { return newLogger("dwarf") }

// Analysis returns the logger for the static analyzer.
func Analysis() *logrus.Entry { return newLogger("analysis") }
