// Package highlight supplies the reporter sinks §4.5/§6 require: a
// compact line-form sink and a source-context sink with a caret under
// the changed variable, both injectable as proc.Sink. Grounded on
// original_source/src/highlight.c and line.c (token-kind → color
// mapping, context window print), reimagined around a Go theme file
// instead of a hardcoded ANSI table.
package highlight

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"
)

// Theme maps the handful of token classes PBD's output ever colors to
// an ANSI escape sequence. Unlike original_source/src/highlight.c's
// fixed C-syntax palette (keyword/type/string/comment colors for a
// full source dump), PBD only ever colors its own event fields, so the
// theme is much smaller than a general C highlighter's.
type Theme struct {
	Changed     string `yaml:"changed"`
	Initialized string `yaml:"initialized"`
	Depth       string `yaml:"depth"`
	Variable    string `yaml:"variable"`
	Reset       string `yaml:"-"`
}

// DefaultTheme returns the built-in palette: yellow for a changed
// value, green for a first initialization, bold for the variable name,
// and cyan in Depth, which no sink applies to its depth lines.
func DefaultTheme() *Theme {
	return &Theme{
		Changed:     "\x1b[33m",
		Initialized: "\x1b[32m",
		Depth:       "\x1b[36m",
		Variable:    "\x1b[1m",
		Reset:       "\x1b[0m",
	}
}

// LoadTheme parses a YAML theme file at path (the `--theme FILE`
// option of §6).
func LoadTheme(path string) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t := DefaultTheme()
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ColorCapable reports whether f (expected to be os.Stdout or
// os.Stderr) is a terminal that understands ANSI escapes, wrapping it
// with go-colorable so the same escapes render on Windows consoles.
func ColorCapable(f *os.File) (io.Writer, bool) {
	isTerm := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	return colorable.NewColorable(f), isTerm
}
