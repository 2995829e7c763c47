package highlight

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gopbd/pbd/pkg/proc"
)

// CompactSink is the default reporter of §6: one line per event in the
// exact form `[Line: N] [scope] (name) state!, before: X, after: Y`,
// with an optional multi-index suffix on the name for arrays.
type CompactSink struct {
	w     io.Writer
	theme *Theme // nil disables color
}

// NewCompactSink wraps w. theme may be nil for plain output.
func NewCompactSink(w io.Writer, theme *Theme) *CompactSink {
	return &CompactSink{w: w, theme: theme}
}

func (s *CompactSink) Report(ev proc.ChangeEvent) {
	name := ev.Descriptor.Name
	if len(ev.MultiIndex) > 0 {
		var idx strings.Builder
		for _, i := range ev.MultiIndex {
			fmt.Fprintf(&idx, "[%d]", i)
		}
		name += idx.String()
	}

	verb := "has changed"
	if ev.State == proc.StateInitialized {
		verb = "initialized"
	}

	line := fmt.Sprintf("[Line: %d] [%s] (%s) %s!, before: %s, after: %s",
		ev.Line, ev.Descriptor.Scope, name, verb, ev.Before, ev.After)
	fmt.Fprintln(s.w, s.colorize(line, ev.State))
}

func (s *CompactSink) colorize(line string, state proc.ChangeState) string {
	if s.theme == nil {
		return line
	}
	color := s.theme.Changed
	if state == proc.StateInitialized {
		color = s.theme.Initialized
	}
	return color + line + s.theme.Reset
}

func (s *CompactSink) EnteringDepth(depth int) {
	fmt.Fprintf(s.w, "entering depth %d\n", depth)
}

func (s *CompactSink) ReturningToDepth(depth int) {
	fmt.Fprintf(s.w, "returning to depth %d\n", depth)
}

// SourceContextSink is the "show source line with a caret under the
// variable" form §4.5 also requires. It holds the target's source in
// memory (loaded once) and prints `context` lines of leading and
// trailing context around the changed line, per the `show-source` /
// `context N` options of §6.
type SourceContextSink struct {
	w       io.Writer
	theme   *Theme
	source  []string // 0-indexed; source[i] is line i+1
	context int
}

// NewSourceContextSink reads path once and wraps w.
func NewSourceContextSink(w io.Writer, theme *Theme, path string, context int) (*SourceContextSink, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &SourceContextSink{w: w, theme: theme, source: lines, context: context}, nil
}

func (s *SourceContextSink) Report(ev proc.ChangeEvent) {
	name := ev.Descriptor.Name
	label := name
	for _, i := range ev.MultiIndex {
		label += fmt.Sprintf("[%d]", i)
	}
	verb := "has changed"
	if ev.State == proc.StateInitialized {
		verb = "initialized"
	}
	fmt.Fprintf(s.w, "[Line: %d] [%s] (%s) %s!, before: %s, after: %s\n",
		ev.Line, ev.Descriptor.Scope, label, verb, ev.Before, ev.After)

	start := ev.Line - 1 - s.context
	if start < 0 {
		start = 0
	}
	end := ev.Line - 1 + s.context
	if end >= len(s.source) {
		end = len(s.source) - 1
	}
	for i := start; i <= end && i >= 0; i++ {
		marker := "   "
		text := s.source[i]
		if i == ev.Line-1 {
			marker = ">> "
			text = s.colorizeVariable(text, name)
		}
		fmt.Fprintf(s.w, "%s%4d | %s\n", marker, i+1, text)
		if i == ev.Line-1 {
			fmt.Fprintf(s.w, "       %s\n", caretUnder(text, name))
		}
	}
}

func (s *SourceContextSink) colorizeVariable(line, name string) string {
	if s.theme == nil {
		return line
	}
	idx := strings.Index(line, name)
	if idx < 0 {
		return line
	}
	return line[:idx] + s.theme.Variable + name + s.theme.Reset + line[idx+len(name):]
}

func caretUnder(line, name string) string {
	idx := strings.Index(line, name)
	if idx < 0 {
		return ""
	}
	return strings.Repeat(" ", idx) + strings.Repeat("^", len(name))
}

func (s *SourceContextSink) EnteringDepth(depth int) {
	fmt.Fprintf(s.w, "entering depth %d\n", depth)
}

func (s *SourceContextSink) ReturningToDepth(depth int) {
	fmt.Fprintf(s.w, "returning to depth %d\n", depth)
}
