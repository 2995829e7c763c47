package highlight

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/gopbd/pbd/pkg/proc"
)

// ScriptFilter wraps a proc.Sink, only forwarding events a Starlark
// predicate accepts (the `--filter-script FILE` option of §11's domain
// stack, supplementing the static name-list filters original_source's
// main.c supports with a programmable one).
type ScriptFilter struct {
	inner     proc.Sink
	thread    *starlark.Thread
	predicate starlark.Callable
}

// NewScriptFilter compiles script (a Starlark source file whose global
// `should_report` function takes (name, depth, line, before, after)
// and returns a bool) and wraps inner.
func NewScriptFilter(inner proc.Sink, scriptPath string) (*ScriptFilter, error) {
	thread := &starlark.Thread{Name: "pbd-filter"}
	globals, err := starlark.ExecFile(thread, scriptPath, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("loading filter script %s: %w", scriptPath, err)
	}
	fn, ok := globals["should_report"]
	if !ok {
		return nil, fmt.Errorf("filter script %s defines no should_report function", scriptPath)
	}
	predicate, ok := fn.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("filter script %s: should_report is not callable", scriptPath)
	}
	return &ScriptFilter{inner: inner, thread: thread, predicate: predicate}, nil
}

func (s *ScriptFilter) Report(ev proc.ChangeEvent) {
	args := starlark.Tuple{
		starlark.String(ev.Descriptor.Name),
		starlark.MakeInt(ev.Depth),
		starlark.MakeInt(ev.Line),
		starlark.String(ev.Before),
		starlark.String(ev.After),
	}
	result, err := starlark.Call(s.thread, s.predicate, args, nil)
	if err != nil {
		// A failing predicate must not crash a live trace; fail open
		// and report the event, the same way a misconfigured ignore
		// list in original_source's main.c silently monitors everything.
		s.inner.Report(ev)
		return
	}
	if b, ok := result.(starlark.Bool); ok && !bool(b) {
		return
	}
	s.inner.Report(ev)
}

func (s *ScriptFilter) EnteringDepth(depth int)    { s.inner.EnteringDepth(depth) }
func (s *ScriptFilter) ReturningToDepth(depth int) { s.inner.ReturningToDepth(depth) }
