package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/cosiner/argv"
	"github.com/spf13/cobra"

	"github.com/gopbd/pbd/internal/logflags"
	"github.com/gopbd/pbd/pkg/analysis"
	"github.com/gopbd/pbd/pkg/dwarfutil"
	"github.com/gopbd/pbd/pkg/highlight"
	"github.com/gopbd/pbd/pkg/proc"
)

const version = "0.1.0"

type cliFlags struct {
	showSource           bool
	context              int
	onlyLocals           bool
	onlyGlobals          bool
	ignoreList           string
	watchList            string
	static               bool
	defines              []string
	undefines            []string
	includeDirs          []string
	std                  string
	color                bool
	theme                string
	output               string
	avoidEqualStatements bool
	dumpAll              bool
	tty                  bool
	execArgs             string
	filterScript         string
	log                  bool
}

func newRootCommand() *cobra.Command {
	f := &cliFlags{}

	cmd := &cobra.Command{
		Use:     "pbd [flags] <executable> <function_name> [-- <child_argv>...]",
		Short:   "Trace variable changes inside a running C function",
		Version: version,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f, args)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&f.showSource, "show-source", false, "use the source-context reporter instead of the compact one")
	flags.IntVar(&f.context, "context", 2, "lines of leading/trailing source context for --show-source")
	flags.BoolVar(&f.onlyLocals, "only-locals", false, "monitor local variables only")
	flags.BoolVar(&f.onlyGlobals, "only-globals", false, "monitor global variables only")
	flags.StringVar(&f.ignoreList, "ignore-list", "", "comma-separated variable names to exclude from monitoring")
	flags.StringVar(&f.watchList, "watch-list", "", "comma-separated variable names to exclusively monitor")
	flags.BoolVar(&f.static, "static", false, "use the static-filtered breakpoint plan")
	flags.StringArrayVarP(&f.defines, "define", "D", nil, "NAME[=VAL]; accepted, not used by the static analyzer")
	flags.StringArrayVarP(&f.undefines, "undefine", "U", nil, "NAME; accepted, not used by the static analyzer")
	flags.StringArrayVarP(&f.includeDirs, "include", "I", nil, "DIR; accepted, not used by the static analyzer")
	flags.StringVar(&f.std, "std", "", "C dialect; accepted, not used by the static analyzer")
	flags.BoolVar(&f.color, "color", false, "enable syntax-colored reporting")
	flags.StringVar(&f.theme, "theme", "", "theme FILE for --color")
	flags.StringVar(&f.output, "output", "", "redirect pbd's own output to FILE")
	flags.BoolVar(&f.avoidEqualStatements, "avoid-equal-statements", false, "collapse repeated statements on one source line to a single breakpoint")
	flags.BoolVar(&f.dumpAll, "dump-all", false, "print resolved variables, lines and breakpoint addresses, then exit")
	flags.BoolVar(&f.tty, "tty", false, "spawn the child attached to a pseudo-terminal")
	flags.StringVar(&f.execArgs, "exec-args", "", "shell-quoted child argv, alternative to -- <child_argv>...")
	flags.StringVar(&f.filterScript, "filter-script", "", "Starlark script filtering which changes are reported")
	flags.BoolVar(&f.log, "log", false, "enable internal debug logging on stderr")

	return cmd
}

func run(f *cliFlags, args []string) error {
	if f.ignoreList != "" && f.watchList != "" {
		return &proc.ConfigError{Field: "ignore-list/watch-list", Reason: "mutually exclusive"}
	}
	if f.onlyLocals && f.onlyGlobals {
		return &proc.ConfigError{Field: "only-locals/only-globals", Reason: "mutually exclusive"}
	}
	if f.theme != "" && !f.color {
		return &proc.ConfigError{Field: "theme", Reason: "requires --color"}
	}

	executable, functionName, childArgv, err := splitArgs(f, args)
	if err != nil {
		return err
	}

	logflags.Configure(f.log, os.Stderr)

	out, err := outputWriter(f.output)
	if err != nil {
		return &proc.ConfigError{Field: "output", Reason: err.Error()}
	}

	oracle, err := dwarfutil.Open(executable)
	if err != nil {
		return err
	}
	defer oracle.Close()

	fn, err := oracle.FindFunction(functionName)
	if err != nil {
		return err
	}
	if !oracle.IsCLanguage(fn.CompUnit) {
		return &proc.ConfigError{Field: "executable", Reason: "target function is not compiled from C"}
	}

	descriptors, err := oracle.Variables(fn)
	if err != nil {
		return err
	}
	descriptors = applyScopeFilter(descriptors, f)

	filterMode, names := nameFilterConfig(f)
	nameFilter := proc.NewNameFilter(filterMode, names)
	descriptors = applyNameFilter(descriptors, nameFilter)

	lines, err := oracle.Lines(fn)
	if err != nil {
		return err
	}

	plan := proc.PlanAllStatements
	var staticKeep map[uint64]bool
	if f.static {
		plan = proc.PlanStaticFiltered
		staticKeep, err = staticFilter(oracle, fn, lines, descriptors)
		if err != nil {
			return err
		}
	}
	planned := proc.PlanBreakpoints(proc.PlanConfig{Plan: plan, IgnoreEqualStatements: f.avoidEqualStatements}, fn.LowPC, lines, staticKeep)

	if f.dumpAll {
		return dumpAll(out, fn, descriptors, planned)
	}

	sink, err := buildSink(f, out, oracle, fn)
	if err != nil {
		return err
	}

	arch, err := proc.ArchForGOARCH(runtime.GOARCH)
	if err != nil {
		return err
	}

	target, err := proc.Spawn(executable, childArgv, arch, proc.SpawnOptions{TTY: f.tty})
	if err != nil {
		return err
	}

	ctrl := proc.NewController(proc.RunConfig{
		Arch:        arch,
		EntryAddr:   fn.LowPC,
		Breakpoints: planned,
		Template:    descriptors,
		Sink:        sink,
		LineOf:      dwarfutil.LineOf(lines),
	}, target)
	defer ctrl.Teardown()

	if err := ctrl.Install(); err != nil {
		return err
	}
	return ctrl.Run()
}

func splitArgs(f *cliFlags, args []string) (executable, functionName string, childArgv []string, err error) {
	executable, functionName = args[0], args[1]
	childArgv = args[2:]
	if f.execArgs != "" {
		if len(childArgv) > 0 {
			return "", "", nil, &proc.ConfigError{Field: "exec-args", Reason: "cannot combine with -- <child_argv>..."}
		}
		parsed, err := argv.Argv([]rune(f.execArgs), nil, nil)
		if err != nil {
			return "", "", nil, &proc.ConfigError{Field: "exec-args", Reason: err.Error()}
		}
		if len(parsed) > 0 {
			childArgv = parsed[0]
		}
	}
	return executable, functionName, childArgv, nil
}

func outputWriter(path string) (*os.File, error) {
	if path == "" {
		return os.Stdout, nil
	}
	return os.Create(path)
}

func applyScopeFilter(descs []*proc.Descriptor, f *cliFlags) []*proc.Descriptor {
	if !f.onlyLocals && !f.onlyGlobals {
		return descs
	}
	out := descs[:0]
	for _, d := range descs {
		if f.onlyLocals && d.Scope != proc.ScopeLocal {
			continue
		}
		if f.onlyGlobals && d.Scope != proc.ScopeGlobal {
			continue
		}
		out = append(out, d)
	}
	return out
}

func nameFilterConfig(f *cliFlags) (proc.FilterMode, []string) {
	switch {
	case f.ignoreList != "":
		return proc.FilterIgnore, strings.Split(f.ignoreList, ",")
	case f.watchList != "":
		return proc.FilterWatch, strings.Split(f.watchList, ",")
	default:
		return proc.FilterNone, nil
	}
}

func applyNameFilter(descs []*proc.Descriptor, nf *proc.NameFilter) []*proc.Descriptor {
	out := descs[:0]
	for _, d := range descs {
		if nf.Allows(d.Name) {
			out = append(out, d)
		}
	}
	return out
}

func staticFilter(oracle *dwarfutil.Oracle, fn *dwarfutil.FunctionEntry, lines []proc.LineRecord, descriptors []*proc.Descriptor) (map[uint64]bool, error) {
	tracked := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		tracked[d.Name] = true
	}
	source := oracle.SourceFile(fn)
	text, err := os.ReadFile(source)
	if err != nil {
		return nil, &proc.ConfigError{Field: "static", Reason: fmt.Sprintf("reading %s: %v", source, err)}
	}
	srcLines := strings.Split(string(text), "\n")

	var stmts []analysis.Statement
	for _, l := range lines {
		if l.Kind != proc.LineStatementBegin {
			continue
		}
		if l.Line < 1 || l.Line > len(srcLines) {
			continue
		}
		stmts = append(stmts, analysis.Statement{Addr: l.Addr, Line: l.Line, Text: srcLines[l.Line-1]})
	}
	return analysis.Keep(stmts, func(name string) bool { return tracked[name] }), nil
}

func buildSink(f *cliFlags, out *os.File, oracle *dwarfutil.Oracle, fn *dwarfutil.FunctionEntry) (proc.Sink, error) {
	var theme *highlight.Theme
	if f.color {
		theme = highlight.DefaultTheme()
		if f.theme != "" {
			var err error
			theme, err = highlight.LoadTheme(f.theme)
			if err != nil {
				return nil, &proc.ConfigError{Field: "theme", Reason: err.Error()}
			}
		}
	}

	var sink proc.Sink
	if f.showSource {
		s, err := highlight.NewSourceContextSink(out, theme, oracle.SourceFile(fn), f.context)
		if err != nil {
			return nil, &proc.ConfigError{Field: "show-source", Reason: err.Error()}
		}
		sink = s
	} else {
		sink = highlight.NewCompactSink(out, theme)
	}

	if f.filterScript != "" {
		filtered, err := highlight.NewScriptFilter(sink, f.filterScript)
		if err != nil {
			return nil, &proc.ConfigError{Field: "filter-script", Reason: err.Error()}
		}
		sink = filtered
	}
	return sink, nil
}

func dumpAll(out *os.File, fn *dwarfutil.FunctionEntry, descriptors []*proc.Descriptor, planned []proc.PlannedBreakpoint) error {
	fmt.Fprintf(out, "function %s entry=%#x\n", fn.Name, fn.LowPC)
	for _, d := range descriptors {
		fmt.Fprintf(out, "var %s scope=%s size=%d\n", d.Name, d.Scope, d.ByteSize)
	}
	for _, b := range planned {
		fmt.Fprintf(out, "breakpoint addr=%#x line=%d\n", b.Addr, b.Line)
	}
	return nil
}
