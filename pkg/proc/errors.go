package proc

import "fmt"

// ConfigError reports an invalid or contradictory Run Configuration
// (§7 "Configuration error") — e.g. both an ignore-list and a
// watch-list given, or both only-locals and only-globals given.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("proc: invalid configuration for %s: %s", e.Field, e.Reason)
}

// DebugInfoError reports a failure to resolve the requested function or
// its variables from the target binary's debug info (§7 "Debug info
// error") — e.g. the function name doesn't exist, the binary was
// stripped, or DWARF is absent entirely.
type DebugInfoError struct {
	Function string
	Err      error
}

func (e *DebugInfoError) Error() string {
	return fmt.Sprintf("proc: resolving debug info for %s: %v", e.Function, e.Err)
}

func (e *DebugInfoError) Unwrap() error { return e.Err }
