// Command pbd traces a C function in a spawned child process and
// reports every change to the variables it can see, at statement
// granularity (§6 "Command surface"). Structured the way
// github.com/go-delve/delve's cmd/dlv wires cobra: one root command,
// flags bound directly on it, a RunE that builds the core's run
// configuration and hands control to pkg/proc.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
