package proc

import (
	"os"

	"github.com/creack/pty"
)

// openPTY opens a new pseudo-terminal pair for SpawnOptions.TTY. The
// slave half is handed to the child as its stdin/stdout/stderr. Spawn
// keeps the master half on the Target and closes it in Kill; nothing
// reads from or writes to it.
func openPTY() (master, slave *os.File, err error) {
	return pty.Open()
}
