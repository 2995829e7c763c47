package proc

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/gopbd/pbd/internal/logflags"
)

// Target is the Child Process Handle (§4.1): the only component that
// touches the traced child. Adapted from the ptrace call sequence in
// original_source/src/ptrace.c (pt_spawnprocess/pt_waitchild/pt_continue/
// pt_readmemory_long/pt_writememory_long) and written in the idiom of
// golang-debug's demo/ptrace-linux-amd64/main.go and
// other_examples/b09ac922_jackc-delve__proctl-proctl_linux_amd64.go.go
// (raw ptrace syscalls, no cgo).
type Target struct {
	pid  int
	arch *Arch
	tty  *os.File // non-nil when spawned with SpawnOptions.TTY
}

// SpawnOptions configures how the child is started.
type SpawnOptions struct {
	// TTY, when true, attaches the child's stdio to a pseudo-terminal
	// (via github.com/creack/pty) instead of inheriting the parent's
	// file descriptors. Needed for tracees that call isatty()/tcgetattr()
	// on their own stdin and behave differently when it isn't a real tty.
	TTY bool
}

// WaitStatus classifies the result of a single Wait call.
type WaitStatus int

const (
	// StatusTrapped means the child is stopped, most likely because it
	// hit a trap (breakpoint or single-step).
	StatusTrapped WaitStatus = iota
	// StatusExited means the child has terminated; the run is over.
	StatusExited
	// StatusOther means the child stopped for a reason PBD doesn't act
	// on (e.g. a non-SIGTRAP signal); the caller should just continue.
	StatusOther
)

// SpawnError reports a fork/exec failure (§7 "Spawn error").
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("proc: spawning %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// TracingFatalError reports an unexpected OS-level error while the
// child was supposedly stopped (§7 "Tracing fatal"). Every such error
// is fatal to the run.
type TracingFatalError struct {
	Op   string
	Addr uint64
	Err  error
}

func (e *TracingFatalError) Error() string {
	if e.Addr != 0 {
		return fmt.Sprintf("proc: tracing fatal during %s at %#x: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("proc: tracing fatal during %s: %v", e.Op, e.Err)
}

func (e *TracingFatalError) Unwrap() error { return e.Err }

// Spawn forks and execs path under trace-me, then waits for the child's
// initial stop before its first instruction.
func Spawn(path string, argv []string, arch *Arch, opts SpawnOptions) (*Target, error) {
	log := logflags.PTrace()

	fullArgv := append([]string{path}, argv...)

	var tty *os.File
	var files []uintptr
	if opts.TTY {
		pt, ttyFile, err := openPTY()
		if err != nil {
			return nil, &SpawnError{Path: path, Err: err}
		}
		tty = pt
		files = []uintptr{ttyFile.Fd(), ttyFile.Fd(), ttyFile.Fd()}
		defer ttyFile.Close()
	} else {
		files = []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd()}
	}

	attr := &unix.ProcAttr{
		Files: files,
		Sys: &unix.SysProcAttr{
			Ptrace:    true,
			Pdeathsig: unix.SIGKILL,
		},
	}

	pid, err := unix.ForkExec(path, fullArgv, attr)
	if err != nil {
		return nil, &SpawnError{Path: path, Err: err}
	}

	log.WithField("pid", pid).Debug("spawned traced child")

	t := &Target{pid: pid, arch: arch, tty: tty}

	// The child raises SIGTRAP against itself right after PTRACE_TRACEME
	// and before executing main's first instruction; consume that stop
	// here so callers see a freshly-spawned, already-stopped child.
	if _, err := t.Wait(); err != nil {
		return nil, &SpawnError{Path: path, Err: err}
	}
	return t, nil
}

// Pid returns the traced child's process ID.
func (t *Target) Pid() int { return t.pid }

// Wait blocks until the child changes state.
func (t *Target) Wait() (WaitStatus, error) {
	var status unix.WaitStatus
	_, err := unix.Wait4(t.pid, &status, 0, nil)
	if err != nil {
		return StatusOther, &TracingFatalError{Op: "wait4", Err: err}
	}
	if status.Exited() || status.Signaled() {
		return StatusExited, nil
	}
	if status.Stopped() && status.StopSignal() == unix.SIGTRAP {
		return StatusTrapped, nil
	}
	return StatusOther, nil
}

// ReadPC returns the current program counter.
func (t *Target) ReadPC() (uint64, error) {
	regs, err := t.readRaw()
	if err != nil {
		return 0, err
	}
	return pcFromRaw(regs), nil
}

// SetPC sets the program counter to addr.
func (t *Target) SetPC(addr uint64) error {
	regs, err := t.readRaw()
	if err != nil {
		return err
	}
	setPCInRaw(&regs, addr)
	return t.writeRaw(regs)
}

// ReadBP returns the current frame base pointer.
func (t *Target) ReadBP() (uint64, error) {
	regs, err := t.readRaw()
	if err != nil {
		return 0, err
	}
	return bpFromRaw(regs), nil
}

// ReadSP returns the current stack pointer.
func (t *Target) ReadSP() (uint64, error) {
	regs, err := t.readRaw()
	if err != nil {
		return 0, err
	}
	return spFromRaw(regs), nil
}

// ReadReturnAddress reads the return address the ABI guarantees is
// reachable while the CPU is still in the function's prologue (System V
// AMD64: the word pointed to by SP at call entry, i.e. what `call`
// pushed).
func (t *Target) ReadReturnAddress() (uint64, error) {
	sp, err := t.ReadSP()
	if err != nil {
		return 0, err
	}
	return t.ReadWord(sp)
}

// ReadWord reads one pointer-sized word at addr.
func (t *Target) ReadWord(addr uint64) (uint64, error) {
	buf, err := t.ReadMem(addr, t.arch.PtrSize)
	if err != nil {
		return 0, err
	}
	return bytesToWord(buf), nil
}

// WriteWord writes one pointer-sized word at addr.
func (t *Target) WriteWord(addr uint64, w uint64) error {
	return t.WriteMem(addr, wordToBytes(w, t.arch.PtrSize))
}

// ReadMem presents the exact bytes at the child's virtual address addr,
// at the moment of the call. Bulk reads are attempted via
// process_vm_readv (the same optimization original_source/src/ptrace.c
// applies for GLIBC >= 2.15 / Linux >= 3.12), falling back to
// word-at-a-time PEEKDATA when that syscall isn't available.
func (t *Target) ReadMem(addr uint64, n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	local := []unix.Iovec{{Base: &buf[0], Len: uint64(n)}}
	remote := []unix.RemoteIovec{{Base: uintptr(addr), Len: n}}
	if got, err := unix.ProcessVMReadv(t.pid, local, remote, 0); err == nil && got == n {
		return buf, nil
	}

	word := t.arch.PtrSize
	i := 0
	for ; i+word <= n; i += word {
		w, err := unix.PtracePeekData(t.pid, uintptr(addr)+uintptr(i), buf[i:i+word])
		if err != nil || w != word {
			return nil, &TracingFatalError{Op: "ptrace_peekdata", Addr: addr + uint64(i), Err: err}
		}
	}
	if rem := n - i; rem > 0 {
		tmp := make([]byte, word)
		if _, err := unix.PtracePeekData(t.pid, uintptr(addr)+uintptr(i), tmp); err != nil {
			return nil, &TracingFatalError{Op: "ptrace_peekdata", Addr: addr + uint64(i), Err: err}
		}
		copy(buf[i:], tmp[:rem])
	}
	return buf, nil
}

// WriteMem writes data at the child's virtual address addr. Ptrace only
// pokes whole words, so a read-modify-write is used for the trailing
// partial word, exactly as original_source/src/ptrace.c's
// pt_writememory does.
func (t *Target) WriteMem(addr uint64, data []byte) error {
	word := t.arch.PtrSize
	n := len(data)
	i := 0
	for ; i+word <= n; i += word {
		if _, err := unix.PtracePokeData(t.pid, uintptr(addr)+uintptr(i), data[i:i+word]); err != nil {
			return &TracingFatalError{Op: "ptrace_pokedata", Addr: addr + uint64(i), Err: err}
		}
	}
	if rem := n - i; rem > 0 {
		existing, err := t.ReadMem(addr+uint64(i), word)
		if err != nil {
			return err
		}
		copy(existing, data[i:])
		if _, err := unix.PtracePokeData(t.pid, uintptr(addr)+uintptr(i), existing); err != nil {
			return &TracingFatalError{Op: "ptrace_pokedata", Addr: addr + uint64(i), Err: err}
		}
	}
	return nil
}

// Continue resumes the child until the next trap or exit.
func (t *Target) Continue() error {
	if err := unix.PtraceCont(t.pid, 0); err != nil {
		return &TracingFatalError{Op: "ptrace_cont", Err: err}
	}
	return nil
}

// SingleStep executes exactly one instruction.
func (t *Target) SingleStep() error {
	if err := unix.PtraceSingleStep(t.pid); err != nil {
		return &TracingFatalError{Op: "ptrace_singlestep", Err: err}
	}
	return nil
}

// Kill terminates the child unconditionally, used on the tracing-fatal
// exit path.
func (t *Target) Kill() error {
	if t.tty != nil {
		t.tty.Close()
	}
	return unix.Kill(t.pid, unix.SIGKILL)
}

func bytesToWord(b []byte) uint64 {
	var w uint64
	for i := len(b) - 1; i >= 0; i-- {
		w = (w << 8) | uint64(b[i])
	}
	return w
}

func wordToBytes(w uint64, size int) []byte {
	b := make([]byte, size)
	for i := 0; i < size; i++ {
		b[i] = byte(w)
		w >>= 8
	}
	return b
}
