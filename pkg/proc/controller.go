package proc

import (
	"fmt"

	"github.com/gopbd/pbd/internal/logflags"
)

// RunConfig is everything NewController needs for one Run. The
// controller carries no state enum for the §4.7 diagram: there is no
// PRE_ENTRY/RUNNING distinction in Controller itself; "RUNNING" is
// simply "no init_pending frame waiting", which initPending already
// captures, so the extra state is folded away rather than carried as
// dead enum values (the teacher's own rpc2 server collapses similarly
// redundant states into booleans where a full enum would just restate
// the transition table).
type RunConfig struct {
	Arch        *Arch
	EntryAddr   uint64
	Breakpoints []PlannedBreakpoint
	Template    []*Descriptor
	Sink        Sink
	LineOf      func(addr uint64) int
}

// Controller drives the §4.7 state machine for a single Run: one
// Target, one BreakpointTable, one FrameStack, one Detector. Adapted
// from original_source/src/main.c's do_analysis loop, generalized from
// main.c's single global frame-or-no-frame boolean into the explicit
// FrameStack this spec's recursion support requires.
type Controller struct {
	cfg    RunConfig
	target childTarget
	bpt    *BreakpointTable
	frames *FrameStack
	det    *Detector

	initPending bool
}

// NewController wires target/detector state together for cfg. The
// caller is expected to have already spawned target and to call Install
// and then Run. target need only satisfy childTarget, which every
// *Target does automatically; tests substitute a fake child instead.
func NewController(cfg RunConfig, target childTarget) *Controller {
	bpt := NewBreakpointTable(cfg.Arch)
	reader := NewReaderFrom(target)
	return &Controller{
		cfg:    cfg,
		target: target,
		bpt:    bpt,
		frames: NewFrameStack(cfg.Template),
		det:    NewDetector(reader, cfg.Sink),
	}
}

// Install places every planned breakpoint into the child before the
// first Continue (§4.6 step "Controller installs those addresses via
// Breakpoint Table into the Child").
func (c *Controller) Install() error {
	addrs := make([]uint64, len(c.cfg.Breakpoints))
	for i, b := range c.cfg.Breakpoints {
		addrs[i] = b.Addr
	}
	return c.bpt.InstallAll(c.target, addrs, c.cfg.LineOf)
}

// Run executes the full trap loop described in §4.7 until the child
// exits or a tracing-fatal error occurs.
func (c *Controller) Run() error {
	log := logflags.Debugger()
	for {
		if err := c.target.Continue(); err != nil {
			return err
		}
		status, err := c.target.Wait()
		if err != nil {
			return err
		}
		if status == StatusExited {
			log.Debug("child exited, ending run")
			return nil
		}
		if status != StatusTrapped {
			// Non-SIGTRAP stop (e.g. another signal); the child isn't
			// ours to act on, just let it keep running.
			continue
		}
		if err := c.handleTrap(); err != nil {
			return err
		}
	}
}

// handleTrap implements the numbered steps of §4.7's "Detailed loop".
func (c *Controller) handleTrap() error {
	pc, err := c.target.ReadPC()
	if err != nil {
		return err
	}
	trapAddr := pc - 1 // the CPU has already advanced past the one-byte trap opcode

	rec, ok := c.bpt.Find(trapAddr)
	if !ok {
		// Step 2: not ours. Leave PC where the trap left it and let the
		// run continue; we never installed a breakpoint here so there is
		// no byte to restore.
		return nil
	}

	switch {
	case trapAddr == c.cfg.EntryAddr:
		return c.handleEntry(rec)
	case c.atReturnAddress(trapAddr):
		return c.handleReturn(rec)
	default:
		return c.handleStatement(rec)
	}
}

func (c *Controller) atReturnAddress(addr uint64) bool {
	top := c.frames.Top()
	return top != nil && top.ReturnAddr == addr && !c.initPending
}

// handleEntry implements §4.7 step 3.
func (c *Controller) handleEntry(rec *BreakpointRecord) error {
	retAddr, err := c.target.ReadReturnAddress()
	if err != nil {
		return err
	}
	c.frames.Enter(retAddr)
	if err := c.bpt.InstallOne(c.target, retAddr, 0); err != nil {
		return err
	}
	c.initPending = true
	return c.bpt.StepOver(c.target, rec)
}

// handleReturn implements §4.7 step 4. The emitted label is the depth
// of the frame that is returning (the pre-pop depth), so it pairs with
// the "entering depth D" event of the same frame — §8 scenario 5's
// "entering depth 4" ... "returning to depth 4" sequence.
func (c *Controller) handleReturn(rec *BreakpointRecord) error {
	depth := c.frames.Depth()
	c.cfg.Sink.ReturningToDepth(depth)
	c.frames.Leave()
	return c.bpt.StepOver(c.target, rec)
}

// handleStatement implements §4.7 step 5.
func (c *Controller) handleStatement(rec *BreakpointRecord) error {
	top := c.frames.Top()
	if top == nil {
		return fmt.Errorf("proc: statement trap at %#x with no active frame", rec.Addr)
	}

	bp, err := c.target.ReadBP()
	if err != nil {
		return err
	}

	if c.initPending {
		if err := c.det.InitializeFrame(top, c.cfg.Template, bp); err != nil {
			return err
		}
		c.initPending = false
		c.cfg.Sink.EnteringDepth(c.frames.Depth())
	} else {
		if err := c.det.Check(top, c.cfg.Template, c.frames.Depth(), rec.Line, bp); err != nil {
			return err
		}
	}
	return c.bpt.StepOver(c.target, rec)
}

// Teardown releases breakpoint bookkeeping and kills the child if it is
// still alive (e.g. the caller aborted the run early).
func (c *Controller) Teardown() {
	c.bpt.Teardown()
	c.target.Kill()
}
