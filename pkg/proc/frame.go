package proc

// Frame is one call-depth's worth of variable shadows: a Snapshot per
// Descriptor in the template, plus the return address for this
// invocation (§3 Frame). Adapted from the shape of the teacher's
// pkg/proc/stack.go Stackframe (Current/Call location + saved
// registers), stripped of everything that exists only to unwind past
// the traced function into the Go runtime (SystemStack, Inlined,
// hasInlines, the lastpc/stackHi bookkeeping) — a C tracee has no
// runtime stack to unwind past.
type Frame struct {
	Snapshots  []*Snapshot
	ReturnAddr uint64
}

// FrameStack is the Frame Stack of §4.4: an ordered sequence of Frame,
// one per live call to the monitored function, depth increasing on
// entry traps and decreasing on return traps.
type FrameStack struct {
	template []*Descriptor
	frames   []*Frame
}

// NewFrameStack returns an empty stack that will clone template's shape
// into every pushed Frame.
func NewFrameStack(template []*Descriptor) *FrameStack {
	return &FrameStack{template: template}
}

// Depth returns the current call depth (0 while the target function is
// not on the child's call stack).
func (fs *FrameStack) Depth() int { return len(fs.frames) }

// Enter pushes a new Frame for returnAddr. The i-th Snapshot in every
// Frame always refers to the same logical variable, since every Frame
// is built from the same template slice in the same order.
func (fs *FrameStack) Enter(returnAddr uint64) *Frame {
	f := &Frame{ReturnAddr: returnAddr, Snapshots: make([]*Snapshot, len(fs.template))}
	for i, d := range fs.template {
		f.Snapshots[i] = newSnapshot(d)
	}
	fs.frames = append(fs.frames, f)
	return f
}

// Leave pops the top Frame, freeing its array-heap images implicitly
// (Go's GC reclaims Snapshot.Image/Scratch once the Frame is
// unreferenced; no explicit free is needed the way
// original_source/src/variable.c's var_deallocate_context requires in
// C).
func (fs *FrameStack) Leave() {
	if len(fs.frames) == 0 {
		return
	}
	fs.frames = fs.frames[:len(fs.frames)-1]
}

// Top returns the innermost live Frame, or nil if the stack is empty.
func (fs *FrameStack) Top() *Frame {
	if len(fs.frames) == 0 {
		return nil
	}
	return fs.frames[len(fs.frames)-1]
}
