package proc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeChild is a scripted childTarget: each Continue call advances the
// program counter to the next address in pcScript, simulating the
// child running to its next trap without a real ptrace session. Once
// the script is exhausted, Wait reports the child as exited.
type fakeChild struct {
	mem      map[uint64]byte
	pc       uint64
	retAddr  uint64
	pcScript []uint64
	idx      int
}

func newFakeChild(retAddr uint64, pcScript []uint64) *fakeChild {
	return &fakeChild{mem: make(map[uint64]byte), retAddr: retAddr, pcScript: pcScript}
}

func (f *fakeChild) ReadMem(addr uint64, n int) ([]byte, error) {
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		buf[i] = f.mem[addr+uint64(i)]
	}
	return buf, nil
}

func (f *fakeChild) WriteMem(addr uint64, data []byte) error {
	for i, b := range data {
		f.mem[addr+uint64(i)] = b
	}
	return nil
}

func (f *fakeChild) ReadPC() (uint64, error)            { return f.pc, nil }
func (f *fakeChild) SetPC(addr uint64) error            { f.pc = addr; return nil }
func (f *fakeChild) ReadBP() (uint64, error)            { return 0, nil }
func (f *fakeChild) ReadReturnAddress() (uint64, error) { return f.retAddr, nil }
func (f *fakeChild) SingleStep() error                  { return nil }
func (f *fakeChild) Kill() error                        { return nil }

func (f *fakeChild) Continue() error {
	if f.idx < len(f.pcScript) {
		f.pc = f.pcScript[f.idx]
	}
	f.idx++
	return nil
}

func (f *fakeChild) Wait() (WaitStatus, error) {
	if f.idx > len(f.pcScript) {
		return StatusExited, nil
	}
	return StatusTrapped, nil
}

// depthSink records only the Entering/ReturningToDepth sequence, the
// two events P2 and §8 scenario 5 constrain.
type depthSink struct {
	entering  []int
	returning []int
}

func (s *depthSink) Report(ev ChangeEvent)      {}
func (s *depthSink) EnteringDepth(depth int)    { s.entering = append(s.entering, depth) }
func (s *depthSink) ReturningToDepth(depth int) { s.returning = append(s.returning, depth) }

// TestControllerRecursionDepthSequence drives the §4.7 state machine
// through a synthetic 4-deep recursive call (§8 scenario 5's
// factorial(3): entering depth 1,2,3,4 then returning to depth 4,3,2,1
// in reverse order) using a single statement address and a single
// return address shared by every frame, since straight recursion calls
// and returns through the same instructions each time.
func TestControllerRecursionDepthSequence(t *testing.T) {
	const (
		entryAddr = 0x1000
		stmtAddr  = 0x1010
		retAddr   = 0x2000
	)

	// trapAddr = PC - 1, so each scripted PC is the trap address plus
	// one byte for the already-executed trap instruction.
	pcScript := []uint64{
		entryAddr + 1, stmtAddr + 1, // enter depth 1
		entryAddr + 1, stmtAddr + 1, // enter depth 2
		entryAddr + 1, stmtAddr + 1, // enter depth 3
		entryAddr + 1, stmtAddr + 1, // enter depth 4
		retAddr + 1, retAddr + 1, retAddr + 1, retAddr + 1, // unwind 4 -> 0
	}

	child := newFakeChild(retAddr, pcScript)
	sink := &depthSink{}
	arch, err := ArchForGOARCH("amd64")
	require.NoError(t, err)

	ctrl := NewController(RunConfig{
		Arch:      arch,
		EntryAddr: entryAddr,
		Breakpoints: []PlannedBreakpoint{
			{Addr: entryAddr, Line: 1},
			{Addr: stmtAddr, Line: 2},
		},
		Sink: sink,
	}, child)

	require.NoError(t, ctrl.Install())
	require.NoError(t, ctrl.Run())

	require.Equal(t, []int{1, 2, 3, 4}, sink.entering)
	require.Equal(t, []int{4, 3, 2, 1}, sink.returning)
}
