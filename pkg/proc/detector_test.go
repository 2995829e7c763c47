package proc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeMemory is a trivial memReader over a flat byte slice, enough to
// drive the Change Detector without a real traced child.
type fakeMemory struct {
	bytes []byte
}

func (f *fakeMemory) ReadMem(addr uint64, n int) ([]byte, error) {
	return append([]byte(nil), f.bytes[addr:addr+uint64(n)]...), nil
}

func (f *fakeMemory) write(addr uint64, data []byte) { copy(f.bytes[addr:], data) }

type recordingSink struct {
	events []ChangeEvent
}

func (r *recordingSink) Report(ev ChangeEvent)      { r.events = append(r.events, ev) }
func (r *recordingSink) EnteringDepth(depth int)    {}
func (r *recordingSink) ReturningToDepth(depth int) {}

func TestDetectorScalarFirstWriteThenChange(t *testing.T) {
	mem := &fakeMemory{bytes: make([]byte, 64)}
	d := &Descriptor{Name: "d", Scope: ScopeLocal, FrameOffset: 0, ByteSize: 8, Encoding: EncFloat}
	template := []*Descriptor{d}

	fs := NewFrameStack(template)
	frame := fs.Enter(0xdead)

	sink := &recordingSink{}
	det := NewDetector(NewReaderFrom(mem), sink)

	// Scratch seeded with indeterminate garbage bytes (simulating an
	// uninitialized local on the child's stack).
	mem.write(0, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, det.InitializeFrame(frame, template, 0))
	require.False(t, frame.Snapshots[0].Initialized)

	// No change yet: diff against the same garbage scratch.
	require.NoError(t, det.Check(frame, template, 1, 5, 0))
	require.Empty(t, sink.events)

	// First real write.
	mem.write(0, encodeFloat64(2.14))
	require.NoError(t, det.Check(frame, template, 1, 7, 0))
	require.Len(t, sink.events, 1)
	require.Equal(t, StateInitialized, sink.events[0].State)
	require.Equal(t, "0.000000", sink.events[0].Before)
	require.Equal(t, "2.140000", sink.events[0].After)

	// Second write, ordinary change.
	mem.write(0, encodeFloat64(3.50))
	require.NoError(t, det.Check(frame, template, 1, 9, 0))
	require.Len(t, sink.events, 2)
	require.Equal(t, StateChanged, sink.events[1].State)
	require.Equal(t, "2.140000", sink.events[1].Before)
	require.Equal(t, "3.500000", sink.events[1].After)
}

func TestDetectorGlobalStartsInitialized(t *testing.T) {
	mem := &fakeMemory{bytes: make([]byte, 64)}
	d := &Descriptor{Name: "g", Scope: ScopeGlobal, Address: 0, ByteSize: 4, Encoding: EncSignedInt}
	template := []*Descriptor{d}

	fs := NewFrameStack(template)
	frame := fs.Enter(0xdead)
	sink := &recordingSink{}
	det := NewDetector(NewReaderFrom(mem), sink)

	require.NoError(t, det.InitializeFrame(frame, template, 0))
	require.True(t, frame.Snapshots[0].Initialized)

	mem.write(0, []byte{7, 0, 0, 0})
	require.NoError(t, det.Check(frame, template, 0, 10, 0))
	require.Len(t, sink.events, 1)
	require.Equal(t, StateChanged, sink.events[0].State)
	require.Equal(t, "0", sink.events[0].Before)
	require.Equal(t, "7", sink.events[0].After)
}

func TestDetectorArrayElementChange3D(t *testing.T) {
	shape := &ArrayShape{ElementByteSize: 4, Dimensions: []int{2, 2, 2}}
	mem := &fakeMemory{bytes: make([]byte, shape.ElementByteSize*shape.ElementCount())}
	d := &Descriptor{Name: "m", Scope: ScopeGlobal, Address: 0, ByteSize: len(mem.bytes), Encoding: EncSignedInt, Array: shape}
	template := []*Descriptor{d}

	fs := NewFrameStack(template)
	frame := fs.Enter(0xdead)
	sink := &recordingSink{}
	det := NewDetector(NewReaderFrom(mem), sink)
	require.NoError(t, det.InitializeFrame(frame, template, 0))

	// index [1][0][1] -> flattened element 5
	offset := OffsetOfMultiIndex([]int{1, 0, 1}, shape)
	mem.write(uint64(offset), []byte{9, 0, 0, 0})

	require.NoError(t, det.Check(frame, template, 0, 20, 0))
	require.Len(t, sink.events, 1)
	require.Equal(t, []int{1, 0, 1}, sink.events[0].MultiIndex)
	require.Equal(t, "0", sink.events[0].Before)
	require.Equal(t, "9", sink.events[0].After)
}

func TestDetectorLocalArrayFirstWrite(t *testing.T) {
	shape := &ArrayShape{ElementByteSize: 1, Dimensions: []int{10}}
	mem := &fakeMemory{bytes: make([]byte, 64)}
	d := &Descriptor{Name: "a", Scope: ScopeLocal, FrameOffset: 0, ByteSize: 10, Encoding: EncSignedInt, Array: shape}
	template := []*Descriptor{d}

	fs := NewFrameStack(template)
	frame := fs.Enter(0xdead)
	sink := &recordingSink{}
	det := NewDetector(NewReaderFrom(mem), sink)

	// Indeterminate stack garbage at entry, not the zeroed image an
	// uninitialized local array would wrongly diff against without the
	// scratch-image policy.
	mem.write(0, []byte{5, 5, 5, 5, 5, 5, 5, 5, 5, 5})
	require.NoError(t, det.InitializeFrame(frame, template, 0))
	require.NoError(t, det.Check(frame, template, 1, 11, 0))
	require.Empty(t, sink.events, "diffing against the same garbage scratch must not report a change")

	mem.write(3, []byte{9})
	require.NoError(t, det.Check(frame, template, 1, 12, 0))
	require.Len(t, sink.events, 1)
	require.Equal(t, StateInitialized, sink.events[0].State)
	require.Equal(t, []int{3}, sink.events[0].MultiIndex)
	require.Equal(t, "0", sink.events[0].Before)
	require.Equal(t, "9", sink.events[0].After)
}
