package proc

import (
	"bytes"
	"math/bits"
)

// ChangeState distinguishes a variable's very first observed write from
// a later one (§4.3, §6 "Event record schema").
type ChangeState int

const (
	StateInitialized ChangeState = iota
	StateChanged
)

func (s ChangeState) String() string {
	if s == StateInitialized {
		return "initialized"
	}
	return "changed"
}

// ChangeEvent is the Event record schema of §6: everything a Sink needs
// to render one change, with Before/After already formatted per
// descriptor.Encoding (§4.5: "The core itself does not format; it only
// guarantees the sink is called exactly once per discovered change").
type ChangeEvent struct {
	Depth      int
	Line       int
	Descriptor *Descriptor
	MultiIndex []int // nil for scalars
	State      ChangeState
	Before     string
	After      string
}

// Sink is the injected reporter strategy of §4.5/§9 ("the reporter is
// an injected strategy object", replacing the original's global
// line_output function pointer). At least a compact and a
// source-context sink must exist per §4.5; both live in pkg/highlight.
type Sink interface {
	Report(ev ChangeEvent)
	EnteringDepth(depth int)
	ReturningToDepth(depth int)
}

// Detector is the Change Detector of §4.5: for each statement stop, it
// diffs every variable in the current frame against its snapshot and
// calls the sink for each discovered change. Adapted from
// original_source/src/variable.c's var_check_changes, generalized to
// cover arrays (the original only ever compared TBASE_TYPE) and to
// apply the scratch-image first-write policy §4.3/§13 makes
// authoritative.
type Detector struct {
	reader *Reader
	sink   Sink
}

// NewDetector builds a Detector reading through r and reporting to sink.
func NewDetector(r *Reader, sink Sink) *Detector {
	return &Detector{reader: r, sink: sink}
}

// InitializeFrame performs the "time to finally initialize the vars
// right after the prologue" step of §4.7 state STEPPING/init_pending:
// it reads every variable once, populating scratch for locals (so the
// very next diff can detect the first real write) and the live image
// for globals (which are already considered initialized).
func (det *Detector) InitializeFrame(f *Frame, template []*Descriptor, bp uint64) error {
	for i, snap := range f.Snapshots {
		d := template[i]
		img, err := det.reader.Read(d, bp)
		if err != nil {
			return err
		}
		if d.Scope == ScopeGlobal {
			copy(snap.Image, img)
		} else {
			copy(snap.Scratch, img)
		}
	}
	return nil
}

// Check diffs every variable in f against its snapshot and reports
// changes at the given depth/line. template must be the same slice f's
// snapshots were built from.
func (det *Detector) Check(f *Frame, template []*Descriptor, depth, line int, bp uint64) error {
	for i, snap := range f.Snapshots {
		d := template[i]
		img, err := det.reader.Read(d, bp)
		if err != nil {
			return err
		}
		if d.IsArray() {
			if err := det.checkArray(d, snap, img, depth, line); err != nil {
				return err
			}
			continue
		}
		if err := det.checkScalar(d, snap, img, depth, line); err != nil {
			return err
		}
	}
	return nil
}

func (det *Detector) checkScalar(d *Descriptor, snap *Snapshot, img []byte, depth, line int) error {
	if !snap.Initialized {
		if bytes.Equal(img, snap.Scratch) {
			return nil
		}
		det.sink.Report(ChangeEvent{
			Depth:      depth,
			Line:       line,
			Descriptor: d,
			State:      StateInitialized,
			Before:     ZeroValue(d.Encoding, d.ByteSize),
			After:      FormatValue(img, d.Encoding, d.ByteSize),
		})
		snap.Initialized = true
		copy(snap.Image, img)
		return nil
	}

	if bytes.Equal(img, snap.Image) {
		return nil
	}
	det.sink.Report(ChangeEvent{
		Depth:      depth,
		Line:       line,
		Descriptor: d,
		State:      StateChanged,
		Before:     FormatValue(snap.Image, d.Encoding, d.ByteSize),
		After:      FormatValue(img, d.Encoding, d.ByteSize),
	})
	copy(snap.Image, img)
	return nil
}

// checkArray implements §4.5's element-wise array diff: scan in
// word-sized strides, use the lowest-set-bit of the XOR to jump
// straight to the first differing byte within a differing word, emit
// one event per changed element in ascending offset order, then replace
// the whole snapshot image.
func (det *Detector) checkArray(d *Descriptor, snap *Snapshot, img []byte, depth, line int) error {
	elemSize := d.Array.ElementByteSize
	old := snap.Image
	if !snap.Initialized {
		old = snap.Scratch
	}
	if len(old) == 0 {
		old = make([]byte, len(img))
	}

	anyChange := false
	offset := 0
	for offset < len(img) {
		wordLen := 8
		if offset+wordLen > len(img) {
			wordLen = len(img) - offset
		}
		var xor uint64
		for i := 0; i < wordLen; i++ {
			xor |= uint64(old[offset+i]^img[offset+i]) << (8 * uint(i))
		}
		if xor == 0 {
			offset += wordLen
			continue
		}

		firstDiffByte := offset + bits.TrailingZeros64(xor)/8
		elemOffset := (firstDiffByte / elemSize) * elemSize
		if elemOffset+elemSize > len(img) {
			elemOffset = len(img) - elemSize
		}

		var before string
		state := StateChanged
		if snap.Initialized {
			before = FormatValue(old[elemOffset:elemOffset+elemSize], d.Encoding, elemSize)
		} else {
			before = ZeroValue(d.Encoding, elemSize)
			state = StateInitialized
		}
		after := FormatValue(img[elemOffset:elemOffset+elemSize], d.Encoding, elemSize)
		if before != after {
			det.sink.Report(ChangeEvent{
				Depth:      depth,
				Line:       line,
				Descriptor: d,
				MultiIndex: MultiIndexOf(elemOffset, d.Array),
				State:      state,
				Before:     before,
				After:      after,
			})
			anyChange = true
		}
		offset = elemOffset + elemSize
	}

	if anyChange {
		snap.Initialized = true
	}
	snap.Image = append([]byte(nil), img...)
	return nil
}
