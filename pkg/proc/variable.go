package proc

// Scope distinguishes where a variable lives (§3 Variable Descriptor).
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeLocal
)

func (s Scope) String() string {
	if s == ScopeGlobal {
		return "global"
	}
	return "local"
}

// Encoding is the closed tag set §9 "Polymorphism" calls for: value
// formatting and read-size logic dispatch on this, never on open
// subtyping.
type Encoding int

const (
	EncSignedInt Encoding = iota
	EncUnsignedInt
	EncFloat
	EncPointer
	EncEnum
)

// ArrayShape describes an array variable's dimensions, outermost first.
// The number of dimensions is not checked against any limit.
type ArrayShape struct {
	ElementByteSize int
	Dimensions      []int
}

// ElementCount returns the total number of scalar elements across every
// dimension.
func (a *ArrayShape) ElementCount() int {
	n := 1
	for _, d := range a.Dimensions {
		n *= d
	}
	return n
}

// Descriptor is the Variable Descriptor of §3: created once per
// function from the debug-info oracle, then cloned by shape into every
// live Frame. Location is either an absolute address (Scope==Global) or
// a frame-pointer-relative offset (Scope==Local); exactly one of
// Address/FrameOffset is meaningful, selected by Scope.
type Descriptor struct {
	Name        string
	Scope       Scope
	Address     uint64 // meaningful iff Scope == ScopeGlobal
	FrameOffset int64  // meaningful iff Scope == ScopeLocal
	ByteSize    int
	Encoding    Encoding
	Array       *ArrayShape // nil for scalars, pointers and enums
}

// IsArray reports whether d describes an array-of-scalars.
func (d *Descriptor) IsArray() bool { return d.Array != nil }

// EffectiveAddress computes the address §4.3 step 1 describes: absolute
// for globals, bp-relative for locals.
func (d *Descriptor) EffectiveAddress(bp uint64) uint64 {
	if d.Scope == ScopeGlobal {
		return d.Address
	}
	return uint64(int64(bp) + d.FrameOffset)
}

// Snapshot is the Variable Snapshot of §3: the last-known byte image of
// one Descriptor within one Frame, plus the scratch image and
// initialized flag used for first-write detection (§4.3).
type Snapshot struct {
	Image       []byte
	Scratch     []byte
	Initialized bool
}

// newSnapshot allocates a Snapshot for d. Globals start initialized
// (their lifetime predates entry); locals start uninitialized so the
// first real write synthesizes a zero "before" value.
func newSnapshot(d *Descriptor) *Snapshot {
	return &Snapshot{
		Image:       make([]byte, d.ByteSize),
		Scratch:     make([]byte, d.ByteSize),
		Initialized: d.Scope == ScopeGlobal,
	}
}

// memReader is the subset of Target's interface the Variable Reader
// needs, narrowed so the Reader (and everything built on it — the
// Change Detector, its tests) can be exercised against a fake child
// without a real ptrace session.
type memReader interface {
	ReadMem(addr uint64, n int) ([]byte, error)
}

// Reader produces typed snapshots of variables by reading the stopped
// child (§4.3 Variable Reader). It does not interpret bytes; that
// happens only at report time (format.go).
type Reader struct {
	target memReader
}

// NewReader wraps t for variable reads.
func NewReader(t *Target) *Reader { return &Reader{target: t} }

// NewReaderFrom wraps any memReader, used by tests to substitute a fake
// child process for *Target.
func NewReaderFrom(m memReader) *Reader { return &Reader{target: m} }

// Read fetches d's current raw byte image at the given frame base
// pointer bp (ignored for globals).
func (r *Reader) Read(d *Descriptor, bp uint64) ([]byte, error) {
	return r.target.ReadMem(d.EffectiveAddress(bp), d.ByteSize)
}
