package proc

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"unicode"
)

// FormatValue renders image (raw bytes) as the §6 "Value formatting"
// table prescribes, dispatching on encoding/byteSize the way
// original_source/src/variable.c's var_format_value switches on
// DW_ATE_* and byte_size.
func FormatValue(image []byte, encoding Encoding, byteSize int) string {
	switch encoding {
	case EncSignedInt, EncEnum:
		s := strconv.FormatInt(signedFromBytes(image, byteSize), 10)
		if byteSize == 1 {
			s += printableSuffix(image[0])
		}
		return s
	case EncUnsignedInt:
		s := strconv.FormatUint(unsignedFromBytes(image, byteSize), 10)
		if byteSize == 1 {
			s += printableSuffix(image[0])
		}
		return s
	case EncFloat:
		return formatFloat(image, byteSize)
	case EncPointer:
		return formatPointer(image, byteSize)
	default:
		return fmt.Sprintf("%x", image)
	}
}

// ZeroValue renders the synthesized "before" value used by first-write
// detection (§4.3): 0 for integral/pointer/enum encodings, 0.000000 for
// floats.
func ZeroValue(encoding Encoding, byteSize int) string {
	if encoding == EncFloat {
		return formatFloat(make([]byte, byteSize), byteSize)
	}
	return FormatValue(make([]byte, byteSize), encoding, byteSize)
}

func signedFromBytes(b []byte, size int) int64 {
	u := unsignedFromBytes(b, size)
	switch size {
	case 1:
		return int64(int8(u))
	case 2:
		return int64(int16(u))
	case 4:
		return int64(int32(u))
	default:
		return int64(u)
	}
}

func unsignedFromBytes(b []byte, size int) uint64 {
	var u uint64
	for i := 0; i < size && i < len(b); i++ {
		u |= uint64(b[i]) << (8 * uint(i))
	}
	return u
}

func formatFloat(b []byte, size int) string {
	switch size {
	case 4:
		bits := binary.LittleEndian.Uint32(b)
		return fmt.Sprintf("%f", math.Float32frombits(bits))
	case 8:
		bits := binary.LittleEndian.Uint64(b)
		return fmt.Sprintf("%f", math.Float64frombits(bits))
	default:
		// Extended/long double (x87 80-bit layout, commonly stored in a
		// 16-byte slot): a 64-bit mantissa with an explicit integer bit,
		// then a 15-bit biased exponent and the sign. The value is
		// converted to a double before formatting, so precision beyond
		// a double's is dropped.
		if len(b) >= 10 {
			mant := binary.LittleEndian.Uint64(b[:8])
			se := binary.LittleEndian.Uint16(b[8:10])
			f := math.Ldexp(float64(mant), int(se&0x7fff)-16383-63)
			if se&0x8000 != 0 {
				f = -f
			}
			return fmt.Sprintf("%f", f)
		}
		return "0.000000"
	}
}

func formatPointer(b []byte, size int) string {
	u := unsignedFromBytes(b, size)
	width := size * 2
	return fmt.Sprintf("0x%0*X", width, u)
}

func printableSuffix(b byte) string {
	if unicode.IsPrint(rune(b)) && b < 0x80 {
		return " (CH)"
	}
	return ""
}

// MultiIndexOf converts a byte offset into an array's flattened image
// into a multi-dimensional index, outermost dimension first (§4.5).
func MultiIndexOf(offset int, shape *ArrayShape) []int {
	elem := offset / shape.ElementByteSize
	idx := make([]int, len(shape.Dimensions))
	for d := len(shape.Dimensions) - 1; d >= 0; d-- {
		idx[d] = elem % shape.Dimensions[d]
		elem /= shape.Dimensions[d]
	}
	return idx
}

// OffsetOfMultiIndex is the inverse of MultiIndexOf, used by tests to
// assert the round-trip property P5 describes.
func OffsetOfMultiIndex(idx []int, shape *ArrayShape) int {
	offset := 0
	stride := 1
	for d := len(shape.Dimensions) - 1; d >= 0; d-- {
		offset += idx[d] * stride
		stride *= shape.Dimensions[d]
	}
	return offset * shape.ElementByteSize
}
