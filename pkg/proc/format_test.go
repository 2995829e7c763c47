package proc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatValueSignedInt(t *testing.T) {
	require.Equal(t, "7", FormatValue([]byte{7, 0, 0, 0}, EncSignedInt, 4))
	require.Equal(t, "-1", FormatValue([]byte{0xff}, EncSignedInt, 1))
}

func TestFormatValuePrintableByte(t *testing.T) {
	require.Equal(t, "65 (CH)", FormatValue([]byte{'A'}, EncSignedInt, 1))
	require.Equal(t, "0", FormatValue([]byte{0}, EncSignedInt, 1))
}

func TestFormatValuePointer(t *testing.T) {
	require.Equal(t, "0x0000000000001000", FormatValue([]byte{0x00, 0x10, 0, 0, 0, 0, 0, 0}, EncPointer, 8))
}

func TestFormatValueFloat(t *testing.T) {
	require.Equal(t, "2.140000", FormatValue(encodeFloat64(2.14), EncFloat, 8))
}

func TestZeroValue(t *testing.T) {
	require.Equal(t, "0", ZeroValue(EncSignedInt, 4))
	require.Equal(t, "0.000000", ZeroValue(EncFloat, 8))
}

func TestMultiIndexRoundTrip(t *testing.T) {
	shape := &ArrayShape{ElementByteSize: 4, Dimensions: []int{10, 10, 10}}
	offset := OffsetOfMultiIndex([]int{5, 7, 6}, shape)
	require.Equal(t, []int{5, 7, 6}, MultiIndexOf(offset, shape))
}

func encodeFloat64(f float64) []byte {
	b := make([]byte, 8)
	u := math.Float64bits(f)
	for i := 0; i < 8; i++ {
		b[i] = byte(u)
		u >>= 8
	}
	return b
}
