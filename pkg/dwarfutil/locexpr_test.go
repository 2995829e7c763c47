package dwarfutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvalLocationAddr(t *testing.T) {
	expr := []byte{opAddr, 0x00, 0x10, 0, 0, 0, 0, 0, 0}
	loc, err := evalLocation(expr)
	require.NoError(t, err)
	require.Equal(t, locAbsolute, loc.kind)
	require.Equal(t, uint64(0x1000), loc.addr)
}

func TestEvalLocationFbregPositive(t *testing.T) {
	expr := []byte{opFbreg, 0x10} // sleb128(0x10) = 16
	loc, err := evalLocation(expr)
	require.NoError(t, err)
	require.Equal(t, locFrameRelative, loc.kind)
	require.Equal(t, int64(16), loc.offset)
}

func TestEvalLocationFbregNegative(t *testing.T) {
	expr := []byte{opFbreg, 0x70} // sleb128(0x70) = -16
	loc, err := evalLocation(expr)
	require.NoError(t, err)
	require.Equal(t, int64(-16), loc.offset)
}

func TestEvalLocationUnsupported(t *testing.T) {
	_, err := evalLocation([]byte{0xff})
	require.Error(t, err)
}

func TestFrameBaseOffsetClang(t *testing.T) {
	off, err := frameBaseOffset([]byte{opReg6})
	require.NoError(t, err)
	require.Equal(t, int64(0), off)
}

func TestFrameBaseOffsetGCC(t *testing.T) {
	off, err := frameBaseOffset([]byte{opBreg6, 0x10}) // sleb128(0x10) = 16
	require.NoError(t, err)
	require.Equal(t, int64(16), off)
}

func TestFrameBaseOffsetUnsupported(t *testing.T) {
	_, err := frameBaseOffset([]byte{0xff})
	require.Error(t, err)
}
