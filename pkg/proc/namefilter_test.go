package proc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNameFilterIgnore(t *testing.T) {
	f := NewNameFilter(FilterIgnore, []string{"secret", "scratch"})
	require.False(t, f.Allows("secret"))
	require.True(t, f.Allows("counter"))
}

func TestNameFilterWatch(t *testing.T) {
	f := NewNameFilter(FilterWatch, []string{"counter"})
	require.True(t, f.Allows("counter"))
	require.False(t, f.Allows("secret"))
}

func TestNameFilterNone(t *testing.T) {
	f := NewNameFilter(FilterNone, nil)
	require.True(t, f.Allows("anything"))
}
