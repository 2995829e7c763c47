package highlight

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gopbd/pbd/pkg/proc"
)

func TestCompactSinkScalarFormat(t *testing.T) {
	var buf bytes.Buffer
	sink := NewCompactSink(&buf, nil)
	sink.Report(proc.ChangeEvent{
		Line:       37,
		Descriptor: &proc.Descriptor{Name: "x", Scope: proc.ScopeLocal},
		State:      proc.StateChanged,
		Before:     "3",
		After:      "4",
	})
	require.Equal(t, "[Line: 37] [local] (x) has changed!, before: 3, after: 4\n", buf.String())
}

func TestCompactSinkArrayMultiIndex(t *testing.T) {
	var buf bytes.Buffer
	sink := NewCompactSink(&buf, nil)
	sink.Report(proc.ChangeEvent{
		Line:       12,
		Descriptor: &proc.Descriptor{Name: "a", Scope: proc.ScopeGlobal},
		MultiIndex: []int{3},
		State:      proc.StateChanged,
		Before:     "0",
		After:      "5",
	})
	require.Equal(t, "[Line: 12] [global] (a[3]) has changed!, before: 0, after: 5\n", buf.String())
}

func TestCompactSinkInitializedVerb(t *testing.T) {
	var buf bytes.Buffer
	sink := NewCompactSink(&buf, nil)
	sink.Report(proc.ChangeEvent{
		Line:       5,
		Descriptor: &proc.Descriptor{Name: "d", Scope: proc.ScopeLocal},
		State:      proc.StateInitialized,
		Before:     "0.000000",
		After:      "2.030000",
	})
	require.Equal(t, "[Line: 5] [local] (d) initialized!, before: 0.000000, after: 2.030000\n", buf.String())
}
