package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func tracked(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(n string) bool { return set[n] }
}

func TestKeepRetainsAssignmentToTrackedVariable(t *testing.T) {
	stmts := []Statement{
		{Addr: 1, Line: 10, Text: "g = 7;"},
		{Addr: 2, Line: 11, Text: "unrelated = 1;"},
	}
	kept := Keep(stmts, tracked("g"))
	require.True(t, kept[1])
	require.False(t, kept[2])
}

func TestKeepIgnoresComparison(t *testing.T) {
	stmts := []Statement{{Addr: 1, Line: 10, Text: "if (g == 7) {"}}
	kept := Keep(stmts, tracked("g"))
	require.False(t, kept[1])
}

func TestKeepRetainsIncrementDecrement(t *testing.T) {
	stmts := []Statement{
		{Addr: 1, Line: 10, Text: "counter++;"},
		{Addr: 2, Line: 11, Text: "--counter;"},
	}
	kept := Keep(stmts, tracked("counter"))
	require.True(t, kept[1])
	require.True(t, kept[2])
}

func TestKeepRetainsDeclarationWithInitializer(t *testing.T) {
	stmts := []Statement{{Addr: 1, Line: 5, Text: "int result = 0;"}}
	kept := Keep(stmts, tracked("result"))
	require.True(t, kept[1])
}

func TestKeepRetainsFunctionCallUnconditionally(t *testing.T) {
	stmts := []Statement{{Addr: 1, Line: 8, Text: "do_work(&g);"}}
	kept := Keep(stmts, tracked("g"))
	require.True(t, kept[1])
}

func TestKeepDropsConditionWithoutSideEffect(t *testing.T) {
	stmts := []Statement{{Addr: 1, Line: 9, Text: "if (x > 0) {"}}
	kept := Keep(stmts, tracked("x"))
	require.False(t, kept[1])
}
