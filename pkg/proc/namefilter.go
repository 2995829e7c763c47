package proc

import "github.com/derekparker/trie"

// FilterMode distinguishes the two mutually exclusive name_filter forms
// of §3 (ignore-list vs watch-list); FilterNone monitors everything.
type FilterMode int

const (
	FilterNone FilterMode = iota
	FilterIgnore
	FilterWatch
)

// NameFilter is the name_filter of §3, backed by a trie so large
// watch/ignore lists (hundreds of globals in a big translation unit)
// stay O(len(name)) per lookup instead of O(n) list scans.
type NameFilter struct {
	mode  FilterMode
	names *trie.Trie
}

// NewNameFilter builds a filter in the given mode over names. An empty
// names list with mode FilterNone disables filtering entirely.
func NewNameFilter(mode FilterMode, names []string) *NameFilter {
	t := trie.New()
	for _, n := range names {
		t.Add(n, struct{}{})
	}
	return &NameFilter{mode: mode, names: t}
}

// Allows reports whether a variable named name should be monitored.
func (f *NameFilter) Allows(name string) bool {
	switch f.mode {
	case FilterIgnore:
		_, ok := f.names.Find(name)
		return !ok
	case FilterWatch:
		_, ok := f.names.Find(name)
		return ok
	default:
		return true
	}
}
