package dwarfutil

import (
	"debug/dwarf"
	"fmt"

	"github.com/gopbd/pbd/pkg/proc"
)

// Variables resolves every Descriptor PBD can monitor for fn: its
// file-scope globals plus its own locals and formal parameters
// (including those declared in nested lexical blocks, since C allows
// block-scoped locals anywhere a compound statement opens). Grounded on
// original_source/src/dwarf.c's variable-table construction, which
// walks exactly these two DWARF DIE kinds (DW_TAG_variable,
// DW_TAG_formal_parameter) and reads DW_AT_location the same way.
func (o *Oracle) Variables(fn *FunctionEntry) ([]*proc.Descriptor, error) {
	var out []*proc.Descriptor

	globals, err := o.globalEntries()
	if err != nil {
		return nil, err
	}
	for _, g := range globals {
		d, ok, err := o.descriptorOf(g, proc.ScopeGlobal, 0)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}

	frameBase, err := o.frameBase(fn)
	if err != nil {
		return nil, err
	}

	locals, err := o.localEntries(fn.Entry)
	if err != nil {
		return nil, err
	}
	for _, l := range locals {
		d, ok, err := o.descriptorOf(l, proc.ScopeLocal, frameBase)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}

	return out, nil
}

// frameBase resolves fn's DW_AT_frame_base adjustment (§3's "compiler-
// specific adjustment"), applied to every DW_OP_fbreg offset read for
// fn's locals.
func (o *Oracle) frameBase(fn *FunctionEntry) (int64, error) {
	expr, ok := fn.Entry.Val(dwarf.AttrFrameBase).([]byte)
	if !ok {
		return 0, &proc.DebugInfoError{Function: fn.Name, Err: fmt.Errorf("missing DW_AT_frame_base")}
	}
	base, err := frameBaseOffset(expr)
	if err != nil {
		return 0, &proc.DebugInfoError{Function: fn.Name, Err: err}
	}
	return base, nil
}

// localEntries collects every DW_TAG_variable/DW_TAG_formal_parameter
// under fnEntry, recursing into DW_TAG_lexical_block children but
// never into a nested DW_TAG_subprogram (C has none).
func (o *Oracle) localEntries(fnEntry *dwarf.Entry) ([]*dwarf.Entry, error) {
	kids, err := o.childrenOf(fnEntry)
	if err != nil {
		return nil, err
	}
	var out []*dwarf.Entry
	for _, k := range kids {
		switch k.Tag {
		case dwarf.TagVariable, dwarf.TagFormalParameter:
			out = append(out, k)
		case dwarf.TagLexDwarfBlock:
			nested, err := o.localEntries(k)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		}
	}
	return out, nil
}

// descriptorOf builds a Descriptor from a variable/parameter DIE. ok is
// false for entries this oracle intentionally skips (no location, no
// name, or a type it cannot resolve a size for). frameBase is the
// function's DW_AT_frame_base adjustment (0 for globals, irrelevant to
// their absolute location) folded into a local's FrameOffset.
func (o *Oracle) descriptorOf(entry *dwarf.Entry, scope proc.Scope, frameBase int64) (*proc.Descriptor, bool, error) {
	name, _ := entry.Val(dwarf.AttrName).(string)
	if name == "" {
		return nil, false, nil
	}

	locExpr, ok := entry.Val(dwarf.AttrLocation).([]byte)
	if !ok {
		return nil, false, nil
	}
	loc, err := evalLocation(locExpr)
	if err != nil {
		return nil, false, nil // unsupported location form: skip rather than fail the whole run
	}

	typeOff, ok := entry.Val(dwarf.AttrType).(dwarf.Offset)
	if !ok {
		return nil, false, nil
	}
	dtype, err := o.dwarf.Type(typeOff)
	if err != nil {
		return nil, false, err
	}
	encoding, size, arr, err := o.resolveType(dtype)
	if err != nil {
		return nil, false, err
	}
	if size <= 0 {
		return nil, false, nil
	}

	d := &proc.Descriptor{
		Name:     name,
		Scope:    scope,
		ByteSize: size,
		Encoding: encoding,
		Array:    arr,
	}
	switch loc.kind {
	case locAbsolute:
		d.Address = loc.addr
	case locFrameRelative:
		d.FrameOffset = loc.offset + frameBase
	}
	return d, true, nil
}
