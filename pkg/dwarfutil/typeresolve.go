package dwarfutil

import (
	"debug/dwarf"
	"fmt"

	"github.com/gopbd/pbd/pkg/proc"
)

// resolveType follows typedef/const/volatile chains to the underlying
// base/pointer/array/enum type and reports the proc.Encoding and byte
// size PBD's value formatter needs. Results are memoized in
// Oracle.typeCache by dwarf.Offset since the same struct/array/typedef
// is revisited across many variables in one compile unit (§11 domain
// stack entry for hashicorp/golang-lru).
func (o *Oracle) resolveType(t dwarf.Type) (proc.Encoding, int, *proc.ArrayShape, error) {
	off := t.Common().Offset
	if off != 0 {
		if v, ok := o.typeCache.Get(off); ok {
			r := v.(resolvedType)
			return r.encoding, r.byteSize, r.array, nil
		}
	}

	enc, size, arr, err := o.resolveTypeUncached(t)
	if err != nil {
		return 0, 0, nil, err
	}
	if off != 0 {
		o.typeCache.Add(off, resolvedType{encoding: enc, byteSize: size, array: arr})
	}
	return enc, size, arr, nil
}

type resolvedType struct {
	encoding proc.Encoding
	byteSize int
	array    *proc.ArrayShape
}

func (o *Oracle) resolveTypeUncached(t dwarf.Type) (proc.Encoding, int, *proc.ArrayShape, error) {
	switch typ := t.(type) {
	case *dwarf.TypedefType:
		return o.resolveType(typ.Type)
	case *dwarf.QualType:
		return o.resolveType(typ.Type)
	case *dwarf.PtrType:
		return proc.EncPointer, int(typ.Size()), nil, nil
	case *dwarf.EnumType:
		size := typ.ByteSize
		if size <= 0 {
			size = 4
		}
		return proc.EncEnum, int(size), nil, nil
	case *dwarf.BoolType:
		return proc.EncUnsignedInt, int(typ.Size()), nil, nil
	case *dwarf.CharType:
		return proc.EncSignedInt, int(typ.Size()), nil, nil
	case *dwarf.UcharType:
		return proc.EncUnsignedInt, int(typ.Size()), nil, nil
	case *dwarf.FloatType:
		return proc.EncFloat, int(typ.Size()), nil, nil
	case *dwarf.IntType:
		return proc.EncSignedInt, int(typ.Size()), nil, nil
	case *dwarf.UintType:
		return proc.EncUnsignedInt, int(typ.Size()), nil, nil
	case *dwarf.ArrayType:
		// debug/dwarf represents a DWARF array_type's multiple
		// subrange children (C's m[10][10][10]) as nested ArrayType
		// values, outermost first; unwrap until the element type
		// itself stops being an array.
		var dims []int
		cur := typ
		for {
			if cur.Count < 0 {
				return 0, 0, nil, fmt.Errorf("array type %s has unknown bound", cur.String())
			}
			dims = append(dims, int(cur.Count))
			inner, ok := cur.Type.(*dwarf.ArrayType)
			if !ok {
				break
			}
			cur = inner
		}
		elemEnc, elemSize, _, err := o.resolveType(cur.Type)
		if err != nil {
			return 0, 0, nil, err
		}
		shape := &proc.ArrayShape{ElementByteSize: elemSize, Dimensions: dims}
		return elemEnc, elemSize * shape.ElementCount(), shape, nil
	default:
		// Structs, unions, functions, and other aggregate types fall
		// outside the closed Encoding set (§9 "Polymorphism") and
		// outside scope per spec.md's Non-goals (no aggregate
		// decoding); treat them as an opaque byte blob so the core can
		// still detect *that* they changed even though it can't format
		// individual fields.
		return proc.EncUnsignedInt, int(t.Common().ByteSize), nil, nil
	}
}
