package engine

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/firmlet/errors"
)

// flatTypes lowers a WIT type to core value types. Host functions only take
// scalars, so aggregates are rejected.
func flatTypes(witType wit.Type) ([]api.ValueType, error) {
	switch witType.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return []api.ValueType{api.ValueTypeI32}, nil
	case wit.U64, wit.S64:
		return []api.ValueType{api.ValueTypeI64}, nil
	case wit.F32:
		return []api.ValueType{api.ValueTypeF32}, nil
	case wit.F64:
		return []api.ValueType{api.ValueTypeF64}, nil
	}
	return nil, errors.InvalidInput(errors.PhaseExecute, fmt.Sprintf("type %T is not a host scalar", witType))
}

// lowerI32 lowers a signature that must be i32 only, matching applet.Call.
func lowerI32(types []wit.Type) ([]api.ValueType, error) {
	out := make([]api.ValueType, 0, len(types))
	for _, t := range types {
		flat, err := flatTypes(t)
		if err != nil {
			return nil, err
		}
		for _, vt := range flat {
			if vt != api.ValueTypeI32 {
				return nil, errors.InvalidInput(errors.PhaseExecute,
					fmt.Sprintf("host functions take i32 only, got %s", api.ValueTypeName(vt)))
			}
		}
		out = append(out, flat...)
	}
	return out, nil
}
