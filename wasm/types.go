package wasm

// Module is the subset of a WebAssembly module an applet needs: imported host
// functions, its own functions, one memory, one function table and exports.
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32 // type index of each defined function
	Tables   []Limits // funcref tables
	Memories []Limits
	Exports  []Export
	Elements []Element
	Code     []FuncBody
	Data     []DataSegment
}

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (f FuncType) equal(o FuncType) bool {
	if len(f.Params) != len(o.Params) || len(f.Results) != len(o.Results) {
		return false
	}
	for i := range f.Params {
		if f.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range f.Results {
		if f.Results[i] != o.Results[i] {
			return false
		}
	}
	return true
}

// ValType is a value type. See constants.go for ValI32 and friends.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValFuncRef:
		return "funcref"
	default:
		return "unknown"
	}
}

// Import is an imported function.
type Import struct {
	Module  string
	Name    string
	TypeIdx uint32
}

// Export names a function or memory.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// Limits bounds a memory (in pages) or a table (in entries).
type Limits struct {
	Max *uint32
	Min uint32
}

// Element fills table 0 starting at Offset with function indices.
type Element struct {
	Offset uint32
	Funcs  []uint32
}

// LocalEntry declares Count locals of one type.
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

// FuncBody is the code of a defined function. Body excludes the final end.
type FuncBody struct {
	Locals []LocalEntry
	Body   []byte
}

// DataSegment initializes memory 0 at Offset.
type DataSegment struct {
	Offset uint32
	Init   []byte
}
