package wasm

// Builder assembles a Module. Imports must all be declared before the first
// Func so that function indices stay stable.
type Builder struct {
	m       Module
	imports uint32
	defined bool
}

func NewBuilder() *Builder { return &Builder{} }

// I32s returns n i32 value types.
func I32s(n int) []ValType {
	out := make([]ValType, n)
	for i := range out {
		out[i] = ValI32
	}
	return out
}

// Type returns the index of ft, adding it if not present.
func (b *Builder) Type(ft FuncType) uint32 {
	for i, t := range b.m.Types {
		if t.equal(ft) {
			return uint32(i)
		}
	}
	b.m.Types = append(b.m.Types, ft)
	return uint32(len(b.m.Types) - 1)
}

// Import declares an imported function and returns its function index.
func (b *Builder) Import(module, name string, params, results []ValType) uint32 {
	if b.defined {
		panic("wasm: Import after Func")
	}
	idx := b.Type(FuncType{Params: params, Results: results})
	b.m.Imports = append(b.m.Imports, Import{Module: module, Name: name, TypeIdx: idx})
	b.imports++
	return b.imports - 1
}

// Func defines a function and returns its function index. Locals beyond the
// parameters are declared as extra i32s.
func (b *Builder) Func(params, results []ValType, extraLocals uint32, body *Code) uint32 {
	b.defined = true
	idx := b.Type(FuncType{Params: params, Results: results})
	b.m.Funcs = append(b.m.Funcs, idx)
	var locals []LocalEntry
	if extraLocals > 0 {
		locals = []LocalEntry{{Count: extraLocals, ValType: ValI32}}
	}
	b.m.Code = append(b.m.Code, FuncBody{Locals: locals, Body: body.Bytes()})
	return b.imports + uint32(len(b.m.Funcs)) - 1
}

// Export exports function fn under name.
func (b *Builder) Export(name string, fn uint32) {
	b.m.Exports = append(b.m.Exports, Export{Name: name, Kind: KindFunc, Idx: fn})
}

// Memory adds memory 0 with the given number of pages, exported as "memory".
func (b *Builder) Memory(pages uint32) {
	b.m.Memories = append(b.m.Memories, Limits{Min: pages})
	b.m.Exports = append(b.m.Exports, Export{Name: "memory", Kind: KindMemory, Idx: 0})
}

// Table adds table 0 holding funcs at indices 0..len(funcs)-1.
func (b *Builder) Table(funcs ...uint32) {
	n := uint32(len(funcs))
	b.m.Tables = append(b.m.Tables, Limits{Min: n, Max: &n})
	b.m.Elements = append(b.m.Elements, Element{Offset: 0, Funcs: funcs})
}

// Data places init in memory 0 at offset.
func (b *Builder) Data(offset uint32, init []byte) {
	b.m.Data = append(b.m.Data, DataSegment{Offset: offset, Init: init})
}

func (b *Builder) Module() *Module { return &b.m }

func (b *Builder) Encode() []byte { return b.m.Encode() }
