package wasm

import (
	"bytes"
	"encoding/binary"
)

// Encode encodes the module to WebAssembly binary format
func (m *Module) Encode() []byte {
	var w bytes.Buffer
	_ = binary.Write(&w, binary.LittleEndian, Magic)
	_ = binary.Write(&w, binary.LittleEndian, Version)

	if len(m.Types) > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, uint32(len(m.Types)))
		for _, ft := range m.Types {
			sec.WriteByte(FuncTypeByte)
			writeValTypes(&sec, ft.Params)
			writeValTypes(&sec, ft.Results)
		}
		writeSection(&w, SectionType, sec.Bytes())
	}

	if len(m.Imports) > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			writeName(&sec, imp.Module)
			writeName(&sec, imp.Name)
			sec.WriteByte(KindFunc)
			WriteLEB128u(&sec, imp.TypeIdx)
		}
		writeSection(&w, SectionImport, sec.Bytes())
	}

	if len(m.Funcs) > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, uint32(len(m.Funcs)))
		for _, typeIdx := range m.Funcs {
			WriteLEB128u(&sec, typeIdx)
		}
		writeSection(&w, SectionFunction, sec.Bytes())
	}

	if len(m.Tables) > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, uint32(len(m.Tables)))
		for _, t := range m.Tables {
			sec.WriteByte(byte(ValFuncRef))
			writeLimits(&sec, t)
		}
		writeSection(&w, SectionTable, sec.Bytes())
	}

	if len(m.Memories) > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, uint32(len(m.Memories)))
		for _, mem := range m.Memories {
			writeLimits(&sec, mem)
		}
		writeSection(&w, SectionMemory, sec.Bytes())
	}

	if len(m.Exports) > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, uint32(len(m.Exports)))
		for _, exp := range m.Exports {
			writeName(&sec, exp.Name)
			sec.WriteByte(exp.Kind)
			WriteLEB128u(&sec, exp.Idx)
		}
		writeSection(&w, SectionExport, sec.Bytes())
	}

	if len(m.Elements) > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, uint32(len(m.Elements)))
		for _, elem := range m.Elements {
			// flags 0: active, table 0, funcref vector
			WriteLEB128u(&sec, 0)
			writeConstOffset(&sec, elem.Offset)
			WriteLEB128u(&sec, uint32(len(elem.Funcs)))
			for _, f := range elem.Funcs {
				WriteLEB128u(&sec, f)
			}
		}
		writeSection(&w, SectionElement, sec.Bytes())
	}

	if len(m.Code) > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, uint32(len(m.Code)))
		for _, body := range m.Code {
			var fn bytes.Buffer
			WriteLEB128u(&fn, uint32(len(body.Locals)))
			for _, l := range body.Locals {
				WriteLEB128u(&fn, l.Count)
				fn.WriteByte(byte(l.ValType))
			}
			fn.Write(body.Body)
			fn.WriteByte(OpEnd)
			WriteLEB128u(&sec, uint32(fn.Len()))
			sec.Write(fn.Bytes())
		}
		writeSection(&w, SectionCode, sec.Bytes())
	}

	if len(m.Data) > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, uint32(len(m.Data)))
		for _, d := range m.Data {
			// flags 0: active, memory 0
			WriteLEB128u(&sec, 0)
			writeConstOffset(&sec, d.Offset)
			WriteLEB128u(&sec, uint32(len(d.Init)))
			sec.Write(d.Init)
		}
		writeSection(&w, SectionData, sec.Bytes())
	}

	return w.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, data []byte) {
	w.WriteByte(id)
	WriteLEB128u(w, uint32(len(data)))
	w.Write(data)
}

func writeName(w *bytes.Buffer, s string) {
	WriteLEB128u(w, uint32(len(s)))
	w.WriteString(s)
}

func writeValTypes(w *bytes.Buffer, types []ValType) {
	WriteLEB128u(w, uint32(len(types)))
	for _, t := range types {
		w.WriteByte(byte(t))
	}
}

func writeLimits(w *bytes.Buffer, l Limits) {
	if l.Max != nil {
		w.WriteByte(0x01)
		WriteLEB128u(w, l.Min)
		WriteLEB128u(w, *l.Max)
		return
	}
	w.WriteByte(0x00)
	WriteLEB128u(w, l.Min)
}

func writeConstOffset(w *bytes.Buffer, offset uint32) {
	w.WriteByte(OpI32Const)
	WriteLEB128s(w, int32(offset))
	w.WriteByte(OpEnd)
}
