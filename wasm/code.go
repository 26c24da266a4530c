package wasm

import "bytes"

// Code assembles a function body one instruction at a time. Methods return
// the receiver so bodies read top to bottom.
type Code struct {
	buf bytes.Buffer
}

func NewCode() *Code { return &Code{} }

// Bytes returns the body without the trailing end, as FuncBody expects.
func (c *Code) Bytes() []byte { return c.buf.Bytes() }

func (c *Code) op(b byte) *Code {
	c.buf.WriteByte(b)
	return c
}

func (c *Code) u32(op byte, v uint32) *Code {
	c.buf.WriteByte(op)
	WriteLEB128u(&c.buf, v)
	return c
}

func (c *Code) mem(op byte, align, offset uint32) *Code {
	c.buf.WriteByte(op)
	WriteLEB128u(&c.buf, align)
	WriteLEB128u(&c.buf, offset)
	return c
}

func (c *Code) Unreachable() *Code { return c.op(OpUnreachable) }
func (c *Code) Nop() *Code         { return c.op(OpNop) }
func (c *Code) Drop() *Code        { return c.op(OpDrop) }
func (c *Code) Return() *Code      { return c.op(OpReturn) }
func (c *Code) Else() *Code        { return c.op(OpElse) }
func (c *Code) End() *Code         { return c.op(OpEnd) }

// Block, Loop and If open a structured block with no result.
func (c *Code) Block() *Code { return c.op(OpBlock).op(BlockVoid) }
func (c *Code) Loop() *Code  { return c.op(OpLoop).op(BlockVoid) }
func (c *Code) If() *Code    { return c.op(OpIf).op(BlockVoid) }

func (c *Code) Br(depth uint32) *Code   { return c.u32(OpBr, depth) }
func (c *Code) BrIf(depth uint32) *Code { return c.u32(OpBrIf, depth) }
func (c *Code) Call(fn uint32) *Code    { return c.u32(OpCall, fn) }

// CallIndirect calls through table 0 with the given signature.
func (c *Code) CallIndirect(typeIdx uint32) *Code {
	c.u32(OpCallIndirect, typeIdx)
	c.buf.WriteByte(0x00)
	return c
}

func (c *Code) LocalGet(i uint32) *Code  { return c.u32(OpLocalGet, i) }
func (c *Code) LocalSet(i uint32) *Code  { return c.u32(OpLocalSet, i) }
func (c *Code) LocalTee(i uint32) *Code  { return c.u32(OpLocalTee, i) }
func (c *Code) GlobalGet(i uint32) *Code { return c.u32(OpGlobalGet, i) }
func (c *Code) GlobalSet(i uint32) *Code { return c.u32(OpGlobalSet, i) }

func (c *Code) I32Load(offset uint32) *Code   { return c.mem(OpI32Load, 2, offset) }
func (c *Code) I32Load8U(offset uint32) *Code { return c.mem(OpI32Load8U, 0, offset) }
func (c *Code) I32Store(offset uint32) *Code  { return c.mem(OpI32Store, 2, offset) }
func (c *Code) I32Store8(offset uint32) *Code { return c.mem(OpI32Store8, 0, offset) }

func (c *Code) I32Const(v int32) *Code {
	c.buf.WriteByte(OpI32Const)
	WriteLEB128s(&c.buf, v)
	return c
}

func (c *Code) I32Eqz() *Code { return c.op(OpI32Eqz) }
func (c *Code) I32Eq() *Code  { return c.op(OpI32Eq) }
func (c *Code) I32Ne() *Code  { return c.op(OpI32Ne) }
func (c *Code) I32LtS() *Code { return c.op(OpI32LtS) }
func (c *Code) I32Add() *Code { return c.op(OpI32Add) }
func (c *Code) I32Sub() *Code { return c.op(OpI32Sub) }
func (c *Code) I32And() *Code { return c.op(OpI32And) }
func (c *Code) I32Xor() *Code { return c.op(OpI32Xor) }
