// Package wasm encodes small WebAssembly modules.
//
// It covers what a hand-built applet needs: function imports, defined
// functions, one memory, one funcref table, active element and data
// segments, and exports. Builder keeps function indices consistent; Code
// assembles bodies instruction by instruction.
//
//	b := wasm.NewBuilder()
//	debug := b.Import("env", "dp", wasm.I32s(2), wasm.I32s(1))
//	b.Memory(1)
//	b.Data(16, []byte("hello"))
//	main := b.Func(nil, nil, 0, wasm.NewCode().
//	    I32Const(16).I32Const(5).Call(debug).Drop())
//	b.Export("main", main)
//	bin := b.Encode()
package wasm
