// Package demo builds ready-to-run applets with the wasm encoder.
package demo

import (
	"github.com/wippyai/firmlet/applet"
	"github.com/wippyai/firmlet/wasm"
)

// Banner is printed by ButtonLED when main has registered its handlers.
const Banner = "firmlet demo: buttons toggle LEDs, serial echoes"

const (
	bannerAddr = 64
	serialBuf  = 256
	serialLen  = 64
)

// ButtonLED returns an applet that toggles LED i on each press of button i
// and echoes USB serial input back to the host.
func ButtonLED() []byte {
	b := wasm.NewBuilder()
	dp := b.Import(applet.Module, "dp", wasm.I32s(2), wasm.I32s(1))
	bc := b.Import(applet.Module, "bc", nil, wasm.I32s(1))
	br := b.Import(applet.Module, "br", wasm.I32s(3), wasm.I32s(1))
	lg := b.Import(applet.Module, "lg", wasm.I32s(1), wasm.I32s(1))
	ls := b.Import(applet.Module, "ls", wasm.I32s(2), wasm.I32s(1))
	usr := b.Import(applet.Module, "usr", wasm.I32s(2), wasm.I32s(1))
	usw := b.Import(applet.Module, "usw", wasm.I32s(2), wasm.I32s(1))
	usf := b.Import(applet.Module, "usf", nil, wasm.I32s(1))
	use := b.Import(applet.Module, "use", wasm.I32s(3), wasm.I32s(1))

	b.Memory(1)
	b.Data(bannerAddr, []byte(Banner))

	// onButton(led, pressed)
	onButton := b.Func(wasm.I32s(2), nil, 0, wasm.NewCode().
		LocalGet(1).If().
		LocalGet(0).
		LocalGet(0).Call(lg).I32Const(1).I32Xor().
		Call(ls).Drop().
		End())

	// onSerial(data) echoes what is available
	onSerial := b.Func(wasm.I32s(1), nil, 1, wasm.NewCode().
		I32Const(serialBuf).I32Const(serialLen).Call(usr).LocalSet(1).
		I32Const(0).LocalGet(1).I32LtS().If().
		I32Const(serialBuf).LocalGet(1).Call(usw).Drop().
		Call(usf).Drop().
		End())

	b.Table(onButton, onSerial)
	sig1 := b.Type(wasm.FuncType{Params: wasm.I32s(1)})
	sig2 := b.Type(wasm.FuncType{Params: wasm.I32s(2)})

	cb0 := b.Func(wasm.I32s(2), nil, 0, wasm.NewCode().
		LocalGet(1).LocalGet(0).CallIndirect(sig1))
	b.Export(applet.CallbackExport(0), cb0)

	cb1 := b.Func(wasm.I32s(3), nil, 0, wasm.NewCode().
		LocalGet(1).LocalGet(2).LocalGet(0).CallIndirect(sig2))
	b.Export(applet.CallbackExport(1), cb1)

	// main registers every button with its own index as data, then prints
	// the banner once every handler is in place
	main := b.Func(nil, nil, 1, wasm.NewCode().
		Block().Loop().
		LocalGet(0).Call(bc).I32LtS().I32Eqz().BrIf(1).
		LocalGet(0).I32Const(0).LocalGet(0).Call(br).Drop().
		LocalGet(0).I32Const(1).I32Add().LocalSet(0).
		Br(0).
		End().End().
		I32Const(0).I32Const(1).I32Const(0).Call(use).Drop().
		I32Const(bannerAddr).I32Const(int32(len(Banner))).Call(dp).Drop())
	b.Export(applet.ExportMain, main)

	return b.Encode()
}
