package applet

import (
	"context"
	"fmt"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/firmlet"
)

// Module is the import module of every host function.
const Module = "env"

// Applet exports.
const (
	ExportInit   = "init"
	ExportMain   = "main"
	ExportMemory = "memory"
)

// CallbackExport names the export that dispatches a callback with extra
// event words: "cb0", "cb1", ...
func CallbackExport(extra int) string {
	return fmt.Sprintf("cb%d", extra)
}

// InstID identifies a loaded applet instance. Zero is never assigned.
type InstID uint32

// Func describes one host function.
type Func struct {
	Link    string // import name
	Doc     string
	Params  []wit.Type
	Results []wit.Type
}

// Call is one invocation of a host function by an applet.
type Call struct {
	Inst InstID
	Args []uint32
	Mem  firmlet.Memory
}

// Arg returns argument i, or 0 when absent.
func (c *Call) Arg(i int) uint32 {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return 0
}

// Handler implements a host function. It returns a non-negative value or an
// error mapped to a Code.
type Handler func(ctx context.Context, call *Call) (int32, error)

// Binding pairs a descriptor with its implementation.
type Binding struct {
	Func
	Handler Handler
}

// U32 builds a Func whose parameters are all u32 and whose result is s32.
func U32(link, doc string, params int) Func {
	ps := make([]wit.Type, params)
	for i := range ps {
		ps[i] = wit.U32{}
	}
	return Func{Link: link, Doc: doc, Params: ps, Results: []wit.Type{wit.S32{}}}
}
