// Package engine executes applets on the wazero runtime.
//
// # Architecture
//
//	Engine   - owns the wazero runtime, the "env" host module and instances
//	instance - one applet module, identified by an applet.InstID
//
// # Lifecycle
//
//  1. Engine.Link() builds the "env" host module from applet.Bindings
//  2. Engine.Instantiate() compiles an applet and instantiates it without
//     running start functions
//  3. Engine.Invoke() calls an export with i32 arguments
//  4. Engine.Release() closes the instance
//
// # Host Functions
//
// Host function signatures are described with WIT scalar types and lowered
// to core value types:
//
//	WIT Type              Core Representation
//	─────────────────────────────────────────
//	bool, u8-u32, s8-s32  i32
//	u64, s64              i64
//	f32                   f32
//	f64                   f64
//
// Applet host functions use i32 only. Each call receives the calling
// instance and a view of its linear memory.
//
// # Traps
//
// A trap inside an export, including a panic raised by a host function, is
// returned from Invoke as an *errors.Error with KindTrap. A host handler that
// returns a KindTrap error traps its caller instead of producing a result
// code, and a host call from an instance that was released while still
// running traps as well. Cancelling the
// context of an Invoke closes the running module and is reported as the
// context error, not as a trap.
//
// # Thread Safety
//
// Engine is safe for concurrent use, but an instance must only be invoked
// from one goroutine at a time. Host functions may re-enter Invoke on the
// calling instance.
package engine
