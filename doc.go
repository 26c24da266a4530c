// Package firmlet is a firmware platform that runs sandboxed WebAssembly
// applets on top of a board's hardware capabilities.
//
// The core is an event-driven scheduler: interrupt handlers turn hardware
// activity into events on a bounded queue, and a single scheduler goroutine
// pops them one at a time and invokes the applet callback registered for
// each. Applets reach the hardware through a flat host API imported from the
// "env" module.
//
// # Architecture Overview
//
//	firmlet/             Root package with the Memory interface
//	├── board/           Capabilities, bounded identifiers, events, board API
//	│   └── aead/        Authenticated encryption backends
//	├── scheduler/       Handler registry, event dispatch and the applet API
//	├── applet/          Applet API descriptors, calls and result codes
//	├── engine/          wazero-backed applet executor
//	├── wasm/            Minimal module encoder used to build applets in Go
//	├── runner/host/     Simulated board with interrupt lines
//	│   ├── ble/         BLE advertising link layer for the simulated radio
//	│   └── sqlstore/    sqlite-backed persistent storage
//	├── config/          YAML configuration with environment overrides
//	├── errors/          Structured error types
//	└── internal/irq/    Critical section, bounded queues, interrupt lines
//
// # Quick Start
//
//	b, err := host.New(host.Config{Support: board.Support{Buttons: 4, LEDs: 4, Timers: 4}})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	eng, err := engine.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	s, err := scheduler.New(b, eng, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := s.Load(ctx, "app", wasmBytes); err != nil {
//	    log.Fatal(err)
//	}
//	b.Start()
//	err = s.Run(ctx)
//
// # Execution Model
//
// Callbacks run to completion on the scheduler goroutine; there is no
// preemption between applet instances. Interrupt handlers may run at any
// time on other goroutines, but only touch shared state inside the board's
// critical section, so the queue order is the order in which handlers
// finished.
package firmlet
