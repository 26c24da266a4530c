// Package board describes what a board offers to the scheduler.
//
// A board advertises a Support table: the number of instances it has of each
// capability (buttons, LEDs, timers, radio, USB serial, storage). Instances
// are addressed with ID[C], a bounded index whose range is checked exactly
// once, when NewID builds it. A capability with count zero can never yield an
// ID, so the Unsupported implementations of its operations are unreachable by
// construction and panic if they are ever called.
//
// Events are immutable values produced by the board's interrupt handlers and
// consumed exactly once by the scheduler:
//
//	ButtonEvent{Button, Pressed}
//	TimerEvent{Timer}
//	RadioEvent{Kind}
//	USBEvent{Kind}
//
// The Board interface aggregates the per-capability interfaces together with
// the Events queue shared between interrupt context and the scheduler loop.
package board
