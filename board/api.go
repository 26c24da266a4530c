package board

import (
	"context"
	"time"

	"github.com/wippyai/firmlet/board/aead"
)

// Board is the aggregated view of a board used by the scheduler.
//
// Every accessor returns a usable implementation; capabilities the board does
// not have return the Unsupported implementation, which the scheduler never
// reaches because no ID can be built for them.
type Board interface {
	Support() Support
	Events() Events
	Buttons() Buttons
	LEDs() LEDs
	Timers() Timers
	Radio() RadioPort
	Serial() SerialPort
	Crypto() Crypto
	Storage() Store
	// Entropy fills p with random bytes.
	Entropy(p []byte) error
}

// Events is the FIFO of pending events shared with interrupt context. Every
// method runs inside the board's critical section.
type Events interface {
	// Push appends e. It returns false and drops e when the queue is full.
	Push(e Event) bool
	// Pop removes the oldest event.
	Pop() (Event, bool)
	// Remove drops every queued event for which match returns true, keeping
	// the order of the others, and reports how many were dropped.
	Remove(match func(Event) bool) int
	// Len returns the number of queued events.
	Len() int
	// Wait blocks in low-power mode until an event may be available or ctx is
	// done. It may return spuriously.
	Wait(ctx context.Context) error
}

// Buttons gates button interrupts.
type Buttons interface {
	Enable(id ID[Button]) error
	Disable(id ID[Button]) error
}

// LEDs drives the board LEDs.
type LEDs interface {
	Get(id ID[LED]) bool
	Set(id ID[LED], on bool) error
}

// TimerCommand arms a timer.
type TimerCommand struct {
	Periodic bool
	Duration time.Duration
}

// Timers drives the hardware timers.
type Timers interface {
	Arm(id ID[Timer], cmd TimerCommand) error
	Disarm(id ID[Timer]) error
}

// RadioPort exposes the beacon receiver.
type RadioPort interface {
	Enable() error
	Disable() error
	// Read pops the oldest received packet into dst and returns its length.
	// It returns 0 when no packet is queued.
	Read(dst []byte) (int, error)
}

// SerialPort exposes the USB serial function.
type SerialPort interface {
	Read(dst []byte) (int, error)
	Write(src []byte) (int, error)
	Flush() error
	Enable(kind SerialEventKind) error
	Disable(kind SerialEventKind) error
}

// Crypto selects AEAD backends. Algorithms the board cannot serve map to
// aead.Unsupported.
type Crypto interface {
	AEAD(alg aead.Algorithm) aead.Cipher
}

// Store opens persistent storage regions.
type Store interface {
	Open(region string) (Region, error)
}

// Region is a key-value area of persistent storage.
type Region interface {
	Insert(key uint16, value []byte) error
	// Find returns nil, nil when key is absent.
	Find(key uint16) ([]byte, error)
	Remove(key uint16) error
}
