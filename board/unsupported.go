package board

import (
	"github.com/wippyai/firmlet/board/aead"
)

// Unsupported implements the indexed capability interfaces for boards lacking
// the capability. None of its methods can be reached through a valid ID, so
// each one panics: reaching it is a programming defect.
type Unsupported struct{}

var (
	_ Buttons    = Unsupported{}
	_ LEDs       = Unsupported{}
	_ Timers     = Unsupported{}
	_ Crypto     = Unsupported{}
	_ Store      = Unsupported{}
	_ RadioPort  = UnsupportedRadio{}
	_ SerialPort = UnsupportedSerial{}
)

func unreachable(what string) {
	panic("board: unsupported capability reached: " + what)
}

func (Unsupported) Enable(ID[Button]) error {
	unreachable("button enable")
	return nil
}

func (Unsupported) Disable(ID[Button]) error {
	unreachable("button disable")
	return nil
}

func (Unsupported) Get(ID[LED]) bool {
	unreachable("led get")
	return false
}

func (Unsupported) Set(ID[LED], bool) error {
	unreachable("led set")
	return nil
}

func (Unsupported) Arm(ID[Timer], TimerCommand) error {
	unreachable("timer arm")
	return nil
}

func (Unsupported) Disarm(ID[Timer]) error {
	unreachable("timer disarm")
	return nil
}

// AEAD never panics: the returned backend advertises no support, which is
// how callers learn the algorithm is absent.
func (Unsupported) AEAD(aead.Algorithm) aead.Cipher {
	return aead.Unsupported{}
}

func (Unsupported) Open(string) (Region, error) {
	unreachable("storage open")
	return nil, nil
}

// UnsupportedRadio is the radio of a board without one.
type UnsupportedRadio struct{}

func (UnsupportedRadio) Enable() error {
	unreachable("radio enable")
	return nil
}

func (UnsupportedRadio) Disable() error {
	unreachable("radio disable")
	return nil
}

func (UnsupportedRadio) Read([]byte) (int, error) {
	unreachable("radio read")
	return 0, nil
}

// UnsupportedSerial is the USB serial port of a board without one.
type UnsupportedSerial struct{}

func (UnsupportedSerial) Read([]byte) (int, error) {
	unreachable("serial read")
	return 0, nil
}

func (UnsupportedSerial) Write([]byte) (int, error) {
	unreachable("serial write")
	return 0, nil
}

func (UnsupportedSerial) Flush() error {
	unreachable("serial flush")
	return nil
}

func (UnsupportedSerial) Enable(SerialEventKind) error {
	unreachable("serial enable")
	return nil
}

func (UnsupportedSerial) Disable(SerialEventKind) error {
	unreachable("serial disable")
	return nil
}
