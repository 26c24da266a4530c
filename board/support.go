package board

import (
	"strconv"

	"github.com/wippyai/firmlet/errors"
)

// Kind identifies a capability category.
type Kind uint8

const (
	KindButton Kind = iota
	KindLED
	KindTimer
	KindRadio
	KindUSBSerial
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindButton:
		return "button"
	case KindLED:
		return "led"
	case KindTimer:
		return "timer"
	case KindRadio:
		return "radio"
	case KindUSBSerial:
		return "usb_serial"
	case KindStorage:
		return "storage"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Capability is implemented by the zero-size marker types below. The marker
// only carries the category; the count comes from the board's Support.
type Capability interface {
	Kind() Kind
}

type (
	Button    struct{}
	LED       struct{}
	Timer     struct{}
	Radio     struct{}
	USBSerial struct{}
	Storage   struct{}
)

func (Button) Kind() Kind    { return KindButton }
func (LED) Kind() Kind       { return KindLED }
func (Timer) Kind() Kind     { return KindTimer }
func (Radio) Kind() Kind     { return KindRadio }
func (USBSerial) Kind() Kind { return KindUSBSerial }
func (Storage) Kind() Kind   { return KindStorage }

// MaxCount bounds every capability count so indices fit an ID.
const MaxCount = 1<<16 - 1

// Support is the per-board table of capability instance counts. It is fixed at
// bring-up. Singleton capabilities (radio, USB serial, storage) count 0 or 1.
type Support struct {
	Buttons   int `yaml:"buttons"`
	LEDs      int `yaml:"leds"`
	Timers    int `yaml:"timers"`
	Radio     int `yaml:"radio"`
	USBSerial int `yaml:"usb_serial"`
	Storage   int `yaml:"storage"`
}

// Count returns the number of instances of kind k.
func (s Support) Count(k Kind) int {
	switch k {
	case KindButton:
		return s.Buttons
	case KindLED:
		return s.LEDs
	case KindTimer:
		return s.Timers
	case KindRadio:
		return s.Radio
	case KindUSBSerial:
		return s.USBSerial
	case KindStorage:
		return s.Storage
	}
	return 0
}

// Validate rejects negative counts, counts above MaxCount and singleton
// capabilities with more than one instance.
func (s Support) Validate() error {
	for k := KindButton; k <= KindStorage; k++ {
		n := s.Count(k)
		if n < 0 || n > MaxCount {
			return errors.New(errors.PhaseBoard, errors.KindInvalidInput).
				Capability(k.String()).
				Value(n).
				Detail("count %d outside [0, %d]", n, MaxCount).
				Build()
		}
	}
	for _, k := range []Kind{KindRadio, KindUSBSerial, KindStorage} {
		if s.Count(k) > 1 {
			return errors.New(errors.PhaseBoard, errors.KindInvalidInput).
				Capability(k.String()).
				Detail("singleton capability cannot have %d instances", s.Count(k)).
				Build()
		}
	}
	return nil
}

// ID is a validated index of a capability instance. The only way to obtain a
// usable ID is NewID; afterwards the index is trusted without further checks.
// The zero value is not a valid ID.
type ID[C Capability] struct {
	n uint16 // index + 1
}

// NewID validates index against the count of C in s.
func NewID[C Capability](s Support, index int) (ID[C], error) {
	var c C
	count := s.Count(c.Kind())
	if index < 0 || index >= count {
		return ID[C]{}, errors.InvalidID(c.Kind().String(), index, count)
	}
	return ID[C]{n: uint16(index) + 1}, nil
}

// All returns every valid ID of C, in index order.
func All[C Capability](s Support) []ID[C] {
	var c C
	count := s.Count(c.Kind())
	ids := make([]ID[C], count)
	for i := range ids {
		ids[i] = ID[C]{n: uint16(i) + 1}
	}
	return ids
}

// Index returns the instance index.
func (id ID[C]) Index() int {
	if id.n == 0 {
		panic("board: use of an ID that was not built by NewID")
	}
	return int(id.n - 1)
}

func (id ID[C]) String() string {
	var c C
	if id.n == 0 {
		return c.Kind().String() + "(invalid)"
	}
	return c.Kind().String() + "#" + strconv.Itoa(int(id.n-1))
}
