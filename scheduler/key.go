package scheduler

import (
	"fmt"

	"github.com/wippyai/firmlet/board"
)

// Key identifies the handler slot an event is dispatched to. Buttons and
// timers are keyed by their id, the radio has a single slot and USB serial
// has one slot per event kind.
type Key struct {
	Kind  board.Kind
	Index uint16
	Sub   uint8
}

// KeyOf projects an event onto its Key. It never allocates.
func KeyOf(e board.Event) Key {
	switch e := e.(type) {
	case board.ButtonEvent:
		return ButtonKey(e.Button)
	case board.TimerEvent:
		return TimerKey(e.Timer)
	case board.RadioEvent:
		return RadioKey()
	case board.USBEvent:
		return SerialKey(e.Kind)
	}
	panic("scheduler: unknown event type")
}

func ButtonKey(id board.ID[board.Button]) Key {
	return Key{Kind: board.KindButton, Index: uint16(id.Index())}
}

func TimerKey(id board.ID[board.Timer]) Key {
	return Key{Kind: board.KindTimer, Index: uint16(id.Index())}
}

func RadioKey() Key {
	return Key{Kind: board.KindRadio}
}

func SerialKey(kind board.SerialEventKind) Key {
	return Key{Kind: board.KindUSBSerial, Sub: uint8(kind)}
}

func (k Key) String() string {
	switch k.Kind {
	case board.KindButton, board.KindTimer:
		return fmt.Sprintf("%s#%d", k.Kind, k.Index)
	case board.KindUSBSerial:
		return fmt.Sprintf("%s/%s", k.Kind, board.SerialEventKind(k.Sub))
	default:
		return k.Kind.String()
	}
}

// extraArgs returns the event-specific callback words.
func extraArgs(e board.Event) (words [1]uint32, n int) {
	if b, ok := e.(board.ButtonEvent); ok {
		if b.Pressed {
			words[0] = 1
		}
		return words, 1
	}
	return words, 0
}
