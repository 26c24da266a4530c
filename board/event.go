package board

// Event is a hardware-observed condition. The set of implementations is
// closed: ButtonEvent, TimerEvent, RadioEvent and USBEvent.
type Event interface {
	// Source is the capability that produced the event.
	Source() Kind
	isEvent()
}

// ButtonEvent reports a button changing state.
type ButtonEvent struct {
	Button  ID[Button]
	Pressed bool
}

// TimerEvent reports a timer firing.
type TimerEvent struct {
	Timer ID[Timer]
}

// RadioEventKind enumerates radio events.
type RadioEventKind uint8

const (
	// RadioReceived means at least one packet waits in the radio packet queue.
	RadioReceived RadioEventKind = iota
)

func (k RadioEventKind) String() string {
	if k == RadioReceived {
		return "received"
	}
	return "unknown"
}

// RadioEvent reports radio activity.
type RadioEvent struct {
	Kind RadioEventKind
}

// SerialEventKind enumerates USB serial readiness events.
type SerialEventKind uint8

const (
	// SerialRead means bytes are available to read.
	SerialRead SerialEventKind = iota
	// SerialWrite means the port can accept more bytes.
	SerialWrite
)

func (k SerialEventKind) String() string {
	switch k {
	case SerialRead:
		return "read"
	case SerialWrite:
		return "write"
	default:
		return "unknown"
	}
}

// USBEvent reports USB serial readiness.
type USBEvent struct {
	Kind SerialEventKind
}

func (ButtonEvent) Source() Kind { return KindButton }
func (TimerEvent) Source() Kind  { return KindTimer }
func (RadioEvent) Source() Kind  { return KindRadio }
func (USBEvent) Source() Kind    { return KindUSBSerial }

func (ButtonEvent) isEvent() {}
func (TimerEvent) isEvent()  {}
func (RadioEvent) isEvent()  {}
func (USBEvent) isEvent()    {}
