package host

import (
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/firmlet/board"
	"github.com/wippyai/firmlet/internal/irq"
	"github.com/wippyai/firmlet/runner/host/ble"
)

type radioState struct {
	scanner *ble.Scanner
	rx      ble.Receiver
	packets *irq.Queue[ble.Packet]
	hop     *time.Timer
	enabled bool
	hopGen  uint64
	hopDue  uint64
}

func (r *radioState) stopHop() {
	if r.hop != nil {
		r.hop.Stop()
		r.hop = nil
	}
	r.hopGen++
}

type radio struct{ b *Board }

// Enable starts scanning on the first advertising channel.
func (p radio) Enable() error {
	p.b.st.With(func(st *state) {
		r := &st.radio
		if r.enabled || st.closed {
			return
		}
		r.enabled = true
		p.b.retune(r)
	})
	return nil
}

// Disable turns the receiver off. Queued packets stay readable.
func (p radio) Disable() error {
	p.b.st.With(func(st *state) {
		r := &st.radio
		r.enabled = false
		r.stopHop()
		r.rx.Configure(r.scanner.Stop())
	})
	return nil
}

// Read pops the oldest packet. A buffer too small for it leaves the packet
// queued.
func (p radio) Read(dst []byte) (int, error) {
	var (
		n   int
		err error
	)
	p.b.st.With(func(st *state) {
		pkt, ok := st.radio.packets.Peek()
		if !ok {
			return
		}
		if n, err = pkt.MarshalTo(dst); err == nil {
			st.radio.packets.Pop()
		}
	})
	return n, err
}

// retune asks the scanner for the next channel and schedules the following
// hop. Called inside the section.
func (b *Board) retune(r *radioState) {
	now := b.ticks()
	cmd := r.scanner.TimerUpdate(now)
	r.rx.Configure(cmd.Radio)
	b.armHop(r, now, cmd.Next)
}

// armHop sets the radio timer to fire at tick next. Called inside the
// section.
func (b *Board) armHop(r *radioState, now, next uint32) {
	r.stopHop()
	gen := r.hopGen
	var delay time.Duration
	if next > now {
		delay = time.Duration(next-now) * time.Microsecond
	}
	r.hop = time.AfterFunc(delay, func() { b.hopExpired(gen) })
}

func (b *Board) hopExpired(gen uint64) {
	var live bool
	b.st.With(func(st *state) {
		if st.radio.enabled && st.radio.hopGen == gen {
			st.radio.hopDue = gen
			live = true
		}
	})
	if live {
		b.ctrl.Raise(LineRadioTimer)
	}
}

func (b *Board) radioTimerHandler() {
	b.st.With(func(st *state) {
		r := &st.radio
		if !r.enabled || r.hopDue != r.hopGen {
			return
		}
		b.retune(r)
	})
}

// radioHandler decodes the captured frame. A valid beacon re-arms the radio
// timer with the scanner's next wake and is queued with one RadioEvent; a
// full packet queue drops it.
func (b *Board) radioHandler() {
	now := b.ticks()
	b.st.With(func(st *state) {
		r := &st.radio
		next, ok, err := r.rx.RecvBeaconInterrupt(now, r.scanner)
		if err != nil {
			Logger().Debug("discarding radio frame", zap.Error(err))
			return
		}
		if !ok {
			return
		}
		if r.enabled {
			b.armHop(r, now, next)
		}
		pkt, ok := r.rx.TakePacket()
		if !ok {
			return
		}
		if r.packets.Len() >= r.packets.Cap() {
			Logger().Warn("BLE packet dropped", zap.Stringer("addr", pkt.Addr))
			b.cfg.Metrics.recordDrop("radio")
			return
		}
		if !b.events.pushLocked(board.RadioEvent{Kind: board.RadioReceived}) {
			return
		}
		r.packets.Push(pkt)
	})
}

// Channel returns the advertising channel the receiver listens on.
func (b *Board) Channel() (uint8, bool) {
	var (
		ch uint8
		ok bool
	)
	b.st.With(func(st *state) { ch, ok = st.radio.rx.Listening() })
	return ch, ok
}

// receive offers a frame from the air and raises RADIO if the receiver
// captured it.
func (b *Board) receive(channel uint8, rssi int8, frame []byte) bool {
	var captured bool
	b.st.With(func(st *state) {
		captured = st.radio.enabled && st.radio.rx.Deliver(channel, rssi, frame)
	})
	if captured {
		b.ctrl.Raise(LineRadio)
	}
	return captured
}
