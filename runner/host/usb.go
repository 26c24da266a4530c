package host

import (
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/firmlet/board"
	"github.com/wippyai/firmlet/errors"
	"github.com/wippyai/firmlet/internal/irq"
)

const (
	serialRxCapacity = 1024
	serialTxCapacity = 256
)

// serialState is the USB CDC function. Received bytes wait in rx until the
// applet reads them; written bytes wait in tx until Flush.
type serialState struct {
	rx   *irq.Queue[byte]
	tx   []byte
	port io.Writer

	enabled      [2]bool
	readNotified bool
	writeBlocked bool
	writeReady   bool
}

func newSerialState() serialState {
	return serialState{
		rx: irq.NewQueue[byte](serialRxCapacity),
		tx: make([]byte, 0, serialTxCapacity),
	}
}

type serial struct{ b *Board }

// Read drains up to len(dst) received bytes. Read events resume once the
// applet has drained the buffer.
func (p serial) Read(dst []byte) (int, error) {
	n := 0
	p.b.st.With(func(st *state) {
		s := &st.serial
		for n < len(dst) {
			c, ok := s.rx.Pop()
			if !ok {
				break
			}
			dst[n] = c
			n++
		}
		if s.rx.Len() == 0 {
			s.readNotified = false
		}
	})
	return n, nil
}

// Write buffers as much of src as fits. A short count means the buffer is
// full; a Write event follows the next Flush.
func (p serial) Write(src []byte) (int, error) {
	var n int
	p.b.st.With(func(st *state) {
		s := &st.serial
		n = min(len(src), serialTxCapacity-len(s.tx))
		s.tx = append(s.tx, src[:n]...)
		if n < len(src) {
			s.writeBlocked = true
		}
	})
	return n, nil
}

// Flush sends buffered bytes to the attached link. Without a link they are
// discarded.
func (p serial) Flush() error {
	var (
		out     []byte
		port    io.Writer
		blocked bool
	)
	p.b.st.With(func(st *state) {
		s := &st.serial
		out = append([]byte(nil), s.tx...)
		s.tx = s.tx[:0]
		port = s.port
		blocked = s.writeBlocked
		s.writeBlocked = false
		if blocked {
			s.writeReady = true
		}
	})

	var err error
	if port != nil && len(out) > 0 {
		if _, werr := port.Write(out); werr != nil {
			err = errors.New(errors.PhaseApplet, errors.KindIO).
				Capability("usb_serial").
				Cause(werr).
				Build()
		}
	}
	if blocked {
		p.b.ctrl.Raise(LineUSBD)
	}
	return err
}

func (p serial) Enable(kind board.SerialEventKind) error {
	if err := checkSerialKind(kind); err != nil {
		return err
	}
	p.b.st.With(func(st *state) {
		st.serial.enabled[kind] = true
		if kind == board.SerialRead {
			st.serial.readNotified = false
		}
	})
	// bytes that arrived while disabled
	return p.b.ctrl.Raise(LineUSBD)
}

func (p serial) Disable(kind board.SerialEventKind) error {
	if err := checkSerialKind(kind); err != nil {
		return err
	}
	p.b.st.With(func(st *state) { st.serial.enabled[kind] = false })
	return nil
}

func checkSerialKind(kind board.SerialEventKind) error {
	if kind > board.SerialWrite {
		return errors.New(errors.PhaseBoard, errors.KindInvalidInput).
			Capability("usb_serial").
			Value(kind).
			Detail("unknown serial event").
			Build()
	}
	return nil
}

func (b *Board) usbdHandler() {
	b.st.With(func(st *state) {
		s := &st.serial
		if s.enabled[board.SerialRead] && s.rx.Len() > 0 && !s.readNotified {
			s.readNotified = b.events.pushLocked(board.USBEvent{Kind: board.SerialRead})
		}
		if s.enabled[board.SerialWrite] && s.writeReady {
			if b.events.pushLocked(board.USBEvent{Kind: board.SerialWrite}) {
				s.writeReady = false
			}
		}
	})
}

// FeedSerial delivers bytes from the host side of the link and raises USBD.
// It returns how many bytes fit in the receive buffer.
func (b *Board) FeedSerial(p []byte) int {
	if b.support.USBSerial == 0 {
		return 0
	}
	n := 0
	b.st.With(func(st *state) {
		for _, c := range p {
			if !st.serial.rx.Push(c) {
				break
			}
			n++
		}
	})
	if n < len(p) {
		Logger().Warn("serial receive buffer full", zap.Int("dropped", len(p)-n))
		b.cfg.Metrics.recordDrop("serial")
	}
	if n > 0 {
		b.ctrl.Raise(LineUSBD)
	}
	return n
}

// AttachSerial connects the host side of the link. Bytes read from rw are
// fed to the board until rw returns an error; flushed bytes are written to
// rw. Attaching again replaces the previous link.
func (b *Board) AttachSerial(rw io.ReadWriter) error {
	if b.support.USBSerial == 0 {
		return errors.Unsupported(errors.PhaseBoard, "usb_serial")
	}
	b.st.With(func(st *state) { st.serial.port = rw })
	go b.pump(rw)
	return nil
}

func (b *Board) pump(rw io.ReadWriter) {
	buf := make([]byte, 64)
	for {
		n, err := rw.Read(buf)
		if n > 0 {
			b.FeedSerial(buf[:n])
		}
		if err != nil {
			if err != io.EOF {
				Logger().Debug("serial link closed", zap.Error(err))
			}
			b.st.With(func(st *state) {
				if st.serial.port == rw {
					st.serial.port = nil
				}
			})
			return
		}
	}
}
