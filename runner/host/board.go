package host

import (
	"crypto/rand"
	"io"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/firmlet/board"
	"github.com/wippyai/firmlet/board/aead"
	"github.com/wippyai/firmlet/errors"
	"github.com/wippyai/firmlet/internal/irq"
	"github.com/wippyai/firmlet/runner/host/ble"
)

// Interrupt lines of the simulated board. Timer i uses LineTimer0 + i.
const (
	LineGPIOTE irq.Line = iota
	LineRadio
	LineRadioTimer
	LineUSBD
	LineTimer0
)

const (
	DefaultQueueCapacity = 64
	DefaultHopInterval   = 100 * time.Millisecond

	// RadioQueueDepth bounds the received packet queue.
	RadioQueueDepth = 10
)

// Config describes the simulated hardware.
type Config struct {
	Support board.Support

	// QueueCapacity bounds the event queue.
	QueueCapacity int
	// HopInterval is how long the scanner listens on each advertising channel.
	HopInterval time.Duration

	// AEAD lists the algorithms with a backend. Nil enables every algorithm
	// compiled in.
	AEAD []aead.Algorithm

	// Store backs the storage capability. Nil means an in-memory store.
	Store board.Store
	// Entropy backs the random number generator. Nil means crypto/rand.
	Entropy io.Reader
	// Air is the medium the radio listens on. Nil leaves the radio deaf.
	Air *Air

	Metrics *Metrics

	// OnLED is called outside the critical section after an LED changes.
	OnLED func(index int, on bool)
}

type buttonState struct {
	enabled   bool
	triggered bool
	pressed   bool
}

// state is everything shared between handlers and the scheduler.
type state struct {
	buttons []buttonState
	leds    []bool
	timers  []timerState
	radio   radioState
	serial  serialState
	closed  bool
}

// Board is the simulated board. It implements board.Board.
type Board struct {
	cfg     Config
	support board.Support
	epoch   time.Time

	sec    irq.Section
	st     *irq.Guarded[state]
	ctrl   *irq.Controller
	events *eventQueue
	crypto board.Crypto
	store  board.Store

	startOnce sync.Once
}

var _ board.Board = (*Board)(nil)

// New brings up the board. Every line is registered masked; call Start to
// let interrupts through.
func New(cfg Config) (*Board, error) {
	if err := cfg.Support.Validate(); err != nil {
		return nil, err
	}
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = DefaultQueueCapacity
	}
	if cfg.HopInterval == 0 {
		cfg.HopInterval = DefaultHopInterval
	}
	if cfg.QueueCapacity < 0 || cfg.HopInterval < 0 {
		return nil, errors.InvalidInput(errors.PhaseBoard, "queue capacity and hop interval must be positive")
	}
	if cfg.Entropy == nil {
		cfg.Entropy = rand.Reader
	}
	if cfg.Store == nil {
		cfg.Store = NewMemStore()
	}

	b := &Board{
		cfg:     cfg,
		support: cfg.Support,
		epoch:   time.Now(),
		ctrl:    irq.NewController(),
		crypto:  newCrypto(cfg.AEAD),
		store:   cfg.Store,
	}
	b.events = newEventQueue(&b.sec, cfg.QueueCapacity, cfg.Metrics)

	s := cfg.Support
	b.st = irq.NewGuarded(&b.sec, state{
		buttons: make([]buttonState, s.Buttons),
		leds:    make([]bool, s.LEDs),
		timers:  make([]timerState, s.Timers),
		radio: radioState{
			scanner: ble.NewScanner(uint32(cfg.HopInterval / time.Microsecond)),
			packets: irq.NewQueue[ble.Packet](RadioQueueDepth),
		},
		serial: newSerialState(),
	})

	b.ctrl.OnDispatch = cfg.Metrics.recordInterrupt
	if s.Buttons > 0 {
		b.ctrl.Register(LineGPIOTE, "GPIOTE", b.gpioteHandler)
	}
	if s.Radio > 0 {
		b.ctrl.Register(LineRadio, "RADIO", b.radioHandler)
		b.ctrl.Register(LineRadioTimer, "RADIO_TIMER", b.radioTimerHandler)
		if cfg.Air != nil {
			cfg.Air.Attach(b)
		}
	}
	if s.USBSerial > 0 {
		b.ctrl.Register(LineUSBD, "USBD", b.usbdHandler)
	}
	for i := 0; i < s.Timers; i++ {
		b.ctrl.Register(LineTimer0+irq.Line(i), "TIMER"+strconv.Itoa(i), b.timerHandler(i))
	}

	Logger().Info("board brought up",
		zap.Int("buttons", s.Buttons),
		zap.Int("leds", s.LEDs),
		zap.Int("timers", s.Timers),
		zap.Int("radio", s.Radio),
		zap.Int("usb_serial", s.USBSerial),
		zap.Int("storage", s.Storage),
	)
	return b, nil
}

// Start unmasks every interrupt line. Interrupts raised during bring-up run
// now.
func (b *Board) Start() {
	b.startOnce.Do(b.ctrl.UnmaskAll)
}

// Close stops every timer and detaches the board from the air.
func (b *Board) Close() error {
	b.st.With(func(st *state) {
		if st.closed {
			return
		}
		st.closed = true
		for i := range st.timers {
			st.timers[i].stop()
		}
		st.radio.enabled = false
		st.radio.stopHop()
		st.radio.rx.Configure(st.radio.scanner.Stop())
	})
	if b.cfg.Air != nil {
		b.cfg.Air.Detach(b)
	}
	return nil
}

// ticks is the board clock in microseconds.
func (b *Board) ticks() uint32 {
	return uint32(time.Since(b.epoch) / time.Microsecond)
}

// InterruptCount returns how many times the handler of l has run.
func (b *Board) InterruptCount(l irq.Line) uint64 { return b.ctrl.Count(l) }

func (b *Board) Support() board.Support { return b.support }
func (b *Board) Events() board.Events   { return b.events }
func (b *Board) Crypto() board.Crypto   { return b.crypto }

func (b *Board) Buttons() board.Buttons {
	if b.support.Buttons == 0 {
		return board.Unsupported{}
	}
	return buttons{b}
}

func (b *Board) LEDs() board.LEDs {
	if b.support.LEDs == 0 {
		return board.Unsupported{}
	}
	return leds{b}
}

func (b *Board) Timers() board.Timers {
	if b.support.Timers == 0 {
		return board.Unsupported{}
	}
	return timers{b}
}

func (b *Board) Radio() board.RadioPort {
	if b.support.Radio == 0 {
		return board.UnsupportedRadio{}
	}
	return radio{b}
}

func (b *Board) Serial() board.SerialPort {
	if b.support.USBSerial == 0 {
		return board.UnsupportedSerial{}
	}
	return serial{b}
}

func (b *Board) Storage() board.Store {
	if b.support.Storage == 0 {
		return board.Unsupported{}
	}
	return b.store
}

// Entropy fills p from the configured source.
func (b *Board) Entropy(p []byte) error {
	if _, err := io.ReadFull(b.cfg.Entropy, p); err != nil {
		return errors.New(errors.PhaseBoard, errors.KindIO).
			Capability("rng").
			Cause(err).
			Build()
	}
	return nil
}
