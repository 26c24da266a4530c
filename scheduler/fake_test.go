package scheduler

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/wippyai/firmlet/applet"
	"github.com/wippyai/firmlet/board"
	"github.com/wippyai/firmlet/board/aead"
	"github.com/wippyai/firmlet/errors"
	"github.com/wippyai/firmlet/internal/irq"
)

// fakeEvents is an irq-backed queue without interrupt lines.
type fakeEvents struct {
	sec irq.Section
	q   *irq.Queue[board.Event]
	sig *irq.Signal
	// afterRemove runs once a purge has finished, standing in for an
	// interrupt that lands right behind it.
	afterRemove func()
}

func newFakeEvents(capacity int) *fakeEvents {
	return &fakeEvents{q: irq.NewQueue[board.Event](capacity), sig: irq.NewSignal()}
}

func (e *fakeEvents) Push(ev board.Event) (ok bool) {
	e.sec.With(func() { ok = e.q.Push(ev) })
	if ok {
		e.sig.Notify()
	}
	return ok
}

func (e *fakeEvents) Pop() (ev board.Event, ok bool) {
	e.sec.With(func() { ev, ok = e.q.Pop() })
	return ev, ok
}

func (e *fakeEvents) Remove(match func(board.Event) bool) (n int) {
	e.sec.With(func() { n = e.q.Remove(match) })
	if e.afterRemove != nil {
		e.afterRemove()
	}
	return n
}

func (e *fakeEvents) Len() (n int) {
	e.sec.With(func() { n = e.q.Len() })
	return n
}

func (e *fakeEvents) Wait(ctx context.Context) error { return e.sig.Wait(ctx) }

type fakeBoard struct {
	support board.Support
	events  *fakeEvents
	enabled map[int]bool
	leds    map[int]bool
	armed   map[int]board.TimerCommand
	radioOn bool
	store   *fakeStore
	crypto  bool
}

func newFakeBoard(s board.Support) *fakeBoard {
	return &fakeBoard{
		support: s,
		events:  newFakeEvents(64),
		enabled: make(map[int]bool),
		leds:    make(map[int]bool),
		armed:   make(map[int]board.TimerCommand),
		store:   &fakeStore{regions: make(map[string]*fakeRegion)},
		crypto:  true,
	}
}

func (b *fakeBoard) Support() board.Support { return b.support }
func (b *fakeBoard) Events() board.Events   { return b.events }
func (b *fakeBoard) Buttons() board.Buttons { return fakeButtons{b} }
func (b *fakeBoard) LEDs() board.LEDs       { return fakeLEDs{b} }
func (b *fakeBoard) Timers() board.Timers   { return fakeTimers{b} }

func (b *fakeBoard) Radio() board.RadioPort {
	if b.support.Radio == 0 {
		return board.UnsupportedRadio{}
	}
	return fakeRadio{b}
}

func (b *fakeBoard) Serial() board.SerialPort { return board.UnsupportedSerial{} }

func (b *fakeBoard) Crypto() board.Crypto {
	if !b.crypto {
		return board.Unsupported{}
	}
	return fakeCrypto{}
}

func (b *fakeBoard) Storage() board.Store {
	if b.support.Storage == 0 {
		return board.Unsupported{}
	}
	return b.store
}

func (b *fakeBoard) Entropy(p []byte) error {
	_, err := rand.Read(p)
	return err
}

type fakeButtons struct{ b *fakeBoard }

func (f fakeButtons) Enable(id board.ID[board.Button]) error {
	f.b.enabled[id.Index()] = true
	return nil
}

func (f fakeButtons) Disable(id board.ID[board.Button]) error {
	delete(f.b.enabled, id.Index())
	return nil
}

type fakeLEDs struct{ b *fakeBoard }

func (f fakeLEDs) Get(id board.ID[board.LED]) bool { return f.b.leds[id.Index()] }

func (f fakeLEDs) Set(id board.ID[board.LED], on bool) error {
	f.b.leds[id.Index()] = on
	return nil
}

type fakeTimers struct{ b *fakeBoard }

func (f fakeTimers) Arm(id board.ID[board.Timer], cmd board.TimerCommand) error {
	f.b.armed[id.Index()] = cmd
	return nil
}

func (f fakeTimers) Disarm(id board.ID[board.Timer]) error {
	delete(f.b.armed, id.Index())
	return nil
}

type fakeRadio struct{ b *fakeBoard }

func (f fakeRadio) Enable() error {
	f.b.radioOn = true
	return nil
}

func (f fakeRadio) Disable() error {
	f.b.radioOn = false
	return nil
}

func (f fakeRadio) Read(dst []byte) (int, error) {
	return copy(dst, "pkt"), nil
}

type fakeCrypto struct{}

func (fakeCrypto) AEAD(alg aead.Algorithm) aead.Cipher {
	switch alg {
	case aead.AlgChaCha20Poly1305:
		return aead.ChaCha20Poly1305{}
	case aead.AlgAES256GCM:
		return aead.AES256GCM{}
	}
	return aead.Unsupported{}
}

type fakeStore struct {
	regions map[string]*fakeRegion
}

func (s *fakeStore) Open(name string) (board.Region, error) {
	r, ok := s.regions[name]
	if !ok {
		r = &fakeRegion{values: make(map[uint16][]byte)}
		s.regions[name] = r
	}
	return r, nil
}

type fakeRegion struct {
	values map[uint16][]byte
}

func (r *fakeRegion) Insert(key uint16, value []byte) error {
	r.values[key] = value
	return nil
}

func (r *fakeRegion) Find(key uint16) ([]byte, error) { return r.values[key], nil }

func (r *fakeRegion) Remove(key uint16) error {
	delete(r.values, key)
	return nil
}

// invocation is one recorded Executor.Invoke.
type invocation struct {
	inst   applet.InstID
	export string
	args   []uint32
}

// fakeExec records invocations. Exports listed in traps fail with a trap.
type fakeExec struct {
	bindings map[string]applet.Binding
	exports  map[string]bool
	traps    map[string]bool
	calls    []invocation
	released []applet.InstID
	links    int
	next     applet.InstID
	// onInvoke runs inside Invoke, standing in for applet code.
	onInvoke func(ctx context.Context, inv invocation) error
}

func newFakeExec() *fakeExec {
	return &fakeExec{
		exports: map[string]bool{"main": true, "cb0": true, "cb1": true},
		traps:   make(map[string]bool),
	}
}

func (f *fakeExec) Link(_ context.Context, bs []applet.Binding) error {
	f.links++
	f.bindings = make(map[string]applet.Binding, len(bs))
	for _, b := range bs {
		f.bindings[b.Link] = b
	}
	return nil
}

func (f *fakeExec) Instantiate(context.Context, string, []byte) (applet.InstID, error) {
	f.next++
	return f.next, nil
}

func (f *fakeExec) Invoke(ctx context.Context, inst applet.InstID, export string, args []uint32) error {
	inv := invocation{inst: inst, export: export, args: append([]uint32(nil), args...)}
	f.calls = append(f.calls, inv)
	if !f.exports[export] {
		return errors.MissingExport(uint32(inst), export)
	}
	if f.onInvoke != nil {
		if err := f.onInvoke(ctx, inv); err != nil {
			return err
		}
	}
	if f.traps[export] {
		return errors.Trap(uint32(inst), export, fmt.Errorf("unreachable"))
	}
	return nil
}

func (f *fakeExec) HasExport(_ applet.InstID, export string) bool { return f.exports[export] }

func (f *fakeExec) Release(_ context.Context, inst applet.InstID) error {
	f.released = append(f.released, inst)
	return nil
}

// call invokes a bound host function as inst would.
func (f *fakeExec) call(ctx context.Context, inst applet.InstID, mem *sliceMemory, link string, args ...uint32) int32 {
	return applet.Result(f.callErr(ctx, inst, mem, link, args...))
}

// callErr is call without the mapping to a result code.
func (f *fakeExec) callErr(ctx context.Context, inst applet.InstID, mem *sliceMemory, link string, args ...uint32) (int32, error) {
	b, ok := f.bindings[link]
	if !ok {
		panic("unbound host function " + link)
	}
	c := &applet.Call{Inst: inst, Args: args}
	if mem != nil {
		c.Mem = mem
	} else {
		c.Mem = &sliceMemory{}
	}
	return b.Handler(ctx, c)
}

// sliceMemory is a linear memory backed by a byte slice.
type sliceMemory struct {
	data []byte
}

func newSliceMemory(size int) *sliceMemory { return &sliceMemory{data: make([]byte, size)} }

func (m *sliceMemory) Read(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(m.data)) {
		return nil, errors.OutOfBounds(errors.PhaseApplet, offset, length)
	}
	return m.data[offset:end:end], nil
}

func (m *sliceMemory) Write(offset uint32, data []byte) error {
	dst, err := m.Read(offset, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

func (m *sliceMemory) ReadU8(offset uint32) (uint8, error) {
	b, err := m.Read(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m *sliceMemory) ReadU32(offset uint32) (uint32, error) {
	b, err := m.Read(offset, 4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func (m *sliceMemory) WriteU8(offset uint32, v uint8) error { return m.Write(offset, []byte{v}) }

func (m *sliceMemory) WriteU32(offset uint32, v uint32) error {
	return m.Write(offset, []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

func (m *sliceMemory) Size() uint32 { return uint32(len(m.data)) }
