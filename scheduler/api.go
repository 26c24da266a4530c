package scheduler

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/firmlet/applet"
	"github.com/wippyai/firmlet/board"
	"github.com/wippyai/firmlet/board/aead"
	"github.com/wippyai/firmlet/errors"
)

// bindings returns the applet API served by this scheduler.
func (s *Scheduler) bindings() []applet.Binding {
	fns := []struct {
		fn applet.Func
		h  applet.Handler
	}{
		{applet.U32("dp", "debug println", 2), s.debugPrintln},

		{applet.U32("bc", "button count", 0), s.buttonCount},
		{applet.U32("br", "button register", 3), s.buttonRegister},
		{applet.U32("bu", "button unregister", 1), s.buttonUnregister},

		{applet.U32("lc", "led count", 0), s.ledCount},
		{applet.U32("lg", "led get", 1), s.ledGet},
		{applet.U32("ls", "led set", 2), s.ledSet},

		{applet.U32("ta", "timer allocate", 2), s.timerAllocate},
		{applet.U32("tb", "timer start", 3), s.timerStart},
		{applet.U32("te", "timer stop", 1), s.timerStop},
		{applet.U32("tf", "timer free", 1), s.timerFree},

		{applet.U32("rr", "radio register", 2), s.radioRegister},
		{applet.U32("ru", "radio unregister", 0), s.radioUnregister},
		{applet.U32("rl", "radio read", 2), s.radioRead},

		{applet.U32("usr", "usb serial read", 2), s.serialRead},
		{applet.U32("usw", "usb serial write", 2), s.serialWrite},
		{applet.U32("usf", "usb serial flush", 0), s.serialFlush},
		{applet.U32("use", "usb serial register", 3), s.serialRegister},
		{applet.U32("usd", "usb serial unregister", 1), s.serialUnregister},

		{applet.U32("cas", "aead support", 1), s.aeadSupport},
		{applet.U32("cae", "aead encrypt", 2), s.aeadEncrypt},
		{applet.U32("cad", "aead decrypt", 2), s.aeadDecrypt},

		{applet.U32("si", "store insert", 3), s.storeInsert},
		{applet.U32("sf", "store find", 3), s.storeFind},
		{applet.U32("sr", "store remove", 1), s.storeRemove},

		{applet.U32("rf", "rng fill", 2), s.rngFill},

		{applet.U32("sw", "wait for callback", 0), s.waitCallback},
		{applet.U32("sp", "pending callbacks", 0), s.pendingCallbacks},
	}
	out := make([]applet.Binding, len(fns))
	for i, f := range fns {
		out[i] = applet.Binding{Func: f.fn, Handler: s.metered(f.fn.Link, f.h)}
	}
	return out
}

// Bindings exposes the applet API, for executors linked outside Load.
func (s *Scheduler) Bindings() []applet.Binding { return s.bindings() }

// metered counts host errors and refuses calls from instances that are no
// longer loaded, so a torn-down applet still on the stack cannot register
// anything.
func (s *Scheduler) metered(link string, h applet.Handler) applet.Handler {
	return func(ctx context.Context, c *applet.Call) (int32, error) {
		if _, ok := s.applets[c.Inst]; !ok {
			s.metrics.recordHostError(link)
			return 0, errors.Trap(uint32(c.Inst), link,
				errors.NotFound(errors.PhaseSchedule, "applet", fmt.Sprint(uint32(c.Inst))))
		}
		v, err := h(ctx, c)
		if err != nil {
			s.metrics.recordHostError(link)
		}
		return v, err
	}
}

func index(v uint32) int {
	if v > board.MaxCount {
		return board.MaxCount
	}
	return int(v)
}

func boolWord(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// debug

func (s *Scheduler) debugPrintln(_ context.Context, c *applet.Call) (int32, error) {
	data, err := c.Mem.Read(c.Arg(0), c.Arg(1))
	if err != nil {
		return 0, err
	}
	msg := string(data)
	Logger().Info("applet", zap.Uint32("inst", uint32(c.Inst)), zap.String("msg", msg))
	if s.println != nil {
		s.println(c.Inst, msg)
	}
	return 0, nil
}

// buttons

func (s *Scheduler) buttonCount(context.Context, *applet.Call) (int32, error) {
	return int32(s.support.Buttons), nil
}

func (s *Scheduler) buttonRegister(_ context.Context, c *applet.Call) (int32, error) {
	id, err := board.NewID[board.Button](s.support, index(c.Arg(0)))
	if err != nil {
		return 0, err
	}
	s.register(Handler{Key: ButtonKey(id), Inst: c.Inst, Func: c.Arg(1), Data: c.Arg(2)})
	if err := s.board.Buttons().Enable(id); err != nil {
		s.unregister(ButtonKey(id))
		return 0, err
	}
	return 0, nil
}

func (s *Scheduler) buttonUnregister(_ context.Context, c *applet.Call) (int32, error) {
	id, err := board.NewID[board.Button](s.support, index(c.Arg(0)))
	if err != nil {
		return 0, err
	}
	if err := s.board.Buttons().Disable(id); err != nil {
		return 0, err
	}
	s.unregister(ButtonKey(id))
	return 0, nil
}

// leds

func (s *Scheduler) ledCount(context.Context, *applet.Call) (int32, error) {
	return int32(s.support.LEDs), nil
}

func (s *Scheduler) ledGet(_ context.Context, c *applet.Call) (int32, error) {
	id, err := board.NewID[board.LED](s.support, index(c.Arg(0)))
	if err != nil {
		return 0, err
	}
	return boolWord(s.board.LEDs().Get(id)), nil
}

func (s *Scheduler) ledSet(_ context.Context, c *applet.Call) (int32, error) {
	id, err := board.NewID[board.LED](s.support, index(c.Arg(0)))
	if err != nil {
		return 0, err
	}
	return 0, s.board.LEDs().Set(id, c.Arg(1) != 0)
}

// timers

func (s *Scheduler) timerAllocate(_ context.Context, c *applet.Call) (int32, error) {
	for i, owner := range s.timers {
		if owner != 0 {
			continue
		}
		id, err := board.NewID[board.Timer](s.support, i)
		if err != nil {
			return 0, err
		}
		s.timers[i] = c.Inst
		s.register(Handler{Key: TimerKey(id), Inst: c.Inst, Func: c.Arg(0), Data: c.Arg(1)})
		return int32(i), nil
	}
	return 0, errors.Busy(errors.PhaseApplet, "timer")
}

// ownedTimer validates a timer argument and checks the caller allocated it.
func (s *Scheduler) ownedTimer(c *applet.Call) (board.ID[board.Timer], error) {
	id, err := board.NewID[board.Timer](s.support, index(c.Arg(0)))
	if err != nil {
		return id, err
	}
	if s.timers[id.Index()] != c.Inst {
		return id, errors.InvalidInput(errors.PhaseApplet, fmt.Sprintf("%s is not allocated by the caller", id))
	}
	return id, nil
}

func (s *Scheduler) timerStart(_ context.Context, c *applet.Call) (int32, error) {
	id, err := s.ownedTimer(c)
	if err != nil {
		return 0, err
	}
	cmd := board.TimerCommand{
		Periodic: c.Arg(1) != 0,
		Duration: time.Duration(c.Arg(2)) * time.Millisecond,
	}
	return 0, s.board.Timers().Arm(id, cmd)
}

func (s *Scheduler) timerStop(_ context.Context, c *applet.Call) (int32, error) {
	id, err := s.ownedTimer(c)
	if err != nil {
		return 0, err
	}
	return 0, s.board.Timers().Disarm(id)
}

func (s *Scheduler) timerFree(_ context.Context, c *applet.Call) (int32, error) {
	id, err := s.ownedTimer(c)
	if err != nil {
		return 0, err
	}
	if err := s.board.Timers().Disarm(id); err != nil {
		return 0, err
	}
	s.unregister(TimerKey(id))
	s.timers[id.Index()] = 0
	return 0, nil
}

// radio

func (s *Scheduler) radioRegister(_ context.Context, c *applet.Call) (int32, error) {
	if !s.hasRadio {
		return 0, errors.Unsupported(errors.PhaseApplet, "radio")
	}
	s.register(Handler{Key: RadioKey(), Inst: c.Inst, Func: c.Arg(0), Data: c.Arg(1)})
	if err := s.board.Radio().Enable(); err != nil {
		s.unregister(RadioKey())
		return 0, err
	}
	return 0, nil
}

func (s *Scheduler) radioUnregister(context.Context, *applet.Call) (int32, error) {
	if !s.hasRadio {
		return 0, errors.Unsupported(errors.PhaseApplet, "radio")
	}
	if err := s.board.Radio().Disable(); err != nil {
		return 0, err
	}
	s.unregister(RadioKey())
	return 0, nil
}

func (s *Scheduler) radioRead(_ context.Context, c *applet.Call) (int32, error) {
	if !s.hasRadio {
		return 0, errors.Unsupported(errors.PhaseApplet, "radio")
	}
	dst, err := c.Mem.Read(c.Arg(0), c.Arg(1))
	if err != nil {
		return 0, err
	}
	n, err := s.board.Radio().Read(dst)
	return int32(n), err
}

// usb serial

func (s *Scheduler) serialRead(_ context.Context, c *applet.Call) (int32, error) {
	if !s.hasSerial {
		return 0, errors.Unsupported(errors.PhaseApplet, "usb_serial")
	}
	dst, err := c.Mem.Read(c.Arg(0), c.Arg(1))
	if err != nil {
		return 0, err
	}
	n, err := s.board.Serial().Read(dst)
	return int32(n), err
}

func (s *Scheduler) serialWrite(_ context.Context, c *applet.Call) (int32, error) {
	if !s.hasSerial {
		return 0, errors.Unsupported(errors.PhaseApplet, "usb_serial")
	}
	src, err := c.Mem.Read(c.Arg(0), c.Arg(1))
	if err != nil {
		return 0, err
	}
	n, err := s.board.Serial().Write(src)
	return int32(n), err
}

func (s *Scheduler) serialFlush(context.Context, *applet.Call) (int32, error) {
	if !s.hasSerial {
		return 0, errors.Unsupported(errors.PhaseApplet, "usb_serial")
	}
	return 0, s.board.Serial().Flush()
}

func serialKind(v uint32) (board.SerialEventKind, error) {
	switch k := board.SerialEventKind(v); k {
	case board.SerialRead, board.SerialWrite:
		if uint32(k) == v {
			return k, nil
		}
	}
	return 0, errors.InvalidInput(errors.PhaseApplet, fmt.Sprintf("unknown serial event %d", v))
}

func (s *Scheduler) serialRegister(_ context.Context, c *applet.Call) (int32, error) {
	if !s.hasSerial {
		return 0, errors.Unsupported(errors.PhaseApplet, "usb_serial")
	}
	kind, err := serialKind(c.Arg(0))
	if err != nil {
		return 0, err
	}
	s.register(Handler{Key: SerialKey(kind), Inst: c.Inst, Func: c.Arg(1), Data: c.Arg(2)})
	if err := s.board.Serial().Enable(kind); err != nil {
		s.unregister(SerialKey(kind))
		return 0, err
	}
	return 0, nil
}

func (s *Scheduler) serialUnregister(_ context.Context, c *applet.Call) (int32, error) {
	if !s.hasSerial {
		return 0, errors.Unsupported(errors.PhaseApplet, "usb_serial")
	}
	kind, err := serialKind(c.Arg(0))
	if err != nil {
		return 0, err
	}
	if err := s.board.Serial().Disable(kind); err != nil {
		return 0, err
	}
	s.unregister(SerialKey(kind))
	return 0, nil
}

// aead

// aeadArgs is the argument block of cae and cad: eight little-endian words.
type aeadArgs struct {
	key, iv, aad, aadLen, length, clear, cipher, tag uint32
}

const aeadArgsSize = 32

func (s *Scheduler) cipher(v uint32) (aead.Cipher, error) {
	alg := aead.Algorithm(v)
	if alg.String() == "unknown" {
		return nil, errors.InvalidInput(errors.PhaseApplet, fmt.Sprintf("unknown aead algorithm %d", v))
	}
	c := s.board.Crypto().AEAD(alg)
	if !c.Support().Supported() {
		return nil, errors.Unsupported(errors.PhaseApplet, alg.String())
	}
	return c, nil
}

func readAEADArgs(c *applet.Call) (aeadArgs, error) {
	raw, err := c.Mem.Read(c.Arg(1), aeadArgsSize)
	if err != nil {
		return aeadArgs{}, err
	}
	w := func(i int) uint32 { return binary.LittleEndian.Uint32(raw[4*i:]) }
	return aeadArgs{
		key: w(0), iv: w(1), aad: w(2), aadLen: w(3),
		length: w(4), clear: w(5), cipher: w(6), tag: w(7),
	}, nil
}

// overlapsPartially reports two equal-length ranges that overlap without
// being identical.
func overlapsPartially(a, b, n uint32) bool {
	if a == b || n == 0 {
		return false
	}
	return uint64(a) < uint64(b)+uint64(n) && uint64(b) < uint64(a)+uint64(n)
}

// aeadBuffers resolves the views used by Encrypt and Decrypt. input is nil
// when its pointer is 0.
func aeadBuffers(c *applet.Call, ci aead.Cipher, a aeadArgs, inPtr, outPtr uint32) (key, iv, aad, in, out, tag []byte, err error) {
	if key, err = c.Mem.Read(a.key, uint32(ci.KeySize())); err != nil {
		return
	}
	if iv, err = c.Mem.Read(a.iv, uint32(ci.IVSize())); err != nil {
		return
	}
	if aad, err = c.Mem.Read(a.aad, a.aadLen); err != nil {
		return
	}
	if tag, err = c.Mem.Read(a.tag, uint32(ci.TagSize())); err != nil {
		return
	}
	if out, err = c.Mem.Read(outPtr, a.length); err != nil {
		return
	}
	if inPtr != 0 {
		if overlapsPartially(inPtr, outPtr, a.length) {
			err = errors.InvalidInput(errors.PhaseApplet, "aead input and output partially overlap")
			return
		}
		if in, err = c.Mem.Read(inPtr, a.length); err != nil {
			return
		}
	}
	return
}

func (s *Scheduler) aeadSupport(_ context.Context, c *applet.Call) (int32, error) {
	alg := aead.Algorithm(c.Arg(0))
	if alg.String() == "unknown" {
		return 0, errors.InvalidInput(errors.PhaseApplet, fmt.Sprintf("unknown aead algorithm %d", c.Arg(0)))
	}
	return int32(s.board.Crypto().AEAD(alg).Support().Bits()), nil
}

func (s *Scheduler) aeadEncrypt(_ context.Context, c *applet.Call) (int32, error) {
	ci, err := s.cipher(c.Arg(0))
	if err != nil {
		return 0, err
	}
	a, err := readAEADArgs(c)
	if err != nil {
		return 0, err
	}
	key, iv, aad, clear, cipher, tag, err := aeadBuffers(c, ci, a, a.clear, a.cipher)
	if err != nil {
		return 0, err
	}
	return 0, ci.Encrypt(key, iv, aad, clear, cipher, tag)
}

func (s *Scheduler) aeadDecrypt(_ context.Context, c *applet.Call) (int32, error) {
	ci, err := s.cipher(c.Arg(0))
	if err != nil {
		return 0, err
	}
	a, err := readAEADArgs(c)
	if err != nil {
		return 0, err
	}
	key, iv, aad, cipher, clear, tag, err := aeadBuffers(c, ci, a, a.cipher, a.clear)
	if err != nil {
		return 0, err
	}
	return 0, ci.Decrypt(key, iv, aad, cipher, tag, clear)
}

// store

func (s *Scheduler) region(c *applet.Call) (board.Region, uint16, error) {
	if !s.hasStorage {
		return nil, 0, errors.Unsupported(errors.PhaseApplet, "storage")
	}
	st, ok := s.applets[c.Inst]
	if !ok || st.region == nil {
		return nil, 0, errors.NotInitialized(errors.PhaseApplet, "storage region")
	}
	key := c.Arg(0)
	if key > 0xFFFF {
		return nil, 0, errors.InvalidInput(errors.PhaseApplet, fmt.Sprintf("store key %d out of range", key))
	}
	return st.region, uint16(key), nil
}

func (s *Scheduler) storeInsert(_ context.Context, c *applet.Call) (int32, error) {
	r, key, err := s.region(c)
	if err != nil {
		return 0, err
	}
	value, err := c.Mem.Read(c.Arg(1), c.Arg(2))
	if err != nil {
		return 0, err
	}
	return 0, r.Insert(key, append([]byte(nil), value...))
}

// storeFind copies as much of the value as fits and returns its full length.
func (s *Scheduler) storeFind(_ context.Context, c *applet.Call) (int32, error) {
	r, key, err := s.region(c)
	if err != nil {
		return 0, err
	}
	value, err := r.Find(key)
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, errors.NotFound(errors.PhaseStorage, "key", fmt.Sprint(key))
	}
	dst, err := c.Mem.Read(c.Arg(1), c.Arg(2))
	if err != nil {
		return 0, err
	}
	copy(dst, value)
	return int32(len(value)), nil
}

func (s *Scheduler) storeRemove(_ context.Context, c *applet.Call) (int32, error) {
	r, key, err := s.region(c)
	if err != nil {
		return 0, err
	}
	return 0, r.Remove(key)
}

// rng

func (s *Scheduler) rngFill(_ context.Context, c *applet.Call) (int32, error) {
	dst, err := c.Mem.Read(c.Arg(0), c.Arg(1))
	if err != nil {
		return 0, err
	}
	return 0, s.board.Entropy(dst)
}

// scheduling

// waitCallback runs exactly one callback before returning to the applet. If
// that callback trapped and tore the caller down, the caller traps too.
func (s *Scheduler) waitCallback(ctx context.Context, c *applet.Call) (int32, error) {
	if s.depth >= s.maxNesting {
		return 0, errors.Busy(errors.PhaseSchedule, "callback nesting")
	}
	s.depth++
	defer func() { s.depth-- }()
	if err := s.Step(ctx); err != nil {
		return 0, err
	}
	if _, ok := s.applets[c.Inst]; !ok {
		return 0, errors.Trap(uint32(c.Inst), "sw",
			errors.NotFound(errors.PhaseSchedule, "applet", fmt.Sprint(uint32(c.Inst))))
	}
	return 0, nil
}

func (s *Scheduler) pendingCallbacks(context.Context, *applet.Call) (int32, error) {
	return int32(s.board.Events().Len()), nil
}
