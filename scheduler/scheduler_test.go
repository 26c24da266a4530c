package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/firmlet/applet"
	"github.com/wippyai/firmlet/board"
	"github.com/wippyai/firmlet/errors"
)

func mustID[C board.Capability](t *testing.T, s board.Support, i int) board.ID[C] {
	t.Helper()
	id, err := board.NewID[C](s, i)
	require.NoError(t, err)
	return id
}

type harness struct {
	board *fakeBoard
	exec  *fakeExec
	sched *Scheduler
	inst  applet.InstID
	mets  *Metrics
}

func newHarness(t *testing.T, sup board.Support, policy TrapPolicy) *harness {
	t.Helper()
	b := newFakeBoard(sup)
	x := newFakeExec()
	m := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, m.Register())
	s, err := New(b, x, &Config{TrapPolicy: policy, Metrics: m})
	require.NoError(t, err)
	inst, err := s.Load(context.Background(), "app", nil)
	require.NoError(t, err)
	return &harness{board: b, exec: x, sched: s, inst: inst, mets: m}
}

func (h *harness) call(link string, args ...uint32) int32 {
	return h.exec.call(context.Background(), h.inst, nil, link, args...)
}

// callbacks returns the recorded invocations other than main and init.
func (h *harness) callbacks() []invocation {
	var out []invocation
	for _, c := range h.exec.calls {
		if c.export != applet.ExportMain && c.export != applet.ExportInit {
			out = append(out, c)
		}
	}
	return out
}

func (h *harness) drain(t *testing.T) {
	t.Helper()
	for h.board.events.Len() > 0 {
		require.NoError(t, h.sched.Step(context.Background()))
	}
}

func TestKeyOf(t *testing.T) {
	sup := board.Support{Buttons: 4, Timers: 2, Radio: 1, USBSerial: 1}
	b2 := mustID[board.Button](t, sup, 2)
	t1 := mustID[board.Timer](t, sup, 1)

	tests := []struct {
		event board.Event
		want  Key
	}{
		{board.ButtonEvent{Button: b2, Pressed: true}, Key{Kind: board.KindButton, Index: 2}},
		{board.ButtonEvent{Button: b2, Pressed: false}, Key{Kind: board.KindButton, Index: 2}},
		{board.TimerEvent{Timer: t1}, Key{Kind: board.KindTimer, Index: 1}},
		{board.RadioEvent{Kind: board.RadioReceived}, Key{Kind: board.KindRadio}},
		{board.USBEvent{Kind: board.SerialRead}, Key{Kind: board.KindUSBSerial, Sub: 0}},
		{board.USBEvent{Kind: board.SerialWrite}, Key{Kind: board.KindUSBSerial, Sub: 1}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KeyOf(tt.event), "%#v", tt.event)
	}
	assert.NotEqual(t, ButtonKey(b2), TimerKey(mustID[board.Timer](t, sup, 1)))
	assert.Equal(t, "button#2", ButtonKey(b2).String())

	var ev board.Event = board.ButtonEvent{Button: b2}
	allocs := testing.AllocsPerRun(100, func() {
		_ = KeyOf(ev)
	})
	assert.Zero(t, allocs)
}

func TestRegistryOverwrite(t *testing.T) {
	r := newRegistry()
	k := Key{Kind: board.KindRadio}
	assert.False(t, r.register(Handler{Key: k, Inst: 1, Func: 1}))
	assert.True(t, r.register(Handler{Key: k, Inst: 2, Func: 2}))
	h, ok := r.lookup(k)
	require.True(t, ok)
	assert.Equal(t, applet.InstID(2), h.Inst)
	assert.Equal(t, 1, r.len())
	assert.True(t, r.unregister(k))
	assert.False(t, r.unregister(k))
}

func TestFourButtonScenario(t *testing.T) {
	sup := board.Support{Buttons: 4, LEDs: 4}
	h := newHarness(t, sup, TrapTeardown)

	for i := uint32(0); i < 4; i++ {
		require.Equal(t, int32(0), h.call("br", i, 100+i, 200+i))
	}
	for i := 0; i < 4; i++ {
		require.True(t, h.board.enabled[i], "button %d not enabled", i)
	}

	for i := 0; i < 4; i++ {
		id := mustID[board.Button](t, sup, i)
		require.True(t, h.board.events.Push(board.ButtonEvent{Button: id, Pressed: true}))
	}
	h.drain(t)

	got := h.callbacks()
	require.Len(t, got, 4)
	for i, c := range got {
		assert.Equal(t, "cb1", c.export)
		assert.Equal(t, h.inst, c.inst)
		assert.Equal(t, []uint32{100 + uint32(i), 200 + uint32(i), 1}, c.args)
	}
	assert.Equal(t, 4.0, testutil.ToFloat64(h.mets.dispatched.WithLabelValues("button")))
}

func TestUnregisterPurgesQueuedEvents(t *testing.T) {
	sup := board.Support{Buttons: 3}
	h := newHarness(t, sup, TrapTeardown)
	for i := uint32(0); i < 3; i++ {
		require.Equal(t, int32(0), h.call("br", i, i, 0))
	}

	b0 := mustID[board.Button](t, sup, 0)
	b1 := mustID[board.Button](t, sup, 1)
	b2 := mustID[board.Button](t, sup, 2)
	for _, id := range []board.ID[board.Button]{b1, b0, b1, b2, b1} {
		h.board.events.Push(board.ButtonEvent{Button: id, Pressed: true})
	}

	require.Equal(t, int32(0), h.call("bu", 1))
	assert.False(t, h.sched.Registered(ButtonKey(b1)))
	assert.False(t, h.board.enabled[1])
	assert.Equal(t, 2, h.board.events.Len())
	assert.Equal(t, 3.0, testutil.ToFloat64(h.mets.purged))

	h.drain(t)
	got := h.callbacks()
	require.Len(t, got, 2)
	assert.Equal(t, uint32(0), got[0].args[0])
	assert.Equal(t, uint32(2), got[1].args[0])
}

func TestMissingHandlerIsDropped(t *testing.T) {
	sup := board.Support{Buttons: 2}
	h := newHarness(t, sup, TrapTeardown)

	h.board.events.Push(board.ButtonEvent{Button: mustID[board.Button](t, sup, 1)})
	require.NoError(t, h.sched.Step(context.Background()))
	assert.Empty(t, h.callbacks())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.mets.unhandled.WithLabelValues("button")))
}

func TestGlobalFIFOAcrossSources(t *testing.T) {
	sup := board.Support{Buttons: 1, Timers: 1, Radio: 1}
	h := newHarness(t, sup, TrapTeardown)
	require.Equal(t, int32(0), h.call("br", 0, 1, 0))
	require.Equal(t, int32(0), h.call("ta", 2, 0))
	require.Equal(t, int32(0), h.call("rr", 3, 0))
	require.True(t, h.board.radioOn)

	h.board.events.Push(board.TimerEvent{Timer: mustID[board.Timer](t, sup, 0)})
	h.board.events.Push(board.RadioEvent{Kind: board.RadioReceived})
	h.board.events.Push(board.ButtonEvent{Button: mustID[board.Button](t, sup, 0), Pressed: false})
	h.drain(t)

	got := h.callbacks()
	require.Len(t, got, 3)
	assert.Equal(t, invocation{inst: h.inst, export: "cb0", args: []uint32{2, 0}}, got[0])
	assert.Equal(t, invocation{inst: h.inst, export: "cb0", args: []uint32{3, 0}}, got[1])
	assert.Equal(t, invocation{inst: h.inst, export: "cb1", args: []uint32{1, 0, 0}}, got[2])
}

func TestInvalidIdentifiersAreRejected(t *testing.T) {
	sup := board.Support{Buttons: 2, LEDs: 1}
	h := newHarness(t, sup, TrapTeardown)

	assert.Equal(t, int32(applet.CodeInvalidArgument), h.call("br", 2, 0, 0))
	assert.Equal(t, int32(applet.CodeInvalidArgument), h.call("bu", 0xFFFFFFFF))
	assert.Equal(t, int32(applet.CodeInvalidArgument), h.call("lg", 1))
	assert.Equal(t, int32(applet.CodeInvalidArgument), h.call("tb", 0, 0, 10))
	assert.Equal(t, 0, h.sched.Handlers())
}

func TestZeroCountCapabilitiesAreUnreachable(t *testing.T) {
	h := newHarness(t, board.Support{}, TrapTeardown)

	assert.Equal(t, int32(0), h.call("bc"))
	assert.Equal(t, int32(applet.CodeInvalidArgument), h.call("br", 0, 0, 0))
	assert.Equal(t, int32(applet.CodeBusy), h.call("ta", 0, 0))
	assert.Equal(t, int32(applet.CodeNotSupported), h.call("rr", 0, 0))
	assert.Equal(t, int32(applet.CodeNotSupported), h.call("rl", 0, 0))
	assert.Equal(t, int32(applet.CodeNotSupported), h.call("use", 0, 0, 0))
	assert.Equal(t, int32(applet.CodeNotSupported), h.call("si", 0, 0, 0))
}

func TestLEDs(t *testing.T) {
	sup := board.Support{LEDs: 2}
	h := newHarness(t, sup, TrapTeardown)
	assert.Equal(t, int32(2), h.call("lc"))
	assert.Equal(t, int32(0), h.call("ls", 1, 1))
	assert.Equal(t, int32(1), h.call("lg", 1))
	assert.Equal(t, int32(0), h.call("lg", 0))
}

func TestTimers(t *testing.T) {
	sup := board.Support{Timers: 2}
	h := newHarness(t, sup, TrapTeardown)

	assert.Equal(t, int32(0), h.call("ta", 7, 8))
	assert.Equal(t, int32(1), h.call("ta", 9, 10))
	assert.Equal(t, int32(applet.CodeBusy), h.call("ta", 0, 0))

	assert.Equal(t, int32(0), h.call("tb", 1, 1, 250))
	assert.Equal(t, board.TimerCommand{Periodic: true, Duration: 250 * time.Millisecond}, h.board.armed[1])

	// another instance cannot drive a timer it does not own
	assert.Equal(t, int32(applet.CodeInvalidArgument),
		h.exec.call(context.Background(), h.inst+1, nil, "tb", 1, 0, 5))

	h.board.events.Push(board.TimerEvent{Timer: mustID[board.Timer](t, sup, 1)})
	assert.Equal(t, int32(0), h.call("tf", 1))
	assert.Equal(t, 0, h.board.events.Len(), "free must purge the queued timer event")
	_, armed := h.board.armed[1]
	assert.False(t, armed)
	assert.Equal(t, int32(1), h.call("ta", 0, 0), "freed slot is reused")
}

func TestTrapTeardown(t *testing.T) {
	sup := board.Support{Buttons: 2, Timers: 1}
	h := newHarness(t, sup, TrapTeardown)
	require.Equal(t, int32(0), h.call("br", 0, 1, 0))
	require.Equal(t, int32(0), h.call("br", 1, 2, 0))
	require.Equal(t, int32(0), h.call("ta", 3, 0))
	require.Equal(t, int32(0), h.call("tb", 0, 1, 100))
	h.exec.traps["cb1"] = true

	b0 := mustID[board.Button](t, sup, 0)
	b1 := mustID[board.Button](t, sup, 1)
	h.board.events.Push(board.ButtonEvent{Button: b0, Pressed: true})
	h.board.events.Push(board.ButtonEvent{Button: b1, Pressed: true})

	require.NoError(t, h.sched.Step(context.Background()))
	assert.Equal(t, 0, h.sched.Handlers())
	assert.Equal(t, 0, h.board.events.Len())
	assert.Empty(t, h.board.armed)
	assert.Empty(t, h.board.enabled)
	assert.Equal(t, []applet.InstID{h.inst}, h.exec.released)
	assert.Empty(t, h.sched.Applets())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.mets.traps.WithLabelValues("teardown")))
}

func TestTrapInsideWaitTearsDownCaller(t *testing.T) {
	ctx := context.Background()
	sup := board.Support{Buttons: 1}
	h := newHarness(t, sup, TrapTeardown)
	require.Equal(t, int32(0), h.call("br", 0, 1, 0))
	h.exec.traps["cb1"] = true

	b0 := mustID[board.Button](t, sup, 0)
	h.board.events.Push(board.ButtonEvent{Button: b0, Pressed: true})

	_, err := h.exec.callErr(ctx, h.inst, nil, "sw")
	assert.Equal(t, errors.KindTrap, errors.KindOf(err), "sw must not return to a torn-down applet")

	// the caller keeps running in a real executor; nothing it does may stick
	_, err = h.exec.callErr(ctx, h.inst, nil, "br", 0, 7, 7)
	assert.Equal(t, errors.KindTrap, errors.KindOf(err))

	assert.Equal(t, 0, h.sched.Handlers())
	assert.False(t, h.sched.Registered(ButtonKey(b0)))
	assert.Empty(t, h.board.enabled)
	assert.Empty(t, h.sched.Applets())
	assert.Equal(t, []applet.InstID{h.inst}, h.exec.released)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.mets.traps.WithLabelValues("teardown")))

	// the outer trap of the caller is not counted twice
	require.NoError(t, h.sched.settle(ctx, h.inst, applet.ExportMain, err))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.mets.traps.WithLabelValues("teardown")))
}

func TestUnloadDisarmsTimerBeforePurge(t *testing.T) {
	ctx := context.Background()
	sup := board.Support{Timers: 1}
	h := newHarness(t, sup, TrapTeardown)
	require.Equal(t, int32(0), h.call("ta", 3, 0))
	require.Equal(t, int32(0), h.call("tb", 0, 1, 100))

	t0 := mustID[board.Timer](t, sup, 0)
	h.board.events.afterRemove = func() {
		if _, armed := h.board.armed[0]; armed {
			h.board.events.Push(board.TimerEvent{Timer: t0})
		}
	}
	require.NoError(t, h.sched.Unload(ctx, h.inst))
	assert.Empty(t, h.board.armed)
	assert.Equal(t, 0, h.board.events.Len(), "expiry after the purge left a stale event")

	next, err := h.sched.Load(ctx, "next", nil)
	require.NoError(t, err)
	require.Equal(t, int32(0), h.exec.call(ctx, next, nil, "ta", 9, 9))
	assert.Equal(t, 0, h.board.events.Len())
}

func TestTrapContinue(t *testing.T) {
	sup := board.Support{Buttons: 1}
	h := newHarness(t, sup, TrapContinue)
	require.Equal(t, int32(0), h.call("br", 0, 1, 0))
	h.exec.traps["cb1"] = true

	b0 := mustID[board.Button](t, sup, 0)
	h.board.events.Push(board.ButtonEvent{Button: b0, Pressed: true})
	h.board.events.Push(board.ButtonEvent{Button: b0, Pressed: false})
	h.drain(t)

	assert.Len(t, h.callbacks(), 2)
	assert.Equal(t, 1, h.sched.Handlers())
	assert.Empty(t, h.exec.released)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	b := newFakeBoard(board.Support{Storage: 1})
	x := newFakeExec()
	x.exports["init"] = true
	s, err := New(b, x, nil)
	require.NoError(t, err)

	a, err := s.Load(ctx, "a", nil)
	require.NoError(t, err)
	_, err = s.Load(ctx, "b", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, x.links)
	assert.Equal(t, "init", x.calls[0].export)
	assert.Contains(t, b.store.regions, "a")
	assert.Contains(t, b.store.regions, "b")

	delete(x.exports, "main")
	_, err = s.Load(ctx, "c", nil)
	assert.Equal(t, errors.KindMissingExport, errors.KindOf(err))
	assert.Len(t, s.Applets(), 2)

	require.NoError(t, s.Unload(ctx, a))
	assert.Equal(t, errors.KindNotFound, errors.KindOf(s.Unload(ctx, a)))
}

func TestLoadRejectsInvalidSupport(t *testing.T) {
	_, err := New(newFakeBoard(board.Support{Radio: 2}), newFakeExec(), nil)
	assert.Error(t, err)
}

func TestRunStartsMainAndStopsOnCancel(t *testing.T) {
	sup := board.Support{Buttons: 1}
	b := newFakeBoard(sup)
	x := newFakeExec()
	s, err := New(b, x, nil)
	require.NoError(t, err)
	inst, err := s.Load(context.Background(), "app", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	x.onInvoke = func(ctx context.Context, inv invocation) error {
		switch inv.export {
		case "main":
			x.call(ctx, inst, nil, "br", 0, 5, 6)
			b.events.Push(board.ButtonEvent{Button: mustID[board.Button](t, sup, 0), Pressed: true})
		case "cb1":
			cancel()
		}
		return nil
	}

	err = s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, x.calls, 2)
	assert.Equal(t, "main", x.calls[0].export)
	assert.Equal(t, []uint32{5, 6, 1}, x.calls[1].args)
}

func TestWaitCallbackRunsOneNestedCallback(t *testing.T) {
	sup := board.Support{Buttons: 1}
	h := newHarness(t, sup, TrapTeardown)
	require.Equal(t, int32(0), h.call("br", 0, 1, 0))

	b0 := mustID[board.Button](t, sup, 0)
	h.board.events.Push(board.ButtonEvent{Button: b0, Pressed: true})
	h.board.events.Push(board.ButtonEvent{Button: b0, Pressed: false})
	assert.Equal(t, int32(2), h.call("sp"))

	assert.Equal(t, int32(0), h.call("sw"))
	assert.Len(t, h.callbacks(), 1)
	assert.Equal(t, int32(1), h.call("sp"))
}

func TestWaitCallbackNestingLimit(t *testing.T) {
	sup := board.Support{Buttons: 1}
	b := newFakeBoard(sup)
	x := newFakeExec()
	s, err := New(b, x, &Config{MaxNesting: 2})
	require.NoError(t, err)
	inst, err := s.Load(context.Background(), "app", nil)
	require.NoError(t, err)
	require.Equal(t, int32(0), x.call(context.Background(), inst, nil, "br", 0, 0, 0))

	var results []int32
	x.onInvoke = func(ctx context.Context, inv invocation) error {
		if inv.export == "cb1" {
			results = append(results, x.call(ctx, inst, nil, "sw"))
		}
		return nil
	}
	b0 := mustID[board.Button](t, sup, 0)
	for i := 0; i < 3; i++ {
		b.events.Push(board.ButtonEvent{Button: b0})
	}
	require.NoError(t, s.Step(context.Background()))
	// depth 0 -> sw (1) -> sw (2) -> refused
	assert.Equal(t, []int32{int32(applet.CodeBusy), 0, 0}, results)
}

func TestDebugPrintln(t *testing.T) {
	var got string
	b := newFakeBoard(board.Support{})
	x := newFakeExec()
	s, err := New(b, x, &Config{Println: func(_ applet.InstID, msg string) { got = msg }})
	require.NoError(t, err)
	inst, err := s.Load(context.Background(), "app", nil)
	require.NoError(t, err)

	mem := newSliceMemory(64)
	copy(mem.data[8:], "hello")
	assert.Equal(t, int32(0), x.call(context.Background(), inst, mem, "dp", 8, 5))
	assert.Equal(t, "hello", got)
	assert.Equal(t, int32(applet.CodeOutOfBounds), x.call(context.Background(), inst, mem, "dp", 60, 8))
}

func TestParseTrapPolicy(t *testing.T) {
	p, err := ParseTrapPolicy("Continue")
	require.NoError(t, err)
	assert.Equal(t, TrapContinue, p)
	p, err = ParseTrapPolicy("")
	require.NoError(t, err)
	assert.Equal(t, TrapTeardown, p)
	_, err = ParseTrapPolicy("explode")
	assert.Error(t, err)
}
