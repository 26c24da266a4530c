package scheduler

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/firmlet/applet"
	"github.com/wippyai/firmlet/board"
	"github.com/wippyai/firmlet/errors"
)

// Executor runs applet instances.
type Executor interface {
	// Link installs the host functions. It is called once, before the first
	// Instantiate.
	Link(ctx context.Context, bindings []applet.Binding) error
	Instantiate(ctx context.Context, name string, bin []byte) (applet.InstID, error)
	// Invoke runs export to completion. A trap is an *errors.Error of
	// KindTrap; a canceled ctx is reported as ctx.Err().
	Invoke(ctx context.Context, inst applet.InstID, export string, args []uint32) error
	HasExport(inst applet.InstID, export string) bool
	Release(ctx context.Context, inst applet.InstID) error
}

// TrapPolicy decides what happens to an applet whose callback traps.
type TrapPolicy int

const (
	// TrapTeardown unregisters every handler of the instance, purges its
	// queued events, frees its timers and releases it.
	TrapTeardown TrapPolicy = iota
	// TrapContinue logs the trap and keeps the instance and its handlers.
	TrapContinue
)

func (p TrapPolicy) String() string {
	switch p {
	case TrapTeardown:
		return "teardown"
	case TrapContinue:
		return "continue"
	default:
		return "unknown"
	}
}

// ParseTrapPolicy maps a configuration name to a TrapPolicy.
func ParseTrapPolicy(s string) (TrapPolicy, error) {
	switch strings.ToLower(s) {
	case "", "teardown":
		return TrapTeardown, nil
	case "continue":
		return TrapContinue, nil
	}
	return 0, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown trap policy %q", s))
}

// DefaultMaxNesting bounds how deep the "sw" host function may nest
// callbacks inside each other.
const DefaultMaxNesting = 8

// Config holds scheduler options.
type Config struct {
	// Metrics is optional.
	Metrics *Metrics
	// Println receives applet debug output in addition to the logger.
	Println    func(inst applet.InstID, msg string)
	TrapPolicy TrapPolicy
	// MaxNesting overrides DefaultMaxNesting when positive.
	MaxNesting int
}

type appletState struct {
	region  board.Region
	name    string
	id      applet.InstID
	started bool
}

// Scheduler dispatches board events to applet callbacks. Its methods must be
// called from a single goroutine, the one running Run.
type Scheduler struct {
	board   board.Board
	exec    Executor
	support board.Support
	reg     *registry
	metrics *Metrics
	println func(applet.InstID, string)
	applets map[applet.InstID]*appletState
	// timers holds the owner of each timer slot; zero means free.
	timers     []applet.InstID
	order      []applet.InstID
	policy     TrapPolicy
	maxNesting int
	depth      int
	hasRadio   bool
	hasSerial  bool
	hasStorage bool
	linked     bool
}

// New creates a scheduler for b that runs applets on exec.
func New(b board.Board, exec Executor, cfg *Config) (*Scheduler, error) {
	sup := b.Support()
	if err := sup.Validate(); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &Config{}
	}
	s := &Scheduler{
		board:      b,
		exec:       exec,
		support:    sup,
		reg:        newRegistry(),
		metrics:    cfg.Metrics,
		println:    cfg.Println,
		applets:    make(map[applet.InstID]*appletState),
		timers:     make([]applet.InstID, sup.Timers),
		policy:     cfg.TrapPolicy,
		maxNesting: cfg.MaxNesting,
	}
	if s.maxNesting <= 0 {
		s.maxNesting = DefaultMaxNesting
	}
	// Singleton capabilities are checked once through their identifier.
	_, err := board.NewID[board.Radio](sup, 0)
	s.hasRadio = err == nil
	_, err = board.NewID[board.USBSerial](sup, 0)
	s.hasSerial = err == nil
	_, err = board.NewID[board.Storage](sup, 0)
	s.hasStorage = err == nil
	return s, nil
}

// Load instantiates an applet and runs its optional init export. Its main
// export runs when Run starts.
func (s *Scheduler) Load(ctx context.Context, name string, bin []byte) (applet.InstID, error) {
	if !s.linked {
		if err := s.exec.Link(ctx, s.bindings()); err != nil {
			return 0, err
		}
		s.linked = true
	}

	id, err := s.exec.Instantiate(ctx, name, bin)
	if err != nil {
		return 0, err
	}
	if !s.exec.HasExport(id, applet.ExportMain) {
		_ = s.exec.Release(ctx, id)
		return 0, errors.MissingExport(uint32(id), applet.ExportMain)
	}

	st := &appletState{id: id, name: name}
	if s.hasStorage {
		region, err := s.board.Storage().Open(name)
		if err != nil {
			_ = s.exec.Release(ctx, id)
			return 0, err
		}
		st.region = region
	}
	s.applets[id] = st
	s.order = append(s.order, id)

	if s.exec.HasExport(id, applet.ExportInit) {
		if err := s.exec.Invoke(ctx, id, applet.ExportInit, nil); err != nil {
			s.unload(ctx, id)
			return 0, err
		}
	}
	Logger().Info("applet loaded", zap.String("name", name), zap.Uint32("inst", uint32(id)))
	return id, nil
}

// Unload unregisters every handler of inst, purges its queued events, frees
// its timers and releases the instance.
func (s *Scheduler) Unload(ctx context.Context, inst applet.InstID) error {
	if _, ok := s.applets[inst]; !ok {
		return errors.NotFound(errors.PhaseSchedule, "applet", fmt.Sprint(uint32(inst)))
	}
	s.unload(ctx, inst)
	return nil
}

func (s *Scheduler) unload(ctx context.Context, inst applet.InstID) {
	for _, k := range s.reg.keysOf(inst) {
		s.quiesce(k)
		s.unregister(k)
	}
	for i, owner := range s.timers {
		if owner == inst {
			s.timers[i] = 0
		}
	}
	delete(s.applets, inst)
	for i, id := range s.order {
		if id == inst {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if err := s.exec.Release(ctx, inst); err != nil {
		Logger().Warn("release failed", zap.Uint32("inst", uint32(inst)), zap.Error(err))
	}
}

// Run starts the main export of every loaded applet, then dispatches events
// until ctx is done. It returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := s.startPending(ctx); err != nil {
			return err
		}
		if err := s.Step(ctx); err != nil {
			return err
		}
	}
}

func (s *Scheduler) startPending(ctx context.Context) error {
	for _, id := range append([]applet.InstID(nil), s.order...) {
		st, ok := s.applets[id]
		if !ok || st.started {
			continue
		}
		st.started = true
		err := s.exec.Invoke(ctx, id, applet.ExportMain, nil)
		if err := s.settle(ctx, id, applet.ExportMain, err); err != nil {
			return err
		}
		if _, ok := s.applets[id]; ok {
			Logger().Debug("applet main returned", zap.Uint32("inst", uint32(id)))
		}
	}
	return nil
}

// Step processes exactly one event, sleeping until one is available.
func (s *Scheduler) Step(ctx context.Context) error {
	events := s.board.Events()
	for {
		if ev, ok := events.Pop(); ok {
			return s.process(ctx, ev)
		}
		if err := events.Wait(ctx); err != nil {
			return err
		}
	}
}

// process dispatches one event to its handler. Only cancellation of ctx is
// returned; a missing handler or a trap is handled here.
func (s *Scheduler) process(ctx context.Context, ev board.Event) error {
	key := KeyOf(ev)
	kind := ev.Source().String()
	h, ok := s.reg.lookup(key)
	if !ok {
		Logger().Error("missing handler for event", zap.Stringer("key", key))
		s.metrics.recordUnhandled(kind)
		return nil
	}

	extra, n := extraArgs(ev)
	args := make([]uint32, 0, 2+n)
	args = append(args, h.Func, h.Data)
	args = append(args, extra[:n]...)
	export := applet.CallbackExport(n)

	s.metrics.recordDispatched(kind)
	err := s.exec.Invoke(ctx, h.Inst, export, args)
	return s.settle(ctx, h.Inst, export, err)
}

// settle applies the trap policy to the outcome of an invocation.
func (s *Scheduler) settle(ctx context.Context, inst applet.InstID, export string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if _, ok := s.applets[inst]; !ok {
		// already torn down by a nested callback
		return nil
	}
	Logger().Error("applet trapped",
		zap.Uint32("inst", uint32(inst)),
		zap.String("export", export),
		zap.Stringer("policy", s.policy),
		zap.Error(err))
	s.metrics.recordTrap(s.policy.String())
	if s.policy == TrapTeardown {
		s.unload(ctx, inst)
	}
	return nil
}

func (s *Scheduler) register(h Handler) {
	if s.reg.register(h) {
		Logger().Debug("handler replaced", zap.Stringer("key", h.Key))
	}
}

// unregister removes the handler for k and purges its queued events.
func (s *Scheduler) unregister(k Key) {
	s.reg.unregister(k)
	n := s.board.Events().Remove(func(e board.Event) bool { return KeyOf(e) == k })
	if n > 0 {
		Logger().Debug("purged queued events", zap.Stringer("key", k), zap.Int("count", n))
	}
	s.metrics.recordPurged(n)
}

// quiesce turns off the hardware source behind k. It runs before the purge
// in unregister so no event for k can be queued behind it.
func (s *Scheduler) quiesce(k Key) {
	var err error
	switch k.Kind {
	case board.KindButton:
		var id board.ID[board.Button]
		if id, err = board.NewID[board.Button](s.support, int(k.Index)); err == nil {
			err = s.board.Buttons().Disable(id)
		}
	case board.KindTimer:
		var id board.ID[board.Timer]
		if id, err = board.NewID[board.Timer](s.support, int(k.Index)); err == nil {
			err = s.board.Timers().Disarm(id)
		}
	case board.KindRadio:
		err = s.board.Radio().Disable()
	case board.KindUSBSerial:
		err = s.board.Serial().Disable(board.SerialEventKind(k.Sub))
	}
	if err != nil {
		Logger().Warn("disabling source failed", zap.Stringer("key", k), zap.Error(err))
	}
}

// Registered reports whether a handler is registered for k.
func (s *Scheduler) Registered(k Key) bool {
	_, ok := s.reg.lookup(k)
	return ok
}

// Handlers returns the number of registered handlers.
func (s *Scheduler) Handlers() int { return s.reg.len() }

// Applets returns the loaded instances in load order.
func (s *Scheduler) Applets() []applet.InstID {
	return append([]applet.InstID(nil), s.order...)
}
