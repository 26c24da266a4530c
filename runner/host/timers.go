package host

import (
	"time"

	"github.com/wippyai/firmlet/board"
	"github.com/wippyai/firmlet/errors"
	"github.com/wippyai/firmlet/internal/irq"
)

// timerState is one hardware timer. gen changes on every arm and disarm;
// an expiry only counts when it carries the current generation, so a stale
// time.Timer callback cannot fire a re-armed timer.
type timerState struct {
	t     *time.Timer
	cmd   board.TimerCommand
	armed bool
	gen   uint64
	fired uint64
}

func (t *timerState) stop() {
	if t.t != nil {
		t.t.Stop()
		t.t = nil
	}
	t.armed = false
	t.gen++
}

type timers struct{ b *Board }

// Arm starts the timer, replacing any previous command.
func (p timers) Arm(id board.ID[board.Timer], cmd board.TimerCommand) error {
	if cmd.Duration < 0 || (cmd.Periodic && cmd.Duration == 0) {
		return errors.New(errors.PhaseBoard, errors.KindInvalidInput).
			Capability("timer").
			Value(cmd.Duration).
			Detail("invalid duration for %s timer", mode(cmd)).
			Build()
	}
	i := id.Index()
	p.b.st.With(func(st *state) {
		t := &st.timers[i]
		t.stop()
		t.cmd = cmd
		t.armed = true
		p.b.startTimer(t, i)
	})
	return nil
}

func (p timers) Disarm(id board.ID[board.Timer]) error {
	p.b.st.With(func(st *state) { st.timers[id.Index()].stop() })
	return nil
}

// startTimer schedules the next expiry of t. Called inside the section.
func (b *Board) startTimer(t *timerState, i int) {
	gen := t.gen
	t.t = time.AfterFunc(t.cmd.Duration, func() { b.expire(i, gen) })
}

func (b *Board) expire(i int, gen uint64) {
	var live bool
	b.st.With(func(st *state) {
		t := &st.timers[i]
		if t.armed && t.gen == gen {
			t.fired = gen
			live = true
		}
	})
	if live {
		b.ctrl.Raise(LineTimer0 + irq.Line(i))
	}
}

func (b *Board) timerHandler(i int) func() {
	id, _ := board.NewID[board.Timer](b.support, i)
	return func() {
		b.st.With(func(st *state) {
			t := &st.timers[i]
			if !t.armed || t.fired != t.gen {
				return
			}
			t.fired = 0
			b.events.pushLocked(board.TimerEvent{Timer: id})
			if t.cmd.Periodic {
				b.startTimer(t, i)
			} else {
				t.armed = false
			}
		})
	}
}

func mode(cmd board.TimerCommand) string {
	if cmd.Periodic {
		return "periodic"
	}
	return "one-shot"
}
