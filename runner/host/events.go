package host

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/firmlet/board"
	"github.com/wippyai/firmlet/internal/irq"
)

// eventQueue is the board event FIFO. Handlers already inside the critical
// section use pushLocked.
type eventQueue struct {
	sec     *irq.Section
	q       *irq.Queue[board.Event]
	sig     *irq.Signal
	metrics *Metrics
}

func newEventQueue(sec *irq.Section, capacity int, m *Metrics) *eventQueue {
	return &eventQueue{
		sec:     sec,
		q:       irq.NewQueue[board.Event](capacity),
		sig:     irq.NewSignal(),
		metrics: m,
	}
}

func (e *eventQueue) Push(ev board.Event) bool {
	var ok bool
	e.sec.With(func() { ok = e.pushLocked(ev) })
	return ok
}

func (e *eventQueue) pushLocked(ev board.Event) bool {
	if !e.q.Push(ev) {
		Logger().Warn("event queue full, dropping event", zap.Stringer("source", ev.Source()))
		e.metrics.recordDrop("events")
		return false
	}
	e.sig.Notify()
	return true
}

func (e *eventQueue) Pop() (board.Event, bool) {
	var (
		ev board.Event
		ok bool
	)
	e.sec.With(func() { ev, ok = e.q.Pop() })
	return ev, ok
}

func (e *eventQueue) Remove(match func(board.Event) bool) int {
	var n int
	e.sec.With(func() { n = e.q.Remove(match) })
	return n
}

func (e *eventQueue) Len() int {
	var n int
	e.sec.With(func() { n = e.q.Len() })
	return n
}

// Wait parks until a push happened since the last Wait or ctx is done.
func (e *eventQueue) Wait(ctx context.Context) error {
	return e.sig.Wait(ctx)
}
