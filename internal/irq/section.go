package irq

import "sync"

// Section is the critical section shared by interrupt handlers and the
// scheduler. Entering it is the equivalent of masking every interrupt.
type Section struct {
	mu sync.Mutex
}

// With runs fn inside the section. fn must not block and must not re-enter.
func (s *Section) With(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// Guarded is state that is only reachable through a Section.
type Guarded[T any] struct {
	sec *Section
	v   T
}

// NewGuarded binds v to sec.
func NewGuarded[T any](sec *Section, v T) *Guarded[T] {
	return &Guarded[T]{sec: sec, v: v}
}

// With runs fn with exclusive access to the guarded value.
func (g *Guarded[T]) With(fn func(v *T)) {
	g.sec.With(func() { fn(&g.v) })
}
