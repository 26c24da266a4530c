package irq

import (
	"fmt"
	"sync"

	"github.com/wippyai/firmlet/errors"
)

// Line is an interrupt line number.
type Line int

type line struct {
	name    string
	handler func()
	masked  bool
	pending bool
	count   uint64
}

// Controller dispatches raised lines to their handlers. All lines start
// masked; a line raised while masked stays pending and its handler runs once
// on Unmask. Handlers are serialized with each other and must not raise
// another line of the same controller.
type Controller struct {
	mu    sync.Mutex // guards lines
	run   sync.Mutex // serializes handlers
	lines map[Line]*line

	// OnDispatch is called inside the handler lock before each handler run.
	OnDispatch func(name string)
}

func NewController() *Controller {
	return &Controller{lines: make(map[Line]*line)}
}

// Register installs the handler for l. The line starts masked.
func (c *Controller) Register(l Line, name string, handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines[l] = &line{name: name, handler: handler, masked: true}
}

// Raise signals l. The handler runs synchronously on the caller's goroutine
// unless the line is masked.
func (c *Controller) Raise(l Line) error {
	c.mu.Lock()
	ln, ok := c.lines[l]
	if !ok {
		c.mu.Unlock()
		return errors.NotFound(errors.PhaseInterrupt, "line", fmt.Sprint(int(l)))
	}
	if ln.masked {
		ln.pending = true
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	c.dispatch(ln)
	return nil
}

// Mask blocks l; raises are latched as pending.
func (c *Controller) Mask(l Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ln, ok := c.lines[l]; ok {
		ln.masked = true
	}
}

// Unmask enables l and runs its handler if it was raised while masked.
func (c *Controller) Unmask(l Line) {
	c.mu.Lock()
	ln, ok := c.lines[l]
	if !ok {
		c.mu.Unlock()
		return
	}
	ln.masked = false
	fire := ln.pending
	ln.pending = false
	c.mu.Unlock()
	if fire {
		c.dispatch(ln)
	}
}

// UnmaskAll unmasks every registered line.
func (c *Controller) UnmaskAll() {
	c.mu.Lock()
	ls := make([]Line, 0, len(c.lines))
	for l := range c.lines {
		ls = append(ls, l)
	}
	c.mu.Unlock()
	for _, l := range ls {
		c.Unmask(l)
	}
}

// Pending reports whether l was raised while masked and not yet serviced.
func (c *Controller) Pending(l Line) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ln, ok := c.lines[l]
	return ok && ln.pending
}

// Count returns how many times the handler of l has run.
func (c *Controller) Count(l Line) uint64 {
	c.run.Lock()
	defer c.run.Unlock()
	if ln, ok := c.lookup(l); ok {
		return ln.count
	}
	return 0
}

// Name returns the registered name of l.
func (c *Controller) Name(l Line) string {
	if ln, ok := c.lookup(l); ok {
		return ln.name
	}
	return ""
}

func (c *Controller) lookup(l Line) (*line, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ln, ok := c.lines[l]
	return ln, ok
}

func (c *Controller) dispatch(ln *line) {
	c.run.Lock()
	defer c.run.Unlock()
	ln.count++
	if c.OnDispatch != nil {
		c.OnDispatch(ln.name)
	}
	ln.handler()
}
