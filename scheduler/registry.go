package scheduler

import (
	"github.com/wippyai/firmlet/applet"
)

// Handler is an applet callback registered for a Key. Func and Data are
// opaque to the platform and passed back on every invocation.
type Handler struct {
	Key  Key
	Inst applet.InstID
	Func uint32
	Data uint32
}

// registry holds at most one Handler per Key. It is only touched from the
// scheduler goroutine.
type registry struct {
	handlers map[Key]Handler
}

func newRegistry() *registry {
	return &registry{handlers: make(map[Key]Handler)}
}

// register installs h, replacing any previous handler for h.Key.
func (r *registry) register(h Handler) (replaced bool) {
	_, replaced = r.handlers[h.Key]
	r.handlers[h.Key] = h
	return replaced
}

func (r *registry) unregister(k Key) bool {
	_, ok := r.handlers[k]
	delete(r.handlers, k)
	return ok
}

func (r *registry) lookup(k Key) (Handler, bool) {
	h, ok := r.handlers[k]
	return h, ok
}

// keysOf returns every key owned by inst.
func (r *registry) keysOf(inst applet.InstID) []Key {
	var keys []Key
	for k, h := range r.handlers {
		if h.Inst == inst {
			keys = append(keys, k)
		}
	}
	return keys
}

func (r *registry) len() int { return len(r.handlers) }
