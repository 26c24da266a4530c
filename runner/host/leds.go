package host

import (
	"github.com/wippyai/firmlet/board"
)

type leds struct{ b *Board }

func (p leds) Get(id board.ID[board.LED]) bool {
	var on bool
	p.b.st.With(func(st *state) { on = st.leds[id.Index()] })
	return on
}

func (p leds) Set(id board.ID[board.LED], on bool) error {
	var changed bool
	p.b.st.With(func(st *state) {
		changed = st.leds[id.Index()] != on
		st.leds[id.Index()] = on
	})
	if changed && p.b.cfg.OnLED != nil {
		p.b.cfg.OnLED(id.Index(), on)
	}
	return nil
}

// LEDStates returns a snapshot of every LED.
func (b *Board) LEDStates() []bool {
	var out []bool
	b.st.With(func(st *state) { out = append([]bool(nil), st.leds...) })
	return out
}
