package host

import (
	"github.com/wippyai/firmlet/board"
)

type buttons struct{ b *Board }

func (p buttons) Enable(id board.ID[board.Button]) error {
	p.b.st.With(func(st *state) { st.buttons[id.Index()].enabled = true })
	return nil
}

// Disable stops events for the button. A latched press is discarded.
func (p buttons) Disable(id board.ID[board.Button]) error {
	p.b.st.With(func(st *state) {
		btn := &st.buttons[id.Index()]
		btn.enabled = false
		btn.triggered = false
	})
	return nil
}

// PressButton changes the level of button i and raises GPIOTE. The change
// is latched even when the button is disabled; the handler drops it.
func (b *Board) PressButton(i int, pressed bool) error {
	id, err := board.NewID[board.Button](b.support, i)
	if err != nil {
		return err
	}
	b.st.With(func(st *state) {
		btn := &st.buttons[id.Index()]
		btn.triggered = true
		btn.pressed = pressed
	})
	return b.ctrl.Raise(LineGPIOTE)
}

// gpioteHandler pushes one event per triggered enabled channel, in channel
// order, then resets every latch.
func (b *Board) gpioteHandler() {
	b.st.With(func(st *state) {
		for i, id := range board.All[board.Button](b.support) {
			btn := &st.buttons[i]
			if !btn.triggered {
				continue
			}
			btn.triggered = false
			if btn.enabled {
				b.events.pushLocked(board.ButtonEvent{Button: id, Pressed: btn.pressed})
			}
		}
	})
}
