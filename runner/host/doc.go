// Package host is a simulated board that runs applets on a workstation.
//
// Hardware is modelled as interrupt lines on an irq.Controller. Stimuli
// (button presses, frames on the air, timer expiry, bytes on the serial
// link) latch hardware state and raise a line; the line handler plays the
// role of the ISR and pushes events into the board queue. All state shared
// between handlers and the scheduler lives behind one irq.Section.
//
// Lines start masked. New performs bring-up and Start unmasks them, so no
// handler can observe a half-built board.
//
//	air := host.NewAir()
//	b, err := host.New(host.Config{Support: support, Air: air})
//	...
//	b.Start()
//	defer b.Close()
//	b.PressButton(0, true)
package host
