package host

import (
	"slices"
	"sync"
)

// DefaultRSSI is the signal strength of frames sent through an Air.
const DefaultRSSI int8 = -60

// Air connects simulated radios. Every frame transmitted on a channel is
// offered to each attached board.
type Air struct {
	mu     sync.Mutex
	boards []*Board
	rssi   int8
}

func NewAir() *Air {
	return &Air{rssi: DefaultRSSI}
}

// SetRSSI changes the strength reported for subsequent frames.
func (a *Air) SetRSSI(rssi int8) {
	a.mu.Lock()
	a.rssi = rssi
	a.mu.Unlock()
}

func (a *Air) Attach(b *Board) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !slices.Contains(a.boards, b) {
		a.boards = append(a.boards, b)
	}
}

func (a *Air) Detach(b *Board) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.boards = slices.DeleteFunc(a.boards, func(x *Board) bool { return x == b })
}

// Transmit sends frame on channel and returns how many receivers captured it.
func (a *Air) Transmit(channel uint8, frame []byte) int {
	a.mu.Lock()
	boards := slices.Clone(a.boards)
	rssi := a.rssi
	a.mu.Unlock()

	n := 0
	for _, b := range boards {
		if b.receive(channel, rssi, frame) {
			n++
		}
	}
	return n
}
