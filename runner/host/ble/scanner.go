package ble

// AdvChannels are the advertising channels scanned in order.
var AdvChannels = [3]uint8{37, 38, 39}

// RadioCmd configures the receiver.
type RadioCmd struct {
	Channel uint8
	Listen  bool
}

// Cmd is the outcome of a scanner timer update: how to configure the radio
// and when, in ticks, to call TimerUpdate again.
type Cmd struct {
	Radio RadioCmd
	Next  uint32
}

// Scanner listens for beacons, hopping advertising channels at a fixed
// interval.
type Scanner struct {
	interval uint32
	hop      int
	due      uint32
	// Filter drops beacons from addresses it rejects. Nil accepts all.
	Filter func(Address) bool
}

// NewScanner hops every interval ticks.
func NewScanner(interval uint32) *Scanner {
	if interval == 0 {
		interval = 1
	}
	return &Scanner{interval: interval, hop: -1}
}

// TimerUpdate moves to the next advertising channel.
func (s *Scanner) TimerUpdate(now uint32) Cmd {
	s.hop = (s.hop + 1) % len(AdvChannels)
	s.due = now + s.interval
	return Cmd{
		Radio: RadioCmd{Channel: AdvChannels[s.hop], Listen: true},
		Next:  s.due,
	}
}

// Due returns the tick at which the current channel ends.
func (s *Scanner) Due() uint32 { return s.due }

// Stop resets hopping so the next TimerUpdate starts on channel 37.
func (s *Scanner) Stop() RadioCmd {
	s.hop = -1
	return RadioCmd{}
}

// process decodes a received frame into a beacon.
func (s *Scanner) process(now uint32, channel uint8, rssi int8, frame []byte) (Packet, error) {
	t, addr, ad, err := DecodeAdvertisement(frame)
	if err != nil {
		return Packet{}, err
	}
	if _, err := ParseAD(ad); err != nil {
		return Packet{}, err
	}
	return Packet{
		Addr: addr,
		Meta: Metadata{Ticks: now, Channel: channel, RSSI: rssi, PDUType: t},
		Data: append([]byte(nil), ad...),
	}, nil
}
