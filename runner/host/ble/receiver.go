package ble

// Receiver is the radio front end. It listens on one channel and holds at
// most one undecoded frame until the RADIO interrupt consumes it, and at most
// one decoded beacon until TakePacket collects it.
type Receiver struct {
	frame   []byte
	packet  Packet
	cmd     RadioCmd
	rssi    int8
	channel uint8
	pending bool
	decoded bool
}

// Configure applies a radio command. Turning the receiver off discards a
// pending frame.
func (r *Receiver) Configure(cmd RadioCmd) {
	r.cmd = cmd
	if !cmd.Listen {
		r.pending = false
		r.frame = nil
	}
}

// Listening returns the channel the receiver is tuned to.
func (r *Receiver) Listening() (uint8, bool) {
	return r.cmd.Channel, r.cmd.Listen
}

// Deliver offers a frame from the air. It reports whether the frame was
// captured; frames on other channels or arriving while one is pending are
// lost, as on real hardware.
func (r *Receiver) Deliver(channel uint8, rssi int8, frame []byte) bool {
	if !r.cmd.Listen || channel != r.cmd.Channel || r.pending {
		return false
	}
	if len(frame) > MaxFrameLen {
		return false
	}
	r.frame = append(r.frame[:0], frame...)
	r.channel = channel
	r.rssi = rssi
	r.pending = true
	return true
}

// RecvBeaconInterrupt consumes the pending frame and decodes it. When a
// beacon is accepted it lands in the packet slot, replacing one nobody took,
// and ok reports the tick the radio timer must fire next. A frame that fails
// to decode returns the decode error; a filtered beacon returns neither.
func (r *Receiver) RecvBeaconInterrupt(now uint32, s *Scanner) (next uint32, ok bool, err error) {
	if !r.pending {
		return 0, false, nil
	}
	r.pending = false
	pkt, err := s.process(now, r.channel, r.rssi, r.frame)
	if err != nil {
		return 0, false, err
	}
	if s.Filter != nil && !s.Filter(pkt.Addr) {
		return 0, false, nil
	}
	r.packet, r.decoded = pkt, true
	return s.Due(), true, nil
}

// TakePacket empties the packet slot.
func (r *Receiver) TakePacket() (Packet, bool) {
	if !r.decoded {
		return Packet{}, false
	}
	pkt := r.packet
	r.packet, r.decoded = Packet{}, false
	return pkt, true
}
