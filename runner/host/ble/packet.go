package ble

import (
	"encoding/binary"

	"github.com/wippyai/firmlet/errors"
)

// Metadata describes how a packet was received.
type Metadata struct {
	Ticks   uint32
	Channel uint8
	RSSI    int8
	PDUType PDUType
}

// Freq returns the centre frequency of the channel in MHz, 0 if unknown.
func (m Metadata) Freq() uint16 {
	ch := uint16(m.Channel)
	switch {
	case ch <= 10:
		return 2404 + 2*ch
	case ch <= 36:
		return 2404 + 2*(ch+1)
	case ch == 37:
		return 2402
	case ch == 38:
		return 2426
	case ch == 39:
		return 2480
	}
	return 0
}

// Packet is a received beacon.
type Packet struct {
	Data []byte
	Meta Metadata
	Addr Address
}

// HeaderLen is the size of the fixed part of a marshalled packet:
// addr[6] | ticks u32 | freq u16 | rssi i8 | pdu_type u8.
const HeaderLen = 6 + 4 + 2 + 1 + 1

// Len is the marshalled size of p.
func (p *Packet) Len() int { return HeaderLen + len(p.Data) }

// MarshalTo writes p into dst in little-endian order.
func (p *Packet) MarshalTo(dst []byte) (int, error) {
	if len(dst) < p.Len() {
		return 0, errors.New(errors.PhaseApplet, errors.KindOutOfBounds).
			Capability("radio").
			Detail("buffer of %d bytes cannot hold a %d byte packet", len(dst), p.Len()).
			Build()
	}
	copy(dst, p.Addr[:])
	binary.LittleEndian.PutUint32(dst[6:], p.Meta.Ticks)
	binary.LittleEndian.PutUint16(dst[10:], p.Meta.Freq())
	dst[12] = byte(p.Meta.RSSI)
	dst[13] = byte(p.Meta.PDUType)
	copy(dst[HeaderLen:], p.Data)
	return p.Len(), nil
}
