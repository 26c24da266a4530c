package ble

import (
	"fmt"

	"github.com/wippyai/firmlet/errors"
)

// PDUType is the advertising channel PDU type.
type PDUType uint8

const (
	AdvInd        PDUType = 0
	AdvDirectInd  PDUType = 1
	AdvNonconnInd PDUType = 2
	ScanReq       PDUType = 3
	ScanRsp       PDUType = 4
	ConnectReq    PDUType = 5
	AdvScanInd    PDUType = 6
)

func (t PDUType) String() string {
	switch t {
	case AdvInd:
		return "ADV_IND"
	case AdvDirectInd:
		return "ADV_DIRECT_IND"
	case AdvNonconnInd:
		return "ADV_NONCONN_IND"
	case ScanReq:
		return "SCAN_REQ"
	case ScanRsp:
		return "SCAN_RSP"
	case ConnectReq:
		return "CONNECT_REQ"
	case AdvScanInd:
		return "ADV_SCAN_IND"
	default:
		return fmt.Sprintf("pdu(%d)", uint8(t))
	}
}

// beacon reports whether t carries AdvA followed by AD structures.
func (t PDUType) beacon() bool {
	return t == AdvInd || t == AdvNonconnInd || t == AdvScanInd || t == ScanRsp
}

// Address is a device address in over-the-air byte order.
type Address [6]byte

func (a Address) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", a[5], a[4], a[3], a[2], a[1], a[0])
}

const (
	headerLen     = 2
	crcLen        = 3
	maxPayloadLen = 37
	// MaxFrameLen bounds an advertising frame on the simulated air.
	MaxFrameLen = headerLen + maxPayloadLen + crcLen
	// AdvCRCInit is the CRC24 preset of advertising channels.
	AdvCRCInit uint32 = 0x555555
)

// ADStructure is one advertising data element.
type ADStructure struct {
	Type uint8
	Data []byte
}

// ParseAD splits advertising data into its structures.
func ParseAD(data []byte) ([]ADStructure, error) {
	var out []ADStructure
	for len(data) > 0 {
		n := int(data[0])
		if n == 0 {
			// zero length terminates significant data
			break
		}
		if n+1 > len(data) {
			return nil, errors.New(errors.PhaseInterrupt, errors.KindInvalidData).
				Capability("radio").
				Detail("ad structure overruns payload").
				Build()
		}
		out = append(out, ADStructure{Type: data[1], Data: data[2 : n+1]})
		data = data[n+1:]
	}
	return out, nil
}

// EncodeAdvertisement frames an advertising PDU: header, AdvA, AD data, CRC24.
func EncodeAdvertisement(t PDUType, addr Address, ad []byte) ([]byte, error) {
	payload := len(addr) + len(ad)
	if payload > maxPayloadLen {
		return nil, errors.InvalidInput(errors.PhaseInterrupt, fmt.Sprintf("advertising payload %d exceeds %d bytes", payload, maxPayloadLen))
	}
	frame := make([]byte, 0, headerLen+payload+crcLen)
	frame = append(frame, byte(t)&0x0F, byte(payload))
	frame = append(frame, addr[:]...)
	frame = append(frame, ad...)
	crc := CRC24(AdvCRCInit, frame)
	frame = append(frame, byte(crc), byte(crc>>8), byte(crc>>16))
	return frame, nil
}

// DecodeAdvertisement checks a frame and returns its parts.
func DecodeAdvertisement(frame []byte) (PDUType, Address, []byte, error) {
	var addr Address
	invalid := func(detail string) error {
		return errors.New(errors.PhaseInterrupt, errors.KindInvalidData).
			Capability("radio").
			Detail("%s", detail).
			Build()
	}
	if len(frame) < headerLen+crcLen {
		return 0, addr, nil, invalid("frame too short")
	}
	n := int(frame[1])
	if n > maxPayloadLen || len(frame) != headerLen+n+crcLen {
		return 0, addr, nil, invalid("length field mismatch")
	}
	body := frame[:headerLen+n]
	tail := frame[headerLen+n:]
	got := uint32(tail[0]) | uint32(tail[1])<<8 | uint32(tail[2])<<16
	if got != CRC24(AdvCRCInit, body) {
		return 0, addr, nil, invalid("crc mismatch")
	}
	t := PDUType(frame[0] & 0x0F)
	if !t.beacon() {
		return t, addr, nil, invalid(fmt.Sprintf("%s is not a beacon", t))
	}
	if n < len(addr) {
		return t, addr, nil, invalid("payload shorter than AdvA")
	}
	copy(addr[:], frame[headerLen:headerLen+len(addr)])
	return t, addr, frame[headerLen+len(addr) : headerLen+n], nil
}

// CRC24 computes the link layer CRC, bits processed least significant first.
func CRC24(init uint32, data []byte) uint32 {
	state := init & 0xFFFFFF
	for _, b := range data {
		for i := 0; i < 8; i++ {
			bit := (state ^ uint32(b>>i)) & 1
			state >>= 1
			if bit != 0 {
				state |= 1 << 23
				state ^= 0x5A6000
			}
		}
	}
	return state
}
