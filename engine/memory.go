package engine

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/firmlet"
	"github.com/wippyai/firmlet/errors"
)

// WazeroMemory wraps wazero memory to implement firmlet.Memory
type WazeroMemory struct {
	mem api.Memory
}

var _ firmlet.Memory = (*WazeroMemory)(nil)

func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	if m.mem == nil {
		return nil, errors.OutOfBounds(errors.PhaseApplet, offset, length)
	}
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseApplet, offset, length)
	}
	return data, nil
}

func (m *WazeroMemory) Write(offset uint32, data []byte) error {
	if m.mem == nil || !m.mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseApplet, offset, uint32(len(data)))
	}
	return nil
}

func (m *WazeroMemory) ReadU8(offset uint32) (uint8, error) {
	if m.mem == nil {
		return 0, errors.OutOfBounds(errors.PhaseApplet, offset, 1)
	}
	v, ok := m.mem.ReadByte(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseApplet, offset, 1)
	}
	return v, nil
}

func (m *WazeroMemory) ReadU32(offset uint32) (uint32, error) {
	if m.mem == nil {
		return 0, errors.OutOfBounds(errors.PhaseApplet, offset, 4)
	}
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseApplet, offset, 4)
	}
	return v, nil
}

func (m *WazeroMemory) WriteU8(offset uint32, value uint8) error {
	if m.mem == nil || !m.mem.WriteByte(offset, value) {
		return errors.OutOfBounds(errors.PhaseApplet, offset, 1)
	}
	return nil
}

func (m *WazeroMemory) WriteU32(offset uint32, value uint32) error {
	if m.mem == nil || !m.mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseApplet, offset, 4)
	}
	return nil
}

func (m *WazeroMemory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}
