package firmlet

// Memory is an applet's linear memory as seen by host functions. Read returns
// a view into the memory, not a copy: writes through it are visible to the
// applet.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU32(offset uint32) (uint32, error)
	WriteU8(offset uint32, value uint8) error
	WriteU32(offset uint32, value uint32) error
	Size() uint32
}
