package aead

// Unsupported is the backend of an algorithm the board does not provide. It
// advertises no support; its operations are unreachable.
type Unsupported struct{}

var _ Cipher = Unsupported{}

func (Unsupported) Support() Support { return Support{} }
func (Unsupported) KeySize() int     { return 0 }
func (Unsupported) IVSize() int      { return 0 }
func (Unsupported) TagSize() int     { return 0 }

func (Unsupported) Encrypt(_, _, _, _, _, _ []byte) error {
	panic("aead: encrypt on unsupported backend")
}

func (Unsupported) Decrypt(_, _, _, _, _, _ []byte) error {
	panic("aead: decrypt on unsupported backend")
}
