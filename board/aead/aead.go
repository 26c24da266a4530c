package aead

import (
	stdcipher "crypto/cipher"

	"github.com/wippyai/firmlet/errors"
)

// Algorithm identifies an AEAD construction.
type Algorithm uint32

const (
	AlgChaCha20Poly1305 Algorithm = iota
	AlgAES256GCM
)

func (a Algorithm) String() string {
	switch a {
	case AlgChaCha20Poly1305:
		return "chacha20poly1305"
	case AlgAES256GCM:
		return "aes256gcm"
	default:
		return "unknown"
	}
}

// ParseAlgorithm maps a configuration name to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, bool) {
	switch name {
	case "chacha20poly1305":
		return AlgChaCha20Poly1305, true
	case "aes256gcm":
		return AlgAES256GCM, true
	}
	return 0, false
}

// Support describes which calling conventions a backend serves without an
// internal copy.
type Support struct {
	// NoCopy is set when distinct input and output buffers are used directly.
	NoCopy bool
	// InPlaceNoCopy is set when the in-place form works on the caller's buffer.
	InPlaceNoCopy bool
}

// Supported reports whether the backend exists at all.
func (s Support) Supported() bool {
	return s.NoCopy || s.InPlaceNoCopy
}

// Bits packs Support for the applet API: bit 0 NoCopy, bit 1 InPlaceNoCopy.
func (s Support) Bits() uint32 {
	var b uint32
	if s.NoCopy {
		b |= 1
	}
	if s.InPlaceNoCopy {
		b |= 2
	}
	return b
}

// Cipher is the AEAD contract shared by every backend. See the package
// documentation for the aliasing rules of clear and cipher.
type Cipher interface {
	Support() Support
	KeySize() int
	IVSize() int
	TagSize() int
	Encrypt(key, iv, aad, clear, cipher, tag []byte) error
	Decrypt(key, iv, aad, cipher, tag, clear []byte) error
}

// checkSizes validates every length before any backend runs.
func checkSizes(c Cipher, key, iv, in, out, tag []byte) error {
	switch {
	case len(key) != c.KeySize():
		return errors.InvalidInput(errors.PhaseCrypto, "key length mismatch")
	case len(iv) != c.IVSize():
		return errors.InvalidInput(errors.PhaseCrypto, "iv length mismatch")
	case len(tag) != c.TagSize():
		return errors.InvalidInput(errors.PhaseCrypto, "tag length mismatch")
	case in != nil && len(in) != len(out):
		return errors.InvalidInput(errors.PhaseCrypto, "input and output lengths differ")
	}
	return nil
}

// seal runs a standard library AEAD with the detached-tag contract.
func seal(a stdcipher.AEAD, iv, aad, clear, cipher, tag []byte) {
	if clear != nil {
		copy(cipher, clear)
	}
	n := len(cipher)
	// cap(scratch) == n+tag keeps Seal from writing past the caller's buffer.
	scratch := make([]byte, 0, n+a.Overhead())
	sealed := a.Seal(scratch, iv, cipher, aad)
	copy(cipher, sealed[:n])
	copy(tag, sealed[n:])
}

// open runs a standard library AEAD with the detached-tag contract.
func open(a stdcipher.AEAD, iv, aad, cipher, tag, clear []byte) error {
	src := clear
	if cipher != nil {
		src = cipher
	}
	n := len(src)
	joined := make([]byte, n+len(tag))
	copy(joined, src)
	copy(joined[n:], tag)
	if _, err := a.Open(clear[:0:n], iv, joined, aad); err != nil {
		clear := clear[:n]
		for i := range clear {
			clear[i] = 0
		}
		return errors.ErrCrypto
	}
	return nil
}
