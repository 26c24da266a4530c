package aead

import (
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/wippyai/firmlet/errors"
)

// ChaCha20Poly1305 is the software backend (RFC 8439).
type ChaCha20Poly1305 struct{}

var _ Cipher = ChaCha20Poly1305{}

func (ChaCha20Poly1305) Support() Support {
	return Support{InPlaceNoCopy: true}
}

func (ChaCha20Poly1305) KeySize() int { return chacha20poly1305.KeySize }
func (ChaCha20Poly1305) IVSize() int  { return chacha20poly1305.NonceSize }
func (ChaCha20Poly1305) TagSize() int { return chacha20poly1305.Overhead }

func (c ChaCha20Poly1305) Encrypt(key, iv, aad, clear, cipher, tag []byte) error {
	if err := checkSizes(c, key, iv, clear, cipher, tag); err != nil {
		return err
	}
	a, err := chacha20poly1305.New(key)
	if err != nil {
		return errors.ErrCrypto
	}
	seal(a, iv, aad, clear, cipher, tag)
	return nil
}

func (c ChaCha20Poly1305) Decrypt(key, iv, aad, cipher, tag, clear []byte) error {
	if err := checkSizes(c, key, iv, cipher, clear, tag); err != nil {
		return err
	}
	a, err := chacha20poly1305.New(key)
	if err != nil {
		return errors.ErrCrypto
	}
	return open(a, iv, aad, cipher, tag, clear)
}
