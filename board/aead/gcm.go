package aead

import (
	"crypto/aes"
	stdcipher "crypto/cipher"

	"github.com/wippyai/firmlet/errors"
)

// AES256GCM is the accelerated backend: the standard library dispatches to the
// CPU's AES and carry-less multiply instructions when present.
type AES256GCM struct{}

var _ Cipher = AES256GCM{}

const (
	gcmKeySize = 32
	gcmIVSize  = 12
	gcmTagSize = 16
)

func (AES256GCM) Support() Support {
	return Support{NoCopy: true, InPlaceNoCopy: true}
}

func (AES256GCM) KeySize() int { return gcmKeySize }
func (AES256GCM) IVSize() int  { return gcmIVSize }
func (AES256GCM) TagSize() int { return gcmTagSize }

func (AES256GCM) new(key []byte) (stdcipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return stdcipher.NewGCM(block)
}

func (c AES256GCM) Encrypt(key, iv, aad, clear, cipher, tag []byte) error {
	if err := checkSizes(c, key, iv, clear, cipher, tag); err != nil {
		return err
	}
	a, err := c.new(key)
	if err != nil {
		return errors.ErrCrypto
	}
	seal(a, iv, aad, clear, cipher, tag)
	return nil
}

func (c AES256GCM) Decrypt(key, iv, aad, cipher, tag, clear []byte) error {
	if err := checkSizes(c, key, iv, cipher, clear, tag); err != nil {
		return err
	}
	a, err := c.new(key)
	if err != nil {
		return errors.ErrCrypto
	}
	return open(a, iv, aad, cipher, tag, clear)
}
