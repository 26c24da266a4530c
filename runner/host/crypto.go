//go:build !noaead

package host

import (
	"github.com/wippyai/firmlet/board"
	"github.com/wippyai/firmlet/board/aead"
)

type cryptoBackends map[aead.Algorithm]aead.Cipher

// newCrypto serves the listed algorithms. Nil selects every backend.
func newCrypto(algs []aead.Algorithm) board.Crypto {
	all := cryptoBackends{
		aead.AlgChaCha20Poly1305: aead.ChaCha20Poly1305{},
		aead.AlgAES256GCM:        aead.AES256GCM{},
	}
	if algs == nil {
		return all
	}
	c := cryptoBackends{}
	for _, alg := range algs {
		if x, ok := all[alg]; ok {
			c[alg] = x
		}
	}
	return c
}

func (c cryptoBackends) AEAD(alg aead.Algorithm) aead.Cipher {
	if x, ok := c[alg]; ok {
		return x
	}
	return aead.Unsupported{}
}
