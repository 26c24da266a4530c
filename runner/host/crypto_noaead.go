//go:build noaead

package host

import (
	"github.com/wippyai/firmlet/board"
	"github.com/wippyai/firmlet/board/aead"
)

func newCrypto([]aead.Algorithm) board.Crypto {
	return board.Unsupported{}
}
