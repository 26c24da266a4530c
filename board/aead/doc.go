// Package aead is the authenticated-encryption capability of a board.
//
// Every backend implements the same Cipher contract with fixed key, IV and tag
// lengths:
//
//	Encrypt(key, iv, aad, clear, cipher, tag)
//	Decrypt(key, iv, aad, cipher, tag, clear)
//
// # Buffer aliasing
//
// The optional input may be nil. When Encrypt receives clear == nil, cipher
// holds the plaintext on entry and the ciphertext on return: it is both input
// and output. Likewise Decrypt with cipher == nil decrypts clear in place.
// When the optional input is present it must have the same length as the
// output; it may be the very same slice as the output but must not partially
// overlap it. In-place operation is the intended zero-copy path, not a misuse.
//
// # Backends
//
// ChaCha20Poly1305 is the software fallback, AES256GCM uses the AES
// instructions of the CPU, and Unsupported stands for an algorithm the board
// cannot serve. A board picks its backends at build time; Support tells callers
// which ones exist, and the Unsupported operations are never reached because
// callers only bind algorithms whose Support is non-empty.
//
// # Failure
//
// Any failure, authentication or backend, is reported as errors.ErrCrypto. On
// a failed Decrypt the clear buffer is zeroed so no unauthenticated plaintext
// is ever visible.
package aead
