package pk2

import (
	"errors"

	"golang.org/x/crypto/blowfish"
)

// ChecksumPlaintext is the fixed 8-byte literal that gets encrypted with the
// archive's key and stored in the header; re-encrypting it under a
// candidate key and comparing against the stored checksum is the only key
// validation the format performs.
var ChecksumPlaintext = checksumPlaintext

// Cipher is a thin wrapper around Blowfish operating in ECB mode over
// 8-byte halves, as required by the index block/entry framing.
type Cipher struct {
	block *blowfish.Cipher
}

// NewCipher builds a Cipher from key. It fails with ErrInvalidKey if the
// key length falls outside the range Blowfish accepts.
func NewCipher(key []byte) (*Cipher, error) {
	block, err := blowfish.NewCipher(key)
	if err != nil {
		var keySizeErr blowfish.KeySizeError
		if errors.As(err, &keySizeErr) {
			return nil, ErrInvalidKey
		}
		return nil, err
	}
	return &Cipher{block: block}, nil
}

// Encrypt encrypts buf in place, 8 bytes at a time. Any trailing bytes
// fewer than 8 are left untouched.
func (c *Cipher) Encrypt(buf []byte) {
	n := len(buf) / blowfish.BlockSize * blowfish.BlockSize
	for i := 0; i < n; i += blowfish.BlockSize {
		chunk := buf[i : i+blowfish.BlockSize]
		c.block.Encrypt(chunk, chunk)
	}
}

// Decrypt decrypts buf in place, 8 bytes at a time. Any trailing bytes
// fewer than 8 are left untouched.
func (c *Cipher) Decrypt(buf []byte) {
	n := len(buf) / blowfish.BlockSize * blowfish.BlockSize
	for i := 0; i < n; i += blowfish.BlockSize {
		chunk := buf[i : i+blowfish.BlockSize]
		c.block.Decrypt(chunk, chunk)
	}
}

// encryptedChecksum encrypts a fresh copy of ChecksumPlaintext under c and
// returns the 16-byte, zero-padded header field value.
func (c *Cipher) encryptedChecksum() [16]byte {
	var buf [16]byte
	plain := make([]byte, blowfish.BlockSize)
	copy(plain, ChecksumPlaintext)
	c.Encrypt(plain)
	copy(buf[:], plain)
	return buf
}
