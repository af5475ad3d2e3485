package pk2_test

import (
	"bytes"
	"testing"

	"github.com/KarpelesLab/pk2"
)

func TestCipherEncryptDecryptRoundTrip(t *testing.T) {
	c, err := pk2.NewCipher([]byte("archive-key"))
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	plain := []byte("0123456789ABCDEF") // two 8-byte blocks
	buf := append([]byte(nil), plain...)

	c.Encrypt(buf)
	if bytes.Equal(buf, plain) {
		t.Fatalf("Encrypt left buf unchanged")
	}

	c.Decrypt(buf)
	if !bytes.Equal(buf, plain) {
		t.Fatalf("Decrypt(Encrypt(x)) = %q, want %q", buf, plain)
	}
}

func TestCipherDifferentKeysProduceDifferentCiphertext(t *testing.T) {
	c1, err := pk2.NewCipher([]byte("key-one"))
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	c2, err := pk2.NewCipher([]byte("key-two"))
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	plain := []byte("archived")
	buf1 := append([]byte(nil), plain...)
	buf2 := append([]byte(nil), plain...)
	c1.Encrypt(buf1)
	c2.Encrypt(buf2)

	if bytes.Equal(buf1, buf2) {
		t.Fatalf("two different keys produced identical ciphertext")
	}
}

func TestCipherRejectsOversizedKey(t *testing.T) {
	key := make([]byte, 100) // blowfish caps keys at 56 bytes
	if _, err := pk2.NewCipher(key); err != pk2.ErrInvalidKey {
		t.Fatalf("NewCipher() error = %v, want ErrInvalidKey", err)
	}
}
