package pk2_test

import (
	"testing"

	"github.com/KarpelesLab/pk2"
)

func TestEntryRoundTripDirectory(t *testing.T) {
	want, err := pk2.NewDirectoryEntry("subdir", pk2.ChainIndex(5120), 0)
	if err != nil {
		t.Fatalf("NewDirectoryEntry: %v", err)
	}
	want.AccessTime = pk2.Now()

	buf, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(buf) != pk2.EntrySize {
		t.Fatalf("encoded entry length = %d, want %d", len(buf), pk2.EntrySize)
	}

	var got pk2.Entry
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if !got.IsDirectory() {
		t.Fatalf("got.IsDirectory() = false, want true")
	}
	name, err := got.Name()
	if err != nil {
		t.Fatalf("Name: %v", err)
	}
	if name != "subdir" {
		t.Fatalf("Name() = %q, want %q", name, "subdir")
	}
	if got.ChildrenPosition != 5120 {
		t.Fatalf("ChildrenPosition = %d, want 5120", got.ChildrenPosition)
	}
}

func TestEntryRoundTripFile(t *testing.T) {
	want, err := pk2.NewFileEntry("readme.txt", 4096, 17, 0)
	if err != nil {
		t.Fatalf("NewFileEntry: %v", err)
	}

	buf, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	var got pk2.Entry
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if !got.IsFile() {
		t.Fatalf("got.IsFile() = false, want true")
	}
	if got.Position != 4096 || got.Size != 17 {
		t.Fatalf("Position/Size = %d/%d, want 4096/17", got.Position, got.Size)
	}
}

func TestEntryEmptyRoundTrip(t *testing.T) {
	empty := pk2.NewEmptyEntry()
	buf, err := empty.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("empty entry byte %d = %d, want 0", i, b)
		}
	}

	var got pk2.Entry
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if !got.IsEmpty() {
		t.Fatalf("got.IsEmpty() = false, want true")
	}
}

func TestEntryNameTooLong(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := pk2.NewFileEntry(string(long), 0, 0, 0); err == nil {
		t.Fatalf("expected error for oversized name, got none")
	}
}

func TestEntryNonUnicodeName(t *testing.T) {
	e, err := pk2.NewFileEntry("ok", 0, 0, 0)
	if err != nil {
		t.Fatalf("NewFileEntry: %v", err)
	}
	buf, _ := e.MarshalBinary()
	// Corrupt the name field with an invalid UTF-8 byte sequence.
	buf[1] = 0xff
	buf[2] = 0xfe

	var got pk2.Entry
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if _, err := got.Name(); err != pk2.ErrNonUnicodePath {
		t.Fatalf("Name() error = %v, want ErrNonUnicodePath", err)
	}
}

func TestHeaderUnencryptedRoundTrip(t *testing.T) {
	h := pk2.NewHeader()
	buf, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	var got pk2.Header
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if err := got.ValidateSignature(); err != nil {
		t.Fatalf("ValidateSignature: %v", err)
	}
	if got.Encrypted {
		t.Fatalf("Encrypted = true, want false")
	}
}

func TestHeaderEncryptedChecksumRoundTrip(t *testing.T) {
	c, err := pk2.NewCipher([]byte("secretkey"))
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	h := pk2.NewEncryptedHeader(c)

	buf, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	var got pk2.Header
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if !got.Encrypted {
		t.Fatalf("Encrypted = false, want true")
	}
	zero := [16]byte{}
	if got.Checksum == zero {
		t.Fatalf("Checksum is all-zero, want a populated checksum")
	}
}

func TestHeaderInvalidSignature(t *testing.T) {
	h := pk2.NewHeader()
	buf, _ := h.MarshalBinary()
	buf[0] = 'X'

	var got pk2.Header
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if err := got.ValidateSignature(); err != pk2.ErrInvalidSignature {
		t.Fatalf("ValidateSignature() = %v, want ErrInvalidSignature", err)
	}
}
