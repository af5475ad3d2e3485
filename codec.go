package pk2

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// entryKind tags the variant an Entry holds.
type entryKind uint8

const (
	entryEmpty     entryKind = 0
	entryDirectory entryKind = 1
	entryFile      entryKind = 2
)

// Entry is a 128-byte tagged record: Empty, Directory, or File, matching
// the on-disk layout described in the archive format's entry section.
//
// Only the fields relevant to Kind are meaningful; the rest are zero.
// This mirrors the teacher's writerInode, which likewise holds the union
// of every inode variant's fields in a single struct and switches on type
// when serializing.
type Entry struct {
	Kind entryKind
	name [nameFieldSize]byte

	// Directory fields.
	ChildrenPosition ChainIndex

	// File fields.
	Position uint64
	Size     uint32

	// Common to Directory and File.
	AccessTime FileTime
	CreateTime FileTime
	ModifyTime FileTime
	NextBlock  ChainIndex
}

// NewEmptyEntry returns a zeroed Empty entry.
func NewEmptyEntry() Entry {
	return Entry{}
}

// NewDirectoryEntry builds a Directory entry. name must be at most
// nameFieldSize-1 bytes once encoded.
func NewDirectoryEntry(name string, childrenPosition ChainIndex, next ChainIndex) (Entry, error) {
	e := Entry{Kind: entryDirectory, ChildrenPosition: childrenPosition, NextBlock: next}
	if err := e.setName(name); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// NewFileEntry builds a File entry.
func NewFileEntry(name string, position uint64, size uint32, next ChainIndex) (Entry, error) {
	e := Entry{Kind: entryFile, Position: position, Size: size, NextBlock: next}
	if err := e.setName(name); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (e *Entry) setName(name string) error {
	if len(name) >= nameFieldSize {
		return fmt.Errorf("pk2: name %q too long for entry name field", name)
	}
	var buf [nameFieldSize]byte
	copy(buf[:], name)
	e.name = buf
	return nil
}

// IsEmpty reports whether the entry is an unused slot.
func (e *Entry) IsEmpty() bool {
	return e.Kind == entryEmpty
}

// IsDirectory reports whether the entry holds a directory.
func (e *Entry) IsDirectory() bool {
	return e.Kind == entryDirectory
}

// IsFile reports whether the entry holds a file.
func (e *Entry) IsFile() bool {
	return e.Kind == entryFile
}

// Clear resets the entry to the zero (Empty) value in place.
func (e *Entry) Clear() {
	*e = Entry{}
}

// NameBytes returns the raw, NUL-padded name field with trailing NUL bytes
// trimmed off.
func (e *Entry) NameBytes() []byte {
	n := len(e.name)
	for n > 0 && e.name[n-1] == 0 {
		n--
	}
	return e.name[:n]
}

// Name attempts to decode the entry's name as UTF-8 text. It returns
// ErrNonUnicodePath if the stored bytes are not valid UTF-8 — legitimate
// archives produced by the original game client may carry names in a
// legacy locale encoding that this does not attempt to transcode.
func (e *Entry) Name() (string, error) {
	b := e.NameBytes()
	if !utf8.Valid(b) {
		return "", ErrNonUnicodePath
	}
	return string(b), nil
}

// isNormalLink reports whether the entry is a directory entry that is
// neither "." nor "..", i.e. a real link to a child chain that the
// BlockManager should traverse on open.
func (e *Entry) isNormalLink() bool {
	if !e.IsDirectory() {
		return false
	}
	b := e.NameBytes()
	return string(b) != currentDirIdent && string(b) != parentDirIdent
}

// MarshalBinary encodes the entry to its 128-byte on-disk representation.
func (e *Entry) MarshalBinary() ([]byte, error) {
	buf := make([]byte, EntrySize)
	if e.IsEmpty() {
		return buf, nil
	}

	buf[0] = byte(e.Kind)
	copy(buf[1:1+nameFieldSize], e.name[:])
	off := 1 + nameFieldSize

	switch e.Kind {
	case entryDirectory:
		binary.LittleEndian.PutUint64(buf[off:], uint64(e.ChildrenPosition))
		off += 8
		putFileTime(buf[off:], e.AccessTime)
		off += 8
		putFileTime(buf[off:], e.CreateTime)
		off += 8
		putFileTime(buf[off:], e.ModifyTime)
		off += 8
		off += 4 // reserved
		binary.LittleEndian.PutUint64(buf[off:], uint64(e.NextBlock))
	case entryFile:
		binary.LittleEndian.PutUint64(buf[off:], e.Position)
		off += 8
		binary.LittleEndian.PutUint32(buf[off:], e.Size)
		off += 4
		putFileTime(buf[off:], e.AccessTime)
		off += 8
		putFileTime(buf[off:], e.CreateTime)
		off += 8
		putFileTime(buf[off:], e.ModifyTime)
		off += 8
		binary.LittleEndian.PutUint64(buf[off:], uint64(e.NextBlock))
	default:
		return nil, fmt.Errorf("pk2: unknown entry kind %d", e.Kind)
	}

	return buf, nil
}

// UnmarshalBinary decodes a 128-byte on-disk entry.
func (e *Entry) UnmarshalBinary(data []byte) error {
	if len(data) != EntrySize {
		return fmt.Errorf("%w: entry must be %d bytes, got %d", ErrCorrupt, EntrySize, len(data))
	}

	kind := entryKind(data[0])
	if kind == entryEmpty {
		*e = Entry{}
		return nil
	}

	var out Entry
	out.Kind = kind
	copy(out.name[:], data[1:1+nameFieldSize])
	off := 1 + nameFieldSize

	switch kind {
	case entryDirectory:
		out.ChildrenPosition = ChainIndex(binary.LittleEndian.Uint64(data[off:]))
		off += 8
		out.AccessTime = getFileTime(data[off:])
		off += 8
		out.CreateTime = getFileTime(data[off:])
		off += 8
		out.ModifyTime = getFileTime(data[off:])
		off += 8
		off += 4 // reserved
		out.NextBlock = ChainIndex(binary.LittleEndian.Uint64(data[off:]))
	case entryFile:
		out.Position = binary.LittleEndian.Uint64(data[off:])
		off += 8
		out.Size = binary.LittleEndian.Uint32(data[off:])
		off += 4
		out.AccessTime = getFileTime(data[off:])
		off += 8
		out.CreateTime = getFileTime(data[off:])
		off += 8
		out.ModifyTime = getFileTime(data[off:])
		off += 8
		out.NextBlock = ChainIndex(binary.LittleEndian.Uint64(data[off:]))
	default:
		return fmt.Errorf("%w: unknown entry kind %d", ErrCorrupt, kind)
	}

	*e = out
	return nil
}

func putFileTime(buf []byte, f FileTime) {
	binary.LittleEndian.PutUint32(buf[0:4], f.Low)
	binary.LittleEndian.PutUint32(buf[4:8], f.High)
}

func getFileTime(buf []byte) FileTime {
	return FileTime{
		Low:  binary.LittleEndian.Uint32(buf[0:4]),
		High: binary.LittleEndian.Uint32(buf[4:8]),
	}
}

// Header is the 256-byte archive header at file offset 0.
type Header struct {
	Signature [30]byte
	Version   uint16
	Encrypted bool
	Checksum  [16]byte
}

// NewHeader returns an unencrypted header with the default signature and
// version.
func NewHeader() Header {
	var h Header
	copy(h.Signature[:], archiveSignature)
	h.Version = 2
	return h
}

// NewEncryptedHeader returns a header marked encrypted, with Checksum set
// to the result of encrypting ChecksumPlaintext under c.
func NewEncryptedHeader(c *Cipher) Header {
	h := NewHeader()
	h.Encrypted = true
	h.Checksum = c.encryptedChecksum()
	return h
}

// ValidateSignature reports ErrInvalidSignature if h's signature does not
// match the expected archive magic.
func (h *Header) ValidateSignature() error {
	for i, b := range archiveSignature {
		if h.Signature[i] != b {
			return ErrInvalidSignature
		}
	}
	return nil
}

// Verify reports ErrInvalidKey if checksum does not match h's stored
// Checksum field.
func (h *Header) Verify(checksum [16]byte) error {
	if h.Checksum != checksum {
		return ErrInvalidKey
	}
	return nil
}

// MarshalBinary encodes the header to its 256-byte on-disk representation.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	copy(buf[0:30], h.Signature[:])
	binary.LittleEndian.PutUint16(buf[30:32], h.Version)
	if h.Encrypted {
		buf[32] = 1
	}
	copy(buf[33:49], h.Checksum[:])
	return buf, nil
}

// UnmarshalBinary decodes a 256-byte on-disk header.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) != HeaderSize {
		return fmt.Errorf("%w: header must be %d bytes, got %d", ErrCorrupt, HeaderSize, len(data))
	}
	copy(h.Signature[:], data[0:30])
	h.Version = binary.LittleEndian.Uint16(data[30:32])
	h.Encrypted = data[32] != 0
	copy(h.Checksum[:], data[33:49])
	return nil
}
