package pk2

// Fixed layout constants for the PK2 archive format. These are bit-exact
// and must never be changed without breaking compatibility with existing
// archives.
const (
	// EntrySize is the on-disk size of one entry, in bytes.
	EntrySize = 128

	// BlockEntryCount is the number of entries per block.
	BlockEntryCount = 20

	// BlockSize is the on-disk size of one block, in bytes.
	BlockSize = EntrySize * BlockEntryCount

	// HeaderSize is the on-disk size of the archive header, in bytes.
	HeaderSize = 256

	// RootBlockOffset is the file offset of the first block, directly
	// after the header.
	RootBlockOffset ChainIndex = HeaderSize

	// RootBlockVirtual is the sentinel chain id used to denote "the root
	// directory itself" when it is addressed as a synthetic parent, e.g.
	// from OpenDirectory("/").
	RootBlockVirtual ChainIndex = 0
)

// currentDirIdent is the name of the first entry of every directory chain.
const currentDirIdent = "."

// parentDirIdent is the name of the second entry of every non-root
// directory chain.
const parentDirIdent = ".."

// checksumPlaintext is encrypted with the supplied key and compared
// against the header's checksum field to validate that key.
var checksumPlaintext = []byte("Joymax \x00")

// archiveSignature is the 30-byte magic string written at the start of
// every archive header.
var archiveSignature = []byte("JoyMax File Manager!\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00")

const nameFieldSize = 81
