package pk2

import "errors"

// Package-specific error variables that can be used with errors.Is() for error handling.
var (
	// ErrInvalidPath is returned when a path is empty, does not start with
	// '/', or a '..' component would escape the root of the archive.
	ErrInvalidPath = errors.New("pk2: invalid path")

	// ErrNonUnicodePath is returned when a path component or a stored
	// entry name cannot be decoded as valid UTF-8 text.
	ErrNonUnicodePath = errors.New("pk2: path is not valid unicode")

	// ErrNotFound is returned when a path component does not resolve to
	// any entry.
	ErrNotFound = errors.New("pk2: entry not found")

	// ErrExpectedFile is returned when an operation requiring a file
	// entry is given a directory entry instead.
	ErrExpectedFile = errors.New("pk2: expected a file entry")

	// ErrExpectedDirectory is returned when an operation requiring a
	// directory entry is given a file entry instead.
	ErrExpectedDirectory = errors.New("pk2: expected a directory entry")

	// ErrAlreadyExists is returned by create_file-style operations when
	// the target path already fully resolves to an existing entry.
	ErrAlreadyExists = errors.New("pk2: entry already exists")

	// ErrInvalidChainIndex is returned when the BlockManager is missing
	// a chain it was expected to hold; this indicates an internal
	// invariant breach.
	ErrInvalidChainIndex = errors.New("pk2: invalid chain index")

	// ErrInvalidKey is returned when the header checksum does not match
	// the supplied key, or the key is rejected outright by the cipher.
	ErrInvalidKey = errors.New("pk2: invalid key")

	// ErrInvalidSignature is returned when the header magic does not
	// match the expected archive signature.
	ErrInvalidSignature = errors.New("pk2: invalid archive signature")

	// ErrCorrupt is returned on binary decode failures and other
	// structural inconsistencies (e.g. two chains claiming the same
	// child offset).
	ErrCorrupt = errors.New("pk2: corrupt archive data")

	// ErrMalformedChain is returned by the chain reader when a chain
	// loops back on itself or exceeds the configured block bound.
	ErrMalformedChain = errors.New("pk2: malformed block chain")

	// ErrTimestampOutOfRange is returned when a FILETIME value predates
	// the Unix epoch and wall-clock conversion is requested.
	ErrTimestampOutOfRange = errors.New("pk2: timestamp predates unix epoch")
)

// PathError wraps one of the sentinel errors above with the path and, where
// relevant, the specific operation that triggered it. It mirrors the role of
// fs.PathError in the standard library.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	if e.Path == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}
