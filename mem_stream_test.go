package pk2_test

import (
	"io"
)

// memStream is a minimal in-memory stand-in for the archive's backing
// file: a []byte that grows on WriteAt past its current length, the
// same role mockReader plays for read-only tests in the teacher's
// package.
type memStream struct {
	data []byte
	pos  int64
}

func (m *memStream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, io.ErrShortBuffer
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memStream) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[off:], p)
	return len(p), nil
}

func (m *memStream) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		m.pos = offset
	case io.SeekCurrent:
		m.pos += offset
	case io.SeekEnd:
		m.pos = int64(len(m.data)) + offset
	}
	return m.pos, nil
}

// faultyStream wraps a memStream and fails every ReadAt at or past
// errAt, modeled on the teacher's mockReader error-injection shape.
type faultyStream struct {
	*memStream
	errAt int64
	err   error
}

func (f *faultyStream) ReadAt(p []byte, off int64) (int, error) {
	if off >= f.errAt {
		return 0, f.err
	}
	return f.memStream.ReadAt(p, off)
}
