package page

import (
	"fmt"
	"io"
)

// memStream is a minimal in-memory io.ReadWriteSeeker backing the clone
// round trip. The standard library offers seekable readers (bytes.Reader)
// but no seekable read-writer over a byte slice, so this one exists.
type memStream struct {
	data []byte
	pos  int64
}

func newMemStream(size int) *memStream {
	return &memStream{data: make([]byte, size)}
}

func (m *memStream) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memStream) Write(p []byte) (int, error) {
	if end := m.pos + int64(len(p)); end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	n := copy(m.data[m.pos:], p)
	m.pos += int64(n)
	return n, nil
}

func (m *memStream) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = m.pos + offset
	case io.SeekEnd:
		pos = int64(len(m.data)) + offset
	default:
		return 0, fmt.Errorf("memStream: invalid whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("memStream: negative position %d", pos)
	}
	m.pos = pos
	return pos, nil
}
