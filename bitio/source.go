package bitio

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// Source is a bufio.Reader that also tracks its offset
// (number of bytes consumed) within the underlying data.
type Source struct {
	r      *bufio.Reader
	offset int64
}

var (
	_ io.Reader     = &Source{}
	_ io.ByteReader = &Source{}
)

// NewSource wraps r, counting offsets from zero.
func NewSource(r io.Reader) *Source {
	return &Source{
		r: bufio.NewReader(r),
	}
}

// NewSourceAt wraps r and starts counting from r's current position.
func NewSourceAt(r io.ReadSeeker) (*Source, error) {
	initialOffset, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, errors.Wrap(err, "unable to determine initial reader offset")
	}

	return &Source{
		r:      bufio.NewReader(r),
		offset: initialOffset,
	}, nil
}

func (s *Source) Read(p []byte) (n int, err error) {
	n, err = s.r.Read(p)
	s.offset += int64(n)
	return
}

func (s *Source) ReadByte() (byte, error) {
	b, err := s.r.ReadByte()
	if err == nil {
		s.offset++
	}
	return b, err
}

// Discard skips the next n bytes. Skipping past the end of the data returns
// io.ErrUnexpectedEOF.
func (s *Source) Discard(n int64) error {
	for n > 0 {
		step := n
		if step > 1<<30 {
			step = 1 << 30
		}

		skipped, err := s.r.Discard(int(step))
		s.offset += int64(skipped)
		n -= int64(skipped)

		if err != nil {
			if err == io.EOF {
				return io.ErrUnexpectedEOF
			}
			return err
		}
	}

	return nil
}

// Offset returns the number of bytes consumed so far.
func (s *Source) Offset() int64 {
	return s.offset
}
