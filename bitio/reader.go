// Package bitio reads bit-packed fields, least significant bit first, the way
// DEFLATE lays them out.
package bitio

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// MaxBits is the widest field ReadBits accepts.
const MaxBits = 32

// ErrUnexpectedEOF is returned once the underlying source runs dry or fails.
// The cursor never pads a short read with zero bits.
var ErrUnexpectedEOF = errors.New("bitio: unexpected end of input")

// Reader is a bit cursor over a byte source.
//
// Bits are buffered in acc, lowest bit first. Only the low nbits bits of acc
// are valid; everything above them is zero.
type Reader struct {
	src    io.ByteReader
	acc    uint64
	nbits  uint
	offset int64
	err    error
}

// NewReader returns a cursor reading from r. If r does not implement
// io.ByteReader it is wrapped in a bufio.Reader, which may read ahead of what
// the cursor consumes.
func NewReader(r io.Reader) *Reader {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}

	return &Reader{src: br}
}

// ReadBits returns the next n bits. Once a read has failed, every later read
// fails with the same error, even if enough bits are still buffered.
func (r *Reader) ReadBits(n uint) (uint32, error) {
	if r.err != nil {
		return 0, r.err
	}

	if n > MaxBits {
		return 0, errors.Errorf("bitio: cannot read %d bits at once", n)
	}

	for r.nbits < n {
		if err := r.fill(); err != nil {
			return 0, err
		}
	}

	v := uint32(r.acc & (1<<n - 1))
	r.acc >>= n
	r.nbits -= n

	return v, nil
}

// ReadBytes fills buf with whole bytes. Any bits left over from a partially
// consumed byte are dropped first.
func (r *Reader) ReadBytes(buf []byte) error {
	if r.err != nil {
		return r.err
	}

	r.AlignToByte()

	for i := range buf {
		if r.nbits >= 8 {
			buf[i] = byte(r.acc)
			r.acc >>= 8
			r.nbits -= 8
			continue
		}

		b, err := r.next()
		if err != nil {
			return err
		}
		buf[i] = b
	}

	return nil
}

// AlignToByte discards bits up to the next byte boundary.
func (r *Reader) AlignToByte() {
	drop := r.nbits % 8
	r.acc >>= drop
	r.nbits -= drop
}

// Offset returns the number of bytes pulled from the source.
func (r *Reader) Offset() int64 {
	return r.offset
}

// buffered returns the number of bits read from the source but not consumed.
func (r *Reader) buffered() uint {
	return r.nbits
}

func (r *Reader) fill() error {
	b, err := r.next()
	if err != nil {
		return err
	}

	r.acc |= uint64(b) << r.nbits
	r.nbits += 8

	return nil
}

func (r *Reader) next() (byte, error) {
	if r.err != nil {
		return 0, r.err
	}

	b, err := r.src.ReadByte()
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			r.err = ErrUnexpectedEOF
		} else {
			r.err = errors.Wrap(ErrUnexpectedEOF, err.Error())
		}
		return 0, r.err
	}

	r.offset++

	return b, nil
}
