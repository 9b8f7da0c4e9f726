package png

import (
	"io"

	"github.com/pkg/errors"

	"github.com/dselans/funnyimg/inflate"
)

// FilterType is the tag byte that starts every scanline.
type FilterType uint8

const (
	FilterNone FilterType = iota
	FilterSub
	FilterUp
	FilterAverage
	FilterPaeth
)

// paeth returns whichever of a (left), b (up) and c (upper left) is closest
// to a+b-c, preferring a, then b.
func paeth(a, b, c uint8) uint8 {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))

	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// unfilter reverses filter ft in place on cur, given the already reconstructed
// previous row. The left neighbour of cur[i] is cur[i-bpp]; bytes of the first
// pixel have none and use 0, like the upper left neighbour on the first row.
func unfilter(ft FilterType, cur, prev []byte, bpp int) error {
	switch ft {
	case FilterNone:
	case FilterSub:
		for i := bpp; i < len(cur); i++ {
			cur[i] += cur[i-bpp]
		}
	case FilterUp:
		for i, b := range prev {
			cur[i] += b
		}
	case FilterAverage:
		for i := 0; i < bpp && i < len(cur); i++ {
			cur[i] += prev[i] / 2
		}
		for i := bpp; i < len(cur); i++ {
			cur[i] += uint8((int(cur[i-bpp]) + int(prev[i])) / 2)
		}
	case FilterPaeth:
		for i := 0; i < bpp && i < len(cur); i++ {
			cur[i] += paeth(0, prev[i], 0)
		}
		for i := bpp; i < len(cur); i++ {
			cur[i] += paeth(cur[i-bpp], prev[i], prev[i-bpp])
		}
	default:
		return errors.Wrapf(ErrInvalidFilterType, "tag %d", uint8(ft))
	}

	return nil
}

// Defilter reconstructs scanlines from a decompressed PNG image stream.
type Defilter struct {
	r   io.Reader
	bpp int

	// cur and prev hold the filter tag at [0] followed by the row bytes.
	cur  []byte
	prev []byte

	rows int
}

// NewDefilter returns a Defilter for rows of rowSize bytes (filter tag not
// included) with bpp bytes per pixel. bpp is the distance to the left
// neighbour; bpp=1 predicts every byte from the byte right before it.
func NewDefilter(r io.Reader, rowSize, bpp int) *Defilter {
	return &Defilter{
		r:    r,
		bpp:  bpp,
		cur:  make([]byte, rowSize+1),
		prev: make([]byte, rowSize+1),
	}
}

// Next returns the next reconstructed row. The slice is only valid until the
// following call, and must not be modified since the next row is
// reconstructed from it.
func (d *Defilter) Next() ([]byte, error) {
	if _, err := io.ReadFull(d.r, d.cur); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.Wrapf(inflate.ErrTruncatedStream, "image data ends in row %d", d.rows)
		}
		return nil, errors.Wrapf(err, "unable to read row %d", d.rows)
	}

	if err := unfilter(FilterType(d.cur[0]), d.cur[1:], d.prev[1:], d.bpp); err != nil {
		return nil, errors.Wrapf(err, "row %d", d.rows)
	}

	d.prev, d.cur = d.cur, d.prev
	d.rows++

	return d.prev[1:], nil
}

// Rows returns the number of rows reconstructed so far.
func (d *Defilter) Rows() int {
	return d.rows
}
