package inflate

import (
	"io"

	"github.com/pkg/errors"
)

// window is the circular history buffer back-references copy from. Its size
// is a power of two so positions wrap with a mask.
type window struct {
	hist []byte
	mask int64

	// pos is the number of bytes written over the window's lifetime.
	pos int64
}

func newWindow(size int) *window {
	return &window{
		hist: make([]byte, size),
		mask: int64(size - 1),
	}
}

func (w *window) size() int {
	return len(w.hist)
}

func (w *window) write(b byte) {
	w.hist[w.pos&w.mask] = b
	w.pos++
}

// back returns the byte dist positions before the next write.
func (w *window) back(dist int) byte {
	return w.hist[(w.pos-int64(dist))&w.mask]
}

// blockDecoder turns the symbols of one block into bytes, one per call.
type blockDecoder struct {
	br  bitReader
	c   *codes
	win *window

	// Remaining bytes of the back-reference being copied.
	copyLen  int
	copyDist int

	done bool
}

// next returns the block's next byte, or io.EOF after the end-of-block code.
func (d *blockDecoder) next() (byte, error) {
	if d.copyLen > 0 {
		return d.copyByte(), nil
	}

	if d.done {
		return 0, io.EOF
	}

	sym, err := d.c.lencode.Decode(d.br)
	if err != nil {
		return 0, err
	}

	switch {
	case sym < endOfBlock:
		b := byte(sym)
		d.win.write(b)
		return b, nil
	case sym == endOfBlock:
		d.done = true
		return 0, io.EOF
	}

	length, err := d.readLength(sym)
	if err != nil {
		return 0, err
	}

	dist, err := d.readDistance()
	if err != nil {
		return 0, err
	}

	if int64(dist) > d.win.pos || dist > d.win.size() {
		return 0, errors.Wrapf(ErrDistanceExceeded, "distance %d with %d bytes produced and a %d byte window",
			dist, d.win.pos, d.win.size())
	}

	d.copyLen = length
	d.copyDist = dist

	return d.copyByte(), nil
}

// copyByte copies one byte of the current back-reference. Source and
// destination may overlap, so copies go a byte at a time.
func (d *blockDecoder) copyByte() byte {
	b := d.win.back(d.copyDist)
	d.win.write(b)
	d.copyLen--
	return b
}

func (d *blockDecoder) readLength(sym int) (int, error) {
	i := sym - 257
	if i >= len(lens) {
		return 0, errors.Wrapf(ErrInvalidHuffmanCode, "length symbol %d", sym)
	}

	extra, err := d.br.ReadBits(uint(lext[i]))
	if err != nil {
		return 0, err
	}

	return int(lens[i]) + int(extra), nil
}

func (d *blockDecoder) readDistance() (int, error) {
	sym, err := d.c.distcode.Decode(d.br)
	if err != nil {
		return 0, err
	}

	if sym >= len(dists) {
		return 0, errors.Wrapf(ErrInvalidHuffmanCode, "distance symbol %d", sym)
	}

	extra, err := d.br.ReadBits(uint(dext[sym]))
	if err != nil {
		return 0, err
	}

	return int(dists[sym]) + int(extra), nil
}
