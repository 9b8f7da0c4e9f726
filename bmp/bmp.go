// Package bmp reads uncompressed 24-bit Windows bitmaps row by row.
package bmp

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/dselans/funnyimg/pixel"
)

const (
	fileHeaderSize = 14
	infoHeaderSize = 40

	biRGB = 0
)

var (
	ErrInvalidSignature       = errors.New("bmp: unknown signature")
	ErrUnsupportedDIB         = errors.New("bmp: DIB header not supported")
	ErrUnsupportedBitDepth    = errors.New("bmp: bit depth not supported")
	ErrUnsupportedCompression = errors.New("bmp: compression method not supported")
	ErrInvalidDimensions      = errors.New("bmp: invalid dimensions")
)

// FileHeader is the 14-byte BITMAPFILEHEADER.
type FileHeader struct {
	Signature [2]byte
	Size      uint32
	Reserved1 uint16
	Reserved2 uint16
	Offset    uint32
}

// InfoHeader is the 40-byte BITMAPINFOHEADER.
type InfoHeader struct {
	Size            uint32
	Width           int32
	Height          int32
	Planes          uint16
	BitCount        uint16
	Compression     uint32
	ImageSize       uint32
	XPixelsPerMeter int32
	YPixelsPerMeter int32
	ColorsUsed      uint32
	ColorsImportant uint32
}

// Header holds both headers.
type Header struct {
	File FileHeader
	Info InfoHeader
}

// Check rejects anything but 24-bit BI_RGB bitmaps with a BITMAPINFOHEADER.
func (h Header) Check() error {
	if string(h.File.Signature[:]) != "BM" {
		return errors.Wrapf(ErrInvalidSignature, "%q", h.File.Signature[:])
	}

	if h.Info.Size != infoHeaderSize {
		return errors.Wrapf(ErrUnsupportedDIB, "header size %d", h.Info.Size)
	}

	if h.Info.BitCount != 24 {
		return errors.Wrapf(ErrUnsupportedBitDepth, "%d bits per pixel", h.Info.BitCount)
	}

	if h.Info.Compression != biRGB {
		return errors.Wrapf(ErrUnsupportedCompression, "method %d", h.Info.Compression)
	}

	if h.Info.Width <= 0 || h.Info.Height == 0 || h.Info.Height == math.MinInt32 {
		return errors.Wrapf(ErrInvalidDimensions, "%dx%d", h.Info.Width, h.Info.Height)
	}

	return nil
}

// Width returns the image width in pixels.
func (h Header) Width() int {
	return int(h.Info.Width)
}

// Height returns the image height in pixels.
func (h Header) Height() int {
	if h.Info.Height < 0 {
		return -int(h.Info.Height)
	}
	return int(h.Info.Height)
}

// TopDown reports whether the first stored row is the top of the image.
func (h Header) TopDown() bool {
	return h.Info.Height < 0
}

// RowSize returns the stored bytes per row, padded to four bytes.
func (h Header) RowSize() int {
	return (h.Width()*3 + 3) &^ 3
}

// ReadHeader reads both headers from the start of r.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header

	if err := binary.Read(r, binary.LittleEndian, &h.File); err != nil {
		return h, errors.Wrap(err, "unable to read file header")
	}

	if string(h.File.Signature[:]) != "BM" {
		return h, errors.Wrapf(ErrInvalidSignature, "%q", h.File.Signature[:])
	}

	if err := binary.Read(r, binary.LittleEndian, &h.Info); err != nil {
		return h, errors.Wrap(err, "unable to read info header")
	}

	return h, nil
}

// Reader yields the rows of a bitmap top to bottom. Rows are usually stored
// bottom-up, so it seeks to each one.
type Reader struct {
	rs     io.ReadSeeker
	header Header
	y      int

	buf []byte
	row []pixel.RGBA
}

// HeaderCheck vets the headers before any buffer is sized from them.
type HeaderCheck func(Header) error

// NewReader reads and checks the headers of the bitmap in rs. The extra
// checks run after Check and before the row buffers are allocated.
func NewReader(rs io.ReadSeeker, checks ...HeaderCheck) (*Reader, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "unable to seek to start")
	}

	h, err := ReadHeader(rs)
	if err != nil {
		return nil, err
	}

	if err := h.Check(); err != nil {
		return nil, err
	}

	for _, check := range checks {
		if err := check(h); err != nil {
			return nil, err
		}
	}

	return &Reader{
		rs:     rs,
		header: h,
		buf:    make([]byte, h.RowSize()),
		row:    make([]pixel.RGBA, h.Width()),
	}, nil
}

// Header returns the bitmap headers.
func (r *Reader) Header() Header {
	return r.header
}

// NextRow returns the next row, or io.EOF after the last one. The returned
// slice is reused by the following call.
func (r *Reader) NextRow() ([]pixel.RGBA, error) {
	if r.y >= r.header.Height() {
		return nil, io.EOF
	}

	stored := r.y
	if !r.header.TopDown() {
		stored = r.header.Height() - 1 - r.y
	}

	offset := int64(r.header.File.Offset) + int64(stored)*int64(r.header.RowSize())
	if _, err := r.rs.Seek(offset, io.SeekStart); err != nil {
		return nil, errors.Wrapf(err, "unable to seek to row %d", r.y)
	}

	// The last row may omit its padding.
	n := r.header.Width() * 3
	if _, err := io.ReadFull(r.rs, r.buf[:n]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.Wrapf(err, "unable to read row %d", r.y)
	}

	for x := range r.row {
		b := r.buf[x*3 : x*3+3]
		r.row[x] = pixel.RGBA{R: b[2], G: b[1], B: b[0], A: 0xff}
	}

	r.y++

	return r.row, nil
}
