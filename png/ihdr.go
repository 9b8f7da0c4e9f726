package png

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

const ihdrLength = 13

// ColorType is the IHDR color type field.
type ColorType uint8

const (
	ColorGray      ColorType = 0
	ColorRGB       ColorType = 2
	ColorIndexed   ColorType = 3
	ColorGrayAlpha ColorType = 4
	ColorRGBA      ColorType = 6
)

var colorTypeNames = map[ColorType]string{
	ColorGray:      "grayscale",
	ColorRGB:       "truecolor",
	ColorIndexed:   "indexed",
	ColorGrayAlpha: "grayscale with alpha",
	ColorRGBA:      "truecolor with alpha",
}

func (c ColorType) String() string {
	if name, ok := colorTypeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown (%d)", uint8(c))
}

// Channels returns the samples per pixel, 0 for an unknown color type.
func (c ColorType) Channels() int {
	switch c {
	case ColorGray, ColorIndexed:
		return 1
	case ColorGrayAlpha:
		return 2
	case ColorRGB:
		return 3
	case ColorRGBA:
		return 4
	}
	return 0
}

// Header is the decoded IHDR chunk.
type Header struct {
	Width       uint32
	Height      uint32
	BitDepth    uint8
	ColorType   ColorType
	Compression uint8
	Filter      uint8
	Interlace   uint8
}

func readHeader(r io.Reader, length uint32) (Header, error) {
	if length != ihdrLength {
		return Header{}, errors.Wrapf(ErrInvalidHeader, "length %d", length)
	}

	var raw [ihdrLength]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Header{}, errors.Wrap(err, "unable to read IHDR")
	}

	return ParseHeader(raw), nil
}

// ParseHeader decodes a 13-byte IHDR payload.
func ParseHeader(raw [ihdrLength]byte) Header {
	return Header{
		Width:       binary.BigEndian.Uint32(raw[0:4]),
		Height:      binary.BigEndian.Uint32(raw[4:8]),
		BitDepth:    raw[8],
		ColorType:   ColorType(raw[9]),
		Compression: raw[10],
		Filter:      raw[11],
		Interlace:   raw[12],
	}
}

// Bytes encodes h as an IHDR payload.
func (h Header) Bytes() []byte {
	raw := make([]byte, ihdrLength)
	binary.BigEndian.PutUint32(raw[0:4], h.Width)
	binary.BigEndian.PutUint32(raw[4:8], h.Height)
	raw[8] = h.BitDepth
	raw[9] = uint8(h.ColorType)
	raw[10] = h.Compression
	raw[11] = h.Filter
	raw[12] = h.Interlace
	return raw
}

// Check rejects everything the reader cannot decode: only non-interlaced
// 8-bit truecolor with alpha is supported.
func (h Header) Check() error {
	if h.Width == 0 || h.Height == 0 {
		return errors.Wrapf(ErrInvalidHeader, "dimensions %dx%d", h.Width, h.Height)
	}

	if h.Width > maxChunkLength || h.Height > maxChunkLength {
		return errors.Wrapf(ErrInvalidHeader, "dimensions %dx%d", h.Width, h.Height)
	}

	if h.BitDepth != 8 {
		return errors.Wrapf(ErrUnsupportedBitDepth, "bit depth %d", h.BitDepth)
	}

	if h.ColorType != ColorRGBA {
		return errors.Wrapf(ErrUnsupportedColorType, "color type %s", h.ColorType)
	}

	if h.Compression != 0 || h.Filter != 0 {
		return errors.Wrapf(ErrUnsupportedMethod, "compression %d, filter %d", h.Compression, h.Filter)
	}

	if h.Interlace != 0 {
		return errors.Wrapf(ErrUnsupportedInterlace, "interlace method %d", h.Interlace)
	}

	return nil
}

// BytesPerPixel returns the bytes of one complete pixel, rounded up to one.
func (h Header) BytesPerPixel() int {
	return max((h.ColorType.Channels()*int(h.BitDepth)+7)/8, 1)
}

// RowSize returns the bytes of one scanline, filter tag excluded.
func (h Header) RowSize() int {
	return (h.ColorType.Channels()*int(h.BitDepth)*int(h.Width) + 7) / 8
}
