// Package pngtest writes PNG files for tests. Image data is compressed with
// dynamic-Huffman blocks only, so everything it writes is readable by the png
// package.
package pngtest

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/dselans/funnyimg/inflate/deflatetest"
	"github.com/dselans/funnyimg/pixel"
	"github.com/dselans/funnyimg/png"
)

// Options control how Encode lays out the file.
type Options struct {
	// Filters are applied to the rows in turn, cycling. Empty means
	// FilterNone everywhere.
	Filters []png.FilterType

	// IDATSize splits the compressed data into IDAT chunks of at most this
	// many bytes. Zero means a single chunk.
	IDATSize int

	// BlockSize splits the image data into DEFLATE blocks. Zero means 4096.
	BlockSize int

	// Before are extra chunks written between IHDR and the first IDAT.
	Before [][]byte
}

// Chunk returns a complete chunk: length, type, payload and CRC.
func Chunk(typ string, data []byte) []byte {
	buf := make([]byte, 8, 12+len(data))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(data)))
	copy(buf[4:8], typ)
	buf = append(buf, data...)

	return binary.BigEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf[4:]))
}

// Text returns a tEXt chunk.
func Text(keyword, text string) []byte {
	return Chunk("tEXt", append(append([]byte(keyword), 0), text...))
}

// Header returns the IHDR of a width x height 8-bit RGBA image.
func Header(width, height int) png.Header {
	return png.Header{
		Width:     uint32(width),
		Height:    uint32(height),
		BitDepth:  8,
		ColorType: png.ColorRGBA,
	}
}

// Encode returns a PNG file of the width x height image pix, given in row
// order.
func Encode(width, height int, pix []pixel.RGBA, opts Options) []byte {
	const bpp = 4

	var (
		raw  []byte
		prev = make([]byte, width*bpp)
	)

	for y := 0; y < height; y++ {
		cur := make([]byte, 0, width*bpp)
		for _, p := range pix[y*width : (y+1)*width] {
			cur = append(cur, p.R, p.G, p.B, p.A)
		}

		ft := png.FilterNone
		if len(opts.Filters) > 0 {
			ft = opts.Filters[y%len(opts.Filters)]
		}

		raw = append(raw, byte(ft))
		raw = append(raw, Filter(ft, cur, prev, bpp)...)
		prev = cur
	}

	return EncodeRaw(Header(width, height), raw, opts)
}

// EncodeRaw wraps already filtered scanlines in a PNG file with header h.
func EncodeRaw(h png.Header, raw []byte, opts Options) []byte {
	blockSize := opts.BlockSize
	if blockSize == 0 {
		blockSize = 4096
	}

	var out bytes.Buffer
	out.Write(png.Signature[:])
	out.Write(Chunk(png.ChunkIHDR, h.Bytes()))

	for _, c := range opts.Before {
		out.Write(c)
	}

	data := deflatetest.Compress(raw, blockSize)
	for len(data) > 0 {
		n := len(data)
		if opts.IDATSize > 0 && n > opts.IDATSize {
			n = opts.IDATSize
		}
		out.Write(Chunk(png.ChunkIDAT, data[:n]))
		data = data[n:]
	}

	out.Write(Chunk(png.ChunkIEND, nil))

	return out.Bytes()
}

// Filter applies ft to cur and returns the filtered bytes.
func Filter(ft png.FilterType, cur, prev []byte, bpp int) []byte {
	out := make([]byte, len(cur))

	left := func(i int) byte {
		if i < bpp {
			return 0
		}
		return cur[i-bpp]
	}
	upLeft := func(i int) byte {
		if i < bpp {
			return 0
		}
		return prev[i-bpp]
	}

	for i := range cur {
		a, b, c := left(i), prev[i], upLeft(i)

		switch ft {
		case png.FilterNone:
			out[i] = cur[i]
		case png.FilterSub:
			out[i] = cur[i] - a
		case png.FilterUp:
			out[i] = cur[i] - b
		case png.FilterAverage:
			out[i] = cur[i] - uint8((int(a)+int(b))/2)
		case png.FilterPaeth:
			out[i] = cur[i] - predict(a, b, c)
		default:
			out[i] = cur[i]
		}
	}

	return out
}

func predict(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := p-int(a), p-int(b), p-int(c)
	if pa < 0 {
		pa = -pa
	}
	if pb < 0 {
		pb = -pb
	}
	if pc < 0 {
		pc = -pc
	}

	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}
