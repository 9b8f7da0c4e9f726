// Package png decodes non-interlaced 8-bit RGBA PNG images row by row, using
// the inflate package for the image data. Chunk CRCs are not checked.
package png

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dselans/funnyimg/bitio"
	"github.com/dselans/funnyimg/inflate"
	"github.com/dselans/funnyimg/pixel"
)

// Stats describes how far a Reader got.
type Stats struct {
	Rows              int
	IDATChunks        int
	Blocks            int
	CompressedBytes   int64
	DecompressedBytes int64
}

// Reader yields the pixel rows of a PNG image, top to bottom.
type Reader struct {
	chunks   *chunkReader
	header   Header
	idat     *idatReader
	stream   *inflate.Stream
	defilter *Defilter
	log      *logrus.Entry

	row []pixel.RGBA
	err error
}

// HeaderCheck vets a header before any buffer is sized from it.
type HeaderCheck func(Header) error

// NewReader reads everything up to the start of the image data: the
// signature, IHDR and the zlib header of the first IDAT chunk. The checks run
// right after IHDR is parsed; the first failing one is returned as is.
// Chunk offsets count from r's current position when r is an io.Seeker.
func NewReader(r io.Reader, checks ...HeaderCheck) (*Reader, error) {
	src, err := newSource(r)
	if err != nil {
		return nil, err
	}

	pr := &Reader{
		chunks: newChunkReader(src),
		log:    logrus.WithField("pkg", "png"),
	}

	if err := pr.chunks.checkSignature(); err != nil {
		return nil, err
	}

	ch, err := pr.chunks.find(ChunkIHDR)
	if err != nil {
		return nil, errors.Wrap(err, "unable to locate IHDR")
	}

	pr.header, err = readHeader(src, ch.Length)
	if err != nil {
		return nil, err
	}

	if err := pr.header.Check(); err != nil {
		return nil, err
	}

	for _, check := range checks {
		if err := check(pr.header); err != nil {
			return nil, err
		}
	}

	if err := pr.chunks.endPayload(); err != nil {
		return nil, errors.Wrap(err, "unable to skip IHDR CRC")
	}

	ch, err = pr.chunks.find(ChunkIDAT)
	if err != nil {
		return nil, errors.Wrap(err, "unable to locate IDAT")
	}

	pr.log.Debugf("%dx%d %s, first IDAT at offset %d (%d bytes)",
		pr.header.Width, pr.header.Height, pr.header.ColorType, ch.Offset, ch.Length)

	pr.idat = &idatReader{chunks: pr.chunks, remaining: ch.Length, count: 1}

	pr.stream, err = inflate.NewStream(pr.idat)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open image data")
	}

	pr.defilter = NewDefilter(pr.stream, pr.header.RowSize(), pr.header.BytesPerPixel())
	pr.row = make([]pixel.RGBA, pr.header.Width)

	return pr, nil
}

func newSource(r io.Reader) (*bitio.Source, error) {
	switch v := r.(type) {
	case *bitio.Source:
		return v, nil
	case io.ReadSeeker:
		src, err := bitio.NewSourceAt(v)
		if err != nil {
			return nil, errors.Wrap(err, "unable to open png source")
		}
		return src, nil
	}

	return bitio.NewSource(r), nil
}

// Header returns the image header.
func (r *Reader) Header() Header {
	return r.header
}

// Chunks returns the headers of the chunks seen so far.
func (r *Reader) Chunks() []ChunkHeader {
	return r.chunks.seen
}

// NextRow returns the next row of pixels, or io.EOF after the last one. The
// returned slice is reused by the following call.
func (r *Reader) NextRow() ([]pixel.RGBA, error) {
	if r.err != nil {
		return nil, r.err
	}

	if r.defilter.Rows() >= int(r.header.Height) {
		r.log.Debugf("decoded %d rows from %d IDAT chunks", r.defilter.Rows(), r.idat.count)
		r.err = io.EOF
		return nil, r.err
	}

	raw, err := r.defilter.Next()
	if err != nil {
		r.err = err
		return nil, err
	}

	for x := range r.row {
		p := raw[x*4 : x*4+4]
		r.row[x] = pixel.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
	}

	return r.row, nil
}

// Stats reports progress so far.
func (r *Reader) Stats() Stats {
	return Stats{
		Rows:              r.defilter.Rows(),
		IDATChunks:        r.idat.count,
		Blocks:            r.stream.Blocks(),
		CompressedBytes:   r.stream.Offset(),
		DecompressedBytes: r.stream.Produced(),
	}
}

// idatReader presents the payloads of consecutive IDAT chunks as one stream.
// It ends at the first chunk of any other type.
type idatReader struct {
	chunks    *chunkReader
	remaining uint32
	count     int
	done      bool
}

var (
	_ io.Reader     = &idatReader{}
	_ io.ByteReader = &idatReader{}
)

func (d *idatReader) advance() error {
	for d.remaining == 0 {
		if d.done {
			return io.EOF
		}

		if err := d.chunks.endPayload(); err != nil {
			return err
		}

		h, err := d.chunks.next()
		if err != nil {
			return err
		}

		if h.Type != ChunkIDAT {
			d.done = true
			return io.EOF
		}

		d.remaining = h.Length
		d.count++
	}

	return nil
}

func (d *idatReader) ReadByte() (byte, error) {
	if err := d.advance(); err != nil {
		return 0, err
	}

	b, err := d.chunks.src.ReadByte()
	if err != nil {
		return 0, err
	}
	d.remaining--

	return b, nil
}

func (d *idatReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if err := d.advance(); err != nil {
		return 0, err
	}

	n, err := d.chunks.src.Read(p[:min(len(p), int(d.remaining))])
	d.remaining -= uint32(n)

	return n, err
}
