// Package inflate decodes zlib-wrapped DEFLATE data (RFC 1950, RFC 1951).
//
// Only dynamic-Huffman blocks are supported; stored, fixed-Huffman and
// reserved blocks fail with ErrUnsupportedBlockType. Output is produced one
// byte at a time as the caller pulls it:
//
//	s, err := inflate.NewStream(r)
//	if err != nil {
//		return err
//	}
//	for {
//		b, err := s.ReadByte()
//		if err == io.EOF {
//			break
//		}
//		...
//	}
//
// A Stream is single-pass. Decoding again means opening the input again.
package inflate

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dselans/funnyimg/bitio"
)

var blockTypeNames = map[uint32]string{
	btypeStored:  "stored",
	btypeFixed:   "fixed huffman",
	btypeDynamic: "dynamic huffman",
	3:            "reserved",
}

// Header is the two-byte zlib header.
type Header struct {
	Method     uint8 // CM, 8 for DEFLATE
	WindowInfo uint8 // CINFO, log2(window size) - 8
	Dict       bool  // FDICT
	Level      uint8 // FLEVEL
}

// WindowSize returns the window capacity the header declares.
func (h Header) WindowSize() int {
	return 1 << (8 + uint(h.WindowInfo))
}

func parseHeader(b [2]byte) Header {
	return Header{
		Method:     b[0] & 0x0f,
		WindowInfo: b[0] >> 4,
		Dict:       b[1]&0x20 != 0,
		Level:      b[1] >> 6,
	}
}

// Stream is a lazily decoded DEFLATE byte sequence. It implements io.Reader
// and io.ByteReader.
type Stream struct {
	br     *bitio.Reader
	header Header
	win    *window
	log    *logrus.Entry

	block  *blockDecoder
	final  bool
	blocks int
	err    error
}

var (
	_ io.Reader     = &Stream{}
	_ io.ByteReader = &Stream{}
)

// NewStream reads the zlib header from r and returns a Stream positioned at
// the first block. If r does not implement io.ByteReader it is buffered, and
// the stream may read past the end of the compressed data.
func NewStream(r io.Reader) (*Stream, error) {
	s := &Stream{
		br:  bitio.NewReader(r),
		log: logrus.WithField("pkg", "inflate"),
	}

	var raw [2]byte
	if err := s.br.ReadBytes(raw[:]); err != nil {
		return nil, errors.Wrap(truncated(err), "unable to read zlib header")
	}

	s.header = parseHeader(raw)

	if s.header.Method != methodDeflate {
		return nil, errors.Wrapf(ErrUnsupportedContainer, "compression method %d", s.header.Method)
	}

	if s.header.WindowInfo > maxWindowInfo {
		return nil, errors.Wrapf(ErrUnsupportedContainer, "window info %d", s.header.WindowInfo)
	}

	if s.header.Dict {
		return nil, errors.Wrap(ErrUnsupportedContainer, "preset dictionary")
	}

	s.win = newWindow(s.header.WindowSize())

	return s, nil
}

// Header returns the zlib header read by NewStream.
func (s *Stream) Header() Header {
	return s.header
}

// ReadByte returns the next decompressed byte. It returns io.EOF after the
// final block. Any other error ends the stream: every later call returns it
// again.
func (s *Stream) ReadByte() (byte, error) {
	if s.err != nil {
		return 0, s.err
	}

	for {
		if s.block == nil {
			if s.final {
				s.log.Debugf("end of stream after %d blocks, %d bytes", s.blocks, s.win.pos)
				s.err = io.EOF
				return 0, s.err
			}

			if err := s.nextBlock(); err != nil {
				s.err = s.corrupt(truncated(err))
				return 0, s.err
			}
		}

		b, err := s.block.next()
		if err == nil {
			return b, nil
		}

		if err == io.EOF {
			s.block = nil
			continue
		}

		s.err = s.corrupt(truncated(err))
		return 0, s.err
	}
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	for n := range p {
		b, err := s.ReadByte()
		if err != nil {
			return n, err
		}
		p[n] = b
	}

	return len(p), nil
}

// Produced returns the number of bytes decoded so far.
func (s *Stream) Produced() int64 {
	return s.win.pos
}

// Blocks returns the number of blocks started so far.
func (s *Stream) Blocks() int {
	return s.blocks
}

// Offset returns the number of compressed bytes consumed so far.
func (s *Stream) Offset() int64 {
	return s.br.Offset()
}

func (s *Stream) nextBlock() error {
	final, err := s.br.ReadBits(1)
	if err != nil {
		return err
	}

	btype, err := s.br.ReadBits(2)
	if err != nil {
		return err
	}

	if btype != btypeDynamic {
		return errors.Wrapf(ErrUnsupportedBlockType, "%s block", blockTypeNames[btype])
	}

	c, err := readDynamicHeader(s.br)
	if err != nil {
		return err
	}

	s.blocks++
	s.final = final == 1
	s.block = &blockDecoder{
		br:  s.br,
		c:   c,
		win: s.win,
	}

	s.log.Debugf("block %d: final=%v hlit=%d hdist=%d offset=%d", s.blocks, s.final, c.nlen, c.ndist, s.br.Offset())

	return nil
}

func (s *Stream) corrupt(err error) error {
	return &CorruptInputError{
		Offset: s.br.Offset(),
		Err:    err,
	}
}

// Decompress inflates all of r.
func Decompress(r io.Reader) ([]byte, error) {
	s, err := NewStream(r)
	if err != nil {
		return nil, err
	}

	return io.ReadAll(s)
}
