package png

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/dselans/funnyimg/bitio"
)

// Signature starts every PNG file.
var Signature = [8]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Chunk types the reader looks for.
const (
	ChunkIHDR = "IHDR"
	ChunkIDAT = "IDAT"
	ChunkIEND = "IEND"
)

const (
	// maxChunkLength is the largest length a chunk may declare.
	maxChunkLength = 1<<31 - 1

	crcSize = 4
)

// ChunkHeader is the length and type preceding a chunk's payload.
type ChunkHeader struct {
	Length uint32
	Type   string
	Offset int64 // of the payload
}

// chunkReader walks the chunks of a PNG stream. It never verifies CRCs; after
// a payload it only skips them.
type chunkReader struct {
	src  *bitio.Source
	seen []ChunkHeader
}

func newChunkReader(src *bitio.Source) *chunkReader {
	return &chunkReader{src: src}
}

func (c *chunkReader) checkSignature() error {
	var sig [8]byte
	if _, err := io.ReadFull(c.src, sig[:]); err != nil {
		return errors.Wrap(ErrInvalidSignature, err.Error())
	}

	if sig != Signature {
		return errors.Wrapf(ErrInvalidSignature, "got % x", sig[:])
	}

	return nil
}

// next reads the next chunk header, leaving the source at its payload.
func (c *chunkReader) next() (ChunkHeader, error) {
	var raw [8]byte
	if _, err := io.ReadFull(c.src, raw[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return ChunkHeader{}, errors.Wrap(err, "unable to read chunk header")
	}

	h := ChunkHeader{
		Length: binary.BigEndian.Uint32(raw[:4]),
		Type:   string(raw[4:]),
		Offset: c.src.Offset(),
	}

	if h.Length > maxChunkLength {
		return h, errors.Wrapf(ErrInvalidChunk, "%s chunk length %d", h.Type, h.Length)
	}

	c.seen = append(c.seen, h)

	return h, nil
}

// find advances to the payload of the next chunk of type typ, skipping every
// other chunk along with its CRC. Reaching IEND first yields ErrChunkNotFound.
func (c *chunkReader) find(typ string) (ChunkHeader, error) {
	for {
		h, err := c.next()
		if err != nil {
			return h, err
		}

		if h.Type == typ {
			return h, nil
		}

		if h.Type == ChunkIEND {
			return h, errors.Wrapf(ErrChunkNotFound, "%s before IEND", typ)
		}

		if err := c.src.Discard(int64(h.Length) + crcSize); err != nil {
			return h, errors.Wrapf(err, "unable to skip %s chunk", h.Type)
		}
	}
}

// endPayload skips the CRC after a fully consumed payload.
func (c *chunkReader) endPayload() error {
	return c.src.Discard(crcSize)
}
