package png_test

import (
	"bytes"
	"io"
	"runtime"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"

	"github.com/dselans/funnyimg/inflate"
	"github.com/dselans/funnyimg/pixel"
	"github.com/dselans/funnyimg/png"
	"github.com/dselans/funnyimg/png/pngtest"
)

type ReaderTestSuite struct {
	suite.Suite
}

func gradient(width, height int) []pixel.RGBA {
	pix := make([]pixel.RGBA, 0, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pix = append(pix, pixel.RGBA{
				R: uint8(x * 40),
				G: uint8(y * 30),
				B: uint8(x*y*7 + 3),
				A: uint8(255 - x*10),
			})
		}
	}
	return pix
}

func (suite *ReaderTestSuite) readAll(data []byte) ([][]pixel.RGBA, *png.Reader) {
	r, err := png.NewReader(bytes.NewReader(data))
	suite.Require().NoError(err)

	var rows [][]pixel.RGBA
	for {
		row, err := r.NextRow()
		if err == io.EOF {
			break
		}
		suite.Require().NoError(err)
		rows = append(rows, append([]pixel.RGBA(nil), row...))
	}

	return rows, r
}

func (suite *ReaderTestSuite) assertImage(width int, pix []pixel.RGBA, rows [][]pixel.RGBA) {
	suite.Require().Len(rows, len(pix)/width)
	for y, row := range rows {
		suite.Equal(pix[y*width:(y+1)*width], row, "row %d", y)
	}
}

func (suite *ReaderTestSuite) TestSinglePixel() {
	pix := []pixel.RGBA{{R: 1, G: 2, B: 3, A: 4}}

	rows, r := suite.readAll(pngtest.Encode(1, 1, pix, pngtest.Options{}))
	suite.assertImage(1, pix, rows)

	h := r.Header()
	suite.Equal(uint32(1), h.Width)
	suite.Equal(uint32(1), h.Height)
	suite.Equal(png.ColorRGBA, h.ColorType)
	suite.Equal(4, h.RowSize())

	_, err := r.NextRow()
	suite.Equal(io.EOF, err)
}

func (suite *ReaderTestSuite) TestAllFilters() {
	const width, height = 5, 11

	pix := gradient(width, height)
	data := pngtest.Encode(width, height, pix, pngtest.Options{
		Filters: []png.FilterType{png.FilterNone, png.FilterSub, png.FilterUp, png.FilterAverage, png.FilterPaeth},
	})

	rows, r := suite.readAll(data)
	suite.assertImage(width, pix, rows)
	suite.Equal(height, r.Stats().Rows)
	suite.Equal(int64(height*(1+width*4)), r.Stats().DecompressedBytes)
}

func (suite *ReaderTestSuite) TestSplitImageData() {
	const width, height = 7, 9

	pix := gradient(width, height)
	data := pngtest.Encode(width, height, pix, pngtest.Options{
		Filters:   []png.FilterType{png.FilterPaeth, png.FilterUp},
		IDATSize:  5,
		BlockSize: 20,
	})

	rows, r := suite.readAll(data)
	suite.assertImage(width, pix, rows)

	stats := r.Stats()
	suite.Greater(stats.IDATChunks, 10)
	suite.Greater(stats.Blocks, 10)
}

func (suite *ReaderTestSuite) TestSkipsAncillaryChunks() {
	pix := gradient(3, 2)
	data := pngtest.Encode(3, 2, pix, pngtest.Options{
		Before: [][]byte{
			pngtest.Text("Comment", "made for a test"),
			pngtest.Chunk("gAMA", []byte{0, 0, 0xb1, 0x8f}),
		},
	})

	rows, r := suite.readAll(data)
	suite.assertImage(3, pix, rows)

	var types []string
	for _, c := range r.Chunks() {
		types = append(types, c.Type)
	}
	suite.Equal([]string{"IHDR", "tEXt", "gAMA", "IDAT"}, types[:4])
}

func (suite *ReaderTestSuite) TestInvalidSignature() {
	data := pngtest.Encode(1, 1, gradient(1, 1), pngtest.Options{})
	data[1] = 'J'

	_, err := png.NewReader(bytes.NewReader(data))
	suite.ErrorIs(err, png.ErrInvalidSignature)

	_, err = png.NewReader(bytes.NewReader(data[:3]))
	suite.ErrorIs(err, png.ErrInvalidSignature)
}

func (suite *ReaderTestSuite) TestMissingImageData() {
	var data []byte
	data = append(data, png.Signature[:]...)
	data = append(data, pngtest.Chunk(png.ChunkIHDR, pngtest.Header(1, 1).Bytes())...)
	data = append(data, pngtest.Text("a", "b")...)
	data = append(data, pngtest.Chunk(png.ChunkIEND, nil)...)

	_, err := png.NewReader(bytes.NewReader(data))
	suite.ErrorIs(err, png.ErrChunkNotFound)
}

func (suite *ReaderTestSuite) TestMissingHeader() {
	var data []byte
	data = append(data, png.Signature[:]...)
	data = append(data, pngtest.Chunk(png.ChunkIEND, nil)...)

	_, err := png.NewReader(bytes.NewReader(data))
	suite.ErrorIs(err, png.ErrChunkNotFound)
}

func (suite *ReaderTestSuite) TestHeaderRejected() {
	tests := []struct {
		name   string
		modify func(h *png.Header)
		want   error
	}{
		{"16-bit", func(h *png.Header) { h.BitDepth = 16 }, png.ErrUnsupportedBitDepth},
		{"truecolor", func(h *png.Header) { h.ColorType = png.ColorRGB }, png.ErrUnsupportedColorType},
		{"palette", func(h *png.Header) { h.ColorType = png.ColorIndexed }, png.ErrUnsupportedColorType},
		{"interlaced", func(h *png.Header) { h.Interlace = 1 }, png.ErrUnsupportedInterlace},
		{"filter method", func(h *png.Header) { h.Filter = 1 }, png.ErrUnsupportedMethod},
		{"zero width", func(h *png.Header) { h.Width = 0 }, png.ErrInvalidHeader},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			h := pngtest.Header(1, 1)
			tt.modify(&h)

			_, err := png.NewReader(bytes.NewReader(pngtest.EncodeRaw(h, []byte{0, 1, 2, 3, 4}, pngtest.Options{})))
			suite.ErrorIs(err, tt.want)
		})
	}
}

func (suite *ReaderTestSuite) TestInvalidFilterType() {
	data := pngtest.EncodeRaw(pngtest.Header(1, 1), []byte{5, 1, 2, 3, 4}, pngtest.Options{})

	r, err := png.NewReader(bytes.NewReader(data))
	suite.Require().NoError(err)

	_, err = r.NextRow()
	suite.ErrorIs(err, png.ErrInvalidFilterType)

	_, again := r.NextRow()
	suite.Equal(err, again)
}

func (suite *ReaderTestSuite) TestShortImageData() {
	data := pngtest.EncodeRaw(pngtest.Header(1, 2), []byte{0, 1, 2, 3, 4}, pngtest.Options{})

	r, err := png.NewReader(bytes.NewReader(data))
	suite.Require().NoError(err)

	_, err = r.NextRow()
	suite.Require().NoError(err)

	_, err = r.NextRow()
	suite.ErrorIs(err, inflate.ErrTruncatedStream)
}

func (suite *ReaderTestSuite) TestTruncatedFile() {
	const width, height = 8, 8

	data := pngtest.Encode(width, height, gradient(width, height), pngtest.Options{})

	r, err := png.NewReader(bytes.NewReader(data[:len(data)/2]))
	suite.Require().NoError(err)

	for {
		_, err = r.NextRow()
		if err != nil {
			break
		}
	}

	suite.ErrorIs(err, inflate.ErrTruncatedStream)
	suite.ErrorIs(err, inflate.ErrUnexpectedEndOfInput)
}

func TestReaderTestSuite(t *testing.T) {
	suite.Run(t, new(ReaderTestSuite))
}

func totalAlloc() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.TotalAlloc
}

func (suite *ReaderTestSuite) TestHeaderChecks() {
	errTooWide := errors.New("too wide")

	suite.Run("rejects before row buffers", func() {
		// Rows of this image need 64 MiB each; nothing that large may be
		// allocated when a check turns the header down.
		data := pngtest.EncodeRaw(pngtest.Header(1<<24, 4), []byte{0}, pngtest.Options{})

		var seen png.Header
		before := totalAlloc()

		_, err := png.NewReader(bytes.NewReader(data), func(h png.Header) error {
			seen = h
			return errTooWide
		})

		suite.ErrorIs(err, errTooWide)
		suite.Less(totalAlloc()-before, uint64(16<<20))
		suite.Equal(uint32(1<<24), seen.Width)
		suite.Equal(uint32(4), seen.Height)
	})

	suite.Run("passing checks", func() {
		pix := gradient(2, 2)
		calls := 0

		r, err := png.NewReader(bytes.NewReader(pngtest.Encode(2, 2, pix, pngtest.Options{})),
			func(png.Header) error { calls++; return nil },
			func(png.Header) error { calls++; return nil },
		)
		suite.Require().NoError(err)
		suite.Equal(2, calls)

		row, err := r.NextRow()
		suite.Require().NoError(err)
		suite.Equal(pix[:2], row)
	})
}

func (suite *ReaderTestSuite) TestChunkOffsetsFromSeekerPosition() {
	data := pngtest.Encode(1, 1, gradient(1, 1), pngtest.Options{})
	prefixed := append([]byte("junk"), data...)

	rs := bytes.NewReader(prefixed)
	_, err := rs.Seek(4, io.SeekStart)
	suite.Require().NoError(err)

	r, err := png.NewReader(rs)
	suite.Require().NoError(err)

	chunks := r.Chunks()
	suite.Require().NotEmpty(chunks)
	suite.Equal(png.ChunkIHDR, chunks[0].Type)
	// 4 bytes of junk, 8 of signature, 8 of length and type
	suite.Equal(int64(20), chunks[0].Offset)
}
