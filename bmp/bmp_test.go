package bmp

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"io"
	"runtime"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xbmp "golang.org/x/image/bmp"

	"github.com/dselans/funnyimg/pixel"
)

func testImage(width, height int, alpha uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 50), G: uint8(y * 60), B: uint8(x + y), A: alpha})
		}
	}
	return img
}

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, xbmp.Encode(&buf, img))
	return buf.Bytes()
}

func readRows(t *testing.T, r *Reader) [][]pixel.RGBA {
	t.Helper()

	var rows [][]pixel.RGBA
	for {
		row, err := r.NextRow()
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, append([]pixel.RGBA(nil), row...))
	}
}

func TestReader(t *testing.T) {
	// Widths 5 and 4 cover padded and unpadded rows.
	for _, width := range []int{5, 4, 1} {
		img := testImage(width, 3, 0xff)

		r, err := NewReader(bytes.NewReader(encode(t, img)))
		require.NoError(t, err)

		h := r.Header()
		assert.Equal(t, width, h.Width())
		assert.Equal(t, 3, h.Height())
		assert.False(t, h.TopDown())

		rows := readRows(t, r)
		require.Len(t, rows, 3)

		for y, row := range rows {
			for x, p := range row {
				assert.Equal(t, pixel.FromColor(img.At(x, y)), p, "pixel %d,%d", x, y)
			}
		}
	}
}

func TestReaderTopDown(t *testing.T) {
	img := testImage(3, 4, 0xff)
	data := encode(t, img)

	// Flip the sign of the height: the stored rows now read top-down, so
	// the image comes out upside down.
	height := int32(binary.LittleEndian.Uint32(data[22:26]))
	binary.LittleEndian.PutUint32(data[22:26], uint32(-height))

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, r.Header().TopDown())

	rows := readRows(t, r)
	require.Len(t, rows, 4)

	for y, row := range rows {
		for x, p := range row {
			assert.Equal(t, pixel.FromColor(img.At(x, 3-y)), p)
		}
	}
}

func TestReaderRejects(t *testing.T) {
	t.Run("signature", func(t *testing.T) {
		data := encode(t, testImage(2, 2, 0xff))
		data[0] = 'X'

		_, err := NewReader(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("32-bit with alpha", func(t *testing.T) {
		_, err := NewReader(bytes.NewReader(encode(t, testImage(2, 2, 0x80))))
		assert.Error(t, err)
	})

	t.Run("bit depth", func(t *testing.T) {
		data := encode(t, testImage(2, 2, 0xff))
		binary.LittleEndian.PutUint16(data[28:30], 32)

		_, err := NewReader(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrUnsupportedBitDepth)
	})

	t.Run("compression", func(t *testing.T) {
		data := encode(t, testImage(2, 2, 0xff))
		binary.LittleEndian.PutUint32(data[30:34], 1)

		_, err := NewReader(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrUnsupportedCompression)
	})

	t.Run("DIB version", func(t *testing.T) {
		data := encode(t, testImage(2, 2, 0xff))
		binary.LittleEndian.PutUint32(data[14:18], 108)

		_, err := NewReader(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrUnsupportedDIB)
	})

	t.Run("zero height", func(t *testing.T) {
		data := encode(t, testImage(2, 2, 0xff))
		binary.LittleEndian.PutUint32(data[22:26], 0)

		_, err := NewReader(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrInvalidDimensions)
	})

	t.Run("short header", func(t *testing.T) {
		_, err := NewReader(bytes.NewReader([]byte("BM")))
		assert.Error(t, err)
	})
}

func TestReaderTruncated(t *testing.T) {
	data := encode(t, testImage(4, 4, 0xff))

	r, err := NewReader(bytes.NewReader(data[:len(data)-20]))
	require.NoError(t, err)

	// Bottom-up: the first row returned is stored last.
	_, err = r.NextRow()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReaderHeaderChecks(t *testing.T) {
	errTooWide := errors.New("too wide")

	t.Run("rejects before row buffers", func(t *testing.T) {
		data := encode(t, testImage(2, 2, 0xff))
		binary.LittleEndian.PutUint32(data[18:22], 1<<24)

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		before := m.TotalAlloc

		var width int
		_, err := NewReader(bytes.NewReader(data), func(h Header) error {
			width = h.Width()
			return errTooWide
		})

		runtime.ReadMemStats(&m)

		assert.ErrorIs(t, err, errTooWide)
		assert.Equal(t, 1<<24, width)
		assert.Less(t, m.TotalAlloc-before, uint64(16<<20))
	})

	t.Run("passing check", func(t *testing.T) {
		r, err := NewReader(bytes.NewReader(encode(t, testImage(3, 2, 0xff))), func(h Header) error {
			return nil
		})
		require.NoError(t, err)
		assert.Len(t, readRows(t, r), 2)
	})
}
