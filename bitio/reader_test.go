package bitio

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestReadBits(t *testing.T) {
	t.Run("lsb first", func(t *testing.T) {
		// 0b1011_0101, 0b0000_0011
		r := NewReader(bytes.NewReader([]byte{0xb5, 0x03}))

		v, err := r.ReadBits(1)
		require.NoError(t, err)
		assert.Equal(t, uint32(1), v)

		v, err = r.ReadBits(2)
		require.NoError(t, err)
		assert.Equal(t, uint32(0b10), v)

		v, err = r.ReadBits(5)
		require.NoError(t, err)
		assert.Equal(t, uint32(0b10110), v)

		v, err = r.ReadBits(2)
		require.NoError(t, err)
		assert.Equal(t, uint32(0b11), v)
		assert.Equal(t, int64(2), r.Offset())
	})

	t.Run("field spanning bytes", func(t *testing.T) {
		r := NewReader(bytes.NewReader([]byte{0xf0, 0x0f}))

		_, err := r.ReadBits(4)
		require.NoError(t, err)

		v, err := r.ReadBits(8)
		require.NoError(t, err)
		assert.Equal(t, uint32(0xff), v)
	})

	t.Run("zero width reads nothing", func(t *testing.T) {
		r := NewReader(bytes.NewReader(nil))

		v, err := r.ReadBits(0)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), v)
		assert.Equal(t, int64(0), r.Offset())
	})

	t.Run("full width on top of leftover bits", func(t *testing.T) {
		r := NewReader(bytes.NewReader([]byte{0x01, 0x78, 0x56, 0x34, 0x12}))

		_, err := r.ReadBits(8)
		require.NoError(t, err)

		v, err := r.ReadBits(32)
		require.NoError(t, err)
		assert.Equal(t, uint32(0x12345678), v)
	})

	t.Run("too wide", func(t *testing.T) {
		r := NewReader(bytes.NewReader([]byte{0, 0, 0, 0, 0}))
		_, err := r.ReadBits(33)
		assert.Error(t, err)
	})
}

func TestReadBitsEndOfInput(t *testing.T) {
	t.Run("eof", func(t *testing.T) {
		r := NewReader(bytes.NewReader([]byte{0xff}))

		_, err := r.ReadBits(4)
		require.NoError(t, err)

		_, err = r.ReadBits(5)
		assert.ErrorIs(t, err, ErrUnexpectedEOF)

		// sticky
		_, err = r.ReadBits(1)
		assert.ErrorIs(t, err, ErrUnexpectedEOF)
	})

	t.Run("sticky with whole bytes buffered", func(t *testing.T) {
		r := NewReader(bytes.NewReader([]byte{0xff, 0xee}))

		_, err := r.ReadBits(4)
		require.NoError(t, err)

		// Pulls 0xee in before running dry, leaving 12 bits buffered.
		_, err = r.ReadBits(32)
		assert.ErrorIs(t, err, ErrUnexpectedEOF)
		assert.Equal(t, uint(12), r.buffered())

		_, err = r.ReadBits(8)
		assert.ErrorIs(t, err, ErrUnexpectedEOF)

		buf := make([]byte, 1)
		assert.ErrorIs(t, r.ReadBytes(buf), ErrUnexpectedEOF)
	})

	t.Run("source error", func(t *testing.T) {
		r := NewReader(failingReader{})

		_, err := r.ReadBits(1)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnexpectedEOF)
		assert.Contains(t, err.Error(), "disk on fire")
	})
}

func TestReadBytes(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x78, 0x9c, 0xff, 0xaa}))

	hdr := make([]byte, 2)
	require.NoError(t, r.ReadBytes(hdr))
	assert.Equal(t, []byte{0x78, 0x9c}, hdr)

	// Partial byte is dropped before the next aligned read.
	_, err := r.ReadBits(3)
	require.NoError(t, err)

	one := make([]byte, 1)
	require.NoError(t, r.ReadBytes(one))
	assert.Equal(t, []byte{0xaa}, one)

	assert.ErrorIs(t, r.ReadBytes(one), ErrUnexpectedEOF)
}

func TestReadBytesUsesBufferedBits(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x11, 0x22, 0x33, 0x44, 0x55}))

	// Pull 5 bytes into the accumulator, consume one.
	_, err := r.ReadBits(8)
	require.NoError(t, err)
	_, err = r.ReadBits(32)
	require.NoError(t, err)

	buf := make([]byte, 1)
	assert.ErrorIs(t, r.ReadBytes(buf), ErrUnexpectedEOF)

	r = NewReader(bytes.NewReader([]byte{0x11, 0x22, 0x33}))
	_, err = r.ReadBits(12)
	require.NoError(t, err)
	assert.Equal(t, uint(4), r.buffered())

	require.NoError(t, r.ReadBytes(buf))
	assert.Equal(t, []byte{0x33}, buf)
}

func TestSource(t *testing.T) {
	s := NewSource(bytes.NewReader([]byte("0123456789")))

	b, err := s.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('0'), b)

	require.NoError(t, s.Discard(4))
	assert.Equal(t, int64(5), s.Offset())

	rest, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "56789", string(rest))
	assert.Equal(t, int64(10), s.Offset())

	assert.ErrorIs(t, s.Discard(1), io.ErrUnexpectedEOF)
}

func TestSourceAt(t *testing.T) {
	rs := bytes.NewReader([]byte("abcdef"))
	_, err := rs.Seek(2, io.SeekStart)
	require.NoError(t, err)

	s, err := NewSourceAt(rs)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Offset())

	b, err := s.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('c'), b)
	assert.Equal(t, int64(3), s.Offset())
}
