package inflate

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dselans/funnyimg/inflate/deflatetest"
)

func TestWindow(t *testing.T) {
	w := newWindow(4)
	for _, b := range []byte("abcdef") {
		w.write(b)
	}

	assert.Equal(t, int64(6), w.pos)
	assert.Equal(t, 4, w.size())
	assert.Equal(t, byte('f'), w.back(1))
	assert.Equal(t, byte('c'), w.back(4))
}

func TestBlockDecoderCopy(t *testing.T) {
	t.Run("distance equal to length", func(t *testing.T) {
		w := newWindow(256)
		w.write('A')
		w.write('B')

		d := &blockDecoder{win: w, copyLen: 2, copyDist: 2}

		var out []byte
		for d.copyLen > 0 {
			b, err := d.next()
			require.NoError(t, err)
			out = append(out, b)
		}

		assert.Equal(t, "AB", string(out))
		assert.Equal(t, int64(4), w.pos)
	})

	t.Run("distance below length", func(t *testing.T) {
		w := newWindow(256)
		w.write('X')

		d := &blockDecoder{win: w, copyLen: 4, copyDist: 1}

		var out []byte
		for d.copyLen > 0 {
			b, err := d.next()
			require.NoError(t, err)
			out = append(out, b)
		}

		assert.Equal(t, "XXXX", string(out))
	})
}

func TestBlockDecoderSymbols(t *testing.T) {
	t.Run("length symbol out of range", func(t *testing.T) {
		d := &blockDecoder{}
		_, err := d.readLength(286)
		assert.ErrorIs(t, err, ErrInvalidHuffmanCode)
	})

	t.Run("distance symbol out of range", func(t *testing.T) {
		c := &codes{}
		_, err := c.distcode.Build(append(make([]int16, 30), 1))
		require.NoError(t, err)

		d := &blockDecoder{br: codeReader("0"), c: c}
		_, err = d.readDistance()
		assert.ErrorIs(t, err, ErrInvalidHuffmanCode)
	})

	t.Run("length with extra bits", func(t *testing.T) {
		// symbol 284: base 227, 5 extra bits
		d := &blockDecoder{br: codeReader("01111")}
		length, err := d.readLength(284)
		require.NoError(t, err)
		assert.Equal(t, 227+30, length)
	})
}

func TestBackReferences(t *testing.T) {
	tests := []struct {
		name   string
		tokens []deflatetest.Token
		want   string
	}{
		{
			name:   "repeated pair",
			tokens: append(deflatetest.Literals([]byte("AB")), deflatetest.Match(4, 2)),
			want:   "ABABAB",
		},
		{
			name:   "run of one byte",
			tokens: []deflatetest.Token{deflatetest.Literal('X'), deflatetest.Match(4, 1)},
			want:   "XXXXX",
		},
		{
			name:   "longest match",
			tokens: []deflatetest.Token{deflatetest.Literal('z'), deflatetest.Match(258, 1)},
			want:   string(bytes.Repeat([]byte("z"), 259)),
		},
		{
			name: "two matches",
			tokens: append(deflatetest.Literals([]byte("abc-")),
				deflatetest.Match(3, 4), deflatetest.Literal('!'), deflatetest.Match(8, 8)),
			want: "abc-abc!abc-abc!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := deflatetest.Zlib(deflatetest.Block{Tokens: tt.tokens, Final: true})

			out, err := Decompress(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestDistanceExceeded(t *testing.T) {
	t.Run("before start of output", func(t *testing.T) {
		w := &deflatetest.BitWriter{}
		w.WriteBytes(deflatetest.Header(7))
		deflatetest.WriteBlock(w, deflatetest.Block{
			Tokens: append(deflatetest.Literals([]byte("abc")), deflatetest.Match(3, 5)),
			Final:  true,
		})

		s, err := NewStream(bytes.NewReader(w.Bytes()))
		require.NoError(t, err)

		var out []byte
		for {
			b, err := s.ReadByte()
			if err != nil {
				assert.ErrorIs(t, err, ErrDistanceExceeded)
				break
			}
			out = append(out, b)
		}

		assert.Equal(t, "abc", string(out))
	})

	t.Run("beyond window", func(t *testing.T) {
		lit := bytes.Repeat([]byte("0123456789"), 30)
		data := deflatetest.ZlibWindow(0, deflatetest.Block{
			Tokens: append(deflatetest.Literals(lit), deflatetest.Match(3, 280)),
			Final:  true,
		})

		_, err := Decompress(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrDistanceExceeded)
	})

	t.Run("whole window", func(t *testing.T) {
		lit := bytes.Repeat([]byte("0123456789"), 30)
		data := deflatetest.ZlibWindow(0, deflatetest.Block{
			Tokens: append(deflatetest.Literals(lit), deflatetest.Match(3, 256)),
			Final:  true,
		})

		out, err := Decompress(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, append(lit, lit[44:47]...), out)
	})
}

func TestBlockDecoderEnd(t *testing.T) {
	d := &blockDecoder{done: true}
	_, err := d.next()
	assert.Equal(t, io.EOF, err)
}
