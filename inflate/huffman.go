package inflate

import (
	"github.com/pkg/errors"
)

// bitReader is the part of bitio.Reader the decoders need.
type bitReader interface {
	ReadBits(n uint) (uint32, error)
}

// Huffman is a canonical Huffman code stored as the number of codes of each
// length plus the symbols ordered by code. Codes of one length are assigned
// to symbols in ascending symbol order, so the two slices fully describe the
// code.
type Huffman struct {
	count  [maxBits + 1]int16
	symbol []int16
}

// Build constructs the code for symbols 0..len(lengths)-1, where lengths[s]
// is the code length of symbol s and 0 means the symbol is unused.
//
// It returns the code space left unused: 0 for a complete code, a positive
// value for an incomplete one. An over-subscribed set of lengths fails with
// ErrInvalidHuffmanCode. A set with every length zero builds an empty table
// that decodes nothing.
func (h *Huffman) Build(lengths []int16) (int, error) {
	h.count = [maxBits + 1]int16{}
	h.symbol = nil

	for sym, l := range lengths {
		if l < 0 || l > maxBits {
			return 0, errors.Wrapf(ErrInvalidHuffmanCode, "symbol %d has code length %d", sym, l)
		}
		h.count[l]++
	}

	if int(h.count[0]) == len(lengths) {
		return 0, nil
	}

	left := 1
	for l := 1; l <= maxBits; l++ {
		left <<= 1
		left -= int(h.count[l])
		if left < 0 {
			return left, errors.Wrapf(ErrInvalidHuffmanCode, "over-subscribed at length %d", l)
		}
	}

	var offs [maxBits + 1]int
	for l := 1; l < maxBits; l++ {
		offs[l+1] = offs[l] + int(h.count[l])
	}

	h.symbol = make([]int16, len(lengths)-int(h.count[0]))
	for sym, l := range lengths {
		if l != 0 {
			h.symbol[offs[l]] = int16(sym)
			offs[l]++
		}
	}

	return left, nil
}

// Count returns how many symbols have a code of the given length.
func (h *Huffman) Count(length int) int {
	if length < 0 || length > maxBits {
		return 0
	}
	return int(h.count[length])
}

// Decode reads one code from br, a bit at a time, and returns its symbol.
//
// code is the bits read so far, first is the first code of the current
// length and index is where the symbols of that length start.
func (h *Huffman) Decode(br bitReader) (int, error) {
	code, first, index := 0, 0, 0

	for l := 1; l <= maxBits; l++ {
		bit, err := br.ReadBits(1)
		if err != nil {
			return -1, err
		}

		code |= int(bit)
		count := int(h.count[l])
		if code-count < first {
			return int(h.symbol[index+(code-first)]), nil
		}

		index += count
		first += count
		first <<= 1
		code <<= 1
	}

	return -1, ErrInvalidHuffmanCode
}
