// Package deflatetest builds zlib streams made of dynamic-Huffman blocks for
// tests. The encoder makes no attempt at good compression: the caller picks
// the literals and back-references, and code lengths are assigned so that
// every code is complete.
package deflatetest

import (
	"encoding/binary"
	"hash/adler32"
	"sort"
)

// Base lengths/distances and extra bits, RFC 1951 section 3.2.5.
var (
	lens = [29]int{
		3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31,
		35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258,
	}
	lext = [29]uint{
		0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
		3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0,
	}
	dists = [30]int{
		1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193,
		257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145,
		8193, 12289, 16385, 24577,
	}
	dext = [30]uint{
		0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
		7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
	}
	clOrder = [19]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}
)

const endOfBlock = 256

// BitWriter packs fields least significant bit first.
type BitWriter struct {
	buf   []byte
	acc   uint64
	nbits uint
}

// WriteBits appends the low n bits of v.
func (w *BitWriter) WriteBits(v uint32, n uint) {
	w.acc |= uint64(v&(1<<n-1)) << w.nbits
	w.nbits += n

	for w.nbits >= 8 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc >>= 8
		w.nbits -= 8
	}
}

// WriteCode appends an n-bit Huffman code, most significant bit first.
func (w *BitWriter) WriteCode(code uint32, n uint) {
	w.WriteBits(reverse(code, n), n)
}

// WriteBytes appends raw bytes after padding to a byte boundary.
func (w *BitWriter) WriteBytes(b []byte) {
	w.Flush()
	w.buf = append(w.buf, b...)
}

// Flush pads the pending bits with zeros up to a byte boundary.
func (w *BitWriter) Flush() {
	if w.nbits > 0 {
		w.WriteBits(0, 8-w.nbits)
	}
}

// Bytes returns everything written so far, padding the last byte.
func (w *BitWriter) Bytes() []byte {
	w.Flush()
	return w.buf
}

func reverse(v uint32, n uint) uint32 {
	var r uint32
	for i := uint(0); i < n; i++ {
		r = r<<1 | (v>>i)&1
	}
	return r
}

// Token is a literal byte or, when Length > 0, a back-reference.
type Token struct {
	Literal byte
	Length  int
	Dist    int
}

// Literal returns a literal token.
func Literal(b byte) Token {
	return Token{Literal: b}
}

// Literals returns one literal token per byte of s.
func Literals(s []byte) []Token {
	tokens := make([]Token, len(s))
	for i, b := range s {
		tokens[i] = Literal(b)
	}
	return tokens
}

// Match returns a back-reference token.
func Match(length, dist int) Token {
	return Token{Length: length, Dist: dist}
}

// Block is one dynamic-Huffman block.
type Block struct {
	Tokens []Token
	Final  bool
}

// Expand replays the tokens of blocks and returns the bytes they stand for.
func Expand(blocks ...Block) []byte {
	var out []byte
	for _, b := range blocks {
		for _, t := range b.Tokens {
			if t.Length == 0 {
				out = append(out, t.Literal)
				continue
			}
			for i := 0; i < t.Length; i++ {
				out = append(out, out[len(out)-t.Dist])
			}
		}
	}
	return out
}

// Header returns a zlib header for DEFLATE with the given window info, with a
// valid FCHECK.
func Header(windowInfo uint8) []byte {
	cmf := windowInfo<<4 | 8
	flg := byte(2 << 6)
	if rem := (uint16(cmf)<<8 | uint16(flg)) % 31; rem != 0 {
		flg += byte(31 - rem)
	}
	return []byte{cmf, flg}
}

// Zlib returns a complete zlib stream with a 32K window: header, blocks and
// the Adler-32 trailer of the expanded data.
func Zlib(blocks ...Block) []byte {
	return ZlibWindow(7, blocks...)
}

// ZlibWindow is Zlib with an explicit window info.
func ZlibWindow(windowInfo uint8, blocks ...Block) []byte {
	w := &BitWriter{}
	w.WriteBytes(Header(windowInfo))

	for _, b := range blocks {
		WriteBlock(w, b)
	}

	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], adler32.Checksum(Expand(blocks...)))
	w.WriteBytes(sum[:])

	return w.Bytes()
}

// Compress splits data into literal-only blocks of at most blockSize bytes.
func Compress(data []byte, blockSize int) []byte {
	var blocks []Block
	for len(data) > blockSize {
		blocks = append(blocks, Block{Tokens: Literals(data[:blockSize])})
		data = data[blockSize:]
	}
	blocks = append(blocks, Block{Tokens: Literals(data), Final: true})

	return Zlib(blocks...)
}

// WriteBlock encodes b as a dynamic-Huffman block.
func WriteBlock(w *BitWriter, b Block) {
	litFreq := make([]int, 286)
	distFreq := make([]int, 30)

	for _, t := range b.Tokens {
		if t.Length == 0 {
			litFreq[t.Literal]++
			continue
		}
		litFreq[257+lengthCode(t.Length)]++
		distFreq[distCode(t.Dist)]++
	}
	litFreq[endOfBlock]++

	// The end-of-block code alone would make a single-code table, pad it so
	// the literal/length code is always complete.
	if used(litFreq) == 1 {
		litFreq[0]++
	}

	litLens := Lengths(litFreq)
	distLens := Lengths(distFreq)

	nlen := trimmed(litLens, 257)
	ndist := trimmed(distLens, 1)

	WriteBlockHeader(w, b.Final, litLens[:nlen], distLens[:ndist])

	litCodes := Codes(litLens)
	distCodes := Codes(distLens)

	for _, t := range b.Tokens {
		if t.Length == 0 {
			w.WriteCode(litCodes[t.Literal], uint(litLens[t.Literal]))
			continue
		}

		lc := lengthCode(t.Length)
		w.WriteCode(litCodes[257+lc], uint(litLens[257+lc]))
		w.WriteBits(uint32(t.Length-lens[lc]), lext[lc])

		dc := distCode(t.Dist)
		w.WriteCode(distCodes[dc], uint(distLens[dc]))
		w.WriteBits(uint32(t.Dist-dists[dc]), dext[dc])
	}

	w.WriteCode(litCodes[endOfBlock], uint(litLens[endOfBlock]))
}

// WriteBlockHeader writes BFINAL, BTYPE=dynamic and the code tables for the
// given literal/length and distance code lengths. The lengths are written as
// given, so invalid tables can be produced on purpose; len(litLens) must be
// in 257..288 and len(distLens) in 1..32.
func WriteBlockHeader(w *BitWriter, final bool, litLens, distLens []int) {
	all := append(append([]int{}, litLens...), distLens...)
	rle := runLengths(all)

	clFreq := make([]int, 19)
	for _, r := range rle {
		clFreq[r.sym]++
	}
	if used(clFreq) == 1 {
		for i := range clFreq {
			if clFreq[i] == 0 {
				clFreq[i]++
				break
			}
		}
	}
	clLens := Lengths(clFreq)

	ncl := 19
	for ncl > 4 && clLens[clOrder[ncl-1]] == 0 {
		ncl--
	}

	bfinal := uint32(0)
	if final {
		bfinal = 1
	}

	w.WriteBits(bfinal, 1)
	w.WriteBits(2, 2)
	w.WriteBits(uint32(len(litLens)-257), 5)
	w.WriteBits(uint32(len(distLens)-1), 5)
	w.WriteBits(uint32(ncl-4), 4)

	for i := 0; i < ncl; i++ {
		w.WriteBits(uint32(clLens[clOrder[i]]), 3)
	}

	clCodes := Codes(clLens)
	for _, r := range rle {
		w.WriteCode(clCodes[r.sym], uint(clLens[r.sym]))
		if r.bits > 0 {
			w.WriteBits(uint32(r.extra), r.bits)
		}
	}
}

// Lengths assigns code lengths to the symbols with a non-zero frequency. A
// single used symbol gets length 1. Otherwise, with k used symbols and
// L = ceil(log2 k), the 2^L-k most frequent symbols get L-1 bits and the rest
// L bits, which fills the code space exactly.
func Lengths(freq []int) []int {
	lengths := make([]int, len(freq))

	var syms []int
	for s, f := range freq {
		if f > 0 {
			syms = append(syms, s)
		}
	}

	k := len(syms)
	switch k {
	case 0:
		return lengths
	case 1:
		lengths[syms[0]] = 1
		return lengths
	}

	sort.SliceStable(syms, func(i, j int) bool {
		return freq[syms[i]] > freq[syms[j]]
	})

	l := 0
	for 1<<l < k {
		l++
	}

	short := 1<<l - k
	for i, s := range syms {
		if i < short {
			lengths[s] = l - 1
		} else {
			lengths[s] = l
		}
	}

	return lengths
}

// Codes assigns canonical codes to lengths, RFC 1951 section 3.2.2.
func Codes(lengths []int) []uint32 {
	var count [16]int
	for _, l := range lengths {
		count[l]++
	}
	count[0] = 0

	var next [16]uint32
	code := uint32(0)
	for bits := 1; bits < 16; bits++ {
		code = (code + uint32(count[bits-1])) << 1
		next[bits] = code
	}

	codes := make([]uint32, len(lengths))
	for s, l := range lengths {
		if l != 0 {
			codes[s] = next[l]
			next[l]++
		}
	}

	return codes
}

type clSymbol struct {
	sym   int
	extra int
	bits  uint
}

// runLengths encodes a code-length array with the 16/17/18 repeat codes.
func runLengths(lengths []int) []clSymbol {
	var out []clSymbol

	for i := 0; i < len(lengths); {
		l := lengths[i]
		run := 1
		for i+run < len(lengths) && lengths[i+run] == l {
			run++
		}

		if l == 0 {
			for run >= 11 {
				n := min(run, 138)
				out = append(out, clSymbol{sym: 18, extra: n - 11, bits: 7})
				run -= n
				i += n
			}
			if run >= 3 {
				out = append(out, clSymbol{sym: 17, extra: run - 3, bits: 3})
				i += run
				run = 0
			}
			for ; run > 0; run-- {
				out = append(out, clSymbol{sym: 0})
				i++
			}
			continue
		}

		out = append(out, clSymbol{sym: l})
		i++
		run--

		for run >= 3 {
			n := min(run, 6)
			out = append(out, clSymbol{sym: 16, extra: n - 3, bits: 2})
			run -= n
			i += n
		}
		for ; run > 0; run-- {
			out = append(out, clSymbol{sym: l})
			i++
		}
	}

	return out
}

func lengthCode(length int) int {
	for i := len(lens) - 1; i >= 0; i-- {
		if lens[i] <= length {
			return i
		}
	}
	panic("deflatetest: match length below 3")
}

func distCode(dist int) int {
	for i := len(dists) - 1; i >= 0; i-- {
		if dists[i] <= dist {
			return i
		}
	}
	panic("deflatetest: distance below 1")
}

func used(freq []int) int {
	n := 0
	for _, f := range freq {
		if f > 0 {
			n++
		}
	}
	return n
}

func trimmed(lengths []int, minimum int) int {
	n := len(lengths)
	for n > minimum && lengths[n-1] == 0 {
		n--
	}
	return n
}
