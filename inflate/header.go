package inflate

import (
	"github.com/pkg/errors"
)

// codes holds the two tables a dynamic block declares.
type codes struct {
	lencode  Huffman
	distcode Huffman

	nlen  int
	ndist int
}

// readDynamicHeader decodes the code tables at the start of a dynamic block
// (RFC 1951 section 3.2.7).
func readDynamicHeader(br bitReader) (*codes, error) {
	nlen, err := readCount(br, 5, 257)
	if err != nil {
		return nil, err
	}

	ndist, err := readCount(br, 5, 1)
	if err != nil {
		return nil, err
	}

	ncode, err := readCount(br, 4, 4)
	if err != nil {
		return nil, err
	}

	if nlen > maxLitCodes || ndist > maxDstCodes {
		return nil, errors.Wrapf(ErrTooManyCodes, "hlit=%d hdist=%d", nlen, ndist)
	}

	var cl [numCLCodes]int16
	for i := 0; i < ncode; i++ {
		v, err := br.ReadBits(3)
		if err != nil {
			return nil, err
		}
		cl[clOrder[i]] = int16(v)
	}

	var clcode Huffman
	left, err := clcode.Build(cl[:])
	if err != nil {
		return nil, errors.Wrap(err, "code length code")
	}
	if left != 0 {
		return nil, errors.Wrap(ErrIncompleteCodeLengths, "code length code")
	}

	lengths, err := readCodeLengths(br, &clcode, nlen+ndist)
	if err != nil {
		return nil, err
	}

	if lengths[endOfBlock] == 0 {
		return nil, ErrMissingEndOfBlockCode
	}

	c := &codes{nlen: nlen, ndist: ndist}

	if err := buildTable(&c.lencode, lengths[:nlen]); err != nil {
		return nil, errors.Wrap(err, "literal/length code")
	}

	if err := buildTable(&c.distcode, lengths[nlen:]); err != nil {
		return nil, errors.Wrap(err, "distance code")
	}

	return c, nil
}

func readCount(br bitReader, width uint, base int) (int, error) {
	v, err := br.ReadBits(width)
	if err != nil {
		return 0, err
	}
	return int(v) + base, nil
}

// readCodeLengths expands the run-length coded lengths of the literal/length
// and distance codes.
func readCodeLengths(br bitReader, clcode *Huffman, total int) ([]int16, error) {
	lengths := make([]int16, total)

	index := 0
	for index < total {
		sym, err := clcode.Decode(br)
		if err != nil {
			return nil, err
		}

		if sym < 16 {
			lengths[index] = int16(sym)
			index++
			continue
		}

		var (
			l   int16
			rep int
		)

		switch sym {
		case 16:
			if index == 0 {
				return nil, ErrNoFirstLength
			}
			l = lengths[index-1]
			rep, err = readCount(br, 2, 3)
		case 17:
			rep, err = readCount(br, 3, 3)
		default:
			rep, err = readCount(br, 7, 11)
		}

		if err != nil {
			return nil, err
		}

		if index+rep > total {
			return nil, errors.Wrapf(ErrExceedsDeclaredLength, "%d + %d > %d", index, rep, total)
		}

		for ; rep > 0; rep-- {
			lengths[index] = l
			index++
		}
	}

	return lengths, nil
}

// buildTable builds h and only accepts an incomplete code when it consists of
// a single code.
func buildTable(h *Huffman, lengths []int16) error {
	left, err := h.Build(lengths)
	if err != nil {
		return err
	}

	if left > 0 && len(lengths) != h.Count(0)+h.Count(1) {
		return ErrIncompleteCodeLengths
	}

	return nil
}
