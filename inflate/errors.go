package inflate

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/dselans/funnyimg/bitio"
)

var (
	// ErrUnexpectedEndOfInput is returned when the compressed input ends in
	// the middle of a field.
	ErrUnexpectedEndOfInput = bitio.ErrUnexpectedEOF

	// ErrInvalidHuffmanCode is returned for over-subscribed code sets and
	// for bit patterns or symbols that no table entry accounts for.
	ErrInvalidHuffmanCode = errors.New("inflate: invalid literal/length or distance code")

	// ErrTooManyCodes is returned when a dynamic block declares more than
	// 286 literal/length or 30 distance codes.
	ErrTooManyCodes = errors.New("inflate: too many length or distance codes")

	// ErrNoFirstLength is returned when a block's code lengths start with a
	// "repeat previous" instruction.
	ErrNoFirstLength = errors.New("inflate: repeat lengths with no first length")

	// ErrExceedsDeclaredLength is returned when a repeat instruction runs
	// past HLIT+HDIST code lengths.
	ErrExceedsDeclaredLength = errors.New("inflate: repeat more than specified lengths")

	// ErrMissingEndOfBlockCode is returned when symbol 256 has no code.
	ErrMissingEndOfBlockCode = errors.New("inflate: missing end-of-block code")

	// ErrIncompleteCodeLengths is returned when a code does not use all of
	// its code space, apart from the single-code case.
	ErrIncompleteCodeLengths = errors.New("inflate: incomplete code lengths")

	// ErrDistanceExceeded is returned for a back-reference reaching before
	// the start of the output or beyond the window.
	ErrDistanceExceeded = errors.New("inflate: distance is too far back")

	// ErrUnsupportedContainer is returned for zlib headers that are not
	// plain DEFLATE without a preset dictionary.
	ErrUnsupportedContainer = errors.New("inflate: unsupported container header")

	// ErrUnsupportedBlockType is returned for stored, fixed-Huffman and
	// reserved blocks. Only dynamic-Huffman blocks are decoded.
	ErrUnsupportedBlockType = errors.New("inflate: unsupported block type")

	// ErrTruncatedStream is returned when the input ends before the final
	// block has been decoded.
	ErrTruncatedStream = errors.New("inflate: truncated stream")
)

// A CorruptInputError reports the presence of bad input at a given offset of
// the compressed data. It unwraps to one of the Err* kinds above.
type CorruptInputError struct {
	Offset int64
	Err    error
}

func (e *CorruptInputError) Error() string {
	return fmt.Sprintf("%v (at input offset %d)", e.Err, e.Offset)
}

func (e *CorruptInputError) Unwrap() error { return e.Err }

func (e *CorruptInputError) Cause() error { return e.Err }

// truncatedError marks running out of input before the final block. It
// matches both ErrTruncatedStream and ErrUnexpectedEndOfInput.
type truncatedError struct {
	cause error
}

func (e *truncatedError) Error() string {
	return fmt.Sprintf("%v: %v", ErrTruncatedStream, e.cause)
}

func (e *truncatedError) Is(target error) bool { return target == ErrTruncatedStream }

func (e *truncatedError) Unwrap() error { return e.cause }

func truncated(err error) error {
	if errors.Is(err, ErrUnexpectedEndOfInput) {
		return &truncatedError{cause: err}
	}
	return err
}
