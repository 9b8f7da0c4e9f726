package png

import (
	"github.com/pkg/errors"
)

var (
	ErrInvalidSignature = errors.New("png: invalid signature")
	ErrChunkNotFound    = errors.New("png: chunk not found")
	ErrInvalidChunk     = errors.New("png: invalid chunk")
	ErrInvalidHeader    = errors.New("png: invalid IHDR")

	ErrUnsupportedBitDepth  = errors.New("png: bit depth not supported")
	ErrUnsupportedColorType = errors.New("png: color type not supported")
	ErrUnsupportedInterlace = errors.New("png: interlace not supported")
	ErrUnsupportedMethod    = errors.New("png: compression or filter method not supported")

	// ErrInvalidFilterType is returned for a scanline tag outside 0..4.
	ErrInvalidFilterType = errors.New("png: invalid filter type")
)
