package converter

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/dselans/funnyimg/bmp"
	"github.com/dselans/funnyimg/config"
	"github.com/dselans/funnyimg/pixel"
	"github.com/dselans/funnyimg/png"
	"github.com/dselans/funnyimg/report/types"
	"github.com/dselans/funnyimg/validate"
)

var ErrUnknownFormat = errors.New("unknown image format")

var bmpMagic = []byte("BM")

// picture yields the rows of a decoded picture, top to bottom.
type picture interface {
	NextRow() ([]pixel.RGBA, error)
	Width() int
	Height() int

	// progress fills in the decoder specific counters of p.
	progress(p *types.Progress)

	// info describes the headers, one field per row.
	info() [][]interface{}
}

// detectFormat returns format unless it is auto, in which case the format is
// picked from the first bytes of rs. rs is rewound either way.
func detectFormat(rs io.ReadSeeker, format string) (string, error) {
	if format != config.FormatAuto {
		return format, nil
	}

	head := make([]byte, len(png.Signature))
	n, err := io.ReadFull(rs, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", errors.Wrap(err, "unable to read image signature")
	}
	head = head[:n]

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return "", errors.Wrap(err, "unable to rewind input")
	}

	switch {
	case bytes.HasPrefix(head, png.Signature[:]):
		return config.FormatPNG, nil
	case bytes.HasPrefix(head, bmpMagic):
		return config.FormatBMP, nil
	}

	return "", errors.Wrapf(ErrUnknownFormat, "signature %q", head)
}

func openImage(rs io.ReadSeeker, format string, maxPixels int64) (picture, error) {
	switch format {
	case config.FormatPNG:
		r, err := png.NewReader(rs, func(h png.Header) error {
			return validate.PNGHeader(h, maxPixels)
		})
		if err != nil {
			return nil, errors.Wrap(err, "unable to open png")
		}

		return &pngImage{r}, nil
	case config.FormatBMP:
		r, err := bmp.NewReader(rs, func(h bmp.Header) error {
			return validate.BMPHeader(h, maxPixels)
		})
		if err != nil {
			return nil, errors.Wrap(err, "unable to open bmp")
		}

		return &bmpImage{r}, nil
	}

	return nil, errors.Wrapf(ErrUnknownFormat, "format '%s'", format)
}

type pngImage struct {
	*png.Reader
}

func (i *pngImage) Width() int {
	return int(i.Header().Width)
}

func (i *pngImage) Height() int {
	return int(i.Header().Height)
}

func (i *pngImage) progress(p *types.Progress) {
	st := i.Stats()

	p.Blocks = st.Blocks
	p.IDATChunks = st.IDATChunks
	p.CompressedBytes = st.CompressedBytes
	p.DecompressedBytes = st.DecompressedBytes
}

type bmpImage struct {
	*bmp.Reader
}

func (i *bmpImage) Width() int {
	return i.Header().Width()
}

func (i *bmpImage) Height() int {
	return i.Header().Height()
}

func (i *bmpImage) progress(*types.Progress) {}
