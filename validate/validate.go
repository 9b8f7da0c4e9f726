package validate

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dselans/funnyimg/bmp"
	"github.com/dselans/funnyimg/png"
	"github.com/dselans/funnyimg/report/types"
)

// DefaultMaxPixels bounds the images the converter accepts.
const DefaultMaxPixels = 1 << 28

var ErrTooLarge = errors.New("image too large")

func Report(r *types.Report) error {
	if r == nil {
		return errors.New("report is nil")
	}

	if _, err := uuid.Parse(r.ID); err != nil {
		return errors.Wrapf(err, "report id '%s' is invalid", r.ID)
	}

	if r.Input == "" {
		return errors.New("report input cannot be empty")
	}

	if r.StartedAt.IsZero() {
		return errors.New("report started_at cannot be empty")
	}

	if r.LastUpdated.Before(r.StartedAt) {
		return errors.New("report last_updated is before started_at")
	}

	if r.RowsDecoded < 0 || r.RowsWritten < 0 {
		return errors.New("report row counts cannot be negative")
	}

	if r.Height > 0 && r.RowsDecoded > r.Height {
		return errors.Errorf("report has %d rows decoded out of %d", r.RowsDecoded, r.Height)
	}

	return nil
}

// PNGHeader accepts the IHDRs the png reader can decode and that stay within
// maxPixels.
func PNGHeader(h png.Header, maxPixels int64) error {
	if err := h.Check(); err != nil {
		return err
	}

	return checkSize(int64(h.Width), int64(h.Height), maxPixels)
}

// BMPHeader accepts 24-bit BI_RGB bitmaps that stay within maxPixels.
func BMPHeader(h bmp.Header, maxPixels int64) error {
	if err := h.Check(); err != nil {
		return err
	}

	return checkSize(int64(h.Width()), int64(h.Height()), maxPixels)
}

func checkSize(width, height, maxPixels int64) error {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	if width*height > maxPixels {
		return errors.Wrapf(ErrTooLarge, "%dx%d exceeds %d pixels", width, height, maxPixels)
	}

	return nil
}
