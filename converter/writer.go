package converter

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dselans/funnyimg/ascii"
	"github.com/dselans/funnyimg/report/types"
	"github.com/dselans/funnyimg/source"
)

// convert runs the whole pipeline for one input and returns the final
// progress, also on error.
func (c *Converter) convert(shutdownCtx context.Context, progressCh chan<- *types.Progress) (*types.Progress, error) {
	llog := c.log.WithFields(logrus.Fields{
		"method": "convert",
	})

	llog.Debug("start")
	defer llog.Debug("exit")

	in, err := source.Open(c.cfg.TOML.Source.File, source.FileType(c.cfg.TOML.Source.FileType))
	if err != nil {
		return nil, errors.Wrap(err, "unable to open input")
	}
	defer in.Close()

	format, err := detectFormat(in, c.cfg.TOML.Source.Format)
	if err != nil {
		return nil, err
	}

	img, err := openImage(in, format, c.cfg.TOML.Config.MaxPixels)
	if err != nil {
		return nil, err
	}

	c.report.Lock()
	c.report.InputType = string(in.Type)
	c.report.Format = format
	c.report.Width = img.Width()
	c.report.Height = img.Height()
	c.report.Unlock()

	llog.Debugf("decoding %dx%d %s from %s input", img.Width(), img.Height(), format, in.Type)

	if c.cfg.CLI.Info {
		return &types.Progress{}, c.writeInfo(in, format, img)
	}

	w, closeOutput, err := c.openOutput()
	if err != nil {
		return nil, err
	}
	defer closeOutput()

	r := ascii.NewRenderer(w, ascii.Options{
		Table:  c.cfg.TOML.Output.CharTable,
		Invert: c.cfg.TOML.Output.Invert,
		Color:  c.cfg.TOML.Output.Color,
	})

	// Rows decoded before an error are still written out.
	defer r.Flush()

	var canvas *ascii.Canvas
	if width := c.cfg.TOML.Output.Width; width > 0 && width < img.Width() {
		llog.Debugf("scaling %d columns down to %d", img.Width(), width)
		canvas = ascii.NewCanvas(img.Width(), img.Height())
	}

	p := &types.Progress{}

MAIN:
	for {
		select {
		case <-shutdownCtx.Done():
			llog.Debug("received shutdown signal")
			return p, errors.Wrapf(shutdownCtx.Err(), "interrupted after %d rows", p.RowsDecoded)
		default:
		}

		row, err := img.NextRow()
		if err != nil {
			if err == io.EOF {
				break MAIN
			}

			img.progress(p)
			return p, errors.Wrapf(err, "unable to decode row %d", p.RowsDecoded)
		}

		p.RowsDecoded++

		if canvas != nil {
			canvas.AddRow(row)
		} else {
			if err := r.WriteRow(row); err != nil {
				return p, errors.Wrapf(err, "unable to write row %d", p.RowsDecoded-1)
			}
			p.RowsWritten = r.Rows()
		}

		img.progress(p)
		c.sendProgress(progressCh, p)
	}

	if canvas != nil {
		if err := r.WriteImage(ascii.Scale(canvas.Image(), c.cfg.TOML.Output.Width)); err != nil {
			return p, errors.Wrap(err, "unable to write scaled image")
		}
		p.RowsWritten = r.Rows()
	}

	if err := r.Flush(); err != nil {
		return p, errors.Wrap(err, "unable to flush output")
	}

	llog.Debugf("wrote %d rows, %d characters", r.Rows(), r.Chars())

	return p, nil
}

// sendProgress hands a copy of p to the reporter. Updates are dropped while
// the reporter is behind; the final state is applied after the run anyway.
func (c *Converter) sendProgress(progressCh chan<- *types.Progress, p *types.Progress) {
	snapshot := *p

	select {
	case progressCh <- &snapshot:
	default:
	}
}

func (c *Converter) openOutput() (io.Writer, func(), error) {
	file := c.cfg.TOML.Output.File
	if file == "" {
		return c.Stdout, func() {}, nil
	}

	f, err := os.Create(file)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "unable to create output file '%s'", file)
	}

	return f, func() {
		if err := f.Close(); err != nil {
			c.log.Errorf("unable to close output file '%s': %v", file, err)
		}
	}, nil
}
