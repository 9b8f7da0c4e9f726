package converter

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dselans/funnyimg/report/types"
)

// runReporter applies progress updates to the report and writes it to disk
// at most once per report interval.
//
// NOTE: ctx is created by Run() and is only cancelled once the conversion has
// finished; the final report is written by Run() itself.
func (c *Converter) runReporter(ctx context.Context, progressCh <-chan *types.Progress) error {
	llog := c.log.WithFields(logrus.Fields{
		"method": "runReporter",
	})

	llog.Debug("start")
	defer llog.Debug("exit")

	var numReceived int

MAIN:
	for {
		select {
		case <-ctx.Done():
			llog.Debug("received shutdown signal")
			break MAIN
		case p, ok := <-progressCh:
			if !ok {
				llog.Debug("progress channel closed - exiting reporter")
				break MAIN
			}

			numReceived++
			c.report.Apply(p)

			if err := c.saveReport(); err != nil {
				llog.Errorf("error saving report at row '%d': %v", p.RowsDecoded, err)
			}
		}
	}

	llog.Debugf("handled '%d' progress updates", numReceived)

	return nil
}

func (c *Converter) saveReport() error {
	llog := c.log.WithFields(logrus.Fields{
		"method": "saveReport",
	})

	file := c.cfg.CLI.ReportOutput
	if file == "" {
		return nil
	}

	// Skip unless this is the first save or ReportInterval has passed
	if !c.last.IsZero() && c.last.Add(time.Duration(c.cfg.TOML.Config.ReportInterval)).After(time.Now()) {
		return nil
	}

	c.report.Lock()
	decoded, height := c.report.RowsDecoded, c.report.Height
	c.report.Unlock()

	llog.Debugf("saving report to '%s' (%d/%d rows)", file, decoded, height)

	if err := c.report.Save(file); err != nil {
		return errors.Wrap(err, "unable to save report")
	}

	c.last = time.Now()

	return nil
}
