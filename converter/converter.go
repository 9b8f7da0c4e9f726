// Package converter turns an input image into ASCII art. It opens the source,
// pulls decoded rows one at a time, renders them and keeps a run report up to
// date while doing so.
package converter

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dselans/funnyimg/config"
	"github.com/dselans/funnyimg/report"
	"github.com/dselans/funnyimg/report/types"
)

const (
	// progressBuffer is how many progress updates may queue up for the
	// reporter before new ones are dropped.
	progressBuffer = 100

	shutdownTimeout = 5 * time.Second
)

type Converter struct {
	// Stdout receives the art when no output file is set, and the --info
	// table.
	Stdout io.Writer

	cfg    *config.Config
	log    *logrus.Entry
	report *types.Report
	last   time.Time
}

type result struct {
	progress *types.Progress
	err      error
}

func New(cfg *config.Config) (*Converter, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if err := config.Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "error validating config")
	}

	r, err := report.New(cfg.CLI.ReportOutput, cfg.TOML.Source.File, cfg.TOML.Source.FileType)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create report")
	}

	return &Converter{
		Stdout: os.Stdout,
		cfg:    cfg,
		report: r,
		log:    logrus.WithField("pkg", "converter"),
	}, nil
}

// Report returns the report of the current run.
func (c *Converter) Report() *types.Report {
	return c.report
}

// Run converts the configured input. Cancelling shutdownCtx stops the
// conversion before the next row; what was written so far is kept.
func (c *Converter) Run(shutdownCtx context.Context) error {
	resultCh := make(chan *result, 1)
	progressCh := make(chan *types.Progress, progressBuffer)
	rpWg := &sync.WaitGroup{}
	rpCtx, rpCancel := context.WithCancel(context.Background())
	defer rpCancel()

	// Launch reporter
	rpWg.Add(1)

	go func() {
		c.log.Debug("reporter start")
		defer c.log.Debug("reporter exit")
		defer rpWg.Done()

		if err := c.runReporter(rpCtx, progressCh); err != nil {
			c.log.Errorf("error in reporter: %v", err)
		}
	}()

	// Launch converter
	go func() {
		c.log.Debug("converter start")
		defer c.log.Debug("converter exit")

		p, err := c.convert(shutdownCtx, progressCh)
		resultCh <- &result{progress: p, err: err}
	}()

	var res *result

	select {
	case res = <-resultCh:
	case <-shutdownCtx.Done():
		c.log.Debug("received context done, waiting for converter to stop")

		select {
		case res = <-resultCh:
		case <-time.After(shutdownTimeout):
			c.log.Warn("timed out waiting for converter to exit")
			res = &result{err: errors.New("timed out waiting for converter to exit")}
		}
	}

	// Converter is done, can stop the reporter
	rpCancel()
	rpWg.Wait()

	return c.finish(res)
}

func (c *Converter) finish(res *result) error {
	llog := c.log.WithFields(logrus.Fields{
		"method": "finish",
	})

	if res.progress != nil {
		c.report.Apply(res.progress)
	}

	c.report.Complete(res.err)

	if c.cfg.CLI.ReportOutput != "" {
		if err := c.report.Save(c.cfg.CLI.ReportOutput); err != nil {
			llog.Errorf("unable to save final report: %v", err)
		}
	}

	if res.err != nil {
		return res.err
	}

	llog.Debugf("run '%s' complete: %d rows decoded, %d rows written",
		c.report.ID, c.report.RowsDecoded, c.report.RowsWritten)

	return nil
}
