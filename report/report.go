package report

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dselans/funnyimg/report/types"
	"github.com/dselans/funnyimg/validate"
)

// New returns a fresh report for a run over input. If reportFile holds the
// report of an earlier run over the same input, the new report points back
// at it.
func New(reportFile, input, inputType string) (*types.Report, error) {
	now := time.Now()

	r := &types.Report{
		ID:          uuid.NewString(),
		Input:       input,
		InputType:   inputType,
		StartedAt:   now,
		LastUpdated: now,
		Mutex:       &sync.Mutex{},
	}

	if reportFile == "" {
		return r, nil
	}

	if _, err := os.Stat(reportFile); err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, errors.Wrap(err, "unable to stat report file")
	}

	prev, err := Load(reportFile)
	if err != nil {
		// A broken report from an earlier run is replaced, not fatal.
		logrus.Warnf("ignoring previous report '%s': %s", reportFile, err)
		return r, nil
	}

	if prev.Input == input {
		logrus.Debugf("previous run '%s' over '%s' (completed: %v)", prev.ID, input, prev.CompletedAt != nil)
		r.PreviousRunID = prev.ID
	}

	return r, nil
}

// Load reads a report written by Save.
func Load(reportFile string) (*types.Report, error) {
	data, err := os.ReadFile(reportFile)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read report file")
	}

	r := &types.Report{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, errors.Wrap(err, "unable to unmarshal report file")
	}

	r.Mutex = &sync.Mutex{}

	if err := validate.Report(r); err != nil {
		return nil, errors.Wrap(err, "invalid report")
	}

	return r, nil
}
