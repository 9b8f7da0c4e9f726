package types

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Report contains progress info for one conversion run
type Report struct {
	ID            string `json:"id"`
	PreviousRunID string `json:"previous_run_id,omitempty"`

	Input     string `json:"input"`
	InputType string `json:"input_type"`
	Format    string `json:"format,omitempty"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`

	RowsDecoded       int   `json:"rows_decoded"`
	RowsWritten       int   `json:"rows_written"`
	Blocks            int   `json:"blocks,omitempty"`
	IDATChunks        int   `json:"idat_chunks,omitempty"`
	CompressedBytes   int64 `json:"compressed_bytes,omitempty"`
	DecompressedBytes int64 `json:"decompressed_bytes,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	LastUpdated time.Time  `json:"last_updated"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`

	*sync.Mutex
}

// Progress is a snapshot sent to the reporter while rows are converted.
type Progress struct {
	RowsDecoded       int
	RowsWritten       int
	Blocks            int
	IDATChunks        int
	CompressedBytes   int64
	DecompressedBytes int64
}

// Apply copies p into the report.
func (r *Report) Apply(p *Progress) {
	r.Lock()
	defer r.Unlock()

	r.RowsDecoded = p.RowsDecoded
	r.RowsWritten = p.RowsWritten
	r.Blocks = p.Blocks
	r.IDATChunks = p.IDATChunks
	r.CompressedBytes = p.CompressedBytes
	r.DecompressedBytes = p.DecompressedBytes
	r.LastUpdated = time.Now()
}

// Complete marks the run as finished, failed if err is non-nil.
func (r *Report) Complete(err error) {
	r.Lock()
	defer r.Unlock()

	now := time.Now()
	r.CompletedAt = &now
	r.LastUpdated = now

	if err != nil {
		r.Error = err.Error()
	}
}

// Save writes the report as JSON. The file is replaced atomically.
func (r *Report) Save(reportFile string) error {
	r.Lock()
	defer r.Unlock()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "unable to marshal report")
	}

	tmp, err := os.CreateTemp(filepath.Dir(reportFile), filepath.Base(reportFile)+".*")
	if err != nil {
		return errors.Wrap(err, "unable to create temp report file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "unable to write report file")
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "unable to close temp report file")
	}

	if err := os.Rename(tmp.Name(), reportFile); err != nil {
		return errors.Wrap(err, "unable to move report file into place")
	}

	return nil
}
