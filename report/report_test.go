package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dselans/funnyimg/report/types"
)

func TestNew(t *testing.T) {
	r, err := New("", "image.png", "plain")
	require.NoError(t, err)

	_, err = uuid.Parse(r.ID)
	assert.NoError(t, err)
	assert.Equal(t, "image.png", r.Input)
	assert.Equal(t, "plain", r.InputType)
	assert.False(t, r.StartedAt.IsZero())
	assert.Empty(t, r.PreviousRunID)
	assert.NotNil(t, r.Mutex)
}

func TestSaveLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "report.json")

	r, err := New(file, "image.png", "gzip")
	require.NoError(t, err)

	r.Format = "png"
	r.Width, r.Height = 4, 3
	r.Apply(&types.Progress{RowsDecoded: 3, RowsWritten: 3, Blocks: 2, IDATChunks: 1, CompressedBytes: 40, DecompressedBytes: 51})
	r.Complete(errors.New("boom"))

	require.NoError(t, r.Save(file))

	loaded, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, r.ID, loaded.ID)
	assert.Equal(t, "png", loaded.Format)
	assert.Equal(t, 3, loaded.RowsDecoded)
	assert.Equal(t, int64(51), loaded.DecompressedBytes)
	assert.Equal(t, "boom", loaded.Error)
	require.NotNil(t, loaded.CompletedAt)
	assert.True(t, r.CompletedAt.Equal(*loaded.CompletedAt))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(file))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNewLinksPreviousRun(t *testing.T) {
	file := filepath.Join(t.TempDir(), "report.json")

	first, err := New(file, "image.png", "plain")
	require.NoError(t, err)
	require.NoError(t, first.Save(file))

	second, err := New(file, "image.png", "plain")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.PreviousRunID)
	assert.NotEqual(t, first.ID, second.ID)

	other, err := New(file, "other.png", "plain")
	require.NoError(t, err)
	assert.Empty(t, other.PreviousRunID)
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{nope"), 0o644))
	_, err = Load(garbage)
	assert.Error(t, err)

	noID := filepath.Join(dir, "noid.json")
	require.NoError(t, os.WriteFile(noID, []byte(`{"input": "image.png"}`), 0o644))
	_, err = Load(noID)
	assert.Error(t, err)

	// A broken previous report does not stop a new run.
	r, err := New(garbage, "image.png", "plain")
	require.NoError(t, err)
	assert.Empty(t, r.PreviousRunID)
}
