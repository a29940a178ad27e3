package index

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pixelbatch/internal/models"
)

func testRecord(id string, steps models.OperationConfig, names ...string) models.BatchRecord {
	rec := models.BatchRecord{
		ID:        id,
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Config:    steps,
	}
	for _, n := range names {
		rec.Results = append(rec.Results, models.ProcessedResult{Name: n})
	}
	return rec
}

func TestOpenCreatesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.bleve")

	idx, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	idx, err = Open(path)
	require.NoError(t, err)
	assert.NoError(t, idx.Close())
}

func TestSearchByFileName(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "history.bleve"))
	require.NoError(t, err)
	defer idx.Close()

	withWatermark := models.OperationConfig{
		Watermark: models.WatermarkConfig{Enabled: true, Text: "x"},
	}
	require.NoError(t, IndexRun(idx, testRecord("run-1", withWatermark, "sunset_beach.jpg")))
	require.NoError(t, IndexRun(idx, testRecord("run-2", models.OperationConfig{}, "mountain.png")))

	ids, err := SearchRuns(idx, "sunset_beach.jpg", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, ids)

	ids, err = SearchRuns(idx, "steps:watermark", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, ids)

	ids, err = SearchRuns(idx, "nonexistent_file", 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestIndexRunReplacesDocument(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "history.bleve"))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, IndexRun(idx, testRecord("run-1", models.OperationConfig{}, "old_name.jpg")))
	require.NoError(t, IndexRun(idx, testRecord("run-1", models.OperationConfig{}, "new_name.jpg")))

	ids, err := SearchRuns(idx, "old_name.jpg", 10)
	require.NoError(t, err)
	assert.Empty(t, ids, "reindexing the same ID replaces the document")

	ids, err = SearchRuns(idx, "new_name.jpg", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, ids)
}
