// Package packager turns a batch run's processed results into files the
// user can pick up: a handful of results are written individually, larger
// batches are bundled into a single flat zip archive.
package packager

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"go-pixelbatch/internal/helpers"
	"go-pixelbatch/internal/models"
)

// ArchiveThreshold is the fixed cutover point: up to this many results are
// delivered as individual files, anything more becomes one archive. Not
// user-configurable.
const ArchiveThreshold = 3

// DefaultArchiveName is the archive filename when the caller supplies none.
const DefaultArchiveName = "processed_images.zip"

// Output describes what was written to disk.
type Output struct {
	// Paths holds one entry per result when delivered individually.
	Paths []string
	// ArchivePath is set instead when the results were bundled.
	ArchivePath string
	Archived    bool
}

// Package writes the results under outputDir. Each result's OutputPath is
// filled in with the file it ended up in (the archive path for bundled
// results).
func Package(results []models.ProcessedResult, outputDir, archiveName string) (*Output, error) {
	if len(results) == 0 {
		return &Output{}, nil
	}
	if !helpers.CheckAndMakeDir(outputDir) {
		return nil, fmt.Errorf("output directory unavailable: %s", outputDir)
	}

	if len(results) <= ArchiveThreshold {
		return writeIndividual(results, outputDir)
	}
	return writeArchive(results, outputDir, archiveName)
}

func writeIndividual(results []models.ProcessedResult, outputDir string) (*Output, error) {
	out := &Output{Paths: make([]string, 0, len(results))}
	for i := range results {
		path := filepath.Join(outputDir, helpers.SanitizePath(results[i].Name))
		if err := writeFileAtomic(path, results[i].Data); err != nil {
			return nil, err
		}
		results[i].OutputPath = path
		out.Paths = append(out.Paths, path)
		log.Debugf("Wrote %s (%s)", path, helpers.BytesToSize(uint64(len(results[i].Data))))
	}
	return out, nil
}

func writeArchive(results []models.ProcessedResult, outputDir, archiveName string) (*Output, error) {
	if archiveName == "" {
		archiveName = DefaultArchiveName
	}
	archivePath := filepath.Join(outputDir, helpers.SanitizePath(archiveName))

	tmp, err := os.CreateTemp(outputDir, ".pixelbatch-*.zip")
	if err != nil {
		return nil, fmt.Errorf("creating archive temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		// Best-effort cleanup when the rename never happened.
		_ = os.Remove(tmpPath)
	}()

	zw := zip.NewWriter(tmp)
	for i := range results {
		// Names are preserved flat, no directory nesting.
		w, err := zw.Create(filepath.Base(results[i].Name))
		if err != nil {
			tmp.Close()
			return nil, fmt.Errorf("adding %s to archive: %w", results[i].Name, err)
		}
		if _, err := w.Write(results[i].Data); err != nil {
			tmp.Close()
			return nil, fmt.Errorf("writing %s to archive: %w", results[i].Name, err)
		}
		results[i].OutputPath = archivePath
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("finalizing archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing archive temp file: %w", err)
	}
	if err := os.Rename(tmpPath, archivePath); err != nil {
		return nil, fmt.Errorf("renaming archive into place: %w", err)
	}

	log.Infof("Bundled %d results into %s", len(results), archivePath)
	return &Output{ArchivePath: archivePath, Archived: true}, nil
}

// writeFileAtomic writes data to path via a temp file and rename, so a crash
// mid-write never leaves a truncated output behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".pixelbatch-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s into place: %w", path, err)
	}
	return nil
}
