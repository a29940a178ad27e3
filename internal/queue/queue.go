// Package queue holds the ordered list of user-selected input files for a
// batch run. Files are immutable once added; removing one releases any
// cached content so long sessions do not leak memory.
package queue

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"go-pixelbatch/internal/models"
)

// Sort orders accepted by SortBy.
const (
	SortByName = "name"
	SortBySize = "size"
)

// FileQueue is an ordered collection of input files. All methods are safe
// for concurrent use, though batch processing itself is strictly sequential.
type FileQueue struct {
	mu    sync.Mutex
	files []*models.InputFile
}

// New returns an empty queue.
func New() *FileQueue {
	return &FileQueue{}
}

// Add appends a file to the end of the queue.
func (q *FileQueue) Add(f *models.InputFile) {
	q.mu.Lock()
	q.files = append(q.files, f)
	q.mu.Unlock()
	log.WithField("status", models.StatusPending).Debugf("Queued %s (%d bytes)", f.Name, f.Size)
}

// AddPaths stats each path and appends the resulting files in the given
// order. Paths that cannot be read are skipped with a warning and counted in
// the returned skip total; the caller reports that count to the user.
func (q *FileQueue) AddPaths(paths []string) (added, skipped int) {
	for _, p := range paths {
		f, err := models.NewInputFile(p)
		if err != nil {
			log.WithError(err).Warnf("Skipping unreadable input: %s", p)
			skipped++
			continue
		}
		q.Add(f)
		added++
	}
	return added, skipped
}

// Remove deletes the file at index, releasing its cached content.
func (q *FileQueue) Remove(index int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if index < 0 || index >= len(q.files) {
		return fmt.Errorf("queue index %d out of range (len %d)", index, len(q.files))
	}
	q.files[index].Release()
	q.files = append(q.files[:index], q.files[index+1:]...)
	return nil
}

// Move reorders the file at from to position to, shifting the rest.
func (q *FileQueue) Move(from, to int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if from < 0 || from >= len(q.files) || to < 0 || to >= len(q.files) {
		return fmt.Errorf("queue move %d -> %d out of range (len %d)", from, to, len(q.files))
	}
	f := q.files[from]
	q.files = append(q.files[:from], q.files[from+1:]...)
	q.files = append(q.files[:to], append([]*models.InputFile{f}, q.files[to:]...)...)
	return nil
}

// SortBy orders the queue by name or size, ascending.
func (q *FileQueue) SortBy(key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch key {
	case SortByName:
		sort.SliceStable(q.files, func(i, j int) bool {
			return strings.ToLower(q.files[i].Name) < strings.ToLower(q.files[j].Name)
		})
	case SortBySize:
		sort.SliceStable(q.files, func(i, j int) bool {
			return q.files[i].Size < q.files[j].Size
		})
	default:
		return fmt.Errorf("unknown sort key %q", key)
	}
	return nil
}

// Snapshot returns the current ordering for a batch run. The returned slice
// is a copy; later queue edits do not affect an in-flight run.
func (q *FileQueue) Snapshot() []*models.InputFile {
	q.mu.Lock()
	defer q.mu.Unlock()
	snapshot := make([]*models.InputFile, len(q.files))
	copy(snapshot, q.files)
	return snapshot
}

// Len reports the number of queued files.
func (q *FileQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.files)
}

// Reset empties the queue, releasing every file's cached content.
func (q *FileQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, f := range q.files {
		f.Release()
	}
	q.files = nil
}
