// Package index maintains a bleve full-text index over batch history, so
// past runs can be searched by output filename or step name.
package index

import (
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	log "github.com/sirupsen/logrus"

	"go-pixelbatch/internal/models"
)

// RunDocument is the indexed projection of a batch record.
type RunDocument struct {
	ID             string   `json:"id"`
	CreatedAt      string   `json:"createdAt"`
	FileNames      []string `json:"fileNames"`
	FailedNames    []string `json:"failedNames"`
	Steps          []string `json:"steps"`
	SavingsPercent float64  `json:"savingsPercent"`
	ResultCount    int      `json:"resultCount"`
	FailureCount   int      `json:"failureCount"`
}

// Open opens the index at path, creating it with a default mapping when it
// does not exist yet.
func Open(path string) (bleve.Index, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		idx, err := bleve.New(path, bleve.NewIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create history index at %s: %w", path, err)
		}
		log.Debugf("Created new history index at %s", path)
		return idx, nil
	}
	idx, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history index at %s: %w", path, err)
	}
	return idx, nil
}

// IndexRun adds or replaces the document for one completed run.
func IndexRun(idx bleve.Index, rec models.BatchRecord) error {
	doc := RunDocument{
		ID:             rec.ID,
		CreatedAt:      rec.CreatedAt.Format("2006-01-02 15:04:05"),
		Steps:          rec.Config.EnabledSteps(),
		SavingsPercent: rec.SavingsPercent,
		ResultCount:    len(rec.Results),
		FailureCount:   len(rec.Failures),
	}
	for _, r := range rec.Results {
		doc.FileNames = append(doc.FileNames, r.Name)
	}
	for _, f := range rec.Failures {
		doc.FailedNames = append(doc.FailedNames, f.FileName)
	}
	if err := idx.Index(rec.ID, doc); err != nil {
		return fmt.Errorf("failed to index run %s: %w", rec.ID, err)
	}
	return nil
}

// SearchRuns runs a query-string search over the history index and returns
// the matching run IDs in relevance order.
func SearchRuns(idx bleve.Index, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 25
	}
	q := bleve.NewQueryStringQuery(query)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	result, err := idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("history search failed: %w", err)
	}
	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}
