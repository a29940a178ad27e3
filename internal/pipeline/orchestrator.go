// Package pipeline runs the batch orchestration: it takes an explicit
// snapshot of the file queue and the operation configuration, folds the
// transform chain over each file in strict queue order, and collects
// successes and failures without ever letting one file abort the run.
package pipeline

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/zeebo/blake3"

	"go-pixelbatch/internal/models"
	"go-pixelbatch/internal/transform"
)

// Batch run states.
const (
	StateIdle      = "Idle"
	StateRunning   = "Running"
	StateCompleted = "Completed"
)

// Precondition errors: these prevent a run from starting at all. Per-file
// transform errors never escalate to them.
var (
	ErrRunInProgress   = errors.New("a batch run is already in progress")
	ErrEmptyQueue      = errors.New("no files queued for processing")
	ErrNoAcceptedFiles = errors.New("no queued files match the accepted type")
)

// ProgressFunc receives fractional progress as a 0-100 percentage plus a
// human-readable status naming the file just finished.
type ProgressFunc func(percent int, message string)

// CompletionFunc is invoked once, after the loop, with the finished run.
type CompletionFunc func(run *BatchRun)

// Options configures one batch run.
type Options struct {
	// AcceptPrefix restricts inputs by MIME type prefix (e.g. "image/").
	// Files that do not match are skipped and counted, never failed.
	AcceptPrefix string
	OnProgress   ProgressFunc
	OnComplete   CompletionFunc
}

// BatchRun is the ephemeral execution context for one run: a snapshot of the
// input list and configuration, per-file outcomes, and running totals.
type BatchRun struct {
	ID             string
	StartedAt      time.Time
	Config         models.OperationConfig
	Files          []*models.InputFile
	Results        []models.ProcessedResult
	Failures       []models.FailureRecord
	Skipped        int
	TotalOriginal  int64
	TotalOutput    int64
	SavingsPercent float64

	state string
}

// State returns the run's lifecycle state.
func (r *BatchRun) State() string {
	return r.state
}

// Record converts a completed run into its persistable history form.
func (r *BatchRun) Record() models.BatchRecord {
	return models.BatchRecord{
		ID:             r.ID,
		CreatedAt:      r.StartedAt,
		Config:         r.Config,
		Results:        r.Results,
		Failures:       r.Failures,
		SavingsPercent: r.SavingsPercent,
		TotalOriginal:  r.TotalOriginal,
		TotalOutput:    r.TotalOutput,
	}
}

// Orchestrator serializes batch runs: exactly one BatchRun may be active at
// a time, and starting a new one while another is running is refused.
type Orchestrator struct {
	mu      sync.Mutex
	running bool
}

// NewOrchestrator returns an idle orchestrator.
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{}
}

// Run executes the transform chain over the given files in order. Files are
// processed strictly sequentially to bound peak memory and keep progress
// linear. A per-file failure is recorded and the loop continues; only the
// precondition checks can reject the whole run.
func (o *Orchestrator) Run(ctx context.Context, files []*models.InputFile, cfg models.OperationConfig, opts Options) (*BatchRun, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrRunInProgress
	}
	o.running = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	// The configuration is snapshotted and normalized once, up front. The
	// run never re-reads live settings mid-flight.
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, ErrEmptyQueue
	}
	accepted, skipped := filterAccepted(files, opts.AcceptPrefix)
	if len(accepted) == 0 {
		return nil, fmt.Errorf("%w (prefix %q, %d skipped)", ErrNoAcceptedFiles, opts.AcceptPrefix, skipped)
	}
	if skipped > 0 {
		log.Warnf("Skipping %d file(s) that do not match accepted type %q", skipped, opts.AcceptPrefix)
	}

	run := &BatchRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Config:    cfg,
		Files:     accepted,
		Skipped:   skipped,
		state:     StateRunning,
	}

	chain := transform.Chain(cfg)
	usedNames := make(map[string]int)
	total := len(accepted)

	for i, file := range accepted {
		log.WithField("status", models.StatusTransforming).Debugf("Processing %s", file.Name)
		if err := o.processFile(ctx, run, chain, usedNames, file, i); err != nil {
			run.Failures = append(run.Failures, models.FailureRecord{
				FileName: file.Name,
				Reason:   err.Error(),
			})
			log.WithError(err).WithField("status", models.StatusFailed).
				Warnf("Failed to process %s, continuing with remaining files", file.Name)
		} else {
			log.WithField("status", models.StatusSucceeded).Debugf("Processed %s", file.Name)
		}
		file.Release()

		if opts.OnProgress != nil {
			percent := (i + 1) * 100 / total
			opts.OnProgress(percent, fmt.Sprintf("Processed %d/%d: %s", i+1, total, file.Name))
		}
	}

	if run.TotalOriginal > 0 {
		run.SavingsPercent = float64(run.TotalOriginal-run.TotalOutput) / float64(run.TotalOriginal) * 100
	}
	run.state = StateCompleted

	log.Infof("Batch %s completed: %d succeeded, %d failed, savings %.1f%%",
		run.ID, len(run.Results), len(run.Failures), run.SavingsPercent)

	if opts.OnComplete != nil {
		opts.OnComplete(run)
	}
	return run, nil
}

// processFile folds the chain left-to-right over one file and appends the
// result on success.
func (o *Orchestrator) processFile(ctx context.Context, run *BatchRun, chain []transform.Transform, usedNames map[string]int, file *models.InputFile, index int) error {
	data, err := file.Bytes()
	if err != nil {
		return err
	}

	asset := &transform.Asset{
		Name:      file.Name,
		MediaType: file.MediaType,
		Data:      data,
	}
	for _, step := range chain {
		asset, err = step(ctx, asset)
		if err != nil {
			return err
		}
	}

	name := uniqueName(OutputName(file.Name, run.Config, index), usedNames)
	sum := blake3.Sum256(asset.Data)

	run.Results = append(run.Results, models.ProcessedResult{
		Name:         name,
		Data:         asset.Data,
		OriginalSize: file.Size,
		Size:         int64(len(asset.Data)),
		BLAKE3:       hex.EncodeToString(sum[:]),
	})
	run.TotalOriginal += file.Size
	run.TotalOutput += int64(len(asset.Data))
	return nil
}

func filterAccepted(files []*models.InputFile, prefix string) ([]*models.InputFile, int) {
	if prefix == "" {
		return files, 0
	}
	accepted := make([]*models.InputFile, 0, len(files))
	skipped := 0
	for _, f := range files {
		if strings.HasPrefix(f.MediaType, prefix) {
			accepted = append(accepted, f)
		} else {
			skipped++
		}
	}
	return accepted, skipped
}
