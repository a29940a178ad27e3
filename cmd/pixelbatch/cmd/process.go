package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gosuri/uilive"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-pixelbatch/internal/helpers"
	"go-pixelbatch/internal/index"
	"go-pixelbatch/internal/models"
	"go-pixelbatch/internal/packager"
	"go-pixelbatch/internal/pipeline"
	"go-pixelbatch/internal/queue"
	"go-pixelbatch/internal/store"
)

var (
	processPresetFlag    string
	processSortFlag      string
	processAcceptFlag    string
	processArchiveFlag   string
	processPatternFlag   string
	processNoHistoryFlag bool
)

// processCmd runs the transform chain over the queued files.
var processCmd = &cobra.Command{
	Use:   "process [files or directories]",
	Short: "Run the transform chain over a queue of image files",
	Long: `Builds a file queue from the given paths (directories are expanded one
level), applies the enabled transforms to each file in order, and packages
the results: a handful of outputs are written individually, larger batches
become a single zip archive.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
	addOperationFlags(processCmd)

	processCmd.Flags().StringVar(&processPresetFlag, "preset", "", "Start from a saved preset instead of the config file")
	processCmd.Flags().StringVar(&processSortFlag, "sort", "", "Sort the queue before processing (name, size)")
	processCmd.Flags().StringVar(&processAcceptFlag, "accept", "image/", "Accepted MIME type prefix; non-matching files are skipped")
	processCmd.Flags().StringVar(&processArchiveFlag, "archive-name", "", "Archive filename for bundled results")
	processCmd.Flags().StringVar(&processPatternFlag, "output-pattern", "", "Subdirectory pattern under the output dir, tags: {stem} {index} {format} {date}")
	processCmd.Flags().BoolVar(&processNoHistoryFlag, "no-history", false, "Do not record this run in the batch history")
}

func runProcess(cmd *cobra.Command, args []string) error {
	opCfg := globalConfig.Process
	if processPresetFlag != "" {
		preset, err := loadPreset(processPresetFlag)
		if err != nil {
			return err
		}
		opCfg = preset
	}
	applyOperationFlags(cmd, &opCfg)

	q := queue.New()
	added, unreadable := q.AddPaths(expandInputs(args))
	if unreadable > 0 {
		log.Warnf("%d path(s) could not be read and were skipped", unreadable)
	}
	if processSortFlag != "" {
		if err := q.SortBy(processSortFlag); err != nil {
			return err
		}
	}
	log.Infof("Queued %d file(s) for processing", added)

	writer := uilive.New()
	writer.Start()

	orch := pipeline.NewOrchestrator()
	run, err := orch.Run(context.Background(), q.Snapshot(), opCfg, pipeline.Options{
		AcceptPrefix: processAcceptFlag,
		OnProgress: func(percent int, message string) {
			fmt.Fprintf(writer, "[%3d%%] %s\n", percent, message)
		},
	})
	writer.Stop()
	if err != nil {
		return err
	}

	outputDir, err := resolveOutputDir(run)
	if err != nil {
		return err
	}
	out, err := packager.Package(run.Results, outputDir, processArchiveFlag)
	if err != nil {
		return err
	}

	printRunSummary(run, out)

	if !processNoHistoryFlag {
		rec := run.Record()
		if out.Archived {
			rec.ArchivePath = out.ArchivePath
		}
		saveRunHistory(rec)
	}
	return nil
}

// expandInputs flattens directory arguments one level; regular files pass
// through in argument order.
func expandInputs(args []string) []string {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			// Let AddPaths report the unreadable path.
			paths = append(paths, arg)
			continue
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			log.WithError(err).Warnf("Skipping unreadable directory: %s", arg)
			continue
		}
		var names []string
		for _, entry := range entries {
			if !entry.IsDir() {
				names = append(names, entry.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			paths = append(paths, filepath.Join(arg, name))
		}
	}
	return paths
}

// resolveOutputDir applies the optional output pattern as a per-run
// subdirectory under the configured output dir.
func resolveOutputDir(run *pipeline.BatchRun) (string, error) {
	dir := globalConfig.OutputDir
	if processPatternFlag == "" {
		return dir, nil
	}
	seed := packager.DefaultArchiveName
	if len(run.Results) > 0 {
		seed = run.Results[0].Name
	}
	sub, err := pipeline.ExpandPathPattern(processPatternFlag, seed, run.Config, 0)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, sub), nil
}

func printRunSummary(run *pipeline.BatchRun, out *packager.Output) {
	fmt.Println("--------------------------")
	log.Infof("Batch Summary:")
	log.Infof("  Succeeded: %d", len(run.Results))
	log.Infof("  Failed:    %d", len(run.Failures))
	if run.Skipped > 0 {
		log.Infof("  Skipped (wrong type): %d", run.Skipped)
	}
	log.Infof("  Original total: %s", helpers.BytesToSize(uint64(run.TotalOriginal)))
	log.Infof("  Output total:   %s", helpers.BytesToSize(uint64(run.TotalOutput)))
	log.Infof("  Savings:        %.1f%%", run.SavingsPercent)
	if out.Archived {
		log.Infof("  Archive: %s", out.ArchivePath)
	} else {
		for _, p := range out.Paths {
			log.Infof("  Wrote: %s", p)
		}
	}
	for _, f := range run.Failures {
		log.Warnf("  Failed %s: %s", f.FileName, f.Reason)
	}
	fmt.Println("--------------------------")
}

// saveRunHistory persists the record and indexes it for search. History is
// best-effort; a storage problem never fails a completed batch.
func saveRunHistory(rec models.BatchRecord) {
	db, err := store.Open(globalConfig.DatabasePath)
	if err != nil {
		log.WithError(err).Warn("Could not open history store, run not recorded")
		return
	}
	defer db.Close()

	if err := db.PutJSON(store.RunPrefix+rec.ID, rec); err != nil {
		log.WithError(err).Warn("Could not record run in history store")
		return
	}

	idx, err := index.Open(globalConfig.BleveIndexPath)
	if err != nil {
		log.WithError(err).Warn("Could not open history index, run not indexed")
		return
	}
	defer idx.Close()

	if err := index.IndexRun(idx, rec); err != nil {
		log.WithError(err).Warn("Could not index run for search")
		return
	}
	log.Debugf("Recorded batch %s in history", rec.ID)
}
