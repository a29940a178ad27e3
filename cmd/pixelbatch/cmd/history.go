package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/zeebo/blake3"

	"go-pixelbatch/internal/helpers"
	"go-pixelbatch/internal/index"
	"go-pixelbatch/internal/models"
	"go-pixelbatch/internal/store"
)

var (
	historyLimitFlag int
	historyRunFlag   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past batch runs",
}

var historyViewCmd = &cobra.Command{
	Use:   "view",
	Short: "List recorded batch runs",
	RunE:  runHistoryView,
}

var historySearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Full-text search over batch history",
	Long: `Searches the history index by output filename, failed filename, or step
name. Accepts the bleve query string syntax, e.g. 'steps:watermark' or
'fileNames:sunset*'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHistorySearch,
}

var historyVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Re-hash recorded outputs and compare against the stored checksums",
	RunE:  runHistoryVerify,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyViewCmd, historySearchCmd, historyVerifyCmd)

	historySearchCmd.Flags().IntVar(&historyLimitFlag, "limit", 25, "Maximum number of matching runs to show")
	historyVerifyCmd.Flags().StringVar(&historyRunFlag, "run", "", "Verify a single run by ID instead of all runs")
}

// loadRuns reads every batch record, newest first.
func loadRuns(db *store.Store) ([]models.BatchRecord, error) {
	ids, err := db.ListKeys(store.RunPrefix)
	if err != nil {
		return nil, err
	}
	runs := make([]models.BatchRecord, 0, len(ids))
	for _, id := range ids {
		var rec models.BatchRecord
		if err := db.GetJSON(store.RunPrefix+id, &rec); err != nil {
			log.WithError(err).Warnf("Skipping unreadable history entry %s", id)
			continue
		}
		runs = append(runs, rec)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

func runHistoryView(cmd *cobra.Command, args []string) error {
	db, err := store.Open(globalConfig.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := loadRuns(db)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No batch runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tSTEPS\tOK\tFAILED\tSAVED\tOUTPUT")
	for _, rec := range runs {
		fmt.Fprintf(w, "%s\t%s\t%v\t%d\t%d\t%.1f%%\t%s\n",
			rec.ID,
			rec.CreatedAt.Format("2006-01-02 15:04"),
			rec.Config.EnabledSteps(),
			len(rec.Results),
			len(rec.Failures),
			rec.SavingsPercent,
			helpers.BytesToSize(uint64(rec.TotalOutput)),
		)
	}
	return w.Flush()
}

func runHistorySearch(cmd *cobra.Command, args []string) error {
	idx, err := index.Open(globalConfig.BleveIndexPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	query := args[0]
	for _, extra := range args[1:] {
		query += " " + extra
	}
	ids, err := index.SearchRuns(idx, query, historyLimitFlag)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No matching runs.")
		return nil
	}

	db, err := store.Open(globalConfig.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tSTEPS\tOK\tFAILED")
	for _, id := range ids {
		var rec models.BatchRecord
		if err := db.GetJSON(store.RunPrefix+id, &rec); err != nil {
			// The index can outlive a pruned store entry.
			log.Debugf("Indexed run %s has no store entry", id)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%v\t%d\t%d\n",
			rec.ID,
			rec.CreatedAt.Format("2006-01-02 15:04"),
			rec.Config.EnabledSteps(),
			len(rec.Results),
			len(rec.Failures),
		)
	}
	return w.Flush()
}

func runHistoryVerify(cmd *cobra.Command, args []string) error {
	db, err := store.Open(globalConfig.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	var runs []models.BatchRecord
	if historyRunFlag != "" {
		var rec models.BatchRecord
		if err := db.GetJSON(store.RunPrefix+historyRunFlag, &rec); err != nil {
			if err == store.ErrNotFound {
				return fmt.Errorf("run %q not found", historyRunFlag)
			}
			return err
		}
		runs = []models.BatchRecord{rec}
	} else {
		if runs, err = loadRuns(db); err != nil {
			return err
		}
	}

	var ok, missing, changed, archived int
	for _, rec := range runs {
		for _, result := range rec.Results {
			if result.BLAKE3 == "" || result.OutputPath == "" {
				continue
			}
			// Archive members cannot be re-hashed in place.
			if result.OutputPath == rec.ArchivePath && rec.ArchivePath != "" {
				archived++
				continue
			}
			data, err := os.ReadFile(result.OutputPath)
			if err != nil {
				log.Warnf("Missing: %s (run %s)", result.OutputPath, rec.ID)
				missing++
				continue
			}
			sum := blake3.Sum256(data)
			if hex.EncodeToString(sum[:]) != result.BLAKE3 {
				log.Errorf("Checksum mismatch: %s (run %s)", result.OutputPath, rec.ID)
				changed++
				continue
			}
			ok++
		}
	}

	log.Infof("Verified %d file(s): %d ok, %d missing, %d changed, %d in archives (skipped)",
		ok+missing+changed, ok, missing, changed, archived)
	if changed > 0 {
		return fmt.Errorf("%d file(s) failed checksum verification", changed)
	}
	return nil
}
