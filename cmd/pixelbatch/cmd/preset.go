package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-pixelbatch/internal/helpers"
	"go-pixelbatch/internal/models"
	"go-pixelbatch/internal/store"
)

var presetExportPath string

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage saved transform presets",
}

var presetSaveCmd = &cobra.Command{
	Use:   "save [name]",
	Short: "Save the current transform flags as a named preset",
	Long: `Builds an operation config from the config file plus any transform flags
given on the command line, validates it, and stores it under the given name.
Saving to an existing name overwrites it.`,
	Args: cobra.ExactArgs(1),
	RunE: runPresetSave,
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved presets",
	RunE:  runPresetList,
}

var presetShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a preset's settings, or export them as TOML",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetShow,
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a saved preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetDelete,
}

func init() {
	rootCmd.AddCommand(presetCmd)
	presetCmd.AddCommand(presetSaveCmd, presetListCmd, presetShowCmd, presetDeleteCmd)

	addOperationFlags(presetSaveCmd)
	presetShowCmd.Flags().StringVar(&presetExportPath, "export", "", "Write the preset as a TOML file instead of printing it")
}

func presetKey(name string) string {
	return store.PresetPrefix + helpers.ConvertToSlug(name)
}

// loadPreset fetches a named preset from the store. Shared with 'process'.
func loadPreset(name string) (models.OperationConfig, error) {
	var cfg models.OperationConfig
	db, err := store.Open(globalConfig.DatabasePath)
	if err != nil {
		return cfg, err
	}
	defer db.Close()

	if err := db.GetJSON(presetKey(name), &cfg); err != nil {
		if err == store.ErrNotFound {
			return cfg, fmt.Errorf("preset %q not found", name)
		}
		return cfg, err
	}
	return cfg, nil
}

func runPresetSave(cmd *cobra.Command, args []string) error {
	cfg := globalConfig.Process
	applyOperationFlags(cmd, &cfg)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(cfg.EnabledSteps()) == 0 {
		return fmt.Errorf("refusing to save an empty preset, enable at least one step")
	}

	db, err := store.Open(globalConfig.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	key := presetKey(args[0])
	if db.Has([]byte(key)) {
		log.Warnf("Overwriting existing preset %q", args[0])
	}
	if err := db.PutJSON(key, cfg); err != nil {
		return fmt.Errorf("failed to save preset %q: %w", args[0], err)
	}
	log.Infof("Saved preset %q with steps: %v", args[0], cfg.EnabledSteps())
	return nil
}

func runPresetList(cmd *cobra.Command, args []string) error {
	db, err := store.Open(globalConfig.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	names, err := db.ListKeys(store.PresetPrefix)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No presets saved.")
		return nil
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTEPS")
	for _, name := range names {
		var cfg models.OperationConfig
		if err := db.GetJSON(store.PresetPrefix+name, &cfg); err != nil {
			log.WithError(err).Warnf("Skipping unreadable preset %q", name)
			continue
		}
		fmt.Fprintf(w, "%s\t%v\n", name, cfg.EnabledSteps())
	}
	return w.Flush()
}

func runPresetShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadPreset(args[0])
	if err != nil {
		return err
	}

	if presetExportPath != "" {
		f, err := os.Create(presetExportPath)
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		defer f.Close()
		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode preset: %w", err)
		}
		log.Infof("Exported preset %q to %s", args[0], presetExportPath)
		return nil
	}

	return toml.NewEncoder(os.Stdout).Encode(cfg)
}

func runPresetDelete(cmd *cobra.Command, args []string) error {
	db, err := store.Open(globalConfig.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	key := presetKey(args[0])
	if !db.Has([]byte(key)) {
		return fmt.Errorf("preset %q not found", args[0])
	}
	if err := db.Delete([]byte(key)); err != nil {
		return fmt.Errorf("failed to delete preset %q: %w", args[0], err)
	}
	log.Infof("Deleted preset %q", args[0])
	return nil
}
