// Package config wires viper-backed settings into the typed Config model
// and applies the application's defaults.
package config

import (
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"go-pixelbatch/internal/models"
)

// Default values for configuration
const (
	DefaultOutputDir      = "processed"
	DefaultDatabasePath   = "pixelbatch.db"    // Relative to OutputDir if not absolute
	DefaultBleveIndexPath = "pixelbatch.bleve" // Relative to OutputDir if not absolute
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"

	DefaultPDFQuality = 90

	DefaultServerListen      = ":8080"
	DefaultServerMaxUploadMB = 50
	DefaultAllowOrigins      = "*"

	DefaultRemoteTimeoutSec = 15

	DefaultConfigFilePath = "config.toml"
)

// SetDefaults registers every default with viper. Called once from the root
// command before flags are bound.
func SetDefaults() {
	viper.SetDefault("outputdir", DefaultOutputDir)
	viper.SetDefault("databasepath", DefaultDatabasePath)
	viper.SetDefault("bleveindexpath", DefaultBleveIndexPath)
	viper.SetDefault("loglevel", DefaultLogLevel)
	viper.SetDefault("logformat", DefaultLogFormat)
	viper.SetDefault("loghttprequests", false)
	viper.SetDefault("pdf.quality", DefaultPDFQuality)
	viper.SetDefault("server.listen", DefaultServerListen)
	viper.SetDefault("server.maxuploadmb", DefaultServerMaxUploadMB)
	viper.SetDefault("server.alloworigins", DefaultAllowOrigins)
	viper.SetDefault("remote.timeoutsec", DefaultRemoteTimeoutSec)
	viper.SetDefault("process.compress.quality", models.DefaultQuality)
	viper.SetDefault("process.watermark.opacity", models.DefaultWatermarkOpacity)
	viper.SetDefault("process.watermark.fontsize", models.DefaultWatermarkSize)
	viper.SetDefault("process.watermark.position", models.DefaultWatermarkAnchor)
}

// Load unmarshals the merged viper state into a Config and resolves the
// store paths. Relative database/index paths live under the output
// directory so one directory holds everything a batch session produced.
func Load() (models.Config, error) {
	var cfg models.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = DefaultDatabasePath
	}
	if cfg.BleveIndexPath == "" {
		cfg.BleveIndexPath = DefaultBleveIndexPath
	}
	if !filepath.IsAbs(cfg.DatabasePath) {
		cfg.DatabasePath = filepath.Join(cfg.OutputDir, cfg.DatabasePath)
	}
	if !filepath.IsAbs(cfg.BleveIndexPath) {
		cfg.BleveIndexPath = filepath.Join(cfg.OutputDir, cfg.BleveIndexPath)
	}

	cfg.Process.Normalize()

	log.Debugf("Configuration loaded: output %s, db %s", cfg.OutputDir, cfg.DatabasePath)
	return cfg, nil
}
