package cmd

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go-pixelbatch/internal/config"
	"go-pixelbatch/internal/models"
	"go-pixelbatch/internal/remote"
)

// cfgFile holds the path to the config file specified by the user
var cfgFile string

// logLevel and logFormat hold the logging flag values
var (
	logLevel  string
	logFormat string
)

// logHTTPFlag holds the value of the --log-http flag
var logHTTPFlag bool

// outputDirFlag holds the value of the --output-dir flag
var outputDirFlag string

// globalConfig holds the loaded configuration
var globalConfig models.Config

// globalHTTPTransport holds the configured HTTP transport (base or
// logging-wrapped), used by commands that talk to the optional backend
var globalHTTPTransport http.RoundTripper

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pixelbatch",
	Short: "Batch image and PDF processing toolkit",
	Long: `Pixelbatch applies a configurable chain of transforms (resize, compress,
convert, watermark, rotate/flip, rename) to a queue of image files, packages
the results, and keeps a searchable history of past runs.`,
	PersistentPreRunE: loadGlobalConfig,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	config.SetDefaults()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (default is ./config.toml or ~/.config/pixelbatch/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Logging level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", config.DefaultLogFormat, "Logging format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&logHTTPFlag, "log-http", false, "Log backend HTTP requests/responses to http.log (overrides config)")
	rootCmd.PersistentFlags().StringVar(&outputDirFlag, "output-dir", "", "Directory for processed outputs (overrides config)")

	_ = viper.BindPFlag("loghttprequests", rootCmd.PersistentFlags().Lookup("log-http"))
	_ = viper.BindPFlag("outputdir", rootCmd.PersistentFlags().Lookup("output-dir"))
	_ = viper.BindPFlag("loglevel", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logformat", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initLogging configures logrus from the level/format flags.
func initLogging() {
	level, err := log.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		log.Warnf("Unknown log level %q, using info", logLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(logFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// loadGlobalConfig reads the config file, applies flag overrides, and sets
// up the shared HTTP transport. Runs before every command.
func loadGlobalConfig(cmd *cobra.Command, args []string) error {
	initLogging()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pixelbatch"))
		}
	}

	viper.SetEnvPrefix("PIXELBATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Debug("No config file found, using defaults and flags")
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		log.Infof("Using config file: %s", viper.ConfigFileUsed())
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	globalConfig = cfg

	globalHTTPTransport = http.DefaultTransport
	if viper.GetBool("loghttprequests") {
		logPath := filepath.Join(globalConfig.OutputDir, "http.log")
		if _, statErr := os.Stat(globalConfig.OutputDir); statErr != nil {
			logPath = "http.log"
		}
		loggingTransport, err := remote.NewLoggingTransport(http.DefaultTransport, logPath)
		if err != nil {
			log.WithError(err).Error("Failed to initialize HTTP logging transport, logging disabled")
		} else {
			globalHTTPTransport = loggingTransport
			log.Infof("HTTP logging to file: %s", logPath)
		}
	}

	return nil
}
