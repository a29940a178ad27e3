package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-pixelbatch/internal/helpers"
	"go-pixelbatch/internal/remote"
)

var (
	remoteURLFlag     string
	remoteQualityFlag int
	remoteFormatFlag  string
	remoteOutputFlag  string
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Talk to a conversion backend",
}

var remotePingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check backend availability and capabilities",
	RunE:  runRemotePing,
}

var remoteCompressCmd = &cobra.Command{
	Use:   "compress [file]",
	Short: "Compress one image on the backend",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemoteCompress,
}

func init() {
	rootCmd.AddCommand(remoteCmd)
	remoteCmd.AddCommand(remotePingCmd, remoteCompressCmd)

	remoteCmd.PersistentFlags().StringVar(&remoteURLFlag, "url", "", "Backend base URL (overrides config)")
	remoteCompressCmd.Flags().IntVar(&remoteQualityFlag, "quality", 80, "Compression quality 1-100")
	remoteCompressCmd.Flags().StringVar(&remoteFormatFlag, "format", "", "Output format (jpeg, png, webp)")
	remoteCompressCmd.Flags().StringVar(&remoteOutputFlag, "output", "", "Output file path (default alongside the input)")
}

func newRemoteClient() (*remote.Client, error) {
	baseURL := globalConfig.Remote.BaseURL
	if remoteURLFlag != "" {
		baseURL = remoteURLFlag
	}
	if baseURL == "" {
		return nil, fmt.Errorf("no backend URL configured, set Remote.BaseUrl or pass --url")
	}
	timeout := time.Duration(globalConfig.Remote.TimeoutSec) * time.Second
	return remote.NewClient(baseURL, timeout, globalHTTPTransport), nil
}

func runRemotePing(cmd *cobra.Command, args []string) error {
	client, err := newRemoteClient()
	if err != nil {
		return err
	}

	report, err := client.Health(context.Background())
	if err != nil {
		return err
	}

	log.Infof("Backend status: %s (version %s)", report.Status, report.Version)
	for feature, available := range report.Features {
		log.Infof("  %s: %t", feature, available)
	}
	return nil
}

func runRemoteCompress(cmd *cobra.Command, args []string) error {
	client, err := newRemoteClient()
	if err != nil {
		return err
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	out, stats, err := client.CompressImage(context.Background(), filepath.Base(path), data, remoteQualityFlag, remoteFormatFlag)
	if err != nil {
		return err
	}

	outputPath := remoteOutputFlag
	if outputPath == "" {
		ext := filepath.Ext(path)
		outputPath = strings.TrimSuffix(path, ext) + "_compressed" + ext
	}
	if err := os.WriteFile(outputPath, out, 0644); err != nil {
		return err
	}

	log.Infof("Wrote %s (%s -> %s)", outputPath,
		helpers.BytesToSize(uint64(stats.OriginalSize)),
		helpers.BytesToSize(uint64(stats.CompressedSize)))
	return nil
}
