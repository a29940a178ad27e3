package cmd

import (
	"github.com/spf13/cobra"

	"go-pixelbatch/internal/server"
)

var serveListenFlag string

// serveCmd starts the optional conversion backend.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the optional conversion backend server",
	Long: `Starts the HTTP backend that offers server-side image compression and
PDF page rendering. The batch pipeline never requires this backend; it
exists for clients that want to offload work they cannot do locally.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListenFlag, "listen", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := globalConfig.Server
	if serveListenFlag != "" {
		cfg.Listen = serveListenFlag
	}
	return server.New(cfg, globalConfig.PDF).Start()
}
