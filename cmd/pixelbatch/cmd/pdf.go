package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/zeebo/blake3"

	"go-pixelbatch/internal/models"
	"go-pixelbatch/internal/packager"
	"go-pixelbatch/internal/pdfx"
)

var (
	pdfQualityFlag int
	pdfArchiveFlag string
)

var pdfCmd = &cobra.Command{
	Use:   "pdf",
	Short: "PDF helpers",
}

// pdfExtractCmd renders PDF pages to JPEGs and routes them through the same
// packager as a batch run.
var pdfExtractCmd = &cobra.Command{
	Use:   "extract [file.pdf]",
	Short: "Render each page of a PDF as a JPEG image",
	Args:  cobra.ExactArgs(1),
	RunE:  runPDFExtract,
}

func init() {
	rootCmd.AddCommand(pdfCmd)
	pdfCmd.AddCommand(pdfExtractCmd)

	pdfExtractCmd.Flags().IntVar(&pdfQualityFlag, "quality", 0, "JPEG quality for rendered pages (default from config)")
	pdfExtractCmd.Flags().StringVar(&pdfArchiveFlag, "archive-name", "", "Archive filename when pages are bundled")
}

func runPDFExtract(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return fmt.Errorf("not a PDF file: %s", path)
	}

	quality := globalConfig.PDF.Quality
	if pdfQualityFlag > 0 {
		quality = pdfQualityFlag
	}

	pages, err := pdfx.ExtractPages(context.Background(), path, quality)
	if err != nil {
		return err
	}
	log.Infof("Rendered %d page(s) from %s", len(pages), filepath.Base(path))

	results := make([]models.ProcessedResult, 0, len(pages))
	for _, page := range pages {
		sum := blake3.Sum256(page.Data)
		results = append(results, models.ProcessedResult{
			Name:   page.Name,
			BLAKE3: hex.EncodeToString(sum[:]),
			Data:   page.Data,
			Size:   int64(len(page.Data)),
		})
	}

	archiveName := pdfArchiveFlag
	if archiveName == "" {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		archiveName = stem + "_pages.zip"
	}
	out, err := packager.Package(results, globalConfig.OutputDir, archiveName)
	if err != nil {
		return err
	}

	if out.Archived {
		log.Infof("Wrote %s", out.ArchivePath)
	} else {
		for _, p := range out.Paths {
			log.Infof("Wrote %s", p)
		}
	}
	return nil
}
