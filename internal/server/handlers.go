package server

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"go-pixelbatch/internal/models"
	"go-pixelbatch/internal/pdfx"
	"go-pixelbatch/internal/remote"
	"go-pixelbatch/internal/transform"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, remote.HealthReport{
		Status:  "healthy",
		Message: "pixelbatch backend is running",
		Version: Version,
		Features: map[string]bool{
			"image_compression": true,
			"pdf_to_images":     true,
			"pdf_to_docx":       false,
		},
	})
}

func (s *Server) handlePing(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCapabilities(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"image_compression": map[string]interface{}{
			"available":        true,
			"supported_input":  []string{"jpeg", "png", "webp", "bmp", "tiff", "gif"},
			"supported_output": []string{"jpeg", "png", "webp"},
			"features":         []string{"quality control", "resize", "format conversion"},
		},
		"pdf_conversion": map[string]interface{}{
			"available":        true,
			"supported_input":  []string{"pdf"},
			"supported_output": []string{"jpg (per page)", "zip"},
		},
	})
}

type compressImageRequest struct {
	Quality   int    `form:"quality" validate:"min=1,max=100"`
	MaxWidth  int    `form:"max_width" validate:"min=0"`
	MaxHeight int    `form:"max_height" validate:"min=0"`
	Format    string `form:"format" validate:"omitempty,oneof=jpeg jpg png webp"`
}

// handleCompressImage accepts one multipart image and returns the
// re-encoded bytes. Size accounting is reported via headers so callers can
// show savings without parsing the payload.
func (s *Server) handleCompressImage(c echo.Context) error {
	req := compressImageRequest{Quality: 80, Format: models.FormatJPEG}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Format == "jpg" {
		req.Format = models.FormatJPEG
	}

	data, filename, err := readUpload(c, "file")
	if err != nil {
		return err
	}

	// Only downscale; a box larger than the source leaves it untouched.
	resize := models.ResizeConfig{}
	if req.MaxWidth > 0 || req.MaxHeight > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unreadable image: %v", err))
		}
		if (req.MaxWidth > 0 && cfg.Width > req.MaxWidth) || (req.MaxHeight > 0 && cfg.Height > req.MaxHeight) {
			resize = models.ResizeConfig{
				Enabled:        true,
				Width:          req.MaxWidth,
				Height:         req.MaxHeight,
				MaintainAspect: true,
			}
		}
	}

	opCfg := models.OperationConfig{Resize: resize}
	if req.Format == models.FormatJPEG {
		opCfg.Compress = models.CompressConfig{Enabled: true, Quality: req.Quality}
	} else {
		opCfg.Convert = models.ConvertConfig{Enabled: true, Format: req.Format}
	}
	opCfg.Normalize()

	asset := &transform.Asset{Name: filename, Data: data}
	for _, step := range transform.Chain(opCfg) {
		if asset, err = step(c.Request().Context(), asset); err != nil {
			log.WithError(err).Warnf("Compression failed for %s", filename)
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
	}

	ext, _ := models.CanonicalExt(req.Format)
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	outName := stem + "_compressed" + ext

	ratio := 0.0
	if len(data) > 0 {
		ratio = (1 - float64(len(asset.Data))/float64(len(data))) * 100
	}

	h := c.Response().Header()
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outName))
	h.Set("X-Original-Size", fmt.Sprintf("%d", len(data)))
	h.Set("X-Compressed-Size", fmt.Sprintf("%d", len(asset.Data)))
	h.Set("X-Compression-Ratio", fmt.Sprintf("%.1f%%", ratio))
	return c.Blob(http.StatusOK, asset.MediaType, asset.Data)
}

// handlePDFToImages renders each page of the uploaded PDF as JPEG and
// returns them in one flat zip.
func (s *Server) handlePDFToImages(c echo.Context) error {
	data, filename, err := readUpload(c, "file")
	if err != nil {
		return err
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return echo.NewHTTPError(http.StatusBadRequest, "only PDF files are supported")
	}

	// go-fitz works from a path, so spool the upload to a temp file.
	tmp, err := os.CreateTemp("", "pixelbatch-*.pdf")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	tmp.Close()

	quality := s.pdf.Quality
	if quality == 0 {
		quality = 90
	}
	pages, err := pdfx.ExtractPages(c.Request().Context(), tmpPath, quality)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, page := range pages {
		w, err := zw.Create(page.Name)
		if err == nil {
			_, err = w.Write(page.Data)
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	if err := zw.Close(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_pages.zip", stem))
	return c.Blob(http.StatusOK, "application/zip", buf.Bytes())
}

// handlePDFToDocx reports the capability as absent. The route exists so
// clients probing the original API shape get a proper answer instead of 404.
func (s *Server) handlePDFToDocx(c echo.Context) error {
	return echo.NewHTTPError(http.StatusNotImplemented, "PDF to DOCX conversion is not available on this backend")
}

func readUpload(c echo.Context, field string) ([]byte, string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, "missing file upload")
	}
	src, err := fh.Open()
	if err != nil {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return data, filepath.Base(fh.Filename), nil
}
