// Package pdfx rasterizes PDF pages into JPEG images. Parsing and rendering
// are delegated entirely to go-fitz; this package only drives it page by
// page and re-encodes the results.
package pdfx

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
	log "github.com/sirupsen/logrus"
)

// PageImage is one rasterized page, held in memory so the caller can route
// it through the packager like any other processed result.
type PageImage struct {
	Name       string
	Data       []byte
	PageNumber int
	Width      int
	Height     int
}

// ExtractPages renders every page of the PDF at path as a JPEG of the given
// quality. Page files are named page_001.jpg, page_002.jpg, ...
func ExtractPages(ctx context.Context, path string, quality int) ([]PageImage, error) {
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("pdf render quality must be in 1-100, got %d", quality)
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, fmt.Errorf("PDF %s has no pages", path)
	}
	log.Debugf("Rendering %d page(s) from %s at quality %d", pageCount, path, quality)

	pages := make([]PageImage, 0, pageCount)
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := doc.Image(pageNum)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d of %s: %w", pageNum+1, path, err)
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode page %d as JPEG: %w", pageNum+1, err)
		}

		bounds := img.Bounds()
		pages = append(pages, PageImage{
			Name:       fmt.Sprintf("page_%03d.jpg", pageNum+1),
			Data:       buf.Bytes(),
			PageNumber: pageNum + 1,
			Width:      bounds.Dx(),
			Height:     bounds.Dy(),
		})
	}

	return pages, nil
}
