// Package transform implements the per-file image operations of the batch
// pipeline. Every transform is a pure, single-file operation: it decodes the
// input asset, draws a new raster, re-encodes, and returns a fresh asset.
// The input is never mutated; a decode or encode failure is reported as an
// error for the orchestrator to record as a per-file failure.
package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/webp"

	// Register WebP decoding for image.Decode.
	_ "golang.org/x/image/webp"

	"go-pixelbatch/internal/models"
)

// Custom transform errors, wrapped into per-file failure records upstream.
var (
	ErrDecode            = errors.New("image decode failed")
	ErrEncode            = errors.New("image encode failed")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// defaultReencodeQuality is used when a transform has to re-encode a lossy
// format but the step carries no quality parameter of its own.
const defaultReencodeQuality = 92

// Asset is a binary image flowing through the transform chain. Each step's
// output becomes the next step's input.
type Asset struct {
	Name      string
	MediaType string
	Data      []byte
}

// Transform is one step of the chain: asset in, new asset out.
type Transform func(ctx context.Context, in *Asset) (*Asset, error)

// Chain builds the enabled steps in the fixed order: resize, compress,
// convert, watermark, rotate/flip. Rename is filename-only and handled by
// the pipeline, not here. The order is fixed and not configurable.
func Chain(cfg models.OperationConfig) []Transform {
	var chain []Transform
	if cfg.Resize.Enabled {
		chain = append(chain, Resize(cfg.Resize))
	}
	if cfg.Compress.Enabled {
		chain = append(chain, Compress(cfg.Compress))
	}
	if cfg.Convert.Enabled {
		chain = append(chain, Convert(cfg.Convert))
	}
	if cfg.Watermark.Enabled {
		chain = append(chain, Watermark(cfg.Watermark))
	}
	if cfg.Rotate.Enabled {
		chain = append(chain, Rotate(cfg.Rotate))
	}
	return chain
}

// decode parses the asset bytes and reports the container format name as
// registered with the image package ("jpeg", "png", "webp", ...).
func decode(in *Asset) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(in.Data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrDecode, in.Name, err)
	}
	return img, format, nil
}

// encode re-encodes img into the named format. Quality applies to the lossy
// formats (JPEG, WebP) only.
func encode(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case models.FormatJPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case models.FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case models.FormatGIF:
		err = imaging.Encode(&buf, img, imaging.GIF)
	case models.FormatTIFF:
		err = imaging.Encode(&buf, img, imaging.TIFF)
	case models.FormatBMP:
		err = imaging.Encode(&buf, img, imaging.BMP)
	case models.FormatWebP:
		err = webp.Encode(&buf, img, webp.Options{Quality: quality})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncode, format, err)
	}
	return buf.Bytes(), nil
}

// mediaTypeFor maps a format name to its MIME type.
func mediaTypeFor(format string) string {
	switch format {
	case models.FormatJPEG:
		return "image/jpeg"
	case models.FormatPNG:
		return "image/png"
	case models.FormatGIF:
		return "image/gif"
	case models.FormatTIFF:
		return "image/tiff"
	case models.FormatBMP:
		return "image/bmp"
	case models.FormatWebP:
		return "image/webp"
	}
	return "application/octet-stream"
}

// hasAlphaChannel reports whether the decoded format can carry transparency.
func hasAlphaChannel(format string) bool {
	switch format {
	case models.FormatPNG, models.FormatGIF, models.FormatWebP:
		return true
	}
	return false
}
