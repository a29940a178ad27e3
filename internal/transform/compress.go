package transform

import (
	"context"

	"github.com/disintegration/imaging"

	"go-pixelbatch/internal/models"
)

// maxCompressEdge is the fixed downsampling cap applied by the compress
// step: any image whose longer edge exceeds this is scaled down to it before
// re-encoding. Not configurable; output-size parity depends on it.
const maxCompressEdge = 2048

// Compress re-encodes the asset as JPEG at the configured quality. Oversized
// images are downsampled to the edge cap first, trading resolution for size.
func Compress(cfg models.CompressConfig) Transform {
	return func(ctx context.Context, in *Asset) (*Asset, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, format, err := decode(in)
		if err != nil {
			return nil, err
		}

		bounds := img.Bounds()
		w, h := bounds.Dx(), bounds.Dy()
		if w > maxCompressEdge || h > maxCompressEdge {
			if w >= h {
				img = imaging.Resize(img, maxCompressEdge, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxCompressEdge, imaging.Lanczos)
			}
		}

		// JPEG has no alpha; sources that carry one are flattened onto
		// white to avoid black-fill artifacts.
		if hasAlphaChannel(format) {
			img = flattenOnWhite(img)
		}

		data, err := encode(img, models.FormatJPEG, cfg.Quality)
		if err != nil {
			return nil, err
		}
		return &Asset{Name: in.Name, MediaType: mediaTypeFor(models.FormatJPEG), Data: data}, nil
	}
}
