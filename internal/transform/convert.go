package transform

import (
	"context"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"go-pixelbatch/internal/models"
)

// flattenOnWhite paints an opaque white background and draws the source over
// it. Required when a format with an alpha channel is encoded into one
// without, where transparent pixels would otherwise render black.
func flattenOnWhite(img image.Image) image.Image {
	bounds := img.Bounds()
	dst := imaging.New(bounds.Dx(), bounds.Dy(), color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	return imaging.Overlay(dst, img, image.Pt(0, 0), 1.0)
}

// Convert re-encodes the asset into the target container format.
func Convert(cfg models.ConvertConfig) Transform {
	return func(ctx context.Context, in *Asset) (*Asset, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, format, err := decode(in)
		if err != nil {
			return nil, err
		}

		target := cfg.Format
		if target == "jpg" {
			target = models.FormatJPEG
		}
		if hasAlphaChannel(format) && !hasAlphaChannel(target) {
			img = flattenOnWhite(img)
		}

		data, err := encode(img, target, defaultReencodeQuality)
		if err != nil {
			return nil, err
		}
		return &Asset{Name: in.Name, MediaType: mediaTypeFor(target), Data: data}, nil
	}
}
