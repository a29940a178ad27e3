package transform

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"go-pixelbatch/internal/models"
)

// Rotate turns the image clockwise by the configured angle and applies the
// horizontal/vertical mirror flags. For arbitrary angles the output bounding
// box is recomputed from the rotation so no corners are clipped; exact
// multiples of 90 take a lossless path with no resampling.
func Rotate(cfg models.RotateConfig) Transform {
	return func(ctx context.Context, in *Asset) (*Asset, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, format, err := decode(in)
		if err != nil {
			return nil, err
		}

		out := rotateClockwise(img, cfg.AngleDegrees, format)
		if cfg.FlipHorizontal {
			out = imaging.FlipH(out)
		}
		if cfg.FlipVertical {
			out = imaging.FlipV(out)
		}

		data, err := encode(out, format, defaultReencodeQuality)
		if err != nil {
			return nil, err
		}
		return &Asset{Name: in.Name, MediaType: mediaTypeFor(format), Data: data}, nil
	}
}

func rotateClockwise(img image.Image, degrees float64, format string) image.Image {
	deg := math.Mod(degrees, 360)
	if deg < 0 {
		deg += 360
	}
	switch deg {
	case 0:
		return img
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	}
	// The corners revealed by a non-right-angle rotation are filled white
	// for alpha-less targets, transparent otherwise.
	bg := color.Color(color.NRGBA{})
	if !hasAlphaChannel(format) {
		bg = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	// imaging rotates counter-clockwise, so negate.
	return imaging.Rotate(img, -deg, bg)
}
