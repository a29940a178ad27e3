package transform

import (
	"context"
	"math"

	"github.com/disintegration/imaging"

	"go-pixelbatch/internal/models"
)

// FitDimensions computes the final output size for a resize request.
// Without aspect lock the requested dimensions are used as-is, with a zero
// value falling back to the source dimension. With aspect lock and a single
// requested dimension, the other is derived from the source ratio; with both
// requested, the image is fitted inside the box (the tighter constraint
// wins) so no dimension overflows the request.
func FitDimensions(srcW, srcH, reqW, reqH int, maintainAspect bool) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return reqW, reqH
	}
	if !maintainAspect {
		w, h := reqW, reqH
		if w <= 0 {
			w = srcW
		}
		if h <= 0 {
			h = srcH
		}
		return w, h
	}
	switch {
	case reqW > 0 && reqH > 0:
		ratio := math.Min(float64(reqW)/float64(srcW), float64(reqH)/float64(srcH))
		return roundDim(float64(srcW) * ratio), roundDim(float64(srcH) * ratio)
	case reqW > 0:
		return reqW, roundDim(float64(reqW) * float64(srcH) / float64(srcW))
	default:
		return roundDim(float64(reqH) * float64(srcW) / float64(srcH)), reqH
	}
}

func roundDim(v float64) int {
	d := int(math.Round(v))
	if d < 1 {
		d = 1
	}
	return d
}

// Resize scales the source onto a new surface at the computed size using
// Lanczos resampling. Invalid dimensions never reach this transform; they
// are rejected by OperationConfig.Validate before the run starts.
func Resize(cfg models.ResizeConfig) Transform {
	return func(ctx context.Context, in *Asset) (*Asset, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, format, err := decode(in)
		if err != nil {
			return nil, err
		}
		bounds := img.Bounds()
		w, h := FitDimensions(bounds.Dx(), bounds.Dy(), cfg.Width, cfg.Height, cfg.MaintainAspect)
		resized := imaging.Resize(img, w, h, imaging.Lanczos)
		data, err := encode(resized, format, defaultReencodeQuality)
		if err != nil {
			return nil, err
		}
		return &Asset{Name: in.Name, MediaType: mediaTypeFor(format), Data: data}, nil
	}
}
