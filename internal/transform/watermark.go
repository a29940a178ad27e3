package transform

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"go-pixelbatch/internal/models"
)

// watermarkMargin is the distance in pixels between corner anchors and the
// image edge.
const watermarkMargin = 20

// strokeOffsets are the 8-neighbour offsets used to draw the text outline.
var strokeOffsets = [][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Watermark overlays a text string at one of the five fixed anchors. The
// text is drawn stroked and then filled so it stays legible over both light
// and dark backgrounds. A font loading or metric failure is a hard error for
// the file being processed.
func Watermark(cfg models.WatermarkConfig) Transform {
	return func(ctx context.Context, in *Asset) (*Asset, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, format, err := decode(in)
		if err != nil {
			return nil, err
		}

		face, err := watermarkFace(cfg.FontSize)
		if err != nil {
			return nil, err
		}
		defer face.Close()

		canvas := imaging.Clone(img)
		bounds := canvas.Bounds()

		textWidth := font.MeasureString(face, cfg.Text).Ceil()
		metrics := face.Metrics()
		ascent := metrics.Ascent.Ceil()
		descent := metrics.Descent.Ceil()

		x, y := anchorPoint(cfg.Position, bounds.Dx(), bounds.Dy(), textWidth, ascent, descent)
		alpha := uint8(cfg.Opacity * 255)

		drawString := func(col color.Color, dx, dy int) {
			d := &font.Drawer{
				Dst:  canvas,
				Src:  image.NewUniform(col),
				Face: face,
				Dot:  fixed.P(x+dx, y+dy),
			}
			d.DrawString(cfg.Text)
		}

		// Outline first, fill second.
		for _, off := range strokeOffsets {
			drawString(color.NRGBA{A: alpha}, off[0], off[1])
		}
		drawString(color.NRGBA{R: 255, G: 255, B: 255, A: alpha}, 0, 0)

		data, err := encode(canvas, format, defaultReencodeQuality)
		if err != nil {
			return nil, err
		}
		return &Asset{Name: in.Name, MediaType: mediaTypeFor(format), Data: data}, nil
	}
}

// watermarkFace builds a font face at the requested size from the embedded
// Go Regular typeface.
func watermarkFace(size float64) (font.Face, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("watermark font parse failed: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("watermark font metrics failed: %w", err)
	}
	return face, nil
}

// anchorPoint returns the baseline origin for the text at a given anchor.
func anchorPoint(position string, imgW, imgH, textW, ascent, descent int) (int, int) {
	var x, y int
	switch position {
	case models.PositionTopLeft:
		x, y = watermarkMargin, watermarkMargin+ascent
	case models.PositionTopRight:
		x, y = imgW-watermarkMargin-textW, watermarkMargin+ascent
	case models.PositionBottomLeft:
		x, y = watermarkMargin, imgH-watermarkMargin-descent
	case models.PositionCenter:
		x, y = (imgW-textW)/2, (imgH+ascent-descent)/2
	default: // bottom-right
		x, y = imgW-watermarkMargin-textW, imgH-watermarkMargin-descent
	}
	if x < 0 {
		x = 0
	}
	return x, y
}
