package transform

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pixelbatch/internal/models"
)

// fillPNG renders a solid-colour PNG for use as a chain input.
func fillPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func fillJPEG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	data, err := encode(img, models.FormatJPEG, 90)
	require.NoError(t, err)
	return data
}

func decodeDims(t *testing.T, data []byte) (int, int, string) {
	t.Helper()
	img, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	b := img.Bounds()
	return b.Dx(), b.Dy(), format
}

func TestFitDimensions(t *testing.T) {
	tests := []struct {
		name           string
		srcW, srcH     int
		reqW, reqH     int
		maintainAspect bool
		wantW, wantH   int
	}{
		{"width only derives height", 1000, 800, 500, 0, true, 500, 400},
		{"height only derives width", 1000, 800, 0, 400, true, 500, 400},
		{"both fit inside box", 1000, 800, 500, 500, true, 500, 400},
		{"box taller than needed", 1000, 500, 200, 400, true, 200, 100},
		{"rounded derived dimension", 999, 333, 500, 0, true, 500, 167},
		{"no lock uses both as-is", 1000, 800, 300, 700, false, 300, 700},
		{"no lock zero width keeps source", 1000, 800, 0, 700, false, 1000, 700},
		{"no lock zero height keeps source", 1000, 800, 300, 0, false, 300, 800},
		{"upscale allowed", 100, 100, 400, 0, true, 400, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitDimensions(tt.srcW, tt.srcH, tt.reqW, tt.reqH, tt.maintainAspect)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("FitDimensions() = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestResizeKeepsAspect(t *testing.T) {
	in := &Asset{Name: "a.png", Data: fillPNG(t, 1000, 800, color.NRGBA{R: 10, G: 20, B: 30, A: 255})}

	step := Resize(models.ResizeConfig{Enabled: true, Width: 500, MaintainAspect: true})
	out, err := step(context.Background(), in)
	require.NoError(t, err)

	w, h, format := decodeDims(t, out.Data)
	assert.Equal(t, 500, w)
	assert.Equal(t, 400, h)
	assert.Equal(t, "png", format)
	assert.Equal(t, "image/png", out.MediaType)
}

func TestResizeDoesNotMutateInput(t *testing.T) {
	data := fillPNG(t, 100, 100, color.NRGBA{R: 200, A: 255})
	original := append([]byte(nil), data...)
	in := &Asset{Name: "a.png", Data: data}

	step := Resize(models.ResizeConfig{Enabled: true, Width: 50, MaintainAspect: true})
	_, err := step(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, original, in.Data)
}

func TestCompressProducesJPEG(t *testing.T) {
	in := &Asset{Name: "a.png", Data: fillPNG(t, 200, 100, color.NRGBA{R: 90, G: 90, B: 90, A: 255})}

	step := Compress(models.CompressConfig{Enabled: true, Quality: 60})
	out, err := step(context.Background(), in)
	require.NoError(t, err)

	_, _, format := decodeDims(t, out.Data)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, "image/jpeg", out.MediaType)
}

func TestCompressCapsLongEdge(t *testing.T) {
	in := &Asset{Name: "big.jpg", Data: fillJPEG(t, 2500, 1000, color.NRGBA{R: 120, G: 120, B: 120, A: 255})}

	step := Compress(models.CompressConfig{Enabled: true, Quality: 80})
	out, err := step(context.Background(), in)
	require.NoError(t, err)

	w, h, _ := decodeDims(t, out.Data)
	assert.Equal(t, 2048, w)
	assert.LessOrEqual(t, h, 2048)
	assert.Greater(t, h, 0)
}

func TestCompressLeavesSmallImagesUnscaled(t *testing.T) {
	in := &Asset{Name: "small.jpg", Data: fillJPEG(t, 640, 480, color.NRGBA{R: 50, G: 60, B: 70, A: 255})}

	step := Compress(models.CompressConfig{Enabled: true, Quality: 80})
	out, err := step(context.Background(), in)
	require.NoError(t, err)

	w, h, _ := decodeDims(t, out.Data)
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
}

func TestCompressFlattensTransparency(t *testing.T) {
	// Fully transparent PNG; black fill after re-encode would mean the
	// alpha channel leaked through unflattened.
	in := &Asset{Name: "clear.png", Data: fillPNG(t, 50, 50, color.NRGBA{})}

	step := Compress(models.CompressConfig{Enabled: true, Quality: 90})
	out, err := step(context.Background(), in)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	r, g, b, _ := img.At(25, 25).RGBA()
	assert.Greater(t, r>>8, uint32(240), "transparent pixels should flatten to white")
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestConvertFormats(t *testing.T) {
	src := fillPNG(t, 60, 40, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	for _, target := range []string{models.FormatJPEG, models.FormatPNG, models.FormatBMP, models.FormatWebP} {
		t.Run(target, func(t *testing.T) {
			step := Convert(models.ConvertConfig{Enabled: true, Format: target})
			out, err := step(context.Background(), &Asset{Name: "a.png", Data: src})
			require.NoError(t, err)

			w, h, format := decodeDims(t, out.Data)
			assert.Equal(t, target, format)
			assert.Equal(t, 60, w)
			assert.Equal(t, 40, h)
			assert.Equal(t, mediaTypeFor(target), out.MediaType)
		})
	}
}

func TestConvertFlattensAlphaForJPEG(t *testing.T) {
	in := &Asset{Name: "clear.png", Data: fillPNG(t, 40, 40, color.NRGBA{})}

	step := Convert(models.ConvertConfig{Enabled: true, Format: models.FormatJPEG})
	out, err := step(context.Background(), in)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	r, _, _, _ := img.At(20, 20).RGBA()
	assert.Greater(t, r>>8, uint32(240))
}

func TestRotateRightAngleSwapsDimensions(t *testing.T) {
	in := &Asset{Name: "a.png", Data: fillPNG(t, 100, 50, color.NRGBA{R: 30, G: 30, B: 30, A: 255})}

	step := Rotate(models.RotateConfig{Enabled: true, AngleDegrees: 90})
	out, err := step(context.Background(), in)
	require.NoError(t, err)

	w, h, _ := decodeDims(t, out.Data)
	assert.Equal(t, 50, w)
	assert.Equal(t, 100, h)
}

func TestRotateArbitraryAngleExpandsBounds(t *testing.T) {
	in := &Asset{Name: "a.png", Data: fillPNG(t, 100, 100, color.NRGBA{R: 30, G: 30, B: 30, A: 255})}

	step := Rotate(models.RotateConfig{Enabled: true, AngleDegrees: 45})
	out, err := step(context.Background(), in)
	require.NoError(t, err)

	// 100x100 at 45 degrees needs a ~141px bounding box so no corner is
	// clipped.
	w, h, _ := decodeDims(t, out.Data)
	assert.Greater(t, w, 100)
	assert.Greater(t, h, 100)
}

func TestFlipHorizontal(t *testing.T) {
	// Left half red, right half blue.
	img := imaging.New(10, 10, color.NRGBA{})
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if x < 5 {
				img.Set(x, y, color.NRGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.NRGBA{B: 255, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	step := Rotate(models.RotateConfig{Enabled: true, FlipHorizontal: true})
	out, err := step(context.Background(), &Asset{Name: "a.png", Data: buf.Bytes()})
	require.NoError(t, err)

	flipped, _, err := image.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	r, _, b, _ := flipped.At(0, 0).RGBA()
	assert.Zero(t, r>>8, "left edge should now be blue")
	assert.Equal(t, uint32(255), b>>8)
}

func TestWatermarkKeepsDimensionsAndChangesPixels(t *testing.T) {
	src := fillPNG(t, 300, 200, color.NRGBA{R: 40, G: 40, B: 40, A: 255})

	for _, pos := range []string{
		models.PositionTopLeft, models.PositionTopRight,
		models.PositionBottomLeft, models.PositionBottomRight,
		models.PositionCenter,
	} {
		t.Run(pos, func(t *testing.T) {
			step := Watermark(models.WatermarkConfig{
				Enabled:  true,
				Text:     "sample",
				Position: pos,
				Opacity:  0.7,
				FontSize: 24,
			})
			out, err := step(context.Background(), &Asset{Name: "a.png", Data: src})
			require.NoError(t, err)

			w, h, _ := decodeDims(t, out.Data)
			assert.Equal(t, 300, w)
			assert.Equal(t, 200, h)
			assert.NotEqual(t, src, out.Data, "watermark should alter the raster")
		})
	}
}

func TestChainOrderAndComposition(t *testing.T) {
	cfg := models.OperationConfig{
		Resize:  models.ResizeConfig{Enabled: true, Width: 80, MaintainAspect: true},
		Convert: models.ConvertConfig{Enabled: true, Format: models.FormatJPEG},
	}
	cfg.Normalize()

	chain := Chain(cfg)
	require.Len(t, chain, 2)

	asset := &Asset{Name: "a.png", Data: fillPNG(t, 160, 160, color.NRGBA{R: 77, G: 77, B: 77, A: 255})}
	var err error
	for _, step := range chain {
		asset, err = step(context.Background(), asset)
		require.NoError(t, err)
	}

	w, h, format := decodeDims(t, asset.Data)
	assert.Equal(t, 80, w)
	assert.Equal(t, 80, h)
	assert.Equal(t, "jpeg", format)
}

func TestChainEmptyWhenNothingEnabled(t *testing.T) {
	assert.Empty(t, Chain(models.OperationConfig{}))
}

func TestDecodeErrorIsTyped(t *testing.T) {
	step := Resize(models.ResizeConfig{Enabled: true, Width: 10, MaintainAspect: true})
	_, err := step(context.Background(), &Asset{Name: "junk.png", Data: []byte("not an image")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestEncodeRejectsUnknownFormat(t *testing.T) {
	_, err := encode(imaging.New(1, 1, color.NRGBA{}), "heif", 80)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}
