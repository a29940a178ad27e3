package cmd

import (
	"github.com/spf13/cobra"

	"go-pixelbatch/internal/models"
)

// Operation flag values, shared by 'process' and 'preset save'.
var (
	opResize         bool
	opWidth          int
	opHeight         int
	opNoAspect       bool
	opCompress       bool
	opQuality        int
	opConvert        bool
	opFormat         string
	opWatermarkText  string
	opWatermarkPos   string
	opWatermarkAlpha float64
	opWatermarkSize  float64
	opRotate         float64
	opFlipH          bool
	opFlipV          bool
	opRename         bool
	opPrefix         string
	opSuffix         string
	opNumbering      bool
)

// addOperationFlags registers the transform-chain flags on a command.
func addOperationFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&opResize, "resize", false, "Enable the resize step")
	cmd.Flags().IntVar(&opWidth, "width", 0, "Resize target width in pixels (implies --resize)")
	cmd.Flags().IntVar(&opHeight, "height", 0, "Resize target height in pixels (implies --resize)")
	cmd.Flags().BoolVar(&opNoAspect, "no-aspect", false, "Disable the aspect-ratio lock when resizing")
	cmd.Flags().BoolVar(&opCompress, "compress", false, "Enable the compress step (JPEG re-encode)")
	cmd.Flags().IntVar(&opQuality, "quality", models.DefaultQuality, "Compression quality 10-100 (implies --compress)")
	cmd.Flags().BoolVar(&opConvert, "convert", false, "Enable the convert step")
	cmd.Flags().StringVar(&opFormat, "format", "", "Convert target format: jpeg, png, gif, tiff, bmp, webp (implies --convert)")
	cmd.Flags().StringVar(&opWatermarkText, "watermark-text", "", "Watermark text (enables the watermark step)")
	cmd.Flags().StringVar(&opWatermarkPos, "watermark-position", models.DefaultWatermarkAnchor, "Watermark anchor: top-left, top-right, bottom-left, bottom-right, center")
	cmd.Flags().Float64Var(&opWatermarkAlpha, "watermark-opacity", models.DefaultWatermarkOpacity, "Watermark opacity 0-1")
	cmd.Flags().Float64Var(&opWatermarkSize, "watermark-font-size", models.DefaultWatermarkSize, "Watermark font size in points")
	cmd.Flags().Float64Var(&opRotate, "rotate", 0, "Rotate clockwise by the given degrees (enables the rotate step)")
	cmd.Flags().BoolVar(&opFlipH, "flip-h", false, "Mirror horizontally (enables the rotate step)")
	cmd.Flags().BoolVar(&opFlipV, "flip-v", false, "Mirror vertically (enables the rotate step)")
	cmd.Flags().BoolVar(&opRename, "rename", false, "Enable the rename step")
	cmd.Flags().StringVar(&opPrefix, "prefix", "", "Rename prefix (implies --rename)")
	cmd.Flags().StringVar(&opSuffix, "suffix", "", "Rename suffix (implies --rename)")
	cmd.Flags().BoolVar(&opNumbering, "numbering", false, "Insert a zero-padded 3-digit sequence number (implies --rename)")
}

// applyOperationFlags overlays explicitly set flags onto cfg. The base
// config comes from the config file or a named preset; a flag only wins
// when the user actually set it.
func applyOperationFlags(cmd *cobra.Command, cfg *models.OperationConfig) {
	changed := cmd.Flags().Changed
	resizeWasEnabled := cfg.Resize.Enabled

	if changed("resize") {
		cfg.Resize.Enabled = opResize
	}
	if changed("width") {
		cfg.Resize.Width = opWidth
		cfg.Resize.Enabled = true
	}
	if changed("height") {
		cfg.Resize.Height = opHeight
		cfg.Resize.Enabled = true
	}
	if changed("no-aspect") {
		cfg.Resize.MaintainAspect = !opNoAspect
	} else if cfg.Resize.Enabled && !resizeWasEnabled {
		// Freshly enabled by flags: the aspect lock defaults on.
		cfg.Resize.MaintainAspect = true
	}

	if changed("compress") {
		cfg.Compress.Enabled = opCompress
	}
	if changed("quality") {
		cfg.Compress.Quality = opQuality
		cfg.Compress.Enabled = true
	}

	if changed("convert") {
		cfg.Convert.Enabled = opConvert
	}
	if changed("format") {
		cfg.Convert.Format = opFormat
		cfg.Convert.Enabled = true
	}

	if changed("watermark-text") {
		cfg.Watermark.Text = opWatermarkText
		cfg.Watermark.Enabled = opWatermarkText != ""
	}
	if changed("watermark-position") {
		cfg.Watermark.Position = opWatermarkPos
	}
	if changed("watermark-opacity") {
		cfg.Watermark.Opacity = opWatermarkAlpha
	}
	if changed("watermark-font-size") {
		cfg.Watermark.FontSize = opWatermarkSize
	}

	if changed("rotate") {
		cfg.Rotate.AngleDegrees = opRotate
		cfg.Rotate.Enabled = true
	}
	if changed("flip-h") {
		cfg.Rotate.FlipHorizontal = opFlipH
		cfg.Rotate.Enabled = cfg.Rotate.Enabled || opFlipH
	}
	if changed("flip-v") {
		cfg.Rotate.FlipVertical = opFlipV
		cfg.Rotate.Enabled = cfg.Rotate.Enabled || opFlipV
	}

	if changed("rename") {
		cfg.Rename.Enabled = opRename
	}
	if changed("prefix") {
		cfg.Rename.Prefix = opPrefix
		cfg.Rename.Enabled = true
	}
	if changed("suffix") {
		cfg.Rename.Suffix = opSuffix
		cfg.Rename.Enabled = true
	}
	if changed("numbering") {
		cfg.Rename.Numbering = opNumbering
		cfg.Rename.Enabled = cfg.Rename.Enabled || opNumbering
	}
}
