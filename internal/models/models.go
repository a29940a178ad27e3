package models

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Watermark anchor positions. Five fixed anchors, matching the UI options.
const (
	PositionTopLeft     = "top-left"
	PositionTopRight    = "top-right"
	PositionBottomLeft  = "bottom-left"
	PositionBottomRight = "bottom-right"
	PositionCenter      = "center"
)

// Supported output formats for the convert step.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatGIF  = "gif"
	FormatTIFF = "tiff"
	FormatBMP  = "bmp"
	FormatWebP = "webp"
)

// Per-file processing status within a batch run.
const (
	StatusPending      = "Pending"
	StatusTransforming = "Transforming"
	StatusSucceeded    = "Succeeded"
	StatusFailed       = "Failed"
)

// Safe defaults applied by OperationConfig.Normalize.
const (
	DefaultQuality          = 85
	MinQuality              = 10
	MaxQuality              = 100
	DefaultWatermarkOpacity = 0.5
	DefaultWatermarkSize    = 36.0
	DefaultWatermarkAnchor  = PositionBottomRight
)

var (
	// ErrInvalidConfig marks configuration errors that must prevent a batch
	// from starting. They are reported immediately, before any file is read.
	ErrInvalidConfig = errors.New("invalid operation configuration")
)

type (
	// Config holds the application's configuration settings.
	Config struct {
		OutputDir       string          `toml:"OutputDir" json:"OutputDir"`
		DatabasePath    string          `toml:"DatabasePath" json:"DatabasePath"`
		BleveIndexPath  string          `toml:"BleveIndexPath" json:"BleveIndexPath"`
		LogLevel        string          `toml:"LogLevel" json:"LogLevel"`
		LogFormat       string          `toml:"LogFormat" json:"LogFormat"`
		Process         OperationConfig `toml:"Process" json:"Process"`
		PDF             PDFConfig       `toml:"PDF" json:"PDF"`
		Server          ServerConfig    `toml:"Server" json:"Server"`
		Remote          RemoteConfig    `toml:"Remote" json:"Remote"`
		LogHTTPRequests bool            `toml:"LogHttpRequests" json:"LogHttpRequests"`
	}

	// OperationConfig is the declarative description of one batch run's
	// transform chain. Step order is fixed: resize, compress,
	// convert, watermark, rotate/flip; rename applies to the filename only.
	OperationConfig struct {
		Resize    ResizeConfig    `toml:"Resize" json:"Resize"`
		Compress  CompressConfig  `toml:"Compress" json:"Compress"`
		Convert   ConvertConfig   `toml:"Convert" json:"Convert"`
		Watermark WatermarkConfig `toml:"Watermark" json:"Watermark"`
		Rotate    RotateConfig    `toml:"Rotate" json:"Rotate"`
		Rename    RenameConfig    `toml:"Rename" json:"Rename"`
	}

	ResizeConfig struct {
		Width          int  `toml:"Width" json:"Width"`
		Height         int  `toml:"Height" json:"Height"`
		Enabled        bool `toml:"Enabled" json:"Enabled"`
		MaintainAspect bool `toml:"MaintainAspect" json:"MaintainAspect"`
	}

	CompressConfig struct {
		Quality int  `toml:"Quality" json:"Quality"`
		Enabled bool `toml:"Enabled" json:"Enabled"`
	}

	ConvertConfig struct {
		Format  string `toml:"Format" json:"Format"`
		Enabled bool   `toml:"Enabled" json:"Enabled"`
	}

	WatermarkConfig struct {
		Text     string  `toml:"Text" json:"Text"`
		Position string  `toml:"Position" json:"Position"`
		Opacity  float64 `toml:"Opacity" json:"Opacity"`
		FontSize float64 `toml:"FontSize" json:"FontSize"`
		Enabled  bool    `toml:"Enabled" json:"Enabled"`
	}

	RotateConfig struct {
		AngleDegrees   float64 `toml:"AngleDegrees" json:"AngleDegrees"`
		Enabled        bool    `toml:"Enabled" json:"Enabled"`
		FlipHorizontal bool    `toml:"FlipHorizontal" json:"FlipHorizontal"`
		FlipVertical   bool    `toml:"FlipVertical" json:"FlipVertical"`
	}

	RenameConfig struct {
		Prefix    string `toml:"Prefix" json:"Prefix"`
		Suffix    string `toml:"Suffix" json:"Suffix"`
		Enabled   bool   `toml:"Enabled" json:"Enabled"`
		Numbering bool   `toml:"Numbering" json:"Numbering"`
	}

	// PDFConfig holds settings for the 'pdf extract' command.
	PDFConfig struct {
		OutputDir string `toml:"OutputDir" json:"OutputDir"`
		Quality   int    `toml:"Quality" json:"Quality"`
	}

	// ServerConfig holds settings for the optional backend server.
	ServerConfig struct {
		Listen       string `toml:"Listen" json:"Listen"`
		MaxUploadMB  int    `toml:"MaxUploadMb" json:"MaxUploadMb"`
		AllowOrigins string `toml:"AllowOrigins" json:"AllowOrigins"`
	}

	// RemoteConfig holds settings for the optional backend client. The
	// client-side pipeline never depends on this backend being reachable.
	RemoteConfig struct {
		BaseURL    string `toml:"BaseUrl" json:"BaseUrl"`
		TimeoutSec int    `toml:"TimeoutSec" json:"TimeoutSec"`
	}

	// FailureRecord captures one per-file transform failure. A failure never
	// halts the batch; it is recorded and the run continues.
	FailureRecord struct {
		FileName string `json:"fileName"`
		Reason   string `json:"reason"`
	}

	// ProcessedResult is the output artifact for one successfully
	// transformed file. Never mutated after creation.
	ProcessedResult struct {
		Name         string `json:"name"`
		OutputPath   string `json:"outputPath,omitempty"`
		BLAKE3       string `json:"blake3,omitempty"`
		Data         []byte `json:"-"`
		OriginalSize int64  `json:"originalSize"`
		Size         int64  `json:"size"`
	}

	// BatchRecord is the persisted history entry for one completed run.
	BatchRecord struct {
		ID             string            `json:"id"`
		CreatedAt      time.Time         `json:"createdAt"`
		Config         OperationConfig   `json:"config"`
		Results        []ProcessedResult `json:"results"`
		Failures       []FailureRecord   `json:"failures"`
		ArchivePath    string            `json:"archivePath,omitempty"`
		SavingsPercent float64           `json:"savingsPercent"`
		TotalOriginal  int64             `json:"totalOriginal"`
		TotalOutput    int64             `json:"totalOutput"`
	}
)

// validPositions is used by Validate; the position set is fixed.
var validPositions = map[string]struct{}{
	PositionTopLeft:     {},
	PositionTopRight:    {},
	PositionBottomLeft:  {},
	PositionBottomRight: {},
	PositionCenter:      {},
}

// validFormats maps each supported convert target to its canonical file
// extension. JPEG deliberately maps to the 3-letter alias.
var validFormats = map[string]string{
	FormatJPEG: ".jpg",
	FormatPNG:  ".png",
	FormatGIF:  ".gif",
	FormatTIFF: ".tiff",
	FormatBMP:  ".bmp",
	FormatWebP: ".webp",
}

// CanonicalExt returns the canonical extension for a convert target format,
// or false if the format is unknown. Format matching is case-insensitive and
// accepts the "jpg" alias for JPEG.
func CanonicalExt(format string) (string, bool) {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "jpg" {
		f = FormatJPEG
	}
	ext, ok := validFormats[f]
	return ext, ok
}

// Normalize applies safe defaults in place. Parameters are validated at read
// time with safe defaults: a missing compress quality becomes 85 and
// out-of-range values are clamped to [10,100].
func (c *OperationConfig) Normalize() {
	if c.Compress.Quality == 0 {
		c.Compress.Quality = DefaultQuality
	}
	if c.Compress.Quality < MinQuality {
		c.Compress.Quality = MinQuality
	}
	if c.Compress.Quality > MaxQuality {
		c.Compress.Quality = MaxQuality
	}
	if c.Watermark.Opacity <= 0 || c.Watermark.Opacity > 1 {
		c.Watermark.Opacity = DefaultWatermarkOpacity
	}
	if c.Watermark.FontSize <= 0 {
		c.Watermark.FontSize = DefaultWatermarkSize
	}
	if c.Watermark.Position == "" {
		c.Watermark.Position = DefaultWatermarkAnchor
	}
	c.Convert.Format = strings.ToLower(strings.TrimSpace(c.Convert.Format))
	if c.Convert.Format == "jpg" {
		c.Convert.Format = FormatJPEG
	}
}

// Validate reports configuration errors that must prevent a batch from
// starting. Zero or negative resize dimensions are rejected here, never
// attempted by the resize transform.
func (c *OperationConfig) Validate() error {
	if c.Resize.Enabled {
		if c.Resize.Width <= 0 && c.Resize.Height <= 0 {
			return fmt.Errorf("%w: resize requires a positive width or height", ErrInvalidConfig)
		}
		if c.Resize.Width < 0 || c.Resize.Height < 0 {
			return fmt.Errorf("%w: resize dimensions must not be negative", ErrInvalidConfig)
		}
	}
	if c.Convert.Enabled {
		if _, ok := CanonicalExt(c.Convert.Format); !ok {
			return fmt.Errorf("%w: unknown convert format %q", ErrInvalidConfig, c.Convert.Format)
		}
	}
	if c.Watermark.Enabled {
		if strings.TrimSpace(c.Watermark.Text) == "" {
			return fmt.Errorf("%w: watermark requires non-empty text", ErrInvalidConfig)
		}
		if _, ok := validPositions[c.Watermark.Position]; !ok {
			return fmt.Errorf("%w: unknown watermark position %q", ErrInvalidConfig, c.Watermark.Position)
		}
	}
	return nil
}

// EnabledSteps lists the names of enabled steps in chain order, for status
// messages and history records.
func (c *OperationConfig) EnabledSteps() []string {
	var steps []string
	if c.Resize.Enabled {
		steps = append(steps, "resize")
	}
	if c.Compress.Enabled {
		steps = append(steps, "compress")
	}
	if c.Convert.Enabled {
		steps = append(steps, "convert")
	}
	if c.Watermark.Enabled {
		steps = append(steps, "watermark")
	}
	if c.Rotate.Enabled {
		steps = append(steps, "rotate")
	}
	if c.Rename.Enabled {
		steps = append(steps, "rename")
	}
	return steps
}

// InputFile represents one user-supplied file. It is immutable once added to
// the queue; transforms always produce new outputs and never touch the
// original bytes.
type InputFile struct {
	Path      string
	Name      string
	MediaType string
	Size      int64

	mu   sync.Mutex
	data []byte
}

// NewInputFile stats the file at path and builds an InputFile. The media
// type is derived from the extension; content is loaded lazily by Bytes.
func NewInputFile(path string) (*InputFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}
	mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	return &InputFile{
		Path:      path,
		Name:      filepath.Base(path),
		MediaType: mediaType,
		Size:      info.Size(),
	}, nil
}

// Bytes returns the file content, reading it from disk on first use. The
// returned slice must be treated as read-only.
func (f *InputFile) Bytes() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data != nil {
		return f.data, nil
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	f.data = data
	return f.data, nil
}

// Release drops the cached content so long sessions do not accumulate every
// queued file in memory. The file can be re-read by a later Bytes call.
func (f *InputFile) Release() {
	f.mu.Lock()
	f.data = nil
	f.mu.Unlock()
}
