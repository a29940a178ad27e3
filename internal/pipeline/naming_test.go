package pipeline

import (
	"testing"

	"go-pixelbatch/internal/models"
)

func TestOutputName(t *testing.T) {
	renamed := func(prefix, suffix string, numbering bool) models.OperationConfig {
		return models.OperationConfig{
			Rename: models.RenameConfig{Enabled: true, Prefix: prefix, Suffix: suffix, Numbering: numbering},
		}
	}

	tests := []struct {
		name     string
		original string
		cfg      models.OperationConfig
		index    int
		want     string
	}{
		{"untouched without rename or convert", "sunset.png", models.OperationConfig{}, 0, "sunset.png"},
		{
			"convert updates extension only",
			"sunset.png",
			models.OperationConfig{Convert: models.ConvertConfig{Enabled: true, Format: models.FormatWebP}},
			0,
			"sunset.webp",
		},
		{
			"jpeg convert uses the jpg alias",
			"sunset.png",
			models.OperationConfig{Convert: models.ConvertConfig{Enabled: true, Format: models.FormatJPEG}},
			0,
			"sunset.jpg",
		},
		{"prefix and numbering", "photo.jpg", renamed("img_", "", true), 1, "img_002.jpg"},
		{"numbering pads independent of count", "photo.jpg", renamed("", "", true), 0, "001.jpg"},
		{"prefix only", "photo.jpg", renamed("vacation_", "", false), 5, "vacation_.jpg"},
		{"suffix after numbering", "photo.jpg", renamed("", "_small", true), 2, "003_small.jpg"},
		{"empty rename keeps original stem", "photo.jpg", renamed("", "", false), 0, "photo.jpg"},
		{
			"rename with convert combines",
			"photo.png",
			models.OperationConfig{
				Convert: models.ConvertConfig{Enabled: true, Format: models.FormatJPEG},
				Rename:  models.RenameConfig{Enabled: true, Prefix: "out_", Numbering: true},
			},
			0,
			"out_001.jpg",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputName(tt.original, tt.cfg, tt.index); got != tt.want {
				t.Errorf("OutputName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUniqueName(t *testing.T) {
	used := make(map[string]int)

	got := []string{
		uniqueName("photo.jpg", used),
		uniqueName("photo.jpg", used),
		uniqueName("photo.jpg", used),
		uniqueName("other.jpg", used),
	}
	want := []string{"photo.jpg", "photo_2.jpg", "photo_3.jpg", "other.jpg"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("uniqueName call %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestUniqueNameSkipsTakenCandidates(t *testing.T) {
	used := make(map[string]int)

	// photo_2.jpg is claimed directly before the collision happens.
	uniqueName("photo_2.jpg", used)
	uniqueName("photo.jpg", used)
	if got := uniqueName("photo.jpg", used); got != "photo_3.jpg" {
		t.Errorf("uniqueName() = %q, want photo_3.jpg", got)
	}
}

func TestExpandPathPattern(t *testing.T) {
	cfg := models.OperationConfig{Convert: models.ConvertConfig{Enabled: true, Format: models.FormatWebP}}

	tests := []struct {
		name    string
		pattern string
		output  string
		cfg     models.OperationConfig
		want    string
		wantErr bool
	}{
		{"stem and format", "{stem}/{format}", "Sunset Beach.webp", cfg, "sunset_beach/webp", false},
		{"index tag", "batch_{index}", "a.png", models.OperationConfig{}, "batch_001", false},
		{"plain literal passes through", "runs/latest", "a.png", models.OperationConfig{}, "runs/latest", false},
		{"unknown tag rejected", "{nope}", "a.png", models.OperationConfig{}, "", true},
		{"escape attempt rejected", "../{stem}", "a.png", models.OperationConfig{}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPathPattern(tt.pattern, tt.output, tt.cfg, 0)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExpandPathPattern() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ExpandPathPattern() = %q, want %q", got, tt.want)
			}
		})
	}
}
