package helpers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConvertToSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple string",
			input:    "Hello World",
			expected: "hello_world",
		},
		{
			name:     "already lowercase",
			input:    "hello world",
			expected: "hello_world",
		},
		{
			name:     "with numbers",
			input:    "Photo V2.0",
			expected: "photo_v2.0",
		},
		{
			name:     "with colons",
			input:    "Vacation 2024: Beach Photos",
			expected: "vacation_2024-beach_photos",
		},
		{
			name:     "special characters removed",
			input:    "Test@Image#With$Special%Chars",
			expected: "testimagewithspecialchars",
		},
		{
			name:     "multiple spaces",
			input:    "Hello   World",
			expected: "hello_world",
		},
		{
			name:     "underscores preserved",
			input:    "test_image_name",
			expected: "test_image_name",
		},
		{
			name:     "dashes preserved",
			input:    "my-cool-photo",
			expected: "my-cool-photo",
		},
		{
			name:     "dots preserved",
			input:    "v1.0.0",
			expected: "v1.0.0",
		},
		{
			name:     "leading/trailing separators removed",
			input:    "__test__",
			expected: "test",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "only special chars",
			input:    "@#$%^&*()",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertToSlug(tt.input)
			if got != tt.expected {
				t.Errorf("ConvertToSlug(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestBytesToSize(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		bytes    uint64
	}{
		{
			name:     "zero bytes",
			bytes:    0,
			expected: "0B",
		},
		{
			name:     "one byte",
			bytes:    1,
			expected: "1.00B",
		},
		{
			name:     "kilobytes",
			bytes:    1024,
			expected: "1.00KB",
		},
		{
			name:     "megabytes",
			bytes:    1024 * 1024,
			expected: "1.00MB",
		},
		{
			name:     "gigabytes",
			bytes:    1024 * 1024 * 1024,
			expected: "1.00GB",
		},
		{
			name:     "fractional megabytes",
			bytes:    1536 * 1024,
			expected: "1.50MB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BytesToSize(tt.bytes)
			if got != tt.expected {
				t.Errorf("BytesToSize(%d) = %q, want %q", tt.bytes, got, tt.expected)
			}
		})
	}
}

func TestCheckAndMakeDir(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("creates missing directory", func(t *testing.T) {
		target := filepath.Join(tempDir, "a", "b", "c")
		if !CheckAndMakeDir(target) {
			t.Fatalf("CheckAndMakeDir(%q) = false, want true", target)
		}
		info, err := os.Stat(target)
		if err != nil || !info.IsDir() {
			t.Errorf("expected %q to be a directory, err = %v", target, err)
		}
	})

	t.Run("existing directory", func(t *testing.T) {
		if !CheckAndMakeDir(tempDir) {
			t.Errorf("CheckAndMakeDir(%q) = false for existing dir", tempDir)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		if CheckAndMakeDir("") {
			t.Error("CheckAndMakeDir(\"\") = true, want false")
		}
	})

	t.Run("existing file is not a directory", func(t *testing.T) {
		file := filepath.Join(tempDir, "plain.txt")
		if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
		if CheckAndMakeDir(file) {
			t.Errorf("CheckAndMakeDir(%q) = true for a regular file", file)
		}
	})
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain relative path",
			input:    "out/images",
			expected: "out/images",
		},
		{
			name:     "traversal stripped",
			input:    "../../etc/passwd",
			expected: "etc/passwd",
		},
		{
			name:     "inner traversal cleaned",
			input:    "out/../secret",
			expected: "secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizePath(tt.input)
			if got != tt.expected {
				t.Errorf("SanitizePath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
