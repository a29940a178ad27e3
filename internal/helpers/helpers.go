package helpers

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	invalidCharsRegex = regexp.MustCompile(`[^a-z0-9._-]`)
	multiUnderscore = regexp.MustCompile(`_{2,}`)
)

// ConvertToSlug converts a string into a filesystem-friendly slug: lowercase,
// spaces to underscores, colons to dashes, everything else outside
// [a-z0-9._-] removed.
func ConvertToSlug(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, ":", "-")
	s = whitespaceRegex.ReplaceAllString(s, "_")
	s = invalidCharsRegex.ReplaceAllString(s, "")
	s = multiUnderscore.ReplaceAllString(s, "_")
	// Collapse the artifacts of "word: word" style input
	s = strings.ReplaceAll(s, "-_", "-")
	s = strings.ReplaceAll(s, "_-", "-")
	return strings.Trim(s, "_-")
}

// BytesToSize renders a byte count as a human-readable string (1.00KB etc).
func BytesToSize(bytes uint64) string {
	sizes := []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}
	if bytes == 0 {
		return "0B"
	}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	return fmt.Sprintf("%.2f%s", float64(bytes)/math.Pow(1024, float64(i)), sizes[i])
}

// CheckAndMakeDir ensures the directory exists, creating it (and parents) if
// needed. Returns false if creation fails.
func CheckAndMakeDir(path string) bool {
	if path == "" {
		return false
	}
	if info, err := os.Stat(path); err == nil {
		return info.IsDir()
	}
	if err := os.MkdirAll(path, 0750); err != nil {
		log.WithError(err).Errorf("Failed to create directory: %s", path)
		return false
	}
	return true
}

// SanitizePath cleans a path and strips any parent-directory traversal.
func SanitizePath(path string) string {
	cleaned := filepath.Clean(path)
	parts := strings.Split(cleaned, string(filepath.Separator))
	kept := parts[:0]
	for _, p := range parts {
		if p == ".." {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, string(filepath.Separator))
}
