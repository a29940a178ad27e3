package pipeline

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go-pixelbatch/internal/helpers"
	"go-pixelbatch/internal/models"
)

// OutputName computes the final output filename for the file at the given
// zero-based queue index.
//
// With rename disabled the original stem is kept, but the extension is
// always updated to the target format's canonical extension when the convert
// step is enabled (JPEG maps to the 3-letter ".jpg" alias). With rename
// enabled the stem is prefix + numbering + suffix, where numbering is the
// index padded to 3 digits independent of the total file count; if all three
// parts are empty the original stem is kept so the name never collapses to
// just an extension.
func OutputName(original string, cfg models.OperationConfig, index int) string {
	ext := filepath.Ext(original)
	stem := strings.TrimSuffix(original, ext)

	if cfg.Convert.Enabled {
		if canonical, ok := models.CanonicalExt(cfg.Convert.Format); ok {
			ext = canonical
		}
	}

	if !cfg.Rename.Enabled {
		return stem + ext
	}

	out := cfg.Rename.Prefix
	if cfg.Rename.Numbering {
		out += fmt.Sprintf("%03d", index+1)
	}
	out += cfg.Rename.Suffix
	if out == "" {
		out = stem
	}
	return out + ext
}

// uniqueName deduplicates output filenames within one batch run. The first
// occurrence keeps its name; later collisions get _2, _3, ... appended to
// the stem. Inputs from different directories or aggressive rename settings
// can reduce to the same stem, and every input must keep its own result.
func uniqueName(name string, used map[string]int) string {
	n := used[name]
	used[name] = n + 1
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for {
		candidate := fmt.Sprintf("%s_%d%s", stem, n+1, ext)
		if used[candidate] == 0 {
			used[candidate] = 1
			return candidate
		}
		n++
	}
}

// Allowed tags for output path patterns.
var allowedPathTags = map[string]struct{}{
	"stem":   {},
	"index":  {},
	"format": {},
	"date":   {},
}

var pathTagRegex = regexp.MustCompile(`\{([^}]+)\}`)

// ExpandPathPattern substitutes {stem}, {index}, {format} and {date} in an
// output path pattern with sanitized values. Unknown tags are an error, and
// the expanded path may not escape the output directory.
func ExpandPathPattern(pattern, outputName string, cfg models.OperationConfig, index int) (string, error) {
	ext := filepath.Ext(outputName)
	format := strings.TrimPrefix(ext, ".")
	if cfg.Convert.Enabled {
		format = cfg.Convert.Format
	}
	data := map[string]string{
		"stem":   strings.TrimSuffix(outputName, ext),
		"index":  fmt.Sprintf("%03d", index+1),
		"format": format,
		"date":   time.Now().Format("2006-01-02"),
	}

	expanded := pattern
	for _, match := range pathTagRegex.FindAllStringSubmatch(pattern, -1) {
		tagName := match[1]
		if _, ok := allowedPathTags[tagName]; !ok {
			return "", fmt.Errorf("unknown tag in output pattern: %s", match[0])
		}
		value := helpers.ConvertToSlug(data[tagName])
		if value == "" {
			value = "empty_" + tagName
		}
		expanded = strings.ReplaceAll(expanded, match[0], value)
	}

	cleaned := filepath.Clean(expanded)
	if cleaned == "." || cleaned == "" {
		return "", fmt.Errorf("output pattern expanded to an empty path: %q", pattern)
	}
	if strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("output pattern contains invalid sequence '..': %s", cleaned)
	}
	return strings.TrimPrefix(cleaned, string(filepath.Separator)), nil
}
