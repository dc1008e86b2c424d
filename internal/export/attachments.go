// Package export writes attachment payloads out of the archive and onto
// disk, with filename sanitization and collision handling.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mboxtools/mboxidx/internal/message"
)

// Result describes one written attachment file.
type Result struct {
	Path string
	Size int64
}

// Attachment writes one attachment into dir. The filename comes from the
// part, sanitized; a part with no usable filename falls back to
// attachment-<ordinal>. usedNames tracks collisions across calls so a batch
// of same-named parts gets numbered suffixes instead of overwrites.
func Attachment(dir string, att *message.Attachment, usedNames map[string]int) (Result, error) {
	if att.Content == nil {
		return Result{}, fmt.Errorf("attachment %d payload undecodable", att.Ordinal)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output directory: %w", err)
	}

	fallback := fmt.Sprintf("attachment-%d", att.Ordinal)
	filename := resolveUniqueFilename(att.Filename, fallback, usedNames)
	path := filepath.Join(dir, filename)

	if err := os.WriteFile(path, att.Content, 0o644); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", filename, err)
	}
	return Result{Path: path, Size: int64(len(att.Content))}, nil
}

// All writes every attachment of a message into dir. A single undecodable
// part fails the whole batch so a partial extraction is never mistaken for a
// complete one.
func All(dir string, atts []message.Attachment) ([]Result, error) {
	usedNames := make(map[string]int)
	out := make([]Result, 0, len(atts))
	for i := range atts {
		res, err := Attachment(dir, &atts[i], usedNames)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func resolveUniqueFilename(original, fallback string, usedNames map[string]int) string {
	filename := SanitizeFilename(filepath.Base(original))
	if filename == "" || filename == "." {
		filename = fallback
	}

	baseKey := filename
	if count, exists := usedNames[baseKey]; exists {
		ext := filepath.Ext(filename)
		base := filename[:len(filename)-len(ext)]
		filename = fmt.Sprintf("%s_%d%s", base, count+1, ext)
		usedNames[baseKey] = count + 1
	} else {
		usedNames[baseKey] = 1
	}

	return filename
}

// SanitizeFilename removes or replaces characters that are invalid in filenames.
func SanitizeFilename(s string) string {
	var result []rune
	for _, r := range s {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\n', '\r', '\t':
			result = append(result, '_')
		default:
			result = append(result, r)
		}
	}
	return string(result)
}

// FormatBytesLong formats bytes with full precision for display.
func FormatBytesLong(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
