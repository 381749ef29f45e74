package storage

import (
	"path/filepath"
	"strings"
)

const unsafeChars = `/\:*?"<>|`

// SanitizeFilename reduces an untrusted declared filename to a form that is
// safe to embed in a storage path: base name only, no traversal sequences, no
// control or separator characters. Returns "" when nothing safe remains.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return ""
	}

	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(unsafeChars, r) {
			continue
		}
		b.WriteRune(r)
	}

	return strings.Trim(b.String(), ". ")
}
