// Package fileid derives document identifiers from file paths.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const prefix = "file:"

// DocID returns the manifest identifier for a file: its base name with
// spaces replaced by underscores.
func DocID(path string) string {
	return strings.ReplaceAll(filepath.Base(path), " ", "_")
}

// PathID returns a stable storage key for the given absolute path. Files
// with the same name in different folders get different keys.
func PathID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])
}
