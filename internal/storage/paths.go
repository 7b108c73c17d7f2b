package storage

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolveUnder joins a caller-supplied relative path against a root
// directory and rejects anything that escapes it. Request payloads name
// uploaded files relative to the uploads root; this is the only way those
// names become filesystem paths.
func ResolveUnder(root, rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute paths are not allowed")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root: %w", err)
	}

	joined := filepath.Join(absRoot, rel)
	if joined != absRoot && !strings.HasPrefix(joined, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes uploads root")
	}

	return joined, nil
}
