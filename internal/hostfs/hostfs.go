package hostfs

import (
	"errors"
	"path/filepath"
	"strings"
)

// Root is the directory host paths are resolved against.
var Root = "/"

var ErrInvalidPath = errors.New("invalid host path")

// Path joins Root with a relative path (no leading slash).
// Example: Path("etc/passwd") -> /etc/passwd
func Path(rel string) (string, error) {
	rel = strings.TrimPrefix(rel, "/")
	clean := filepath.Clean(rel)
	if clean == "." || clean == "" {
		return "", ErrInvalidPath
	}
	if strings.HasPrefix(clean, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(Root, clean), nil
}

// Abs maps an absolute host path (e.g. /home/alice/.dmrc) under Root.
func Abs(abs string) (string, error) {
	if abs == "" || !strings.HasPrefix(abs, "/") {
		return "", ErrInvalidPath
	}
	clean := filepath.Clean(abs)
	return filepath.Join(Root, strings.TrimPrefix(clean, "/")), nil
}
