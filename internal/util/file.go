package util

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var ErrUnsafeName = errors.New("unsafe file name")

func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// ResetDir removes path and everything under it, then recreates it empty.
func ResetDir(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return err
	}
	return EnsureDir(path)
}

// SafeName reduces name to its base element and rejects names that would
// escape a directory or are empty.
func SafeName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	switch base {
	case "", ".", "..", "/":
		return "", ErrUnsafeName
	}
	return base, nil
}
