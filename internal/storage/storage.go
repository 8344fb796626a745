package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrInvalidName = errors.New("invalid file name")
)

// Mirror receives a copy of every stored file. The R2 client implements it.
type Mirror interface {
	Upload(ctx context.Context, key string, content io.Reader) (string, error)
}

// cleanName rejects anything that is not a plain file name inside dir.
func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidName
	}
	return name, nil
}
