package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Uploads keeps every uploaded document in one directory.
type Uploads struct {
	dir    string
	mirror Mirror
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewUploads(dir string, mirror Mirror, log logrus.FieldLogger) (*Uploads, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &Uploads{dir: dir, mirror: mirror, log: log, now: time.Now}, nil
}

func (u *Uploads) Dir() string {
	return u.dir
}

// Save copies r into document_<timestamp>_<id><ext>, where ext comes from
// originalName, and returns the full path.
func (u *Uploads) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	name := fmt.Sprintf("document_%s_%s%s", u.now().Format("20060102_150405"), id, ext)
	p := filepath.Join(u.dir, name)

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create upload %s: %w", name, err)
	}

	var buf bytes.Buffer
	dst := io.Writer(f)
	if u.mirror != nil {
		dst = io.MultiWriter(f, &buf)
	}
	if _, err := io.Copy(dst, r); err != nil {
		f.Close()
		os.Remove(p)
		return "", fmt.Errorf("failed to save upload %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to save upload %s: %w", name, err)
	}

	if u.mirror != nil {
		if _, err := u.mirror.Upload(ctx, "uploads/"+name, &buf); err != nil {
			u.log.WithError(err).WithField("file", name).Warn("Failed to mirror upload")
		}
	}
	return p, nil
}
