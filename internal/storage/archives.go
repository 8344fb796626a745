package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"quizgo/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	archivePrefix = "quiz_result_"
	archiveSuffix = ".json"
)

// Archives stores quiz archives as JSON files in one directory.
type Archives struct {
	dir    string
	mirror Mirror
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewArchives creates dir if needed. mirror may be nil.
func NewArchives(dir string, mirror Mirror, log logrus.FieldLogger) (*Archives, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results directory %s: %w", dir, err)
	}
	return &Archives{dir: dir, mirror: mirror, log: log, now: time.Now}, nil
}

func (a *Archives) Dir() string {
	return a.dir
}

// NewArchiveName returns quiz_result_<YYYYmmdd_HHMMSS>_<8 hex>.json.
func NewArchiveName(t time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s%s_%s%s", archivePrefix, t.Format("20060102_150405"), id, archiveSuffix)
}

// Save writes archive under a fresh name and returns that name. Files are
// never overwritten.
func (a *Archives) Save(ctx context.Context, archive models.Archive) (string, error) {
	data, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode archive: %w", err)
	}

	name := NewArchiveName(a.now())
	f, err := os.OpenFile(filepath.Join(a.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create archive %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write archive %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write archive %s: %w", name, err)
	}

	if a.mirror != nil {
		if _, err := a.mirror.Upload(ctx, "results/"+name, bytes.NewReader(data)); err != nil {
			a.log.WithError(err).WithField("file", name).Warn("Failed to mirror quiz archive")
		}
	}
	return name, nil
}

// Path returns the on-disk path of an existing archive.
func (a *Archives) Path(name string) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	p := filepath.Join(a.dir, name)
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	if info.IsDir() {
		return "", ErrNotFound
	}
	return p, nil
}

// Load reads an archive by name.
func (a *Archives) Load(name string) (models.Archive, error) {
	p, err := a.Path(name)
	if err != nil {
		return models.Archive{}, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return models.Archive{}, fmt.Errorf("failed to read archive %s: %w", name, err)
	}
	var archive models.Archive
	if err := json.Unmarshal(data, &archive); err != nil {
		return models.Archive{}, fmt.Errorf("failed to decode archive %s: %w", name, err)
	}
	return archive, nil
}

// NamedArchive pairs an archive with its file name.
type NamedArchive struct {
	Name    string
	Archive models.Archive
}

// Names lists archive file names, newest first.
func (a *Archives) Names() ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list results directory: %w", err)
	}

	names := []string{}
	for _, e := range entries {
		n := e.Name()
		if e.Type().IsRegular() && strings.HasPrefix(n, archivePrefix) && strings.HasSuffix(n, archiveSuffix) {
			names = append(names, n)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Recent returns up to limit archives, newest name first. Unreadable files are
// skipped.
func (a *Archives) Recent(limit int) ([]NamedArchive, error) {
	names, err := a.Names()
	if err != nil {
		return nil, err
	}

	out := []NamedArchive{}
	for _, n := range names {
		if limit > 0 && len(out) >= limit {
			break
		}
		archive, err := a.Load(n)
		if err != nil {
			a.log.WithError(err).WithField("file", n).Warn("Skipping unreadable archive")
			continue
		}
		out = append(out, NamedArchive{Name: n, Archive: archive})
	}
	return out, nil
}
