package fs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/bryanwahyu/callcenter-analytics/internal/domain/audio"
)

// Library stores recordings flat in one directory.
type Library struct {
	dir    string
	prober audio.DurationProber
}

// NewLibrary creates dir when missing. prober may be nil, in which case durations are zero.
func NewLibrary(dir string, prober audio.DurationProber) (*Library, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	return &Library{dir: abs, prober: prober}, nil
}

// Dir returns the absolute directory path.
func (l *Library) Dir() string { return l.dir }

func (l *Library) Save(ctx context.Context, name string, body io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(l.dir, name)
	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

func (l *Library) Locate(ctx context.Context, name string) (string, error) {
	path := filepath.Join(l.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory: %w", name, os.ErrNotExist)
	}
	return path, nil
}

func (l *Library) Files(ctx context.Context) ([]audio.File, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}
	files := make([]audio.File, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		format := audio.FormatOf(e.Name())
		if !format.Supported() {
			continue
		}
		path := filepath.Join(l.dir, e.Name())
		f := audio.File{Filename: e.Name(), Path: path, Format: string(format)}
		if l.prober != nil {
			f.DurationMins = l.prober.Minutes(path)
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	return files, nil
}
