package fs

import (
	"context"
	"encoding/json"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bryanwahyu/callcenter-analytics/internal/domain/analysis"
)

const (
	jsonExt = ".json"
	rawExt  = ".txt"
)

// ResultStore keeps <name>.json or <name>.txt per analysis, never both.
type ResultStore struct {
	dir string
}

func NewResultStore(dir string) (*ResultStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &ResultStore{dir: abs}, nil
}

// Dir returns the absolute directory path.
func (s *ResultStore) Dir() string { return s.dir }

func (s *ResultStore) SaveJSON(ctx context.Context, name string, result *analysis.Result) (string, error) {
	data, err := json.MarshalIndent(result, "", "    ")
	if err != nil {
		return "", err
	}
	return s.write(name, jsonExt, rawExt, data)
}

func (s *ResultStore) SaveRaw(ctx context.Context, name string, text string) (string, error) {
	return s.write(name, rawExt, jsonExt, []byte(text))
}

func (s *ResultStore) LoadJSON(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name+jsonExt))
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, analysis.Errorf(analysis.KindNotFound, "analysis with id '%s' not found", name)
	}
	return data, err
}

func (s *ResultStore) List(ctx context.Context) ([]*analysis.Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	out := make([]*analysis.Record, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ext := filepath.Ext(e.Name())
		var status analysis.Status
		switch ext {
		case jsonExt:
			status = analysis.StatusParsed
		case rawExt:
			status = analysis.StatusRaw
		default:
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, &analysis.Record{
			Name:       strings.TrimSuffix(e.Name(), ext),
			Status:     status,
			ResultFile: e.Name(),
			UpdatedAt:  info.ModTime().UTC(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// write replaces <name><ext> atomically and drops the <name><stale> sibling.
func (s *ResultStore) write(name, ext, stale string, data []byte) (string, error) {
	path := filepath.Join(s.dir, name+ext)
	tmp, err := os.CreateTemp(s.dir, ".result-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
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
	if err := os.Remove(filepath.Join(s.dir, name+stale)); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return path, err
	}
	return path, nil
}
