package audio

import (
	"context"
	"io"
)

// Library is the directory holding raw recordings.
type Library interface {
	// Save writes body to <dir>/<name>, replacing any existing file.
	Save(ctx context.Context, name string, body io.Reader) (string, error)
	// Locate returns the path of an existing file or an error wrapping fs.ErrNotExist.
	Locate(ctx context.Context, name string) (string, error)
	// Files lists supported recordings sorted by name.
	Files(ctx context.Context) ([]File, error)
}

// DurationProber reads audio length from file metadata.
type DurationProber interface {
	Minutes(path string) float64
}
