package analysis

import "context"

// ResultStore persists one result file per analysis name.
type ResultStore interface {
	// SaveJSON writes <name>.json and returns its path.
	SaveJSON(ctx context.Context, name string, result *Result) (string, error)
	// SaveRaw writes <name>.txt and returns its path.
	SaveRaw(ctx context.Context, name string, text string) (string, error)
	// LoadJSON returns the stored JSON document, or ErrNotFound.
	LoadJSON(ctx context.Context, name string) ([]byte, error)
	// List derives records from the files present.
	List(ctx context.Context) ([]*Record, error)
}

// Repository port for the optional analysis index.
type Repository interface {
	Save(ctx context.Context, r *Record) error
	Get(ctx context.Context, name string) (*Record, error)
	List(ctx context.Context, limit int) ([]*Record, error)
}

// Mirror copies persisted result files to remote storage.
type Mirror interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}
