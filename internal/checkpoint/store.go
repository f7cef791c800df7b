package checkpoint

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BartekS5/moviesync/pkg/database"
)

// Store maps a stream name to its last committed watermark.
type Store interface {
	// Get returns the stored watermark, or the zero Watermark when the
	// stream has never been checkpointed.
	Get(ctx context.Context, stream string) (Watermark, error)
	// Set durably records w. A nil error means the value survives a restart.
	Set(ctx context.Context, stream string, w Watermark) error
	All(ctx context.Context) (map[string]Watermark, error)
	Close() error
}

const (
	BackendFile = "file"
	BackendSQL  = "sql"
)

// Open builds the store for the configured backend. The SQL backend keeps its
// table in the source database and does not take ownership of db.
func Open(ctx context.Context, backend, path string, db *sql.DB, dialect database.Dialect) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(path)
	case BackendSQL:
		return NewSQLStore(ctx, db, dialect)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", backend)
	}
}
