package etl

import (
	"context"
	"iter"

	"github.com/BartekS5/moviesync/internal/checkpoint"
	"github.com/BartekS5/moviesync/pkg/models"
)

// Extractor yields the rows of a stream modified strictly after since,
// oldest first. A non-nil error ends the sequence.
type Extractor interface {
	Extract(ctx context.Context, stream Stream, since checkpoint.Watermark) iter.Seq2[models.RawRow, error]
}

// Transformer reshapes one raw row into its index document.
type Transformer interface {
	Transform(row models.RawRow) (models.Document, error)
}

// Index is the raw write surface of the target engine: insert or overwrite
// doc under id in the given collection.
type Index interface {
	Upsert(ctx context.Context, collection, id string, doc models.Document) error
}

// Sink writes one document for a stream, retrying as configured.
type Sink interface {
	Upsert(ctx context.Context, stream string, doc models.Document) error
}
