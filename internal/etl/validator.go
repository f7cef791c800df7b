package etl

import (
	"fmt"

	"github.com/BartekS5/moviesync/internal/checkpoint"
	"github.com/BartekS5/moviesync/pkg/models"
)

// WatermarkOf checks that doc carries an id and a parseable modified field
// and returns that field as the stream's next watermark.
func WatermarkOf(doc models.Document) (checkpoint.Watermark, error) {
	if doc == nil {
		return "", fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}
	if doc.DocumentID() == "" {
		return "", fmt.Errorf("%w: missing required id field", ErrInvalidDocument)
	}
	w := checkpoint.Watermark(doc.ModifiedAt())
	if w.IsZero() {
		return "", fmt.Errorf("%w: document %s has no modified field", ErrInvalidDocument, doc.DocumentID())
	}
	if _, err := w.Time(); err != nil {
		return "", fmt.Errorf("%w: document %s: %v", ErrInvalidDocument, doc.DocumentID(), err)
	}
	return w, nil
}
