// Package checkpoint persists the per-stream modification watermark the
// sync loop resumes from.
package checkpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/BartekS5/moviesync/pkg/utils"
)

var ErrInvalidWatermark = errors.New("invalid watermark")

// Watermark is the modification time of the newest row already written to
// the index, rendered as RFC 3339 with nanoseconds. The zero value means no
// row has been processed yet.
type Watermark string

func FromTime(t time.Time) Watermark {
	return Watermark(t.UTC().Format(time.RFC3339Nano))
}

func (w Watermark) IsZero() bool {
	return w == ""
}

// Time parses the watermark into the bound used by extraction queries.
// An absent watermark maps to the zero time.
func (w Watermark) Time() (time.Time, error) {
	if w.IsZero() {
		return time.Time{}, nil
	}
	t, err := utils.ParseTime(string(w))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrInvalidWatermark, string(w), err)
	}
	return t, nil
}

// Before reports whether w denotes an earlier instant than other.
func (w Watermark) Before(other Watermark) (bool, error) {
	a, err := w.Time()
	if err != nil {
		return false, err
	}
	b, err := other.Time()
	if err != nil {
		return false, err
	}
	return a.Before(b), nil
}

func (w Watermark) String() string {
	if w.IsZero() {
		return "<none>"
	}
	return string(w)
}
