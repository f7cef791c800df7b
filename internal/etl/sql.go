package etl

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/BartekS5/moviesync/internal/checkpoint"
	"github.com/BartekS5/moviesync/pkg/database"
	"github.com/BartekS5/moviesync/pkg/logger"
	"github.com/BartekS5/moviesync/pkg/models"
)

const DefaultBatchSize = 100

// SQLExtractor reads changed rows from the relational source. Rows come from
// a single cursor and are buffered BatchSize at a time.
type SQLExtractor struct {
	DB        *sql.DB
	Dialect   database.Dialect
	BatchSize int
	Retry     RetryPolicy
}

func NewSQLExtractor(db *sql.DB, dialect database.Dialect, batchSize int) *SQLExtractor {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SQLExtractor{
		DB:        db,
		Dialect:   dialect,
		BatchSize: batchSize,
		Retry:     DefaultSourceRetry(),
	}
}

func (s *SQLExtractor) Extract(ctx context.Context, stream Stream, since checkpoint.Watermark) iter.Seq2[models.RawRow, error] {
	return func(yield func(models.RawRow, error) bool) {
		query, err := stream.Query(s.Dialect)
		if err != nil {
			yield(nil, err)
			return
		}
		bound, err := since.Time()
		if err != nil {
			yield(nil, err)
			return
		}

		// A transient failure mid-cursor reruns the query from since; rows
		// already yielded are skipped so the consumer sees each row once.
		var seen resumePoint
		bo := s.Retry.backOff(ctx)
		for {
			rows, err := s.open(ctx, stream.Name, query, bound)
			if err != nil {
				yield(nil, err)
				return
			}
			stopped, err := s.drain(stream, rows, &seen, yield)
			rows.Close()
			if stopped || err == nil {
				return
			}
			if !IsTransient(err) {
				yield(nil, fmt.Errorf("extract %s: %w", stream.Name, err))
				return
			}

			wait := bo.NextBackOff()
			if wait == backoff.Stop {
				if ctxErr := ctx.Err(); ctxErr != nil {
					err = ctxErr
				}
				yield(nil, fmt.Errorf("extract %s: %w", stream.Name, err))
				return
			}
			logger.Warnf("Source read for %s failed after %d rows, rerunning query in %s: %v", stream.Name, seen.yielded, wait, err)
			select {
			case <-ctx.Done():
				yield(nil, fmt.Errorf("extract %s: %w", stream.Name, ctx.Err()))
				return
			case <-time.After(wait):
			}
		}
	}
}

// resumePoint remembers how far a stream got, in query order.
type resumePoint struct {
	yielded  int
	modified time.Time
	ids      map[string]bool // ids yielded at modified
}

func (r *resumePoint) done(row models.RawRow) bool {
	id, modified := row.Key()
	if r.yielded == 0 || modified.After(r.modified) {
		return false
	}
	return modified.Before(r.modified) || r.ids[id]
}

func (r *resumePoint) mark(row models.RawRow) {
	id, modified := row.Key()
	if r.ids == nil || !modified.Equal(r.modified) {
		r.modified = modified
		r.ids = make(map[string]bool)
	}
	r.ids[id] = true
	r.yielded++
}

// drain yields rows from one cursor, BatchSize at a time. stopped reports that
// the consumer ended the iteration.
func (s *SQLExtractor) drain(stream Stream, rows *sql.Rows, seen *resumePoint, yield func(models.RawRow, error) bool) (stopped bool, err error) {
	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	batch := make([]models.RawRow, 0, batchSize)
	for {
		batch = batch[:0]
		read := 0
		var readErr error
		for read < batchSize && rows.Next() {
			read++
			row, err := stream.scan(rows)
			if err != nil {
				readErr = fmt.Errorf("scan %s row: %w", stream.Name, err)
				break
			}
			if seen.done(row) {
				continue
			}
			batch = append(batch, row)
		}
		if readErr == nil {
			readErr = rows.Err()
		}

		for _, row := range batch {
			if !yield(row, nil) {
				return true, nil
			}
			seen.mark(row)
		}
		if readErr != nil {
			return false, readErr
		}
		if read < batchSize {
			return false, nil
		}
	}
}

// open runs the query, retrying transient source failures until the context
// is done.
func (s *SQLExtractor) open(ctx context.Context, stream, query string, bound time.Time) (*sql.Rows, error) {
	var rows *sql.Rows
	op := func() error {
		r, err := s.DB.QueryContext(ctx, query, bound)
		if err != nil {
			if IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		rows = r
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warnf("Source query for %s failed, retrying in %s: %v", stream, wait, err)
	}

	if err := backoff.RetryNotify(op, s.Retry.backOff(ctx), notify); err != nil {
		return nil, fmt.Errorf("extract %s: %w", stream, err)
	}
	return rows, nil
}

func scanMovie(sc rowScanner) (models.RawRow, error) {
	var r models.MovieRow
	var persons []byte
	if err := sc.Scan(&r.ID, &r.Title, &r.Description, &r.Rating, &r.Type, &r.CreationDate, &r.Modified, &persons); err != nil {
		return nil, err
	}
	if err := decodeJSONArray(persons, &r.Persons); err != nil {
		return nil, fmt.Errorf("movie %s persons: %w", r.ID, err)
	}
	return r, nil
}

func scanGenre(sc rowScanner) (models.RawRow, error) {
	var r models.GenreRow
	if err := sc.Scan(&r.ID, &r.Name, &r.Description, &r.Modified); err != nil {
		return nil, err
	}
	return r, nil
}

func scanPerson(sc rowScanner) (models.RawRow, error) {
	var r models.PersonRow
	var films, roles []byte
	if err := sc.Scan(&r.ID, &r.FullName, &r.Modified, &films, &roles); err != nil {
		return nil, err
	}
	if err := decodeJSONArray(films, &r.Films); err != nil {
		return nil, fmt.Errorf("person %s films: %w", r.ID, err)
	}
	if err := decodeJSONArray(roles, &r.Roles); err != nil {
		return nil, fmt.Errorf("person %s roles: %w", r.ID, err)
	}
	return r, nil
}

// decodeJSONArray leaves dst untouched for NULL or empty aggregate columns.
func decodeJSONArray(data []byte, dst any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	return json.Unmarshal(data, dst)
}
