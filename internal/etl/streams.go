package etl

import (
	"fmt"
	"slices"
	"strings"

	"github.com/BartekS5/moviesync/pkg/database"
	"github.com/BartekS5/moviesync/pkg/models"
)

const (
	StreamMovies  = "movies"
	StreamGenres  = "genres"
	StreamPersons = "persons"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// Stream binds a stream name to its source query, row decoder and
// transformer. The index collection shares the stream name.
type Stream struct {
	Name        string
	Transformer Transformer

	queries map[database.Dialect]string
	scan    func(rowScanner) (models.RawRow, error)
}

// Query returns the extraction query for the dialect. It takes a single
// parameter: the exclusive lower bound on the modification time.
func (s Stream) Query(d database.Dialect) (string, error) {
	q, ok := s.queries[d]
	if !ok {
		return "", fmt.Errorf("%w %q (stream %s)", ErrUnsupportedQuery, d, s.Name)
	}
	return q, nil
}

var streamRegistry = map[string]func() Stream{
	StreamMovies: func() Stream {
		return Stream{Name: StreamMovies, Transformer: movieTransformer{}, queries: movieQueries, scan: scanMovie}
	},
	StreamGenres: func() Stream {
		return Stream{Name: StreamGenres, Transformer: genreTransformer{}, queries: genreQueries, scan: scanGenre}
	},
	StreamPersons: func() Stream {
		return Stream{Name: StreamPersons, Transformer: personTransformer{}, queries: personQueries, scan: scanPerson}
	},
}

// KnownStreams lists the stream names this build can replicate.
func KnownStreams() []string {
	names := make([]string, 0, len(streamRegistry))
	for name := range streamRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ResolveStreams turns configured names into stream definitions, in order.
// Unknown or repeated names are configuration errors.
func ResolveStreams(names []string) ([]Stream, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no streams configured (known: %s)", strings.Join(KnownStreams(), ", "))
	}
	seen := make(map[string]bool, len(names))
	streams := make([]Stream, 0, len(names))
	for _, name := range names {
		build, ok := streamRegistry[name]
		if !ok {
			return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownStream, name, strings.Join(KnownStreams(), ", "))
		}
		if seen[name] {
			return nil, fmt.Errorf("stream %q configured twice", name)
		}
		seen[name] = true
		streams = append(streams, build())
	}
	return streams, nil
}
