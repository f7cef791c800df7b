package etl

import (
	"fmt"
	"strings"

	"github.com/BartekS5/moviesync/internal/checkpoint"
	"github.com/BartekS5/moviesync/pkg/models"
	"github.com/BartekS5/moviesync/pkg/utils"
)

const (
	roleDirector = "director"
	roleWriter   = "writer"
	roleActor    = "actor"
)

type movieTransformer struct{}

// Transform splits the movie's people into directors, writers and actors.
// Input order is kept; a person listed twice under one role appears once.
func (movieTransformer) Transform(row models.RawRow) (models.Document, error) {
	r, ok := row.(models.MovieRow)
	if !ok {
		return nil, mismatch(StreamMovies, row)
	}

	doc := &models.MovieDocument{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description.String,
		Rating:       utils.FloatPtr(r.Rating),
		Type:         r.Type,
		CreationDate: utils.FormatDate(r.CreationDate),
		Modified:     string(checkpoint.FromTime(r.Modified)),
		Directors:    []models.PersonRef{},
		Writers:      []models.PersonRef{},
		Actors:       []models.PersonRef{},
	}

	seen := map[string]map[string]bool{
		roleDirector: {},
		roleWriter:   {},
		roleActor:    {},
	}
	for _, p := range r.Persons {
		ids, known := seen[p.PersonRole]
		if !known || ids[p.PersonID] {
			continue
		}
		ids[p.PersonID] = true

		ref := models.PersonRef{ID: p.PersonID, Name: p.PersonName}
		switch p.PersonRole {
		case roleDirector:
			doc.Directors = append(doc.Directors, ref)
		case roleWriter:
			doc.Writers = append(doc.Writers, ref)
		case roleActor:
			doc.Actors = append(doc.Actors, ref)
		}
	}
	return doc, nil
}

type genreTransformer struct{}

func (genreTransformer) Transform(row models.RawRow) (models.Document, error) {
	r, ok := row.(models.GenreRow)
	if !ok {
		return nil, mismatch(StreamGenres, row)
	}
	return &models.GenreDocument{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description.String,
		Modified:    string(checkpoint.FromTime(r.Modified)),
	}, nil
}

type personTransformer struct{}

func (personTransformer) Transform(row models.RawRow) (models.Document, error) {
	r, ok := row.(models.PersonRow)
	if !ok {
		return nil, mismatch(StreamPersons, row)
	}

	roles := make([]string, 0, len(r.Roles))
	for _, role := range r.Roles {
		roles = append(roles, role.Role)
	}
	films := make([]models.FilmRef, 0, len(r.Films))
	for _, f := range r.Films {
		films = append(films, models.FilmRef{
			ID:     f.ID,
			Rating: f.Rating,
			Title:  f.Title,
			Type:   f.Type,
		})
	}

	return &models.PersonDocument{
		ID:       r.ID,
		Name:     r.FullName,
		Modified: string(checkpoint.FromTime(r.Modified)),
		Roles:    strings.Join(roles, ", "),
		Films:    films,
	}, nil
}

func mismatch(stream string, row models.RawRow) error {
	got := "<nil>"
	if row != nil {
		got = row.Stream()
	}
	return fmt.Errorf("%w: %s transformer got a %s row", ErrRowTypeMismatch, stream, got)
}
