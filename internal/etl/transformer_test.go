package etl

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/BartekS5/moviesync/pkg/models"
)

func movieRow() models.MovieRow {
	return models.MovieRow{
		ID:           "m1",
		Title:        "Star Wars",
		Description:  sql.NullString{String: "A long time ago", Valid: true},
		Rating:       sql.NullFloat64{Float64: 8.6, Valid: true},
		Type:         "movie",
		CreationDate: sql.NullTime{Time: time.Date(1977, 5, 25, 0, 0, 0, 0, time.UTC), Valid: true},
		Modified:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Persons: []models.PersonLink{
			{PersonID: "p1", PersonName: "George Lucas", PersonRole: "director"},
			{PersonID: "p2", PersonName: "Leigh Brackett", PersonRole: "writer"},
			{PersonID: "p3", PersonName: "Mark Hamill", PersonRole: "actor"},
			{PersonID: "p4", PersonName: "Irvin Kershner", PersonRole: "director"},
		},
	}
}

func TestMovieTransformPartitionsRoles(t *testing.T) {
	doc, err := movieTransformer{}.Transform(movieRow())
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	m := doc.(*models.MovieDocument)

	if len(m.Directors) != 2 || len(m.Writers) != 1 || len(m.Actors) != 1 {
		t.Fatalf("unexpected partition: directors=%v writers=%v actors=%v", m.Directors, m.Writers, m.Actors)
	}
	if m.Directors[0] != (models.PersonRef{ID: "p1", Name: "George Lucas"}) ||
		m.Directors[1] != (models.PersonRef{ID: "p4", Name: "Irvin Kershner"}) {
		t.Errorf("directors out of input order: %v", m.Directors)
	}
	if m.Writers[0].ID != "p2" || m.Actors[0].ID != "p3" {
		t.Errorf("unexpected writers/actors: %v %v", m.Writers, m.Actors)
	}

	if m.ID != "m1" || m.Title != "Star Wars" || m.Type != "movie" || m.Description != "A long time ago" {
		t.Errorf("scalar fields not copied: %+v", m)
	}
	if m.Rating == nil || *m.Rating != 8.6 {
		t.Errorf("rating: %v", m.Rating)
	}
	if m.CreationDate == nil || *m.CreationDate != "1977-05-25" {
		t.Errorf("creation_date: %v", m.CreationDate)
	}
	if m.Modified != "2024-01-02T03:04:05Z" {
		t.Errorf("modified: %q", m.Modified)
	}
}

func TestMovieTransformDeduplicatesWithinRole(t *testing.T) {
	row := movieRow()
	row.Persons = append(row.Persons,
		models.PersonLink{PersonID: "p1", PersonName: "George Lucas", PersonRole: "director"},
		models.PersonLink{PersonID: "p1", PersonName: "George Lucas", PersonRole: "writer"},
		models.PersonLink{PersonID: "p9", PersonName: "Someone", PersonRole: "producer"},
	)
	doc, err := movieTransformer{}.Transform(row)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	m := doc.(*models.MovieDocument)
	if len(m.Directors) != 2 {
		t.Errorf("duplicate director not removed: %v", m.Directors)
	}
	if len(m.Writers) != 2 || m.Writers[1].ID != "p1" {
		t.Errorf("same person under another role must be kept: %v", m.Writers)
	}
}

func TestMovieTransformNoPeopleYieldsEmptyLists(t *testing.T) {
	row := movieRow()
	row.Persons = nil
	row.Rating = sql.NullFloat64{}
	row.CreationDate = sql.NullTime{}

	doc, err := movieTransformer{}.Transform(row)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"directors":[]`, `"writers":[]`, `"actors":[]`, `"rating":null`, `"creation_date":null`} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestGenreTransform(t *testing.T) {
	row := models.GenreRow{
		ID:          "g1",
		Name:        "Sci-Fi",
		Description: sql.NullString{},
		Modified:    time.Date(2024, 3, 1, 12, 0, 0, 500, time.UTC),
	}
	doc, err := genreTransformer{}.Transform(row)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want := &models.GenreDocument{ID: "g1", Name: "Sci-Fi", Description: "", Modified: "2024-03-01T12:00:00.0000005Z"}
	if *doc.(*models.GenreDocument) != *want {
		t.Errorf("expected %+v, got %+v", want, doc)
	}
}

func TestPersonTransform(t *testing.T) {
	rating := 7.5
	row := models.PersonRow{
		ID:       "p1",
		FullName: "Mark Hamill",
		Modified: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Roles:    []models.RoleLink{{Role: "actor"}, {Role: "writer"}},
		Films: []models.FilmLink{
			{ID: "m1", Title: "Star Wars", Rating: &rating, Type: "movie"},
			{ID: "m2", Title: "Untitled", Type: "tv_show"},
		},
	}
	doc, err := personTransformer{}.Transform(row)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	p := doc.(*models.PersonDocument)
	if p.Roles != "actor, writer" {
		t.Errorf("roles: %q", p.Roles)
	}
	if len(p.Films) != 2 {
		t.Fatalf("films: %v", p.Films)
	}
	if p.Films[0].ID != "m1" || *p.Films[0].Rating != 7.5 || p.Films[0].Type != "movie" {
		t.Errorf("film 0: %+v", p.Films[0])
	}
	if p.Films[1].Rating != nil || p.Films[1].Type != "tv_show" {
		t.Errorf("film 1: %+v", p.Films[1])
	}
}

func TestPersonWithoutFilmsYieldsEmptyList(t *testing.T) {
	row := models.PersonRow{ID: "p2", FullName: "Nobody", Modified: time.Now()}
	doc, err := personTransformer{}.Transform(row)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	out, _ := json.Marshal(doc)
	if !bytes.Contains(out, []byte(`"films":[]`)) || !bytes.Contains(out, []byte(`"roles":""`)) {
		t.Errorf("unexpected document: %s", out)
	}
}

func TestTransformIsDeterministic(t *testing.T) {
	streams, err := ResolveStreams([]string{StreamMovies})
	if err != nil {
		t.Fatal(err)
	}
	tr := streams[0].Transformer

	first, err := tr.Transform(movieRow())
	if err != nil {
		t.Fatal(err)
	}
	second, err := tr.Transform(movieRow())
	if err != nil {
		t.Fatal(err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !bytes.Equal(a, b) {
		t.Errorf("same row produced different documents:\n%s\n%s", a, b)
	}
}

func TestTransformRejectsForeignRow(t *testing.T) {
	_, err := personTransformer{}.Transform(models.GenreRow{ID: "g1"})
	if !errors.Is(err, ErrRowTypeMismatch) {
		t.Fatalf("expected ErrRowTypeMismatch, got %v", err)
	}
}

func TestResolveStreams(t *testing.T) {
	streams, err := ResolveStreams([]string{"persons", "movies"})
	if err != nil {
		t.Fatalf("ResolveStreams: %v", err)
	}
	if streams[0].Name != "persons" || streams[1].Name != "movies" {
		t.Errorf("order not preserved: %v, %v", streams[0].Name, streams[1].Name)
	}

	if _, err := ResolveStreams([]string{"movies", "series"}); !errors.Is(err, ErrUnknownStream) {
		t.Errorf("expected ErrUnknownStream, got %v", err)
	}
	if _, err := ResolveStreams([]string{"genres", "genres"}); err == nil {
		t.Error("expected error for duplicate stream")
	}
	if _, err := ResolveStreams(nil); err == nil {
		t.Error("expected error for empty stream list")
	}
}

func TestWatermarkOf(t *testing.T) {
	w, err := WatermarkOf(&models.GenreDocument{ID: "g1", Modified: "2024-01-01T00:00:00Z"})
	if err != nil || w != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected: %q %v", w, err)
	}
	if _, err := WatermarkOf(&models.GenreDocument{Modified: "2024-01-01T00:00:00Z"}); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("missing id: got %v", err)
	}
	if _, err := WatermarkOf(&models.GenreDocument{ID: "g1"}); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("missing modified: got %v", err)
	}
	if _, err := WatermarkOf(&models.GenreDocument{ID: "g1", Modified: "soon"}); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("bad modified: got %v", err)
	}
}
