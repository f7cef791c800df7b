// Package models holds the source-side rows and index-side documents
// exchanged between the extract, transform and load stages.
package models

import (
	"database/sql"
	"time"
)

// RawRow is one source record as returned by a stream's query.
type RawRow interface {
	Stream() string
	// Key identifies the row and its change time, the columns every
	// stream query orders by.
	Key() (id string, modified time.Time)
}

// PersonLink is one element of the persons JSON array attached to a movie row.
type PersonLink struct {
	PersonID   string `json:"person_id"`
	PersonName string `json:"person_name"`
	PersonRole string `json:"person_role"`
}

type MovieRow struct {
	ID           string
	Title        string
	Description  sql.NullString
	Rating       sql.NullFloat64
	Type         string
	CreationDate sql.NullTime
	Modified     time.Time
	Persons      []PersonLink
}

func (r MovieRow) Key() (string, time.Time) { return r.ID, r.Modified }

func (MovieRow) Stream() string { return "movies" }

type GenreRow struct {
	ID          string
	Name        string
	Description sql.NullString
	Modified    time.Time
}

func (r GenreRow) Key() (string, time.Time) { return r.ID, r.Modified }

func (GenreRow) Stream() string { return "genres" }

// FilmLink is one element of the films JSON array attached to a person row.
type FilmLink struct {
	ID     string   `json:"fw_id"`
	Title  string   `json:"fw_title"`
	Rating *float64 `json:"fw_rating"`
	Type   string   `json:"fw_type"`
}

// RoleLink is one element of the roles JSON array attached to a person row.
type RoleLink struct {
	Role string `json:"role"`
}

type PersonRow struct {
	ID       string
	FullName string
	Modified time.Time
	Films    []FilmLink
	Roles    []RoleLink
}

func (r PersonRow) Key() (string, time.Time) { return r.ID, r.Modified }

func (PersonRow) Stream() string { return "persons" }
