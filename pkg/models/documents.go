package models

// Document is the index-side shape of one entity. Every document carries its
// id and the modification time that becomes the stream's next watermark.
type Document interface {
	DocumentID() string
	ModifiedAt() string
}

// PersonRef is a person embedded in a movie document.
type PersonRef struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

type MovieDocument struct {
	ID           string      `json:"id" bson:"_id"`
	Title        string      `json:"title" bson:"title"`
	Description  string      `json:"description" bson:"description"`
	Rating       *float64    `json:"rating" bson:"rating"`
	Type         string      `json:"type" bson:"type"`
	CreationDate *string     `json:"creation_date" bson:"creation_date"`
	Modified     string      `json:"modified" bson:"modified"`
	Directors    []PersonRef `json:"directors" bson:"directors"`
	Writers      []PersonRef `json:"writers" bson:"writers"`
	Actors       []PersonRef `json:"actors" bson:"actors"`
}

func (d *MovieDocument) DocumentID() string { return d.ID }
func (d *MovieDocument) ModifiedAt() string { return d.Modified }

type GenreDocument struct {
	ID          string `json:"id" bson:"_id"`
	Name        string `json:"name" bson:"name"`
	Description string `json:"description" bson:"description"`
	Modified    string `json:"modified" bson:"modified"`
}

func (d *GenreDocument) DocumentID() string { return d.ID }
func (d *GenreDocument) ModifiedAt() string { return d.Modified }

// FilmRef is a film embedded in a person document.
type FilmRef struct {
	ID     string   `json:"id" bson:"id"`
	Rating *float64 `json:"rating" bson:"rating"`
	Title  string   `json:"title" bson:"title"`
	Type   string   `json:"type" bson:"type"`
}

type PersonDocument struct {
	ID       string    `json:"id" bson:"_id"`
	Name     string    `json:"name" bson:"name"`
	Modified string    `json:"modified" bson:"modified"`
	Roles    string    `json:"roles" bson:"roles"`
	Films    []FilmRef `json:"films" bson:"films"`
}

func (d *PersonDocument) DocumentID() string { return d.ID }
func (d *PersonDocument) ModifiedAt() string { return d.Modified }
