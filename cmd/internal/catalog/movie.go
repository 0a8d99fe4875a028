// Package catalog serves the movie catalog behind the session gate.
//
// Reads are open to any authenticated identity. Writes and single-movie
// access require an admin identity.
package catalog

import (
	"errors"
	"strings"
	"time"
)

// PerPage is the fixed page size of List.
const PerPage = 10

var (
	ErrNotFound = errors.New("catalog: movie not found")
	ErrInvalid  = errors.New("catalog: invalid input")
)

// Movie is a catalog entry.
type Movie struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Director   string   `json:"director"`
	Genres     []string `json:"genre"`
	Popularity float64  `json:"popularity"`
	IMDBScore  float64  `json:"imdb_score"`
}

// MovieInput carries the fields of a new movie.
type MovieInput struct {
	Name       string   `json:"name" validate:"required,max=100"`
	Director   string   `json:"director" validate:"required,max=100"`
	Genres     []string `json:"genre" validate:"omitempty,max=20,dive,required,max=50"`
	Popularity float64  `json:"popularity" validate:"gte=0"`
	IMDBScore  float64  `json:"imdb_score" validate:"gte=0,lte=10"`
}

// MoviePatch updates only the fields that are set.
type MoviePatch struct {
	Name       *string   `json:"name" validate:"omitempty,min=1,max=100"`
	Director   *string   `json:"director" validate:"omitempty,min=1,max=100"`
	Genres     *[]string `json:"genre" validate:"omitempty,max=20,dive,required,max=50"`
	Popularity *float64  `json:"popularity" validate:"omitempty,gte=0"`
	IMDBScore  *float64  `json:"imdb_score" validate:"omitempty,gte=0,lte=10"`
}

func (p MoviePatch) apply(m Movie) Movie {
	if p.Name != nil {
		m.Name = strings.TrimSpace(*p.Name)
	}
	if p.Director != nil {
		m.Director = strings.TrimSpace(*p.Director)
	}
	if p.Genres != nil {
		m.Genres = cleanGenres(*p.Genres)
	}
	if p.Popularity != nil {
		m.Popularity = *p.Popularity
	}
	if p.IMDBScore != nil {
		m.IMDBScore = *p.IMDBScore
	}
	return m
}

func (in MovieInput) movie() Movie {
	return Movie{
		Name:       strings.TrimSpace(in.Name),
		Director:   strings.TrimSpace(in.Director),
		Genres:     cleanGenres(in.Genres),
		Popularity: in.Popularity,
		IMDBScore:  in.IMDBScore,
	}
}

// cleanGenres trims names, drops blanks and duplicates, and never returns nil.
func cleanGenres(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, g := range in {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

// Sort keys accepted by List.
const (
	SortIMDBScore  = "imdb_score"
	SortPopularity = "popularity"
)

// Query selects one page of movies.
type Query struct {
	Page   int
	Genre  string
	Sort   string
	Order  string
	Search string
}

// normalized fills defaults: page 1, imdb_score, ascending.
func (q Query) normalized() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Sort != SortPopularity {
		q.Sort = SortIMDBScore
	}
	if strings.EqualFold(q.Order, "desc") {
		q.Order = "desc"
	} else {
		q.Order = "asc"
	}
	q.Genre = strings.TrimSpace(q.Genre)
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// Page is one page of List results.
type Page struct {
	Movies     []Movie `json:"movies"`
	TotalPages int     `json:"total_pages"`
}

func totalPages(count int) int {
	if count <= 0 {
		return 0
	}
	return (count + PerPage - 1) / PerPage
}

// LogEntry records one catalog change.
type LogEntry struct {
	ID        int64     `json:"id"`
	MovieID   int64     `json:"movie_id"`
	MovieName string    `json:"movie_name"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// Log actions.
const (
	ActionAdded   = "ADDED"
	ActionUpdated = "UPDATED"
	ActionDeleted = "DELETED"
)

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
