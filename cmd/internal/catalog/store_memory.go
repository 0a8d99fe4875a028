package catalog

import (
	"context"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	movies map[int64]Movie
	logs   []LogEntry
	now    func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{movies: make(map[int64]Movie), now: time.Now}
}

func (s *MemoryStore) List(ctx context.Context, q Query) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	q = q.normalized()

	s.mu.RLock()
	matched := make([]Movie, 0, len(s.movies))
	for _, m := range s.movies {
		if matches(m, q) {
			matched = append(matched, cloneMovie(m))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := sortKey(matched[i], q.Sort), sortKey(matched[j], q.Sort)
		if a == b {
			return matched[i].ID < matched[j].ID
		}
		if q.Order == "desc" {
			return a > b
		}
		return a < b
	})

	page := Page{Movies: []Movie{}, TotalPages: totalPages(len(matched))}
	start := (q.Page - 1) * PerPage
	if start < len(matched) {
		end := min(start+PerPage, len(matched))
		page.Movies = append(page.Movies, matched[start:end]...)
	}
	return page, nil
}

func matches(m Movie, q Query) bool {
	if q.Genre != "" && !slices.Contains(m.Genres, q.Genre) {
		return false
	}
	if q.Search == "" {
		return true
	}
	if isDigits(q.Search) {
		id, err := strconv.ParseInt(q.Search, 10, 64)
		return err == nil && m.ID == id
	}
	needle := strings.ToLower(q.Search)
	return strings.Contains(strings.ToLower(m.Name), needle) ||
		strings.Contains(strings.ToLower(m.Director), needle)
}

func sortKey(m Movie, key string) float64 {
	if key == SortPopularity {
		return m.Popularity
	}
	return m.IMDBScore
}

func (s *MemoryStore) Genres(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]struct{}{}
	out := []string{}
	for _, m := range s.movies {
		for _, g := range m.Genres {
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			out = append(out, g)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (Movie, error) {
	if err := ctx.Err(); err != nil {
		return Movie{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.movies[id]
	if !ok {
		return Movie{}, ErrNotFound
	}
	return cloneMovie(m), nil
}

func (s *MemoryStore) Create(ctx context.Context, in MovieInput) (Movie, error) {
	if err := ctx.Err(); err != nil {
		return Movie{}, err
	}
	m := in.movie()
	if m.Name == "" || m.Director == "" {
		return Movie{}, ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	m.ID = s.nextID
	s.movies[m.ID] = m
	s.appendLogLocked(m, ActionAdded)
	return cloneMovie(m), nil
}

func (s *MemoryStore) Update(ctx context.Context, id int64, patch MoviePatch) (Movie, error) {
	if err := ctx.Err(); err != nil {
		return Movie{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.movies[id]
	if !ok {
		return Movie{}, ErrNotFound
	}
	m := patch.apply(cloneMovie(cur))
	if m.Name == "" || m.Director == "" {
		return Movie{}, ErrInvalid
	}
	s.movies[id] = m
	s.appendLogLocked(m, ActionUpdated)
	return cloneMovie(m), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.movies[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.movies, id)
	s.appendLogLocked(m, ActionDeleted)
	return nil
}

func (s *MemoryStore) Logs(ctx context.Context) ([]LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]LogEntry{}, s.logs...), nil
}

func (s *MemoryStore) appendLogLocked(m Movie, action string) {
	s.logs = append(s.logs, LogEntry{
		ID:        int64(len(s.logs) + 1),
		MovieID:   m.ID,
		MovieName: m.Name,
		Action:    action,
		Timestamp: s.now().UTC(),
	})
}

func cloneMovie(m Movie) Movie {
	m.Genres = append([]string{}, m.Genres...)
	return m
}
