package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMemory(t *testing.T, n int) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	for i := 1; i <= n; i++ {
		genre := "Drama"
		if i%2 == 0 {
			genre = "Comedy"
		}
		_, err := s.Create(context.Background(), MovieInput{
			Name:       fmt.Sprintf("Movie %02d", i),
			Director:   fmt.Sprintf("Director %d", i%3),
			Genres:     []string{genre},
			Popularity: float64(100 - i),
			IMDBScore:  float64(i%10) + 0.5,
		})
		require.NoError(t, err)
	}
	return s
}

func TestMemoryStore_ListPaging(t *testing.T) {
	s := seedMemory(t, 25)
	ctx := context.Background()

	p1, err := s.List(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, 3, p1.TotalPages)
	assert.Len(t, p1.Movies, PerPage)
	for i := 1; i < len(p1.Movies); i++ {
		assert.LessOrEqual(t, p1.Movies[i-1].IMDBScore, p1.Movies[i].IMDBScore)
	}

	p3, err := s.List(ctx, Query{Page: 3})
	require.NoError(t, err)
	assert.Len(t, p3.Movies, 5)

	p9, err := s.List(ctx, Query{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, p9.Movies)
	assert.Equal(t, 3, p9.TotalPages)
}

func TestMemoryStore_ListFilterAndSort(t *testing.T) {
	s := seedMemory(t, 6)
	ctx := context.Background()

	page, err := s.List(ctx, Query{Genre: "Comedy", Sort: SortPopularity, Order: "desc"})
	require.NoError(t, err)
	require.Len(t, page.Movies, 3)
	assert.Equal(t, "Movie 02", page.Movies[0].Name)
	assert.Equal(t, "Movie 06", page.Movies[2].Name)

	page, err = s.List(ctx, Query{Search: "director 1"})
	require.NoError(t, err)
	assert.Len(t, page.Movies, 2)

	page, err = s.List(ctx, Query{Search: "4"})
	require.NoError(t, err)
	require.Len(t, page.Movies, 1)
	assert.Equal(t, int64(4), page.Movies[0].ID)
}

func TestMemoryStore_CRUDAndLogs(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	m, err := s.Create(ctx, MovieInput{Name: "Heat", Director: "Michael Mann", Genres: []string{"Crime"}})
	require.NoError(t, err)

	name := "Heat (1995)"
	updated, err := s.Update(ctx, m.ID, MoviePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, []string{"Crime"}, updated.Genres)

	blank := " "
	_, err = s.Update(ctx, m.ID, MoviePatch{Director: &blank})
	assert.ErrorIs(t, err, ErrInvalid)

	genres, err := s.Genres(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Crime"}, genres)

	require.NoError(t, s.Delete(ctx, m.ID))
	assert.ErrorIs(t, s.Delete(ctx, m.ID), ErrNotFound)
	_, err = s.Get(ctx, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	logs, err := s.Logs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, []string{ActionAdded, ActionUpdated, ActionDeleted},
		[]string{logs[0].Action, logs[1].Action, logs[2].Action})
	assert.Equal(t, name, logs[2].MovieName)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	m, err := s.Create(ctx, MovieInput{Name: "A", Director: "B", Genres: []string{"X"}})
	require.NoError(t, err)
	m.Genres[0] = "mutated"

	got, err := s.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, got.Genres)
}
