package catalog

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewSQLStore(db, "")
	require.NoError(t, err)
	return s, mock
}

func movieRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "director", "genres", "popularity", "imdb_score"})
}

func TestSQLStore_ListDefaults(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "public"."movies"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "public"."movies" ORDER BY imdb_score ASC, id ASC LIMIT $1 OFFSET $2`)).
		WithArgs(PerPage, 0).
		WillReturnRows(movieRows().
			AddRow(1, "Psycho", "Alfred Hitchcock", `["Horror","Thriller"]`, 83.0, 8.3).
			AddRow(2, "Blank", "Nobody", nil, 1.0, 2.0))

	page, err := s.List(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Movies, 2)
	assert.Equal(t, []string{"Horror", "Thriller"}, page.Movies[0].Genres)
	assert.Equal(t, []string{}, page.Movies[1].Genres)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ListFilters(t *testing.T) {
	s, mock := newMockStore(t)

	where := `WHERE genres @> jsonb_build_array($1::text) AND (name ILIKE $2 OR director ILIKE $2)`
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "public"."movies" ` + where)).
		WithArgs("Drama", `%50\% off%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery(regexp.QuoteMeta(where + ` ORDER BY popularity DESC, id ASC LIMIT $3 OFFSET $4`)).
		WithArgs("Drama", `%50\% off%`, PerPage, 20).
		WillReturnRows(movieRows().AddRow(30, "50% off", "Someone", `["Drama"]`, 10.0, 6.1))

	page, err := s.List(context.Background(), Query{Page: 3, Genre: "Drama", Sort: "popularity", Order: "DESC", Search: "50% off"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Movies, 1)
	assert.Equal(t, int64(30), page.Movies[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ListNumericSearchMatchesID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "public"."movies" WHERE id = $1`)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	page, err := s.List(context.Background(), Query{Search: "42"})
	require.NoError(t, err)
	assert.Equal(t, 0, page.TotalPages)
	assert.Empty(t, page.Movies)
	assert.NotNil(t, page.Movies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ListPastLastPage(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*)`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	page, err := s.List(context.Background(), Query{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalPages)
	assert.Empty(t, page.Movies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Genres(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`(?s)SELECT DISTINCT t\.g.*jsonb_array_elements_text`).
		WillReturnRows(sqlmock.NewRows([]string{"g"}).AddRow("Comedy").AddRow("Drama"))

	got, err := s.Genres(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Comedy", "Drama"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Get(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1`)).WithArgs(int64(7)).
		WillReturnRows(movieRows().AddRow(7, "Heat", "Michael Mann", `["Crime"]`, 70.0, 8.3))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1`)).WithArgs(int64(8)).
		WillReturnError(sql.ErrNoRows)

	m, err := s.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Heat", m.Name)

	_, err = s.Get(context.Background(), 8)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_CreateWritesLogInSameTx(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)INSERT INTO "public"\."movies" .*RETURNING id`).
		WithArgs("Alien", "Ridley Scott", `["Horror","Sci-Fi"]`, 80.0, 8.5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "public"."movie_log" (movie_id, movie_name, action)`)).
		WithArgs(int64(5), "Alien", ActionAdded).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	m, err := s.Create(context.Background(), MovieInput{
		Name:       " Alien ",
		Director:   "Ridley Scott",
		Genres:     []string{"Horror", "Sci-Fi", "Horror", " "},
		Popularity: 80,
		IMDBScore:  8.5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), m.ID)
	assert.Equal(t, "Alien", m.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_CreateRollsBackOnLogFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "public"\."movies"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectExec(`INSERT INTO "public"\."movie_log"`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.Create(context.Background(), MovieInput{Name: "A", Director: "B"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_CreateRejectsBlankName(t *testing.T) {
	s, mock := newMockStore(t)

	_, err := s.Create(context.Background(), MovieInput{Name: "  ", Director: "B"})
	assert.ErrorIs(t, err, ErrInvalid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_UpdateAppliesPatch(t *testing.T) {
	s, mock := newMockStore(t)
	score := 9.0

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1 FOR UPDATE`)).WithArgs(int64(3)).
		WillReturnRows(movieRows().AddRow(3, "Up", "Pete Docter", `["Animation"]`, 60.0, 8.2))
	mock.ExpectExec(`(?s)UPDATE "public"\."movies".*SET name = \$2`).
		WithArgs(int64(3), "Up", "Pete Docter", `["Animation"]`, 60.0, 9.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "public"\."movie_log"`).
		WithArgs(int64(3), "Up", ActionUpdated).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	m, err := s.Update(context.Background(), 3, MoviePatch{IMDBScore: &score})
	require.NoError(t, err)
	assert.Equal(t, 9.0, m.IMDBScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_UpdateMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(int64(99)).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.Update(context.Background(), 99, MoviePatch{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Delete(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM "public"."movies" WHERE id = $1 RETURNING name`)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Jaws"))
	mock.ExpectExec(`INSERT INTO "public"\."movie_log"`).
		WithArgs(int64(4), "Jaws", ActionDeleted).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM`).WithArgs(int64(4)).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	require.NoError(t, s.Delete(context.Background(), 4))
	assert.ErrorIs(t, s.Delete(context.Background(), 4), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Logs(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "public"."movie_log" ORDER BY id ASC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "movie_id", "movie_name", "action", "created_at"}).
			AddRow(1, 5, "Alien", ActionAdded, at))

	logs, err := s.Logs(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, ActionAdded, logs[0].Action)
	assert.True(t, at.Equal(logs[0].Timestamp))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSQLStore_NilDB(t *testing.T) {
	_, err := NewSQLStore(nil, "public")
	assert.Error(t, err)
}
