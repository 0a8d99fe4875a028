package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

const movieColumns = `id, name, director, genres, popularity, imdb_score`

// SQLStore keeps the catalog in Postgres through database/sql.
// It expects a handle opened with the pgx stdlib driver.
type SQLStore struct {
	db     *sql.DB
	schema string
}

// NewSQLStore returns a store over db. An empty schema means "public".
func NewSQLStore(db *sql.DB, schema string) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("catalog: nil db")
	}
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = "public"
	}
	return &SQLStore{db: db, schema: schema}, nil
}

func (s *SQLStore) table(name string) string {
	return pgx.Identifier{s.schema, name}.Sanitize()
}

func (s *SQLStore) List(ctx context.Context, q Query) (Page, error) {
	q = q.normalized()
	where, args := listFilter(q)

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM `+s.table("movies")+where, args...).Scan(&count); err != nil {
		return Page{}, fmt.Errorf("catalog: count movies: %w", err)
	}

	page := Page{Movies: []Movie{}, TotalPages: totalPages(count)}
	if count == 0 || (q.Page-1)*PerPage >= count {
		return page, nil
	}

	args = append(args, PerPage, (q.Page-1)*PerPage)
	query := `SELECT ` + movieColumns + ` FROM ` + s.table("movies") + where +
		` ORDER BY ` + q.Sort + ` ` + strings.ToUpper(q.Order) + `, id ASC` +
		` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("catalog: list movies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return Page{}, fmt.Errorf("catalog: scan movie: %w", err)
		}
		page.Movies = append(page.Movies, m)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("catalog: list movies: %w", err)
	}
	return page, nil
}

// listFilter builds the WHERE clause for q. Sort keys never reach it.
func listFilter(q Query) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.Genre != "" {
		args = append(args, q.Genre)
		conds = append(conds, fmt.Sprintf("genres @> jsonb_build_array($%d::text)", len(args)))
	}
	if q.Search != "" {
		if isDigits(q.Search) {
			id, err := strconv.ParseInt(q.Search, 10, 64)
			if err != nil {
				conds = append(conds, "FALSE")
			} else {
				args = append(args, id)
				conds = append(conds, fmt.Sprintf("id = $%d", len(args)))
			}
		} else {
			args = append(args, "%"+escapeLike(q.Search)+"%")
			conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR director ILIKE $%d)", len(args), len(args)))
		}
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *SQLStore) Genres(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT t.g
		FROM `+s.table("movies")+` m
		CROSS JOIN LATERAL jsonb_array_elements_text(m.genres) AS t(g)
		ORDER BY t.g
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: genres: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []string{}
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("catalog: scan genre: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: genres: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (Movie, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM `+s.table("movies")+` WHERE id = $1`, id)
	m, err := scanMovie(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Movie{}, ErrNotFound
		}
		return Movie{}, fmt.Errorf("catalog: get movie: %w", err)
	}
	return m, nil
}

func (s *SQLStore) Create(ctx context.Context, in MovieInput) (Movie, error) {
	m := in.movie()
	if m.Name == "" || m.Director == "" {
		return Movie{}, ErrInvalid
	}
	genres, err := json.Marshal(m.Genres)
	if err != nil {
		return Movie{}, fmt.Errorf("catalog: encode genres: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return Movie{}, fmt.Errorf("catalog: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO `+s.table("movies")+` (name, director, genres, popularity, imdb_score)
		VALUES ($1, $2, $3::jsonb, $4, $5)
		RETURNING id
	`, m.Name, m.Director, string(genres), m.Popularity, m.IMDBScore).Scan(&m.ID)
	if err != nil {
		return Movie{}, fmt.Errorf("catalog: insert movie: %w", err)
	}
	if err := s.appendLog(ctx, tx, m, ActionAdded); err != nil {
		return Movie{}, err
	}
	if err := tx.Commit(); err != nil {
		return Movie{}, fmt.Errorf("catalog: commit: %w", err)
	}
	return m, nil
}

func (s *SQLStore) Update(ctx context.Context, id int64, patch MoviePatch) (Movie, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return Movie{}, fmt.Errorf("catalog: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := scanMovie(tx.QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM `+s.table("movies")+` WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Movie{}, ErrNotFound
		}
		return Movie{}, fmt.Errorf("catalog: load movie: %w", err)
	}

	m := patch.apply(cur)
	if m.Name == "" || m.Director == "" {
		return Movie{}, ErrInvalid
	}
	genres, err := json.Marshal(m.Genres)
	if err != nil {
		return Movie{}, fmt.Errorf("catalog: encode genres: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE `+s.table("movies")+`
		SET name = $2, director = $3, genres = $4::jsonb, popularity = $5, imdb_score = $6, updated_at = now()
		WHERE id = $1
	`, id, m.Name, m.Director, string(genres), m.Popularity, m.IMDBScore)
	if err != nil {
		return Movie{}, fmt.Errorf("catalog: update movie: %w", err)
	}
	if err := s.appendLog(ctx, tx, m, ActionUpdated); err != nil {
		return Movie{}, err
	}
	if err := tx.Commit(); err != nil {
		return Movie{}, fmt.Errorf("catalog: commit: %w", err)
	}
	return m, nil
}

func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("catalog: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	m := Movie{ID: id}
	err = tx.QueryRowContext(ctx, `DELETE FROM `+s.table("movies")+` WHERE id = $1 RETURNING name`, id).Scan(&m.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("catalog: delete movie: %w", err)
	}
	if err := s.appendLog(ctx, tx, m, ActionDeleted); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: commit: %w", err)
	}
	return nil
}

func (s *SQLStore) Logs(ctx context.Context) ([]LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, movie_id, movie_name, action, created_at FROM `+s.table("movie_log")+` ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("catalog: logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []LogEntry{}
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.MovieID, &e.MovieName, &e.Action, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("catalog: scan log: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: logs: %w", err)
	}
	return out, nil
}

func (s *SQLStore) appendLog(ctx context.Context, tx *sql.Tx, m Movie, action string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO `+s.table("movie_log")+` (movie_id, movie_name, action) VALUES ($1, $2, $3)`,
		m.ID, m.Name, action)
	if err != nil {
		return fmt.Errorf("catalog: append log: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(row rowScanner) (Movie, error) {
	var (
		m   Movie
		raw []byte
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Director, &raw, &m.Popularity, &m.IMDBScore); err != nil {
		return Movie{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m.Genres); err != nil {
			return Movie{}, fmt.Errorf("decode genres: %w", err)
		}
	}
	if m.Genres == nil {
		m.Genres = []string{}
	}
	return m, nil
}
