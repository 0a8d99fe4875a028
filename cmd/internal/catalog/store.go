package catalog

import "context"

// Store persists movies and their change log.
// Every mutation appends a LogEntry in the same transaction.
type Store interface {
	List(ctx context.Context, q Query) (Page, error)
	Genres(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id int64) (Movie, error)
	Create(ctx context.Context, in MovieInput) (Movie, error)
	Update(ctx context.Context, id int64, patch MoviePatch) (Movie, error)
	Delete(ctx context.Context, id int64) error
	Logs(ctx context.Context) ([]LogEntry, error)
}

var (
	_ Store = (*SQLStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
