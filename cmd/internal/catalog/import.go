package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
)

// importRecord is one entry of an IMDB-style catalog dump.
// Dumps carry popularity under the key "99popularity".
type importRecord struct {
	Name       string   `json:"name"`
	Director   string   `json:"director"`
	Popularity float64  `json:"99popularity"`
	IMDBScore  float64  `json:"imdb_score"`
	Genres     []string `json:"genre"`
}

// ImportJSON adds every movie of a JSON array dump to store and returns how
// many were added. It stops at the first invalid record; movies added before
// it are kept.
func ImportJSON(ctx context.Context, store Store, r io.Reader) (int, error) {
	var records []importRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return 0, fmt.Errorf("catalog: import: decode: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	for i, rec := range records {
		in := MovieInput{
			Name:       rec.Name,
			Director:   rec.Director,
			Genres:     rec.Genres,
			Popularity: rec.Popularity,
			IMDBScore:  rec.IMDBScore,
		}
		if err := validate.Struct(in); err != nil {
			return i, fmt.Errorf("catalog: import: record %d: %w: %v", i, ErrInvalid, err)
		}
		if _, err := store.Create(ctx, in); err != nil {
			return i, fmt.Errorf("catalog: import: record %d: %w", i, err)
		}
	}
	return len(records), nil
}
