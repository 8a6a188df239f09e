package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/search"
	"github.com/hpungsan/shelf/internal/store"
)

// MaxQueryLength bounds the search text.
const MaxQueryLength = 500

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query      string // required
	Collection string // optional; empty searches every collection
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Query      string          `json:"query"`
	Collection string          `json:"collection,omitempty"`
	Results    []search.Result `json:"results"`
	Total      int             `json:"total"` // number of matching documents
}

// Search runs a substring query. A named collection that does not exist yields
// no results rather than an error.
func Search(ctx context.Context, sh *Shelf, input SearchInput) (*SearchOutput, error) {
	// Surrounding spaces are part of the substring; only a blank query is rejected.
	query := input.Query
	if strings.TrimSpace(query) == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}
	if len(query) > MaxQueryLength {
		return nil, errors.NewInvalidRequest("query is too long")
	}

	collection := ""
	if strings.TrimSpace(input.Collection) != "" {
		collection = store.NormalizeName(input.Collection)
		if collection == "" {
			return nil, errors.NewInvalidRequest("invalid collection name")
		}
	}

	results, err := sh.Search.Search(ctx, query, collection)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []search.Result{}
	}

	return &SearchOutput{
		Query:      query,
		Collection: collection,
		Results:    results,
		Total:      len(results),
	}, nil
}
