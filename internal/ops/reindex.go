package ops

import (
	"context"

	"github.com/hpungsan/shelf/internal/store"
)

// ReindexInput contains parameters for the Reindex operation.
type ReindexInput struct {
	// Search also rebuilds the search rows of every collection.
	Search bool
}

// ReindexedCollection reports one rebuilt collection.
type ReindexedCollection struct {
	Name  string `json:"name"`
	Lines int    `json:"lines"`
}

// ReindexOutput contains the result of the Reindex operation.
type ReindexOutput struct {
	Aggregate store.Snapshot        `json:"aggregate"`
	Search    []ReindexedCollection `json:"search,omitempty"`
}

// Reindex rebuilds the global aggregate from the collection logs and, if asked,
// the search index of every collection.
func Reindex(ctx context.Context, sh *Shelf, input ReindexInput) (*ReindexOutput, error) {
	snap, err := sh.Store.Rebuild()
	if err != nil {
		return nil, err
	}
	output := &ReindexOutput{Aggregate: snap}

	if !input.Search {
		return output, nil
	}

	names, err := sh.Store.List()
	if err != nil {
		return nil, err
	}
	output.Search = make([]ReindexedCollection, 0, len(names))
	for _, name := range names {
		n, err := sh.Index.Reindex(ctx, name)
		if err != nil {
			return nil, err
		}
		output.Search = append(output.Search, ReindexedCollection{Name: name, Lines: n})
	}
	sh.log.Info("search index rebuilt", "collections", len(names))
	return output, nil
}
