package ops

import (
	"context"
	"fmt"
	"slices"

	"github.com/hpungsan/shelf/internal/document"
	"github.com/hpungsan/shelf/internal/errors"
)

// AddInput contains parameters for the Add operation.
type AddInput struct {
	Collection string   // required; created if missing
	URLs       []string // 1..50
}

// AddOutput contains the result of the Add operation.
// Per-URL failures do not fail the whole operation.
type AddOutput struct {
	Collection string              `json:"collection"`
	Added      []document.Document `json:"added"`
	Skipped    []string            `json:"skipped"` // already stored
	Errors     []AddError          `json:"errors"`
}

// AddError describes why one URL was not added.
type AddError struct {
	URL     string `json:"url"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Add fetches each URL and stores the result. URLs already in the collection
// are skipped before fetching.
func Add(ctx context.Context, sh *Shelf, input AddInput) (*AddOutput, error) {
	name, err := normalizeCollection(input.Collection)
	if err != nil {
		return nil, err
	}
	if len(input.URLs) == 0 {
		return nil, errors.NewInvalidRequest("at least one url is required")
	}
	if len(input.URLs) > MaxAddURLs {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("too many urls: %d (max %d)", len(input.URLs), MaxAddURLs))
	}
	if sh.Fetcher == nil {
		return nil, errors.NewInternal(fmt.Errorf("no fetcher configured"))
	}

	output := &AddOutput{
		Collection: name,
		Added:      []document.Document{},
		Skipped:    []string{},
		Errors:     []AddError{},
	}

	for _, raw := range input.URLs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		u, err := ValidateURL(raw)
		if err != nil {
			output.Errors = append(output.Errors, toAddError(raw, err))
			continue
		}
		if stored(sh, name, u) {
			output.Skipped = append(output.Skipped, u)
			continue
		}

		doc, err := sh.Fetcher.Fetch(ctx, u)
		if err != nil {
			sh.log.Warn("fetch failed", "url", u, "error", err)
			output.Errors = append(output.Errors, toAddError(u, err))
			continue
		}

		added, err := sh.Store.Add(name, doc)
		if err != nil {
			output.Errors = append(output.Errors, toAddError(u, err))
			continue
		}
		if !added {
			output.Skipped = append(output.Skipped, u)
			continue
		}
		sh.log.Info("document added", "collection", name, "url", u, "slug", doc.Slug)
		output.Added = append(output.Added, doc.Summary())
	}

	return output, nil
}

func stored(sh *Shelf, collection, url string) bool {
	return slices.ContainsFunc(sh.Store.Documents(collection), func(d document.Document) bool {
		return d.URL == url
	})
}

func toAddError(url string, err error) AddError {
	if sErr, ok := errors.As(err); ok {
		return AddError{URL: url, Code: string(sErr.Code), Message: sErr.Message}
	}
	return AddError{URL: url, Code: string(errors.ErrFetchFailed), Message: err.Error()}
}
