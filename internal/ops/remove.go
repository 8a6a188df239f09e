package ops

import (
	"context"

	"github.com/hpungsan/shelf/internal/document"
	"github.com/hpungsan/shelf/internal/errors"
)

// RemoveInput contains parameters for the Remove operation.
type RemoveInput struct {
	Collection string // required
	ID         string // slug, filename, or 1-based position
}

// RemoveOutput contains the result of the Remove operation.
type RemoveOutput struct {
	Removed    bool              `json:"removed"`
	Collection string            `json:"collection"`
	Document   document.Document `json:"document"`
}

// Remove deletes one document and its content file.
func Remove(_ context.Context, sh *Shelf, input RemoveInput) (*RemoveOutput, error) {
	name, err := existingCollection(sh, input.Collection)
	if err != nil {
		return nil, err
	}
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("document id is required")
	}

	doc, ok, err := sh.Store.Remove(name, input.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewNotFound("document", input.ID)
	}
	sh.log.Info("document removed", "collection", name, "slug", doc.Slug)

	return &RemoveOutput{Removed: true, Collection: name, Document: doc}, nil
}
