package ops

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"

	"github.com/hpungsan/shelf/internal/document"
	"github.com/hpungsan/shelf/internal/errors"
)

// ShowInput contains parameters for the Show operation.
type ShowInput struct {
	Collection  string // required
	ID          string // slug, filename, or 1-based position
	IncludeBody *bool  // default: true (nil means default)
}

// ShowOutput contains the result of the Show operation.
type ShowOutput struct {
	Collection string            `json:"collection"`
	Document   document.Document `json:"document"`
	Body       string            `json:"body,omitempty"`
	// Outline lists the body's headings; empty when the body is not loaded.
	Outline []document.Heading `json:"outline,omitempty"`
	// Missing is set when the log lists the document but its content file is gone.
	Missing bool `json:"missing,omitempty"`
}

// Show resolves a document and reads its body from the content file.
func Show(_ context.Context, sh *Shelf, input ShowInput) (*ShowOutput, error) {
	name, err := existingCollection(sh, input.Collection)
	if err != nil {
		return nil, err
	}
	doc, err := resolve(sh, name, input.ID)
	if err != nil {
		return nil, err
	}

	output := &ShowOutput{Collection: name, Document: doc}

	includeBody := true
	if input.IncludeBody != nil {
		includeBody = *input.IncludeBody
	}
	if !includeBody {
		return output, nil
	}

	raw, err := sh.Store.ReadContent(name, doc.Filename)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			output.Missing = true
			return output, nil
		}
		return nil, errors.NewInternal(fmt.Errorf("read %s: %w", doc.Filename, err))
	}
	output.Body = document.StripFrontmatter(string(raw))
	output.Outline = document.Outline(output.Body)
	return output, nil
}

// resolve finds a document by identifier or returns NOT_FOUND.
func resolve(sh *Shelf, collection, id string) (document.Document, error) {
	if id == "" {
		return document.Document{}, errors.NewInvalidRequest("document id is required")
	}
	doc, ok := sh.Store.Find(collection, id)
	if !ok {
		return document.Document{}, errors.NewNotFound("document", id)
	}
	return doc, nil
}
