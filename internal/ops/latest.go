package ops

import (
	"context"
)

// LatestInput contains parameters for the Latest operation.
type LatestInput struct {
	Collection string // required
}

// LatestOutput contains the result of the Latest operation.
type LatestOutput struct {
	Collection string        `json:"collection"`
	Item       *DocumentItem `json:"item"` // nil if the collection is empty
}

// Latest returns the most recently added document of a collection.
func Latest(_ context.Context, sh *Shelf, input LatestInput) (*LatestOutput, error) {
	name, err := existingCollection(sh, input.Collection)
	if err != nil {
		return nil, err
	}

	docs := sh.Store.Documents(name)
	if len(docs) == 0 {
		return &LatestOutput{Collection: name}, nil
	}

	last := len(docs) - 1
	return &LatestOutput{
		Collection: name,
		Item:       &DocumentItem{Position: last + 1, Document: docs[last]},
	}, nil
}
