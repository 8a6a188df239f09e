package ops

import (
	"context"

	"github.com/hpungsan/shelf/internal/document"
)

// DocumentItem is a document plus its 1-based position in the collection log.
// The position is accepted wherever a document identifier is.
type DocumentItem struct {
	Position int `json:"position"`
	document.Document
}

// ListDocumentsInput contains parameters for the ListDocuments operation.
type ListDocumentsInput struct {
	Collection string // required
	Limit      int    // default: 50, max: 500
	Offset     int    // default: 0
}

// ListDocumentsOutput contains the result of the ListDocuments operation.
type ListDocumentsOutput struct {
	Collection string         `json:"collection"`
	Items      []DocumentItem `json:"items"`
	Pagination Pagination     `json:"pagination"`
	Sort       string         `json:"sort"`
}

// ListDocuments lists a collection's documents in insertion order.
func ListDocuments(_ context.Context, sh *Shelf, input ListDocumentsInput) (*ListDocumentsOutput, error) {
	name, err := existingCollection(sh, input.Collection)
	if err != nil {
		return nil, err
	}

	limit, offset := page(input.Limit, input.Offset, DefaultListLimit, MaxListLimit)

	docs := sh.Store.Documents(name)
	start, end := window(len(docs), limit, offset)

	items := make([]DocumentItem, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, DocumentItem{Position: i + 1, Document: docs[i]})
	}

	return &ListDocumentsOutput{
		Collection: name,
		Items:      items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: end < len(docs),
			Total:   len(docs),
		},
		Sort: "insertion_asc",
	}, nil
}
