package ops

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/hpungsan/shelf/internal/document"
	"github.com/hpungsan/shelf/internal/store"
)

// InventoryInput contains parameters for the Inventory operation.
type InventoryInput struct {
	Collection *string // optional filter
	TitleQuery *string // optional case-insensitive title substring
	Limit      int     // default: 100, max: 1000
	Offset     int     // default: 0
}

// InventoryItem is one document with its collection.
type InventoryItem struct {
	Collection string `json:"collection"`
	Position   int    `json:"position"`
	document.Document
}

// InventoryOutput contains the result of the Inventory operation.
type InventoryOutput struct {
	Items      []InventoryItem `json:"items"`
	Pagination Pagination      `json:"pagination"`
	Sort       string          `json:"sort"`
}

// Inventory lists documents across all collections, newest first.
func Inventory(_ context.Context, sh *Shelf, input InventoryInput) (*InventoryOutput, error) {
	var names []string
	if input.Collection != nil && strings.TrimSpace(*input.Collection) != "" {
		name := store.NormalizeName(*input.Collection)
		if sh.Store.Exists(name) {
			names = []string{name}
		}
	} else {
		var err error
		names, err = sh.Store.List()
		if err != nil {
			return nil, err
		}
	}

	titleQuery := ""
	if input.TitleQuery != nil {
		titleQuery = strings.ToLower(strings.TrimSpace(*input.TitleQuery))
	}

	all := []InventoryItem{}
	for _, name := range names {
		for i, doc := range sh.Store.Documents(name) {
			if titleQuery != "" && !strings.Contains(strings.ToLower(doc.Title), titleQuery) {
				continue
			}
			all = append(all, InventoryItem{Collection: name, Position: i + 1, Document: doc})
		}
	}

	slices.SortStableFunc(all, func(a, b InventoryItem) int {
		if c := b.SavedAt.Compare(a.SavedAt); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Collection, b.Collection); c != 0 {
			return c
		}
		return cmp.Compare(b.Position, a.Position)
	})

	limit, offset := page(input.Limit, input.Offset, DefaultInventoryLimit, MaxInventoryLimit)
	start, end := window(len(all), limit, offset)

	return &InventoryOutput{
		Items: all[start:end],
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: end < len(all),
			Total:   len(all),
		},
		Sort: "saved_at_desc",
	}, nil
}
