package ops

import (
	"context"
	"slices"
	"time"
)

// CreateCollectionInput contains parameters for the CreateCollection operation.
type CreateCollectionInput struct {
	Name string
}

// CreateCollectionOutput contains the result of the CreateCollection operation.
type CreateCollectionOutput struct {
	Name    string `json:"name"`
	Created bool   `json:"created"` // false if it already existed
}

// CreateCollection creates an empty collection. Creating an existing
// collection is not an error.
func CreateCollection(_ context.Context, sh *Shelf, input CreateCollectionInput) (*CreateCollectionOutput, error) {
	name, err := normalizeCollection(input.Name)
	if err != nil {
		return nil, err
	}

	existed := sh.Store.Exists(name)
	if _, err := sh.Store.Create(name); err != nil {
		return nil, err
	}
	return &CreateCollectionOutput{Name: name, Created: !existed}, nil
}

// ListCollectionsInput contains parameters for the ListCollections operation.
type ListCollectionsInput struct{}

// CollectionSummary describes one collection from the global aggregate.
type CollectionSummary struct {
	Name       string     `json:"name"`
	EntryCount int        `json:"entry_count"`
	LastAdded  *time.Time `json:"last_added,omitempty"`
}

// ListCollectionsOutput contains the result of the ListCollections operation.
type ListCollectionsOutput struct {
	Collections  []CollectionSummary `json:"collections"`
	TotalEntries int                 `json:"total_entries"`
	LastUpdated  time.Time           `json:"last_updated"`
}

// ListCollections reads the global aggregate, sorted by collection name.
func ListCollections(_ context.Context, sh *Shelf, _ ListCollectionsInput) (*ListCollectionsOutput, error) {
	snap, err := sh.Store.LoadAggregate()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(snap.Collections))
	for name := range snap.Collections {
		names = append(names, name)
	}
	slices.Sort(names)

	items := make([]CollectionSummary, 0, len(names))
	for _, name := range names {
		stats := snap.Collections[name]
		items = append(items, CollectionSummary{
			Name:       name,
			EntryCount: stats.EntryCount,
			LastAdded:  stats.LastAdded,
		})
	}

	return &ListCollectionsOutput{
		Collections:  items,
		TotalEntries: snap.TotalEntries,
		LastUpdated:  snap.LastUpdated,
	}, nil
}

// DestroyInput contains parameters for the Destroy operation.
type DestroyInput struct {
	Collection string
}

// DestroyOutput contains the result of the Destroy operation.
type DestroyOutput struct {
	Destroyed  bool   `json:"destroyed"`
	Collection string `json:"collection"`
}

// Destroy deletes a collection with all its documents and search rows.
func Destroy(ctx context.Context, sh *Shelf, input DestroyInput) (*DestroyOutput, error) {
	name, err := existingCollection(sh, input.Collection)
	if err != nil {
		return nil, err
	}

	destroyed, err := sh.Store.Destroy(ctx, name)
	if err != nil {
		return nil, err
	}
	sh.log.Info("collection destroyed", "collection", name)

	return &DestroyOutput{Destroyed: destroyed, Collection: name}, nil
}
