// Package search answers queries across collections: it refreshes stale
// collections in the index, runs one ranked query and joins the rows back to
// document metadata.
package search

import (
	"context"
	"strings"

	"github.com/hpungsan/shelf/internal/document"
	"github.com/hpungsan/shelf/internal/index"
)

// Collections is the read side of the collection store.
type Collections interface {
	Exists(name string) bool
	List() ([]string, error)
	Documents(name string) []document.Document
}

// Index is the part of the search index the service drives.
type Index interface {
	EnsureCurrent(ctx context.Context, collection string) (bool, error)
	Query(ctx context.Context, text string, collections []string) ([]index.Row, error)
}

// Match is one matching line of a document.
type Match struct {
	LineNumber int    `json:"line_number"`
	Snippet    string `json:"snippet"`
}

// Result groups the matches of one document.
type Result struct {
	CollectionName string            `json:"collection"`
	Document       document.Document `json:"document"`
	Matches        []Match           `json:"matches"`
}

// Service composes the collection store and the index.
type Service struct {
	collections Collections
	index       Index
}

// NewService returns a Service.
func NewService(collections Collections, idx Index) *Service {
	return &Service{collections: collections, index: idx}
}

// Search runs query against one collection, or all collections when
// collection is empty. A named collection that does not exist yields no
// results. Results keep the rank order of their best row.
func (s *Service) Search(ctx context.Context, query, collection string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	targets, err := s.targets(collection)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return []Result{}, nil
	}

	for _, name := range targets {
		if _, err := s.index.EnsureCurrent(ctx, name); err != nil {
			return nil, err
		}
	}

	rows, err := s.index.Query(ctx, query, targets)
	if err != nil {
		return nil, err
	}
	return s.build(targets, rows, query), nil
}

func (s *Service) targets(collection string) ([]string, error) {
	if collection != "" {
		if !s.collections.Exists(collection) {
			return nil, nil
		}
		return []string{document.Slugify(collection)}, nil
	}
	return s.collections.List()
}

type groupKey struct {
	collection string
	filename   string
}

// build groups rows by document in first-appearance order and drops groups
// whose file is no longer in the collection log.
func (s *Service) build(targets []string, rows []index.Row, query string) []Result {
	lookup := make(map[groupKey]document.Document)
	for _, name := range targets {
		for _, doc := range s.collections.Documents(name) {
			lookup[groupKey{name, doc.Filename}] = doc
		}
	}

	results := []Result{}
	positions := make(map[groupKey]int)
	for _, row := range rows {
		key := groupKey{row.Collection, row.Filename}
		doc, ok := lookup[key]
		if !ok {
			continue
		}
		match := Match{LineNumber: row.LineNumber, Snippet: Snippet(row.Content, query)}

		if i, seen := positions[key]; seen {
			results[i].Matches = append(results[i].Matches, match)
			continue
		}
		positions[key] = len(results)
		results = append(results, Result{
			CollectionName: row.Collection,
			Document:       doc,
			Matches:        []Match{match},
		})
	}
	return results
}
