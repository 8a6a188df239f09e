package ops

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/hpungsan/shelf/internal/config"
	"github.com/hpungsan/shelf/internal/document"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/index"
	"github.com/hpungsan/shelf/internal/logger"
	"github.com/hpungsan/shelf/internal/search"
	"github.com/hpungsan/shelf/internal/store"
)

// Pagination limits
const (
	DefaultListLimit      = 50
	MaxListLimit          = 500
	DefaultInventoryLimit = 100
	MaxInventoryLimit     = 1000
	MaxAddURLs            = 50
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Producer turns a URL into a finished document.
type Producer interface {
	Fetch(ctx context.Context, url string) (document.Document, error)
}

// Shelf bundles the store, index and search service for one base directory.
// Operations in this package are the only entry points callers should use.
type Shelf struct {
	Store   *store.Store
	Index   *index.Index
	Search  *search.Service
	Fetcher Producer
	Config  *config.Config

	log *slog.Logger
}

// Open wires a Shelf rooted at baseDir. fetcher may be nil for read-only
// callers; Add then fails.
func Open(baseDir string, cfg *config.Config, fetcher Producer) (*Shelf, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	st := store.New(baseDir)
	idx, err := index.Open(baseDir, st)
	if err != nil {
		return nil, err
	}
	idx.ConfigurePool(cfg)
	st.SetPurger(idx)

	return &Shelf{
		Store:   st,
		Index:   idx,
		Search:  search.NewService(st, idx),
		Fetcher: fetcher,
		Config:  cfg,
		log:     logger.WithComponent("ops"),
	}, nil
}

// Close releases the search database.
func (sh *Shelf) Close() error {
	return sh.Index.Close()
}

// normalizeCollection validates a required collection name.
func normalizeCollection(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.NewInvalidRequest("collection is required")
	}
	norm := store.NormalizeName(name)
	if norm == "" {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid collection name %q", name))
	}
	return norm, nil
}

// existingCollection validates name and requires the collection to exist.
func existingCollection(sh *Shelf, name string) (string, error) {
	norm, err := normalizeCollection(name)
	if err != nil {
		return "", err
	}
	if !sh.Store.Exists(norm) {
		return "", errors.NewNotFound("collection", norm)
	}
	return norm, nil
}

// ValidateURL accepts absolute http and https URLs.
func ValidateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.NewInvalidRequest("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid url %q: must be an absolute http(s) URL", raw))
	}
	return raw, nil
}

// page applies limit defaults and bounds.
func page(limit, offset, defaultLimit, maxLimit int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, max(offset, 0)
}

// window returns the [offset, offset+limit) slice bounds clamped to total.
func window(total, limit, offset int) (int, int) {
	start := min(offset, total)
	end := min(start+limit, total)
	return start, end
}
