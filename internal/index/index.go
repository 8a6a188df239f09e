// Package index keeps a line-level full-text index over stored documents and
// tracks, per collection, whether the index is current with the collection log.
package index

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hpungsan/shelf/internal/config"
	"github.com/hpungsan/shelf/internal/document"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/logger"
)

// Source is the read side of the collection store that reindexing needs.
type Source interface {
	Documents(name string) []document.Document
	LogStat(name string) (time.Time, int64, error)
	ReadContent(name, filename string) ([]byte, error)
}

// Index composes an Engine with freshness tracking.
type Index struct {
	engine Engine
	src    Source
	log    *slog.Logger

	// mu serializes reindex and purge so two callers never rebuild the same
	// collection at once.
	mu sync.Mutex
}

// New wraps an engine.
func New(engine Engine, src Source) *Index {
	return &Index{
		engine: engine,
		src:    src,
		log:    logger.WithComponent("index"),
	}
}

// Open opens the SQLite engine in baseDir and wraps it.
func Open(baseDir string, src Source) (*Index, error) {
	engine, err := OpenSQLite(baseDir)
	if err != nil {
		return nil, errors.NewSearchUnavailable(err)
	}
	return New(engine, src), nil
}

// ConfigurePool tunes the SQLite connection pool. Other engines ignore it.
func (ix *Index) ConfigurePool(cfg *config.Config) {
	if e, ok := ix.engine.(*SQLiteEngine); ok {
		e.ConfigurePool(cfg)
	}
}

// Close closes the engine.
func (ix *Index) Close() error {
	return ix.engine.Close()
}

// currentWatermark reads the log's modification time and size. A missing log
// is the zero Watermark.
func (ix *Index) currentWatermark(collection string) (Watermark, error) {
	mtime, size, err := ix.src.LogStat(collection)
	if err != nil {
		return Watermark{}, errors.NewSearchUnavailable(fmt.Errorf("stat log for %s: %w", collection, err))
	}
	if mtime.IsZero() {
		return Watermark{}, nil
	}
	return Watermark{ModTime: mtime.UnixNano(), Size: size}, nil
}

// EnsureCurrent reindexes collection if it has no watermark or the watermark no
// longer matches the log. It reports whether a reindex ran.
func (ix *Index) EnsureCurrent(ctx context.Context, collection string) (bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	current, err := ix.currentWatermark(collection)
	if err != nil {
		return false, err
	}
	stored, ok, err := ix.engine.Watermark(ctx, collection)
	if err != nil {
		return false, errors.NewSearchUnavailable(err)
	}
	if ok && stored == current {
		return false, nil
	}

	if _, err := ix.reindexLocked(ctx, collection); err != nil {
		return false, err
	}
	return true, nil
}

// Reindex rebuilds every row of collection in one transaction and records the
// new watermark. It returns the number of lines indexed.
func (ix *Index) Reindex(ctx context.Context, collection string) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.reindexLocked(ctx, collection)
}

func (ix *Index) reindexLocked(ctx context.Context, collection string) (int, error) {
	// Capture the watermark before reading, so a write that lands mid-reindex
	// leaves the collection stale rather than falsely current.
	mark, err := ix.currentWatermark(collection)
	if err != nil {
		return 0, err
	}

	tx, err := ix.engine.Begin(ctx)
	if err != nil {
		return 0, errors.NewSearchUnavailable(err)
	}
	defer tx.Rollback()

	if err := tx.DeleteByCollection(ctx, collection); err != nil {
		return 0, errors.NewSearchUnavailable(err)
	}

	total := 0
	for _, doc := range ix.src.Documents(collection) {
		raw, err := ix.src.ReadContent(collection, doc.Filename)
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				continue
			}
			return 0, errors.NewSearchUnavailable(fmt.Errorf("read %s/%s: %w", collection, doc.Filename, err))
		}

		lines := indexableLines(string(raw))
		if err := tx.InsertLines(ctx, collection, doc.Filename, lines); err != nil {
			return 0, errors.NewSearchUnavailable(err)
		}
		total += len(lines)
	}

	if err := tx.SetWatermark(ctx, collection, mark); err != nil {
		return 0, errors.NewSearchUnavailable(err)
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.NewSearchUnavailable(fmt.Errorf("commit reindex: %w", err))
	}

	ix.log.Debug("collection reindexed", "collection", collection, "lines", total)
	return total, nil
}

// indexableLines returns the non-blank lines after any frontmatter, numbered by
// their position in the raw file.
func indexableLines(content string) []document.Line {
	content = strings.ToValidUTF8(content, "\uFFFD")
	var out []document.Line
	for _, l := range document.SkipFrontmatter(document.SplitLines(content)) {
		if strings.TrimSpace(l.Text) == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Query returns rows whose line contains text, restricted to collections and
// ordered by relevance.
func (ix *Index) Query(ctx context.Context, text string, collections []string) ([]Row, error) {
	rows, err := ix.engine.QueryAndRank(ctx, text, collections)
	if err != nil {
		return nil, errors.NewSearchUnavailable(err)
	}
	return rows, nil
}

// RemoveCollection deletes all rows and the watermark for name.
func (ix *Index) RemoveCollection(ctx context.Context, name string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	tx, err := ix.engine.Begin(ctx)
	if err != nil {
		return errors.NewSearchUnavailable(err)
	}
	defer tx.Rollback()

	if err := tx.DeleteByCollection(ctx, name); err != nil {
		return errors.NewSearchUnavailable(err)
	}
	if err := tx.DeleteWatermark(ctx, name); err != nil {
		return errors.NewSearchUnavailable(err)
	}
	if err := tx.Commit(); err != nil {
		return errors.NewSearchUnavailable(fmt.Errorf("commit purge: %w", err))
	}
	return nil
}
