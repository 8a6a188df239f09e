package index

import (
	"context"

	"github.com/hpungsan/shelf/internal/document"
)

// Row is one indexed line.
type Row struct {
	Collection string
	Filename   string
	LineNumber int
	Content    string
}

// Watermark identifies the version of a collection log that was last indexed:
// its modification time (UnixNano) and size in bytes.
type Watermark struct {
	ModTime int64
	Size    int64
}

// Engine is the storage and ranking backend of the index.
// Implementations must match text as a case-insensitive literal substring and
// order results so that lines with more occurrences come first.
type Engine interface {
	Begin(ctx context.Context) (EngineTx, error)
	QueryAndRank(ctx context.Context, text string, collections []string) ([]Row, error)

	Watermark(ctx context.Context, collection string) (Watermark, bool, error)

	Close() error
}

// EngineTx groups index writes into one atomic unit.
type EngineTx interface {
	DeleteByCollection(ctx context.Context, collection string) error
	InsertLines(ctx context.Context, collection, filename string, lines []document.Line) error
	SetWatermark(ctx context.Context, collection string, mark Watermark) error
	DeleteWatermark(ctx context.Context, collection string) error
	Commit() error
	Rollback() error
}
