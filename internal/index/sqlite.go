package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/shelf/internal/config"
	"github.com/hpungsan/shelf/internal/document"
	_ "modernc.org/sqlite"
)

// DBFile is the search database name inside the base directory.
const DBFile = "search.db"

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// minTrigramRunes is the shortest query the trigram tokenizer can match.
// Shorter queries fall back to a LIKE scan.
const minTrigramRunes = 3

// SQLiteEngine stores lines in an FTS5 table using the trigram tokenizer,
// which gives case-insensitive substring matching ranked by bm25.
type SQLiteEngine struct {
	db *sql.DB
}

var _ Engine = (*SQLiteEngine)(nil)

// OpenSQLite opens (creating if needed) baseDir/search.db and migrates it.
func OpenSQLite(baseDir string) (*SQLiteEngine, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	// Pragmas in the connection string apply to every pooled connection.
	dbPath := filepath.Join(baseDir, DBFile)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open search database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return &SQLiteEngine{db: db}, nil
}

// DB exposes the underlying handle for pool tuning and tests.
func (e *SQLiteEngine) DB() *sql.DB {
	return e.db
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func (e *SQLiteEngine) ConfigurePool(cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		e.db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		e.db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// Close closes the database.
func (e *SQLiteEngine) Close() error {
	return e.db.Close()
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: line table + watermarks
	if version < 1 {
		schema := `
		CREATE VIRTUAL TABLE IF NOT EXISTS search_lines USING fts5(
		  collection UNINDEXED,
		  filename UNINDEXED,
		  line_number UNINDEXED,
		  content,
		  tokenize='trigram case_sensitive 0'
		);

		CREATE TABLE IF NOT EXISTS watermarks (
		  collection TEXT PRIMARY KEY,
		  log_mtime  INTEGER NOT NULL,
		  log_size   INTEGER NOT NULL
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// Watermark implements Engine.
func (e *SQLiteEngine) Watermark(ctx context.Context, collection string) (Watermark, bool, error) {
	var w Watermark
	err := e.db.QueryRowContext(ctx,
		"SELECT log_mtime, log_size FROM watermarks WHERE collection = ?", collection,
	).Scan(&w.ModTime, &w.Size)
	if err == sql.ErrNoRows {
		return Watermark{}, false, nil
	}
	if err != nil {
		return Watermark{}, false, fmt.Errorf("read watermark: %w", err)
	}
	return w, true, nil
}

// QueryAndRank implements Engine.
func (e *SQLiteEngine) QueryAndRank(ctx context.Context, text string, collections []string) ([]Row, error) {
	if text == "" || len(collections) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(collections)), ", ")
	args := make([]any, 0, len(collections)+1)

	var query string
	short := utf8.RuneCountInString(text) < minTrigramRunes
	if short {
		// SQLite's LIKE folds ASCII only; candidate lines are matched in Go.
		query = "SELECT collection, filename, line_number, content FROM search_lines " +
			"WHERE collection IN (" + placeholders + ")"
	} else {
		query = "SELECT collection, filename, line_number, content FROM search_lines " +
			"WHERE search_lines MATCH ? AND collection IN (" + placeholders + ") " +
			"ORDER BY rank, collection, filename, line_number"
		args = append(args, quotePhrase(text))
	}
	for _, c := range collections {
		args = append(args, c)
	}

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query search lines: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var lineNumber int64
		if err := rows.Scan(&r.Collection, &r.Filename, &lineNumber, &r.Content); err != nil {
			return nil, fmt.Errorf("scan search line: %w", err)
		}
		r.LineNumber = int(lineNumber)
		if short && !containsFold(r.Content, text) {
			continue
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search lines: %w", err)
	}

	if short {
		rankByDensity(out, text)
	}
	return out, nil
}

// quotePhrase makes text a single FTS5 phrase so operators and punctuation
// match literally.
func quotePhrase(text string) string {
	return `"` + strings.ReplaceAll(text, `"`, `""`) + `"`
}


// Begin implements Engine.
func (e *SQLiteEngine) Begin(ctx context.Context) (EngineTx, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &sqliteTx{tx: tx}, nil
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) DeleteByCollection(ctx context.Context, collection string) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM search_lines WHERE collection = ?", collection); err != nil {
		return fmt.Errorf("delete search lines: %w", err)
	}
	return nil
}

func (t *sqliteTx) InsertLines(ctx context.Context, collection, filename string, lines []document.Line) error {
	if len(lines) == 0 {
		return nil
	}
	stmt, err := t.tx.PrepareContext(ctx,
		"INSERT INTO search_lines (collection, filename, line_number, content) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range lines {
		if _, err := stmt.ExecContext(ctx, collection, filename, l.Number, l.Text); err != nil {
			return fmt.Errorf("insert search line %s:%d: %w", filename, l.Number, err)
		}
	}
	return nil
}

func (t *sqliteTx) SetWatermark(ctx context.Context, collection string, mark Watermark) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO watermarks (collection, log_mtime, log_size) VALUES (?, ?, ?) "+
			"ON CONFLICT(collection) DO UPDATE SET log_mtime = excluded.log_mtime, log_size = excluded.log_size",
		collection, mark.ModTime, mark.Size)
	if err != nil {
		return fmt.Errorf("set watermark: %w", err)
	}
	return nil
}

func (t *sqliteTx) DeleteWatermark(ctx context.Context, collection string) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM watermarks WHERE collection = ?", collection); err != nil {
		return fmt.Errorf("delete watermark: %w", err)
	}
	return nil
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}
