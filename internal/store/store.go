// Package store persists collections of documents on disk.
//
// Layout under the base directory:
//
//	<base>/index.yml                 global aggregate
//	<base>/<collection>/index.yml    collection log (ordered document metadata)
//	<base>/<collection>/<slug>.md    content file (frontmatter + body)
//
// The collection log is the only source of truth for a collection's documents.
// In-memory views are caches, dropped on every write to that log.
package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/hpungsan/shelf/internal/document"
	"github.com/hpungsan/shelf/internal/logger"
)

// LogFile is the name of both the per-collection log and the global aggregate.
const LogFile = "index.yml"

// Purger drops search state for a destroyed collection.
type Purger interface {
	RemoveCollection(ctx context.Context, name string) error
}

// Store owns every collection under one base directory.
// Mutations are serialized per collection; there is no cross-process locking.
type Store struct {
	baseDir string
	log     *slog.Logger
	now     func() time.Time
	purger  Purger

	mu     sync.Mutex
	caches map[string]*docCache
	locks  map[string]*sync.Mutex

	aggMu sync.Mutex
}

// docCache is the parsed log of one collection, valid while the log file's
// modification time and size are unchanged.
type docCache struct {
	modTime time.Time
	size    int64
	docs    []document.Document
}

// New returns a Store rooted at baseDir. The directory is created lazily.
func New(baseDir string) *Store {
	return &Store{
		baseDir: baseDir,
		log:     logger.WithComponent("store"),
		now:     time.Now,
		caches:  make(map[string]*docCache),
		locks:   make(map[string]*sync.Mutex),
	}
}

// SetPurger wires the search index so Destroy can remove its rows.
func (s *Store) SetPurger(p Purger) {
	s.purger = p
}

// BaseDir returns the root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

func (s *Store) collectionDir(name string) string {
	return filepath.Join(s.baseDir, name)
}

func (s *Store) logPath(name string) string {
	return filepath.Join(s.baseDir, name, LogFile)
}

func (s *Store) aggregatePath() string {
	return filepath.Join(s.baseDir, LogFile)
}

// lockFor returns the mutation lock for a collection.
func (s *Store) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

func (s *Store) invalidate(name string) {
	s.mu.Lock()
	delete(s.caches, name)
	s.mu.Unlock()
}

// cached returns the cached documents for name if the log is unchanged on disk.
func (s *Store) cached(name string, info os.FileInfo) ([]document.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.caches[name]
	if !ok || !c.modTime.Equal(info.ModTime()) || c.size != info.Size() {
		return nil, false
	}
	return slices.Clone(c.docs), true
}

func (s *Store) remember(name string, info os.FileInfo, docs []document.Document) {
	s.mu.Lock()
	s.caches[name] = &docCache{modTime: info.ModTime(), size: info.Size(), docs: docs}
	s.mu.Unlock()
}
