package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/shelf/internal/document"
	"github.com/hpungsan/shelf/internal/errors"
)

// NormalizeName lowercases a collection name and collapses every run of
// non-alphanumerics into one hyphen.
func NormalizeName(name string) string {
	return document.Slugify(name)
}

// Exists reports whether the collection's directory exists.
func (s *Store) Exists(name string) bool {
	name = NormalizeName(name)
	if name == "" {
		return false
	}
	info, err := os.Stat(s.collectionDir(name))
	return err == nil && info.IsDir()
}

// Create makes an empty collection. It is idempotent and returns the
// normalized name.
func (s *Store) Create(name string) (string, error) {
	norm := NormalizeName(name)
	if norm == "" {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid collection name %q", name))
	}

	lock := s.lockFor(norm)
	lock.Lock()
	err := s.createLocked(norm)
	lock.Unlock()
	if err != nil {
		return "", err
	}

	if _, err := s.Rebuild(); err != nil {
		return norm, err
	}
	return norm, nil
}

func (s *Store) createLocked(name string) error {
	if err := os.MkdirAll(s.collectionDir(name), dirPerm); err != nil {
		return errors.NewInternal(fmt.Errorf("create collection directory: %w", err))
	}
	if _, err := os.Stat(s.logPath(name)); err == nil {
		return nil
	} else if !stderrors.Is(err, fs.ErrNotExist) {
		return errors.NewInternal(fmt.Errorf("stat collection log: %w", err))
	}
	return s.writeLog(name, nil)
}

// List returns every collection name, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, errors.NewInternal(fmt.Errorf("read base directory: %w", err))
	}

	names := []string{}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if NormalizeName(e.Name()) != e.Name() {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}

// Documents returns the collection's documents in insertion order.
// A missing collection or log yields an empty slice. A corrupted log also yields
// an empty slice: the file is left on disk and a warning is logged.
func (s *Store) Documents(name string) []document.Document {
	name = NormalizeName(name)
	if name == "" {
		return []document.Document{}
	}

	path := s.logPath(name)
	info, err := os.Stat(path)
	if err != nil {
		if !stderrors.Is(err, fs.ErrNotExist) {
			s.log.Warn("collection log unreadable", "collection", name, "path", path, "error", err)
		}
		return []document.Document{}
	}
	if docs, ok := s.cached(name, info); ok {
		return docs
	}

	docs, err := readLog(path)
	if err != nil {
		s.log.Warn("corrupted collection log, treating as empty",
			"collection", name,
			"path", path,
			"error", errors.NewStorageCorrupt(path, err),
		)
		docs = []document.Document{}
	}
	s.remember(name, info, docs)
	return slices.Clone(docs)
}

func readLog(path string) ([]document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var docs []document.Document
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []document.Document{}
	}
	return docs, nil
}

// writeLog persists the full log and drops the cached view.
func (s *Store) writeLog(name string, docs []document.Document) error {
	if docs == nil {
		docs = []document.Document{}
	}
	data, err := yaml.Marshal(docs)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("marshal collection log: %w", err))
	}
	defer s.invalidate(name)
	if err := writeFileAtomic(s.logPath(name), data); err != nil {
		return errors.NewInternal(fmt.Errorf("write collection log: %w", err))
	}
	return nil
}

// Add appends doc to the collection, creating the collection if needed.
// It returns false without error when the URL is already stored.
func (s *Store) Add(name string, doc document.Document) (bool, error) {
	norm := NormalizeName(name)
	if norm == "" {
		return false, errors.NewInvalidRequest(fmt.Sprintf("invalid collection name %q", name))
	}
	if doc.URL == "" {
		return false, errors.NewInvalidRequest("document url is required")
	}
	if !isSafeFilename(doc.Filename) {
		return false, errors.NewInvalidRequest(fmt.Sprintf("invalid document filename %q", doc.Filename))
	}

	lock := s.lockFor(norm)
	lock.Lock()
	added, err := s.addLocked(norm, doc)
	lock.Unlock()
	if err != nil || !added {
		return false, err
	}

	if _, err := s.Rebuild(); err != nil {
		return true, err
	}
	return true, nil
}

func (s *Store) addLocked(name string, doc document.Document) (bool, error) {
	if err := os.MkdirAll(s.collectionDir(name), dirPerm); err != nil {
		return false, errors.NewInternal(fmt.Errorf("create collection directory: %w", err))
	}

	docs := s.Documents(name)
	if slices.ContainsFunc(docs, func(d document.Document) bool { return d.URL == doc.URL }) {
		return false, nil
	}

	content, err := doc.Render()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	if err := writeFileAtomic(filepath.Join(s.collectionDir(name), doc.Filename), content); err != nil {
		return false, errors.NewInternal(fmt.Errorf("write content file: %w", err))
	}

	if err := s.writeLog(name, append(docs, doc.Summary())); err != nil {
		return false, err
	}
	return true, nil
}

// Find resolves identifier as a slug (a trailing ".md" is ignored) or, failing
// that, as a 1-based position in the log.
func (s *Store) Find(name, identifier string) (document.Document, bool) {
	return find(s.Documents(name), identifier)
}

func find(docs []document.Document, identifier string) (document.Document, bool) {
	identifier = strings.TrimSpace(identifier)
	slug := document.TrimExtension(identifier)
	for _, d := range docs {
		if d.Slug == slug {
			return d, true
		}
	}

	if !isDigits(identifier) {
		return document.Document{}, false
	}
	n, err := strconv.Atoi(identifier)
	if err != nil || n < 1 || n > len(docs) {
		return document.Document{}, false
	}
	return docs[n-1], true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Remove deletes the identified document and its content file.
// It returns false when the identifier does not resolve.
func (s *Store) Remove(name, identifier string) (document.Document, bool, error) {
	norm := NormalizeName(name)
	if norm == "" || !s.Exists(norm) {
		return document.Document{}, false, nil
	}

	lock := s.lockFor(norm)
	lock.Lock()
	doc, ok, err := s.removeLocked(norm, identifier)
	lock.Unlock()
	if err != nil || !ok {
		return document.Document{}, false, err
	}

	if _, err := s.Rebuild(); err != nil {
		return doc, true, err
	}
	return doc, true, nil
}

func (s *Store) removeLocked(name, identifier string) (document.Document, bool, error) {
	docs := s.Documents(name)
	doc, ok := find(docs, identifier)
	if !ok {
		return document.Document{}, false, nil
	}

	if isSafeFilename(doc.Filename) {
		err := os.Remove(filepath.Join(s.collectionDir(name), doc.Filename))
		if err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return document.Document{}, false, errors.NewInternal(fmt.Errorf("remove content file: %w", err))
		}
	}

	kept := slices.DeleteFunc(docs, func(d document.Document) bool { return d.URL == doc.URL })
	if err := s.writeLog(name, kept); err != nil {
		return document.Document{}, false, err
	}
	return doc, true, nil
}

// Destroy deletes the collection's directory, rebuilds the aggregate and
// purges the collection from the search index. It returns false if the
// collection did not exist.
func (s *Store) Destroy(ctx context.Context, name string) (bool, error) {
	norm := NormalizeName(name)
	if norm == "" || !s.Exists(norm) {
		return false, nil
	}

	lock := s.lockFor(norm)
	lock.Lock()
	err := os.RemoveAll(s.collectionDir(norm))
	s.invalidate(norm)
	lock.Unlock()
	if err != nil {
		return false, errors.NewInternal(fmt.Errorf("remove collection directory: %w", err))
	}

	if _, err := s.Rebuild(); err != nil {
		return true, err
	}
	if s.purger != nil {
		if err := s.purger.RemoveCollection(ctx, norm); err != nil {
			return true, err
		}
	}
	return true, nil
}

// LastAdded returns the latest savedAt in the collection.
func (s *Store) LastAdded(name string) (time.Time, bool) {
	return lastAdded(s.Documents(name))
}

func lastAdded(docs []document.Document) (time.Time, bool) {
	var latest time.Time
	for _, d := range docs {
		if d.SavedAt.After(latest) {
			latest = d.SavedAt
		}
	}
	return latest, !latest.IsZero()
}

// LogStat returns the modification time and size of the collection log, or
// zero values if the log does not exist.
func (s *Store) LogStat(name string) (time.Time, int64, error) {
	name = NormalizeName(name)
	info, err := os.Stat(s.logPath(name))
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return time.Time{}, 0, nil
		}
		return time.Time{}, 0, err
	}
	return info.ModTime(), info.Size(), nil
}

// ReadContent returns the raw content file of a document.
func (s *Store) ReadContent(name, filename string) ([]byte, error) {
	name = NormalizeName(name)
	if name == "" || !isSafeFilename(filename) {
		return nil, fs.ErrNotExist
	}
	return os.ReadFile(filepath.Join(s.collectionDir(name), filename))
}
