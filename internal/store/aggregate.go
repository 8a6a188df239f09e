package store

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/shelf/internal/errors"
)

// CollectionStats summarizes one collection in the aggregate.
type CollectionStats struct {
	EntryCount int        `yaml:"entry_count" json:"entry_count"`
	LastAdded  *time.Time `yaml:"last_added" json:"last_added,omitempty"`
}

// Snapshot is the global aggregate. It is derived from the collection logs and
// never edited in place.
type Snapshot struct {
	Collections  map[string]CollectionStats `yaml:"collections" json:"collections"`
	TotalEntries int                        `yaml:"total_entries" json:"total_entries"`
	LastUpdated  time.Time                  `yaml:"last_updated" json:"last_updated"`
}

// consistent reports whether TotalEntries matches the per-collection counts.
func (snap Snapshot) consistent() bool {
	sum := 0
	for _, c := range snap.Collections {
		if c.EntryCount < 0 {
			return false
		}
		sum += c.EntryCount
	}
	return sum == snap.TotalEntries
}

// Rebuild scans every collection, writes a fresh aggregate and returns it.
func (s *Store) Rebuild() (Snapshot, error) {
	s.aggMu.Lock()
	defer s.aggMu.Unlock()
	return s.rebuildLocked()
}

func (s *Store) rebuildLocked() (Snapshot, error) {
	names, err := s.List()
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Collections: make(map[string]CollectionStats, len(names)),
		LastUpdated: s.now().UTC().Truncate(time.Second),
	}
	for _, name := range names {
		docs := s.Documents(name)
		stats := CollectionStats{EntryCount: len(docs)}
		if t, ok := lastAdded(docs); ok {
			stats.LastAdded = &t
		}
		snap.Collections[name] = stats
		snap.TotalEntries += stats.EntryCount
	}

	data, err := yaml.Marshal(snap)
	if err != nil {
		return Snapshot{}, errors.NewInternal(fmt.Errorf("marshal aggregate: %w", err))
	}
	if err := os.MkdirAll(s.baseDir, dirPerm); err != nil {
		return Snapshot{}, errors.NewInternal(fmt.Errorf("create base directory: %w", err))
	}
	if err := writeFileAtomic(s.aggregatePath(), data); err != nil {
		return Snapshot{}, errors.NewInternal(fmt.Errorf("write aggregate: %w", err))
	}

	s.log.Debug("aggregate rebuilt", "collections", len(names), "total_entries", snap.TotalEntries)
	return snap, nil
}

// LoadAggregate returns the persisted aggregate, rebuilding it when the file is
// missing or malformed.
func (s *Store) LoadAggregate() (Snapshot, error) {
	s.aggMu.Lock()
	defer s.aggMu.Unlock()

	path := s.aggregatePath()
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("aggregate unreadable, rebuilding", "path", path, "error", err)
		}
		return s.rebuildLocked()
	}

	snap, err := parseSnapshot(data)
	if err != nil {
		s.log.Warn("corrupted aggregate, rebuilding",
			"path", path,
			"error", errors.NewStorageCorrupt(path, err),
		)
		return s.rebuildLocked()
	}
	return snap, nil
}

func parseSnapshot(data []byte) (Snapshot, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Snapshot{}, err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return Snapshot{}, fmt.Errorf("aggregate is not a mapping")
	}

	var snap Snapshot
	if err := root.Content[0].Decode(&snap); err != nil {
		return Snapshot{}, err
	}
	if snap.Collections == nil {
		snap.Collections = map[string]CollectionStats{}
	}
	if !snap.consistent() {
		return Snapshot{}, fmt.Errorf("total_entries %d does not match collection counts", snap.TotalEntries)
	}
	return snap, nil
}
