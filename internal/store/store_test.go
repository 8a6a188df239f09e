package store

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/shelf/internal/document"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/logger"
)

var baseTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newDoc(url, title string, at time.Time) document.Document {
	return document.New(document.NewInput{
		URL:        url,
		Title:      title,
		Markdown:   "# " + title + "\n\nBody of " + title + ".",
		Conversion: document.ConversionRemote,
		TokenCount: -1,
	}, at)
}

type fakePurger struct {
	removed []string
}

func (p *fakePurger) RemoveCollection(_ context.Context, name string) error {
	p.removed = append(p.removed, name)
	return nil
}

// assertAggregateConsistent checks the persisted aggregate against the logs.
func assertAggregateConsistent(t *testing.T, s *Store) {
	t.Helper()
	snap, err := s.LoadAggregate()
	require.NoError(t, err)

	sum := 0
	for _, c := range snap.Collections {
		sum += c.EntryCount
	}
	assert.Equal(t, sum, snap.TotalEntries)

	names, err := s.List()
	require.NoError(t, err)
	assert.Len(t, snap.Collections, len(names))
	for _, name := range names {
		assert.Equal(t, len(s.Documents(name)), snap.Collections[name].EntryCount, name)
	}
}

func TestCreate(t *testing.T) {
	s := New(t.TempDir())

	name, err := s.Create("My Ruby Notes!")
	require.NoError(t, err)
	assert.Equal(t, "my-ruby-notes", name)
	assert.True(t, s.Exists("my-ruby-notes"))
	assert.True(t, s.Exists("My Ruby Notes"))
	assert.FileExists(t, filepath.Join(s.BaseDir(), "my-ruby-notes", LogFile))
	assert.Empty(t, s.Documents(name))

	// Idempotent, and does not clobber existing documents.
	_, err = s.Add(name, newDoc("https://example.com/a", "A", baseTime))
	require.NoError(t, err)
	_, err = s.Create(name)
	require.NoError(t, err)
	assert.Len(t, s.Documents(name), 1)

	assertAggregateConsistent(t, s)
}

func TestCreate_InvalidName(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.Create("!!!")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestList_SortedDirectoriesOnly(t *testing.T) {
	s := New(t.TempDir())

	for _, n := range []string{"python", "ruby", "go"} {
		_, err := s.Create(n)
		require.NoError(t, err)
	}
	require.NoError(t, os.Mkdir(filepath.Join(s.BaseDir(), ".hidden"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(s.BaseDir(), "search.db"), []byte("x"), 0600))

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "python", "ruby"}, names)
}

func TestList_MissingBaseDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nope"))

	names, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestAdd_DistinctAndDuplicate(t *testing.T) {
	s := New(t.TempDir())

	const n = 5
	for i := 0; i < n; i++ {
		url := "https://example.com/" + strconv.Itoa(i)
		added, err := s.Add("ruby", newDoc(url, "Doc "+strconv.Itoa(i), baseTime.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
		assert.True(t, added)
		assertAggregateConsistent(t, s)
	}
	assert.Len(t, s.Documents("ruby"), n)

	// Re-adding any URL is rejected without error.
	added, err := s.Add("ruby", newDoc("https://example.com/2", "Other title", baseTime))
	require.NoError(t, err)
	assert.False(t, added)

	docs := s.Documents("ruby")
	require.Len(t, docs, n)
	seen := map[string]int{}
	for _, d := range docs {
		seen[d.URL]++
	}
	for url, count := range seen {
		assert.Equal(t, 1, count, url)
	}

	// Insertion order is kept.
	assert.Equal(t, "https://example.com/0", docs[0].URL)
	assert.Equal(t, "https://example.com/4", docs[4].URL)
	assertAggregateConsistent(t, s)
}

func TestAdd_WritesContentFile(t *testing.T) {
	s := New(t.TempDir())
	doc := newDoc("https://example.com/fibers", "Fibers", baseTime)

	added, err := s.Add("ruby", doc)
	require.NoError(t, err)
	require.True(t, added)

	raw, err := s.ReadContent("ruby", doc.Filename)
	require.NoError(t, err)
	meta, body, err := document.ParseFrontmatter(string(raw))
	require.NoError(t, err)
	assert.Equal(t, doc.URL, meta["url"])
	assert.Contains(t, body, "Body of Fibers.")

	// The log never carries the body.
	logData, err := os.ReadFile(filepath.Join(s.BaseDir(), "ruby", LogFile))
	require.NoError(t, err)
	assert.NotContains(t, string(logData), "Body of Fibers.")
	assert.Contains(t, string(logData), "conversion: remote")
}

func TestAdd_RejectsUnsafeFilename(t *testing.T) {
	s := New(t.TempDir())
	doc := newDoc("https://example.com/x", "X", baseTime)
	doc.Filename = "../escape.md"

	_, err := s.Add("ruby", doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestFind(t *testing.T) {
	s := New(t.TempDir())
	first := newDoc("https://example.com/1", "First", baseTime)
	second := newDoc("https://example.com/2", "Second", baseTime.Add(time.Hour))
	_, err := s.Add("ruby", first)
	require.NoError(t, err)
	_, err = s.Add("ruby", second)
	require.NoError(t, err)

	got, ok := s.Find("ruby", "2")
	require.True(t, ok)
	assert.Equal(t, second.URL, got.URL)

	got, ok = s.Find("ruby", "1")
	require.True(t, ok)
	assert.Equal(t, first.URL, got.URL)

	_, ok = s.Find("ruby", "99")
	assert.False(t, ok)
	_, ok = s.Find("ruby", "0")
	assert.False(t, ok)
	_, ok = s.Find("ruby", "-1")
	assert.False(t, ok)

	got, ok = s.Find("ruby", second.Slug)
	require.True(t, ok)
	assert.Equal(t, second.URL, got.URL)

	got, ok = s.Find("ruby", second.Filename)
	require.True(t, ok)
	assert.Equal(t, second.URL, got.URL)

	_, ok = s.Find("ruby", "no-such-slug")
	assert.False(t, ok)
	_, ok = s.Find("missing", "1")
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	s := New(t.TempDir())
	doc := newDoc("https://example.com/1", "First", baseTime)
	other := newDoc("https://example.com/2", "Second", baseTime)
	_, err := s.Add("ruby", doc)
	require.NoError(t, err)
	_, err = s.Add("ruby", other)
	require.NoError(t, err)

	removed, ok, err := s.Remove("ruby", doc.Slug)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, doc.URL, removed.URL)

	_, found := s.Find("ruby", doc.Slug)
	assert.False(t, found)
	assert.NoFileExists(t, filepath.Join(s.BaseDir(), "ruby", doc.Filename))
	assert.FileExists(t, filepath.Join(s.BaseDir(), "ruby", other.Filename))
	assert.Len(t, s.Documents("ruby"), 1)
	assertAggregateConsistent(t, s)
}

func TestRemove_MissingContentFile(t *testing.T) {
	s := New(t.TempDir())
	doc := newDoc("https://example.com/1", "First", baseTime)
	_, err := s.Add("ruby", doc)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(s.BaseDir(), "ruby", doc.Filename)))

	_, ok, err := s.Remove("ruby", "1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, s.Documents("ruby"))
}

func TestRemove_NotFound(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Create("ruby")
	require.NoError(t, err)

	_, ok, err := s.Remove("ruby", "7")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Remove("missing", "1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDestroy(t *testing.T) {
	s := New(t.TempDir())
	p := &fakePurger{}
	s.SetPurger(p)

	_, err := s.Add("ruby", newDoc("https://example.com/1", "First", baseTime))
	require.NoError(t, err)
	_, err = s.Add("python", newDoc("https://example.com/2", "Second", baseTime))
	require.NoError(t, err)

	ok, err := s.Destroy(context.Background(), "ruby")
	require.NoError(t, err)
	assert.True(t, ok)

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"python"}, names)
	assert.False(t, s.Exists("ruby"))
	assert.Empty(t, s.Documents("ruby"))
	assert.Equal(t, []string{"ruby"}, p.removed)

	snap, err := s.LoadAggregate()
	require.NoError(t, err)
	assert.NotContains(t, snap.Collections, "ruby")
	assert.Equal(t, 1, snap.TotalEntries)

	ok, err = s.Destroy(context.Background(), "ruby")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLastAdded(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Create("ruby")
	require.NoError(t, err)

	_, ok := s.LastAdded("ruby")
	assert.False(t, ok)

	later := baseTime.Add(48 * time.Hour)
	_, err = s.Add("ruby", newDoc("https://example.com/late", "Late", later))
	require.NoError(t, err)
	_, err = s.Add("ruby", newDoc("https://example.com/early", "Early", baseTime))
	require.NoError(t, err)

	got, ok := s.LastAdded("ruby")
	require.True(t, ok)
	assert.True(t, got.Equal(later))
}

func TestDocuments_CorruptLog(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	logger.SetupWriter(&buf, "warn", "text")

	s := New(t.TempDir())
	_, err := s.Create("ruby")
	require.NoError(t, err)

	logPath := filepath.Join(s.BaseDir(), "ruby", LogFile)
	corrupt := []byte("- url: [unclosed\n  title: broken\n")
	require.NoError(t, os.WriteFile(logPath, corrupt, 0600))

	assert.Empty(t, s.Documents("ruby"))
	assert.Contains(t, buf.String(), "corrupted collection log")
	assert.Contains(t, buf.String(), "collection=ruby")

	// The file is left untouched by reads.
	onDisk, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, corrupt, onDisk)

	// The aggregate counts the corrupted collection as empty.
	snap, err := s.Rebuild()
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Collections["ruby"].EntryCount)
}

func TestAdd_AfterCorruptLogReplacesFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	logger.SetupWriter(&bytes.Buffer{}, "error", "text")

	s := New(t.TempDir())
	_, err := s.Add("ruby", newDoc("https://example.com/old", "Old", baseTime))
	require.NoError(t, err)

	logPath := filepath.Join(s.BaseDir(), "ruby", LogFile)
	require.NoError(t, os.WriteFile(logPath, []byte("{{{ not yaml"), 0600))

	added, err := s.Add("ruby", newDoc("https://example.com/new", "New", baseTime))
	require.NoError(t, err)
	require.True(t, added)

	docs := s.Documents("ruby")
	require.Len(t, docs, 1)
	assert.Equal(t, "https://example.com/new", docs[0].URL)
}

func TestDocuments_SeesExternalLogChanges(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Add("ruby", newDoc("https://example.com/1", "One", baseTime))
	require.NoError(t, err)
	require.Len(t, s.Documents("ruby"), 1)

	// Another writer rewrites the log with a different size.
	require.NoError(t, os.WriteFile(filepath.Join(s.BaseDir(), "ruby", LogFile), []byte("[]\n"), 0600))
	assert.Empty(t, s.Documents("ruby"))
}

func TestDocuments_ReturnsCopy(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Add("ruby", newDoc("https://example.com/1", "One", baseTime))
	require.NoError(t, err)

	docs := s.Documents("ruby")
	docs[0].Title = "mutated"
	assert.Equal(t, "One", s.Documents("ruby")[0].Title)
}

func TestLoadAggregate_RebuildsWhenMissing(t *testing.T) {
	s := New(t.TempDir())
	s.now = func() time.Time { return baseTime }

	snap, err := s.LoadAggregate()
	require.NoError(t, err)
	assert.Empty(t, snap.Collections)
	assert.Equal(t, 0, snap.TotalEntries)
	assert.True(t, snap.LastUpdated.Equal(baseTime))
	assert.FileExists(t, filepath.Join(s.BaseDir(), LogFile))
}

func TestLoadAggregate_RoundTrip(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Add("ruby", newDoc("https://example.com/1", "One", baseTime))
	require.NoError(t, err)
	_, err = s.Create("empty")
	require.NoError(t, err)

	snap, err := s.LoadAggregate()
	require.NoError(t, err)
	assert.Equal(t, 1, snap.TotalEntries)
	require.NotNil(t, snap.Collections["ruby"].LastAdded)
	assert.True(t, snap.Collections["ruby"].LastAdded.Equal(baseTime))
	assert.Nil(t, snap.Collections["empty"].LastAdded)
}

func TestLoadAggregate_MalformedIsRebuilt(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		name    string
		content string
	}{
		{name: "syntax error", content: "collections: [unclosed"},
		{name: "not a mapping", content: "- a\n- b\n"},
		{name: "scalar", content: "hello"},
		{name: "wrong types", content: "collections: 5\ntotal_entries: x\n"},
		{name: "inconsistent total", content: "collections:\n  ruby:\n    entry_count: 1\ntotal_entries: 9\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger.SetupWriter(&buf, "warn", "text")

			s := New(t.TempDir())
			_, err := s.Add("ruby", newDoc("https://example.com/1", "One", baseTime))
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(filepath.Join(s.BaseDir(), LogFile), []byte(tt.content), 0600))

			snap, err := s.LoadAggregate()
			require.NoError(t, err)
			assert.Equal(t, 1, snap.TotalEntries)
			assert.Equal(t, 1, snap.Collections["ruby"].EntryCount)
			assert.Contains(t, buf.String(), "rebuilding")
		})
	}
}

func TestAggregate_ConsistentAcrossMutations(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	steps := []func() error{
		func() error { _, err := s.Create("a"); return err },
		func() error { _, err := s.Add("a", newDoc("https://x/1", "1", baseTime)); return err },
		func() error { _, err := s.Add("b", newDoc("https://x/2", "2", baseTime)); return err },
		func() error { _, err := s.Add("b", newDoc("https://x/3", "3", baseTime)); return err },
		func() error { _, _, err := s.Remove("b", "1"); return err },
		func() error { _, err := s.Destroy(ctx, "a"); return err },
		func() error { _, err := s.Add("c", newDoc("https://x/4", "4", baseTime)); return err },
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		assertAggregateConsistent(t, s)
	}

	snap, err := s.LoadAggregate()
	require.NoError(t, err)
	assert.Equal(t, 2, snap.TotalEntries)
}

func TestLogStat(t *testing.T) {
	s := New(t.TempDir())

	mt, size, err := s.LogStat("ruby")
	require.NoError(t, err)
	assert.True(t, mt.IsZero())
	assert.Zero(t, size)

	_, err = s.Create("ruby")
	require.NoError(t, err)
	mt, emptySize, err := s.LogStat("ruby")
	require.NoError(t, err)
	assert.False(t, mt.IsZero())

	_, err = s.Add("ruby", newDoc("https://example.com/1", "One", baseTime))
	require.NoError(t, err)
	_, size, err = s.LogStat("ruby")
	require.NoError(t, err)
	assert.Greater(t, size, emptySize)
}

func TestReadContent_RejectsTraversal(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.ReadContent("ruby", "../index.yml")
	require.Error(t, err)
}
