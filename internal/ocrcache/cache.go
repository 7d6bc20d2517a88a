package ocrcache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sejmwatch/bills-tracker/internal/common"
)

// WholeDocument is the page marker for a cache entry covering the whole
// document. It is a distinct key from every per-page entry.
const WholeDocument = -1

// Cache is a durable, directory-backed cache of OCR output keyed by
// (document id, page). Writes are best effort: a failed write is logged
// and never fails the caller's extraction. Concurrent readers are safe;
// concurrent writers to the same key are an operational constraint (run
// one ingestion process at a time), not an in-process guarantee.
type Cache struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// Stats summarizes the cache directory contents.
type Stats struct {
	FileCount  int
	TotalBytes int64
}

// New opens (or creates) the cache directory.
func New(dir string, logger *slog.Logger) (*Cache, error) {
	return NewWithClock(dir, time.Now, logger)
}

// NewWithClock is New with an injected clock, used by tests to drive
// age-based eviction deterministically.
func NewWithClock(dir string, now func() time.Time, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, common.WrapError(err, "creating cache directory")
	}
	return &Cache{dir: dir, now: now, logger: logger}, nil
}

// Get returns the cached text for (docID, page), or ok=false on a miss.
// An unreadable entry is treated as a miss, never as an error.
func (c *Cache) Get(docID string, page int) (string, bool) {
	path := filepath.Join(c.dir, entryName(docID, page))
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Put stores text under (docID, page). Failures are logged and reported
// but callers are expected to ignore them.
func (c *Cache) Put(docID, text string, page int) error {
	name := entryName(docID, page)
	if err := os.WriteFile(filepath.Join(c.dir, name), []byte(text), 0o644); err != nil {
		c.logger.Warn("ocrcache.write_failed", "entry", name, "error", err)
		return err
	}
	c.logger.Debug("ocrcache.stored", "entry", name, "bytes", len(text))
	return nil
}

// EvictOlderThan removes entries written more than the given number of
// days ago. Returns how many entries were removed.
func (c *Cache) EvictOlderThan(days int) (int, error) {
	cutoff := c.now().AddDate(0, 0, -days)
	entries, err := c.list()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.modTime.Before(cutoff) {
			if err := os.Remove(e.path); err != nil {
				c.logger.Warn("ocrcache.evict_failed", "entry", e.name, "error", err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}

// EvictOverSize removes oldest-by-write-time entries until the aggregate
// size is at or under maxBytes. It never removes a newer entry while an
// older one remains.
func (c *Cache) EvictOverSize(maxBytes int64) (int, error) {
	entries, err := c.list()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		total += e.size
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].modTime.Before(entries[j].modTime)
	})
	removed := 0
	for _, e := range entries {
		if total <= maxBytes {
			break
		}
		if err := os.Remove(e.path); err != nil {
			c.logger.Warn("ocrcache.evict_failed", "entry", e.name, "error", err)
			continue
		}
		total -= e.size
		removed++
	}
	return removed, nil
}

// ClearAll removes every cache entry.
func (c *Cache) ClearAll() (int, error) {
	entries, err := c.list()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if err := os.Remove(e.path); err != nil {
			c.logger.Warn("ocrcache.clear_failed", "entry", e.name, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// ClearFor removes all entries (per-page and whole-document) of one
// document.
func (c *Cache) ClearFor(docID string) (int, error) {
	prefix := "druk_" + sanitize(docID) + "_"
	entries, err := c.list()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if !strings.HasPrefix(e.name, prefix) {
			continue
		}
		if err := os.Remove(e.path); err != nil {
			c.logger.Warn("ocrcache.clear_failed", "entry", e.name, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Stats reports entry count and aggregate size.
func (c *Cache) Stats() (Stats, error) {
	entries, err := c.list()
	if err != nil {
		return Stats{}, err
	}
	s := Stats{FileCount: len(entries)}
	for _, e := range entries {
		s.TotalBytes += e.size
	}
	return s, nil
}

// Dir returns the backing directory path.
func (c *Cache) Dir() string {
	return c.dir
}

type entry struct {
	name    string
	path    string
	size    int64
	modTime time.Time
}

func (c *Cache) list() ([]entry, error) {
	dirents, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("reading cache directory: %w", err)
	}
	out := make([]entry, 0, len(dirents))
	for _, d := range dirents {
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".txt") {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		out = append(out, entry{
			name:    d.Name(),
			path:    filepath.Join(c.dir, d.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}
	return out, nil
}

func entryName(docID string, page int) string {
	id := sanitize(docID)
	if page == WholeDocument {
		return fmt.Sprintf("druk_%s_full.txt", id)
	}
	return fmt.Sprintf("druk_%s_page_%d.txt", id, page)
}

// sanitize keeps document ids safe as file name components.
func sanitize(docID string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '-'
		}
		return r
	}, docID)
}
