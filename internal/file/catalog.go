package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// CatalogFileName is the catalog document kept in the metadata directory.
const CatalogFileName = "file_metadata.json"

// Catalog is the durable, insertion-ordered collection of live records.
// Every mutating call has persisted its effect once it returns nil.
type Catalog interface {
	Append(ctx context.Context, rec Record) error
	FindByToken(ctx context.Context, code string) (Record, bool, error)
	RemoveByToken(ctx context.Context, code string) (Record, bool, error)
	List(ctx context.Context) ([]Record, error)
	Len(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// JSONCatalog stores the catalog as a single JSON array document.
// The whole document is loaded on first access and rewritten on every
// mutation through a temp file and rename. One mutex serializes all access.
type JSONCatalog struct {
	dir    string
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	loaded  bool
	records []Record
}

// NewJSONCatalog returns a catalog persisted at dir/file_metadata.json.
func NewJSONCatalog(dir string, logger *zap.Logger) *JSONCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	dir = filepath.Clean(dir)
	return &JSONCatalog{
		dir:    dir,
		path:   filepath.Join(dir, CatalogFileName),
		logger: logger,
	}
}

// Path returns the location of the catalog document.
func (c *JSONCatalog) Path() string {
	return c.path
}

// loadLocked reads the document once. A missing document is an empty catalog
// and unreadable entries are skipped. Caller must hold c.mu.
func (c *JSONCatalog) loadLocked() error {
	if c.loaded {
		return nil
	}

	raw, err := os.ReadFile(c.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		c.records = nil
	case err != nil:
		return fmt.Errorf("%w: read catalog: %w", ErrIO, err)
	default:
		c.records = dropInvalid(c.decodeEntries(raw), c.logger)
	}

	c.loaded = true
	return nil
}

// decodeEntries decodes the document entry by entry so one bad entry costs
// only itself. A document that is not a JSON array yields no records.
func (c *JSONCatalog) decodeEntries(raw []byte) []Record {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		c.logger.Warn("catalog document unreadable, starting empty",
			zap.String("path", c.path), zap.Error(err))
		return nil
	}

	records := make([]Record, 0, len(entries))
	for i, entry := range entries {
		var rec Record
		if err := json.Unmarshal(entry, &rec); err != nil {
			c.logger.Warn("skipping unreadable catalog entry",
				zap.String("path", c.path), zap.Int("index", i), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records
}

func dropInvalid(records []Record, logger *zap.Logger) []Record {
	kept := records[:0]
	for _, rec := range records {
		if rec.Name == "" || rec.Code == "" {
			logger.Warn("skipping incomplete catalog entry",
				zap.String("filename", rec.Name), zap.String("code", rec.Code))
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

// persistLocked atomically replaces the document with records. Caller must hold c.mu.
func (c *JSONCatalog) persistLocked(records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode catalog: %w", ErrIO, err)
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("%w: create metadata dir: %w", ErrIO, err)
	}

	tmp, err := os.CreateTemp(c.dir, "."+CatalogFileName+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create catalog temp file: %w", ErrIO, err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write catalog: %w", ErrIO, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: sync catalog: %w", ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close catalog: %w", ErrIO, err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("%w: replace catalog: %w", ErrIO, err)
	}
	return nil
}

// Append adds rec at the end of the catalog.
func (c *JSONCatalog) Append(_ context.Context, rec Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(); err != nil {
		return err
	}

	for _, existing := range c.records {
		if existing.Name == rec.Name {
			return ErrAlreadyExists
		}
		if existing.Code == rec.Code {
			return ErrTokenTaken
		}
	}

	next := append(slices.Clone(c.records), rec)
	if err := c.persistLocked(next); err != nil {
		return err
	}
	c.records = next
	return nil
}

// lastIndexByToken returns the most recently inserted record carrying code.
func (c *JSONCatalog) lastIndexByToken(code string) int {
	for i := len(c.records) - 1; i >= 0; i-- {
		if c.records[i].Code == code {
			return i
		}
	}
	return -1
}

// FindByToken looks up the record carrying code.
func (c *JSONCatalog) FindByToken(_ context.Context, code string) (Record, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(); err != nil {
		return Record{}, false, err
	}

	i := c.lastIndexByToken(code)
	if i < 0 {
		return Record{}, false, nil
	}
	return c.records[i], true, nil
}

// RemoveByToken deletes the record carrying code and returns it.
func (c *JSONCatalog) RemoveByToken(_ context.Context, code string) (Record, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(); err != nil {
		return Record{}, false, err
	}

	i := c.lastIndexByToken(code)
	if i < 0 {
		return Record{}, false, nil
	}

	removed := c.records[i]
	next := slices.Delete(slices.Clone(c.records), i, i+1)
	if err := c.persistLocked(next); err != nil {
		return Record{}, true, err
	}
	c.records = next
	return removed, true, nil
}

// List returns a snapshot of all records in insertion order.
func (c *JSONCatalog) List(_ context.Context) ([]Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(); err != nil {
		return nil, err
	}
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out, nil
}

// Len returns the number of live records.
func (c *JSONCatalog) Len(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(); err != nil {
		return 0, err
	}
	return len(c.records), nil
}

// Ping loads the catalog if needed and reports whether it is readable.
func (c *JSONCatalog) Ping(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}
