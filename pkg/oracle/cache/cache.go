// Package cache persists parsed result rows between invocations so
// unchanged trace files are not re-parsed. A hit replays the stored CSV
// cells verbatim, which is exactly the byte-identical output re-parsing
// would produce.
package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// CacheFileName is the default cache index filename, placed next to the
// output CSV.
const CacheFileName = ".trace-oracle.cache"

// SchemaVersion guards the serialized layout. Bump on incompatible Entry
// changes; mismatched files are discarded as a whole.
const SchemaVersion = "1"

// ErrCacheLoad wraps load failures that are not simple misses. Corruption
// and version mismatches are treated as misses, not errors.
var ErrCacheLoad = errors.New("failed to load cache index")

// ErrCachePersist wraps persist failures. The analysis run itself still
// succeeds when only persisting fails.
var ErrCachePersist = errors.New("failed to persist cache index")

// Entry is the stored state for one trace file.
type Entry struct {
	ContentHash string
	Fields      []string
}

type fileHeader struct {
	SchemaVersion string
	ToolVersion   string
}

// FileManager is a gob-backed cache index keyed by trace file path. Check
// and Update are safe for concurrent use by workers.
type FileManager struct {
	mu          sync.RWMutex
	entries     map[string]Entry
	toolVersion string
	logger      *slog.Logger
}

// NewFileManager returns an empty manager. toolVersion participates in
// validation so cache files never survive across releases.
func NewFileManager(loggerHandler slog.Handler, toolVersion string) *FileManager {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	return &FileManager{
		entries:     make(map[string]Entry),
		toolVersion: toolVersion,
		logger:      slog.New(loggerHandler).With(slog.String("component", "cache")),
	}
}

// Load reads the index at path. A missing file is a clean empty cache; a
// corrupt or version-mismatched file is logged and discarded; only real
// I/O trouble returns an error.
func (m *FileManager) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: open %q: %w", ErrCacheLoad, path, err)
	}
	defer f.Close()

	dec := gob.NewDecoder(f)
	var hdr fileHeader
	if err := dec.Decode(&hdr); err != nil {
		m.logger.Warn("Cache header unreadable, discarding cache", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}
	if hdr.SchemaVersion != SchemaVersion || hdr.ToolVersion != m.toolVersion {
		m.logger.Warn("Cache version mismatch, discarding cache",
			slog.String("path", path),
			slog.String("cacheSchema", hdr.SchemaVersion),
			slog.String("cacheTool", hdr.ToolVersion))
		return nil
	}
	entries := make(map[string]Entry)
	if err := dec.Decode(&entries); err != nil {
		m.logger.Warn("Cache body unreadable, discarding cache", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}

	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	m.logger.Debug("Cache loaded", slog.String("path", path), slog.Int("entries", len(entries)))
	return nil
}

// Check returns the stored row cells when filePath is present with a
// matching content hash.
func (m *FileManager) Check(filePath, contentHash string) ([]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[filePath]
	if !ok || e.ContentHash != contentHash {
		return nil, false
	}
	return e.Fields, true
}

// Update records the rendered row for filePath.
func (m *FileManager) Update(filePath, contentHash string, fields []string) error {
	m.mu.Lock()
	m.entries[filePath] = Entry{ContentHash: contentHash, Fields: fields}
	m.mu.Unlock()
	return nil
}

// Persist writes the index atomically (temp file then rename).
func (m *FileManager) Persist(path string) error {
	m.mu.RLock()
	snapshot := make(map[string]Entry, len(m.entries))
	for k, v := range m.entries {
		snapshot[k] = v
	}
	m.mu.RUnlock()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp: %w", ErrCachePersist, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	enc := gob.NewEncoder(tmp)
	if err := enc.Encode(fileHeader{SchemaVersion: SchemaVersion, ToolVersion: m.toolVersion}); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: encode header: %w", ErrCachePersist, err)
	}
	if err := enc.Encode(snapshot); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: encode entries: %w", ErrCachePersist, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp: %w", ErrCachePersist, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename into place: %w", ErrCachePersist, err)
	}
	m.logger.Debug("Cache persisted", slog.String("path", path), slog.Int("entries", len(snapshot)))
	return nil
}
