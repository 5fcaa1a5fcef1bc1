package oracle

import (
	"context"
	"log/slog"
	"time"

	"github.com/seqlab/trace-oracle/pkg/oracle/encoding"
)

// Hooks defines callbacks for status updates during an analysis run.
// Implementations MUST be thread-safe as methods may be called concurrently
// by worker goroutines.
type Hooks interface {
	OnFileDiscovered(path string) error
	OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error
	OnRunComplete(report Report) error
}

// NoOpHooks provides a default, do-nothing implementation of the Hooks interface.
type NoOpHooks struct{}

// OnFileDiscovered implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnFileDiscovered(path string) error { return nil }

// OnFileStatusUpdate implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error {
	return nil
}

// OnRunComplete implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnRunComplete(report Report) error { return nil }

// CacheManager defines methods for interacting with the parse-result cache.
// Check returns the previously rendered CSV cells for a path whose content
// hash still matches.
type CacheManager interface {
	Load(cachePath string) error
	Check(filePath string, contentHash string) (fields []string, isHit bool)
	Update(filePath string, contentHash string, fields []string) error
	Persist(cachePath string) error
}

// NoOpCacheManager provides a default, do-nothing implementation of the
// CacheManager interface. Used when caching is disabled or no concrete
// implementation is provided.
type NoOpCacheManager struct{}

// Load implements CacheManager, performs no action.
func (c *NoOpCacheManager) Load(cachePath string) error { return nil }

// Check implements CacheManager, always returns a cache miss.
func (c *NoOpCacheManager) Check(filePath string, contentHash string) ([]string, bool) {
	return nil, false
}

// Update implements CacheManager, performs no action.
func (c *NoOpCacheManager) Update(filePath string, contentHash string, fields []string) error {
	return nil
}

// Persist implements CacheManager, performs no action.
func (c *NoOpCacheManager) Persist(cachePath string) error { return nil }

// GitClient reports version-control metadata about the tool's own checkout,
// used to stamp the report for provenance.
type GitClient interface {
	HeadCommit(repoPath string) (commit string, dirty bool, err error)
}

// Options holds all configuration for an AnalyzeLogs run.
type Options struct {
	// --- Core Paths ---
	InputPath  string `mapstructure:"inputPath"`  // Required: trace file or directory to scan
	OutputPath string `mapstructure:"outputPath"` // Required: destination CSV path

	// --- Application Info ---
	AppVersion string `mapstructure:"-"` // Tool version (e.g. "v1.2.0", "dev"), used for cache validation. Populated by caller.

	// --- Behavior & Control ---
	ConfigFilePath string      `mapstructure:"-"`          // Path to the loaded config file (for reporting)
	Verbose        bool        `mapstructure:"verbose"`    // Enable debug logging
	TuiEnabled     bool        `mapstructure:"tuiEnabled"` // Hint for CLI to use TUI (ignored if Verbose)
	OnErrorMode    OnErrorMode `mapstructure:"onError"`    // Behavior on file processing error ("continue", "stop")
	ProfileName    string      `mapstructure:"-"`          // Name of the profile used (for reporting)

	// --- Performance & Caching ---
	Concurrency     int    `mapstructure:"concurrency"` // Number of workers (0=auto)
	CacheEnabled    bool   `mapstructure:"cache"`       // Enable cache read/write
	IgnoreCacheRead bool   `mapstructure:"-"`           // Force cache miss (set by --no-cache)
	ClearCache      bool   `mapstructure:"-"`           // Delete cache file before run (set by --clear-cache)
	CacheFilePath   string `mapstructure:"-"`           // Resolved path to cache file

	// --- File Handling & Filtering ---
	IgnorePatterns  []string `mapstructure:"ignore"`          // Glob patterns excluding paths during directory walks
	TraceExtension  string   `mapstructure:"traceExt"`        // Filename suffix selecting trace files (e.g. ".log")
	DefaultEncoding string   `mapstructure:"defaultEncoding"` // Fallback charset when detection is inconclusive

	// --- Output & Formatting ---
	OutputFormat OutputFormat `mapstructure:"outputFormat"` // ("text", "json", "yaml") for final report

	// --- Injected Dependencies & Internal State ---
	EventHooks      Hooks            `mapstructure:"-"` // Required: callback interface
	Logger          slog.Handler     `mapstructure:"-"` // Required: logging backend
	CacheManager    CacheManager     `mapstructure:"-"` // Optional: cache implementation
	GitClient       GitClient        `mapstructure:"-"` // Optional: provenance stamping
	EncodingHandler encoding.Handler `mapstructure:"-"` // Optional: charset handling implementation

	// Internal context passed down, not part of config itself
	Ctx context.Context `mapstructure:"-"`
}
