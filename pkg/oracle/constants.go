package oracle

// Constants defining default values for various configuration options.
// These seed the Viper defaults during configuration loading.
const (
	// DefaultConcurrency determines the default number of workers. 0 means runtime.NumCPU().
	DefaultConcurrency = 0
	// DefaultCacheEnabled is the default state for the parse-result cache.
	// Off, because a full re-parse of typical sweep directories is cheap and
	// the CSV must stay reproducible without hidden state.
	DefaultCacheEnabled = false
	// DefaultTuiEnabled is the default state for the Terminal UI.
	DefaultTuiEnabled = true
	// DefaultOnErrorMode is the default behavior on non-fatal file errors.
	DefaultOnErrorMode = OnErrorContinue
	// DefaultOutputFormat is the default format for the final summary report.
	DefaultOutputFormat = OutputFormatText
	// DefaultTraceExtension is the filename suffix selected during directory walks.
	DefaultTraceExtension = ".log"
	// DefaultOutputFile is the default CSV destination.
	DefaultOutputFile = "metrics.csv"
	// DefaultVerbose is the default state for verbose logging.
	DefaultVerbose = false
	// DefaultEncoding is the fallback charset label when detection is inconclusive.
	// Empty means autodetect with a UTF-8 fallback.
	DefaultEncoding = ""
)

// Constants related to the cache mechanism.
const (
	// CacheFileName is the standard name for the cache index file.
	CacheFileName = ".trace-oracle.cache"
)

// Constants related to the report schema.
const (
	// ReportSchemaVersion indicates the version of the JSON report structure.
	// See schemas/report.schema.json.
	ReportSchemaVersion = "1.0"
)

// Constants defining cache status strings used in the Report.
const (
	CacheStatusHit      = "hit"
	CacheStatusMiss     = "miss"
	CacheStatusDisabled = "disabled"
)

// Constants defining skip reasons used in the Report.
const (
	SkipReasonBinary    = "binary_file"
	SkipReasonIgnored   = "ignored_pattern"
	SkipReasonExtension = "extension_mismatch"
)
