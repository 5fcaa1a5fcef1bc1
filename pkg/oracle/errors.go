package oracle

import "errors"

// --- Exported Error Variables ---
// These errors represent specific categories of issues that might be returned
// directly by AnalyzeLogs or encountered during processing. Library users
// can check against these using errors.Is.

var (
	// ErrConfigValidation indicates that the provided Options struct failed
	// validation checks performed at the beginning of AnalyzeLogs.
	// This is returned directly as a fatal error.
	ErrConfigValidation = errors.New("invalid configuration options provided")

	// ErrReadFailed indicates a failure to read a trace file from the filesystem.
	// May be returned wrapped by AnalyzeLogs if fatal, or included in
	// Report.Errors if non-fatal.
	ErrReadFailed = errors.New("failed to read file")

	// ErrBinaryFile indicates that a file was detected as binary and cannot
	// be interpreted as a trace. Recorded as a skip, never fatal.
	ErrBinaryFile = errors.New("binary file encountered")

	// ErrTraceParse indicates a trace file could not be decoded at all, for
	// example when its encoding could not be converted to UTF-8. Malformed
	// individual lines do not trigger this; they surface as mismatch flags
	// in the output row instead.
	ErrTraceParse = errors.New("failed to parse trace")

	// ErrNoFilesFound indicates the input path yielded no trace files after
	// extension and ignore filtering. Returned as fatal by AnalyzeLogs.
	ErrNoFilesFound = errors.New("no trace files found")

	// ErrAllFilesFailed indicates every discovered file failed to process, so
	// there is nothing to write. Returned as fatal by AnalyzeLogs.
	ErrAllFilesFailed = errors.New("all trace files failed to process")

	// ErrCSVWrite indicates a failure to write the output CSV.
	// Always fatal.
	ErrCSVWrite = errors.New("failed to write output csv")
)
