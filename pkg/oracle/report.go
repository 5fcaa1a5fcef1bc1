package oracle

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Report summarizes the result of a single AnalyzeLogs run.
type Report struct {
	Summary        ReportSummary `json:"summary" yaml:"summary"`
	ProcessedFiles []FileInfo    `json:"processedFiles" yaml:"processedFiles"`
	SkippedFiles   []SkippedInfo `json:"skippedFiles" yaml:"skippedFiles"`
	Errors         []ErrorInfo   `json:"errors" yaml:"errors"`
}

// ReportSummary contains aggregated statistics for an AnalyzeLogs run.
type ReportSummary struct {
	InputPath          string    `json:"inputPath" yaml:"inputPath"`
	OutputPath         string    `json:"outputPath" yaml:"outputPath"`
	ProfileUsed        string    `json:"profileUsed,omitempty" yaml:"profileUsed,omitempty"`
	ConfigFilePath     string    `json:"configFilePath,omitempty" yaml:"configFilePath,omitempty"`
	TotalFilesScanned  int       `json:"totalFilesScanned" yaml:"totalFilesScanned"`
	ProcessedCount     int       `json:"processedCount" yaml:"processedCount"`
	CachedCount        int       `json:"cachedCount" yaml:"cachedCount"`
	SkippedCount       int       `json:"skippedCount" yaml:"skippedCount"`
	ErrorCount         int       `json:"errorCount" yaml:"errorCount"`
	MismatchCount      int       `json:"mismatchCount" yaml:"mismatchCount"`
	CrashCount         int       `json:"crashCount" yaml:"crashCount"`
	TimeoutCount       int       `json:"timeoutCount" yaml:"timeoutCount"`
	FatalErrorOccurred bool      `json:"fatalError" yaml:"fatalError"`
	DurationSeconds    float64   `json:"durationSeconds" yaml:"durationSeconds"`
	CacheEnabled       bool      `json:"cacheEnabled" yaml:"cacheEnabled"`
	Concurrency        int       `json:"concurrency" yaml:"concurrency"`
	ToolVersion        string    `json:"toolVersion,omitempty" yaml:"toolVersion,omitempty"`
	ToolCommit         string    `json:"toolCommit,omitempty" yaml:"toolCommit,omitempty"`
	Timestamp          time.Time `json:"timestamp" yaml:"timestamp"`
	SchemaVersion      string    `json:"schemaVersion,omitempty" yaml:"schemaVersion,omitempty"`
}

// FileInfo details a single trace file that produced an output row.
type FileInfo struct {
	Path        string `json:"path" yaml:"path"`
	RunID       string `json:"runId" yaml:"runId"`
	Mismatch    bool   `json:"mismatch" yaml:"mismatch"`
	Crash       bool   `json:"crash" yaml:"crash"`
	Timeout     bool   `json:"timeout" yaml:"timeout"`
	SizeBytes   int64  `json:"sizeBytes" yaml:"sizeBytes"`
	CacheStatus string `json:"cacheStatus" yaml:"cacheStatus"`
	DurationMs  int64  `json:"durationMs" yaml:"durationMs"`
}

// SkippedInfo details a file that was intentionally skipped during a run.
type SkippedInfo struct {
	Path    string `json:"path" yaml:"path"`
	Reason  string `json:"reason" yaml:"reason"`
	Details string `json:"details" yaml:"details"`
}

// ErrorInfo details a non-fatal error encountered on a specific file.
type ErrorInfo struct {
	Path    string `json:"path" yaml:"path"`
	Error   string `json:"error" yaml:"error"`
	IsFatal bool   `json:"isFatal" yaml:"isFatal"`
}

// Render writes the report to w in the requested format. Text output is a
// short human summary; JSON and YAML emit the full structure.
func (r Report) Render(w io.Writer, format OutputFormat) error {
	switch format {
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(r)
	default:
		return r.renderText(w)
	}
}

func (r Report) renderText(w io.Writer) error {
	s := r.Summary
	if _, err := fmt.Fprintf(w, "\n--- Analysis Summary ---\n"); err != nil {
		return err
	}
	fmt.Fprintf(w, "Input:       %s\n", s.InputPath)
	fmt.Fprintf(w, "Output:      %s\n", s.OutputPath)
	if s.ProfileUsed != "" {
		fmt.Fprintf(w, "Profile:     %s\n", s.ProfileUsed)
	}
	fmt.Fprintf(w, "Scanned:     %d\n", s.TotalFilesScanned)
	fmt.Fprintf(w, "Processed:   %d (%d cached)\n", s.ProcessedCount, s.CachedCount)
	fmt.Fprintf(w, "Skipped:     %d\n", s.SkippedCount)
	fmt.Fprintf(w, "Errors:      %d\n", s.ErrorCount)
	fmt.Fprintf(w, "Mismatches:  %d  Crashes: %d  Timeouts: %d\n", s.MismatchCount, s.CrashCount, s.TimeoutCount)
	fmt.Fprintf(w, "Duration:    %.2fs (concurrency %d)\n", s.DurationSeconds, s.Concurrency)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  error: %s: %s\n", e.Path, e.Error)
	}
	return nil
}
