package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/seqlab/trace-oracle/pkg/oracle/encoding"
	"github.com/seqlab/trace-oracle/pkg/oracle/record"
	"github.com/seqlab/trace-oracle/pkg/oracle/trace"
)

// ProcessResult is the outcome of processing one trace file.
type ProcessResult struct {
	RelPath     string
	Fields      []string
	RunID       string
	Mismatch    bool
	Crash       bool
	Timeout     bool
	SizeBytes   int64
	CacheStatus string
	Duration    time.Duration
}

// FileProcessor handles the processing pipeline for a single trace file:
// read, binary guard, charset decode, parse, occupancy pass, row build.
type FileProcessor struct {
	opts            *Options
	logger          *slog.Logger
	cacheManager    CacheManager
	encodingHandler encoding.Handler
}

// NewFileProcessor creates a new FileProcessor.
func NewFileProcessor(opts *Options, loggerHandler slog.Handler, cacheMgr CacheManager, encHandler encoding.Handler) *FileProcessor {
	return &FileProcessor{
		opts:            opts,
		logger:          slog.New(loggerHandler).With(slog.String("component", "processor")),
		cacheManager:    cacheMgr,
		encodingHandler: encHandler,
	}
}

// ProcessFile executes the full pipeline for the trace at relPath (relative
// to the input path, or the input path itself when that is a single file).
// Skips are reported with ErrBinaryFile; the caller decides fatality for
// other errors based on OnErrorMode.
func (p *FileProcessor) ProcessFile(ctx context.Context, relPath string) (ProcessResult, Status, error) {
	startTime := time.Now()
	res := ProcessResult{RelPath: relPath, CacheStatus: CacheStatusDisabled}
	logArgs := []any{slog.String("path", relPath)}

	select {
	case <-ctx.Done():
		return res, StatusFailed, ctx.Err()
	default:
	}

	absPath := p.opts.InputPath
	if fi, err := os.Stat(p.opts.InputPath); err == nil && fi.IsDir() {
		absPath = filepath.Join(p.opts.InputPath, filepath.FromSlash(relPath))
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		p.logger.Error("Failed to read trace file", append(logArgs, slog.String("error", err.Error()))...)
		return res, StatusFailed, fmt.Errorf("%w: %q: %w", ErrReadFailed, relPath, err)
	}
	res.SizeBytes = int64(len(raw))

	if p.encodingHandler.IsBinary(raw) {
		p.logger.Warn("Skipping binary file", logArgs...)
		return res, StatusSkipped, fmt.Errorf("%w: %q", ErrBinaryFile, relPath)
	}

	cacheEnabled := p.opts.CacheEnabled && p.cacheManager != nil
	var contentHash string
	if cacheEnabled {
		sum := sha256.Sum256(raw)
		contentHash = hex.EncodeToString(sum[:])
		res.CacheStatus = CacheStatusMiss
		if !p.opts.IgnoreCacheRead {
			if fields, hit := p.cacheManager.Check(relPath, contentHash); hit {
				mismatch, timeout, crash, valid := record.FlagsFromFields(fields)
				if valid {
					p.logger.Debug("Cache hit", logArgs...)
					res.Fields = fields
					res.CacheStatus = CacheStatusHit
					res.Mismatch, res.Timeout, res.Crash = mismatch, timeout, crash
					res.RunID = runIDFromFields(fields)
					res.Duration = time.Since(startTime)
					return res, StatusCached, nil
				}
				p.logger.Warn("Cache entry has unexpected shape, re-parsing", logArgs...)
			}
		}
	}

	utf8Content, encName, certain, err := p.encodingHandler.DetectAndDecode(raw)
	if err != nil {
		p.logger.Error("Failed to decode trace file", append(logArgs, slog.String("error", err.Error()))...)
		return res, StatusFailed, fmt.Errorf("%w: decoding %q: %w", ErrTraceParse, relPath, err)
	}
	p.logger.Debug("Trace decoded", append(logArgs, slog.String("encoding", encName), slog.Bool("certain", certain))...)

	lines := splitLines(string(utf8Content))
	state := trace.Parse(lines)
	occ := trace.Occupancy(lines, state)

	row := record.Build(state, occ, relPath)
	res.Fields = row.Fields()
	res.RunID = row.Header.RunID
	res.Mismatch = row.Mismatch
	res.Crash = row.Crash
	res.Timeout = row.Timeout

	if cacheEnabled {
		if err := p.cacheManager.Update(relPath, contentHash, res.Fields); err != nil {
			p.logger.Warn("Failed to update cache entry", append(logArgs, slog.String("error", err.Error()))...)
		}
	}

	res.Duration = time.Since(startTime)
	p.logger.Debug("Trace processed",
		append(logArgs,
			slog.String("runId", res.RunID),
			slog.Bool("mismatch", res.Mismatch),
			slog.Bool("crash", res.Crash),
			slog.Duration("duration", res.Duration))...)
	return res, StatusSuccess, nil
}

// splitLines splits decoded trace text into lines, tolerating CRLF endings
// and a missing trailing newline.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func runIDFromFields(fields []string) string {
	if len(fields) > 0 {
		return fields[0]
	}
	return ""
}
