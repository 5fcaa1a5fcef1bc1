package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seqlab/trace-oracle/pkg/oracle/cache"
	"github.com/seqlab/trace-oracle/pkg/oracle/encoding"
	"github.com/seqlab/trace-oracle/pkg/oracle/record"
)

// Engine orchestrates a trace analysis run: discovery, the worker pool, row
// assembly, CSV emission, and the final report.
type Engine struct {
	opts          *Options
	logger        *slog.Logger
	cacheManager  CacheManager
	processor     *FileProcessor
	walker        *Walker
	ctx           context.Context
	cancelFunc    context.CancelFunc
	concurrency   int
	fatalOccurred atomic.Bool
}

// indexedJob carries a discovered path together with its position in the
// sorted discovery order, so rows land in the output deterministically no
// matter which worker finishes first.
type indexedJob struct {
	index int
	path  string
}

type indexedResult struct {
	index  int
	result ProcessResult
	status Status
	err    error
}

// NewEngine creates and initializes a new Engine instance, validating
// options and resolving dependencies.
func NewEngine(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: Logger implementation (slog.Handler) cannot be nil", ErrConfigValidation)
	}
	if opts.EventHooks == nil {
		opts.EventHooks = &NoOpHooks{}
	}
	logger := slog.New(opts.Logger).With(slog.String("component", "engine"))

	if opts.InputPath == "" {
		return nil, fmt.Errorf("%w: input path is required", ErrConfigValidation)
	}
	if _, err := os.Stat(opts.InputPath); err != nil {
		return nil, fmt.Errorf("%w: cannot access input path %q: %w", ErrConfigValidation, opts.InputPath, err)
	}
	if opts.OutputPath == "" {
		return nil, fmt.Errorf("%w: output path is required", ErrConfigValidation)
	}
	switch opts.OnErrorMode {
	case "", OnErrorContinue, OnErrorStop:
	default:
		return nil, fmt.Errorf("%w: invalid onError mode %q", ErrConfigValidation, opts.OnErrorMode)
	}
	if opts.OnErrorMode == "" {
		opts.OnErrorMode = DefaultOnErrorMode
	}

	// --- Cache manager resolution ---
	var cacheMgr CacheManager = &NoOpCacheManager{}
	if opts.CacheManager != nil {
		cacheMgr = opts.CacheManager
		logger.Debug("Using provided CacheManager implementation")
	} else if opts.CacheEnabled {
		if opts.CacheFilePath == "" {
			opts.CacheFilePath = filepath.Join(filepath.Dir(opts.OutputPath), cache.CacheFileName)
			logger.Debug("CacheFilePath not set, defaulting", slog.String("path", opts.CacheFilePath))
		}
		appVersion := opts.AppVersion
		if appVersion == "" {
			appVersion = "dev"
			logger.Warn("AppVersion not set in Options, using 'dev' for cache compatibility")
		}
		fileMgr := cache.NewFileManager(opts.Logger, appVersion)
		if opts.ClearCache {
			if rmErr := os.Remove(opts.CacheFilePath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				logger.Warn("Failed to clear cache file", slog.String("path", opts.CacheFilePath), slog.String("error", rmErr.Error()))
			}
		}
		if loadErr := fileMgr.Load(opts.CacheFilePath); loadErr != nil {
			logger.Error("Critical error loading cache file, proceeding without cache", slog.String("path", opts.CacheFilePath), slog.String("error", loadErr.Error()))
			opts.CacheEnabled = false
		} else {
			cacheMgr = fileMgr
		}
	} else {
		logger.Debug("Cache disabled, using NoOpCacheManager")
	}
	opts.CacheManager = cacheMgr

	if opts.EncodingHandler == nil {
		opts.EncodingHandler = encoding.NewCharsetHandler(opts.DefaultEncoding)
		logger.Debug("EncodingHandler not provided, using default charset handler")
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
		opts.Concurrency = concurrency
		logger.Debug("Concurrency auto-detected", slog.Int("count", concurrency))
	}

	engineCtx, cancelFunc := context.WithCancel(ctx)
	return &Engine{
		opts:         &opts,
		logger:       logger,
		cacheManager: cacheMgr,
		ctx:          engineCtx,
		cancelFunc:   cancelFunc,
		concurrency:  concurrency,
	}, nil
}

// Run executes the analysis and returns the final report. The CSV is only
// written when at least one trace produced a row.
func (e *Engine) Run() (Report, error) {
	startTime := time.Now()
	e.logger.Info("Starting analysis run",
		slog.String("input", e.opts.InputPath),
		slog.Int("concurrency", e.concurrency),
		slog.Bool("cacheEnabled", e.opts.CacheEnabled))
	defer e.cancelFunc()

	report := Report{
		ProcessedFiles: []FileInfo{},
		SkippedFiles:   []SkippedInfo{},
		Errors:         []ErrorInfo{},
	}
	var finalErr error

	e.processor = NewFileProcessor(e.opts, e.logger.Handler(), e.cacheManager, e.opts.EncodingHandler)
	e.walker = NewWalker(e.opts, e.logger.Handler())

	paths, skipped, walkErr := e.walker.Discover(e.ctx)
	report.SkippedFiles = append(report.SkippedFiles, skipped...)
	scannedTotal := len(paths) + len(skipped)
	if walkErr != nil {
		e.fatalOccurred.Store(true)
		e.finishReport(&report, startTime, scannedTotal)
		return report, walkErr
	}
	if len(paths) == 0 {
		e.fatalOccurred.Store(true)
		e.finishReport(&report, startTime, scannedTotal)
		return report, fmt.Errorf("%w: under %q", ErrNoFilesFound, e.opts.InputPath)
	}

	results := e.dispatch(paths)

	rows := make([][]string, 0, len(paths))
	succeeded := 0
	for _, res := range results {
		switch res.status {
		case StatusSuccess, StatusCached:
			rows = append(rows, res.result.Fields)
			succeeded++
			info := FileInfo{
				Path:        res.result.RelPath,
				RunID:       res.result.RunID,
				Mismatch:    res.result.Mismatch,
				Crash:       res.result.Crash,
				Timeout:     res.result.Timeout,
				SizeBytes:   res.result.SizeBytes,
				CacheStatus: res.result.CacheStatus,
				DurationMs:  res.result.Duration.Milliseconds(),
			}
			report.ProcessedFiles = append(report.ProcessedFiles, info)
			if res.status == StatusCached {
				report.Summary.CachedCount++
			}
			if res.result.Mismatch {
				report.Summary.MismatchCount++
			}
			if res.result.Crash {
				report.Summary.CrashCount++
			}
			if res.result.Timeout {
				report.Summary.TimeoutCount++
			}
		case StatusSkipped:
			report.SkippedFiles = append(report.SkippedFiles, SkippedInfo{
				Path:    res.result.RelPath,
				Reason:  SkipReasonBinary,
				Details: errString(res.err),
			})
		default:
			report.Errors = append(report.Errors, ErrorInfo{
				Path:    res.result.RelPath,
				Error:   errString(res.err),
				IsFatal: e.opts.OnErrorMode == OnErrorStop,
			})
		}
	}

	if ctxErr := e.ctx.Err(); ctxErr != nil {
		e.fatalOccurred.Store(true)
		finalErr = ctxErr
	} else if e.opts.OnErrorMode == OnErrorStop && len(report.Errors) > 0 {
		e.fatalOccurred.Store(true)
		finalErr = fmt.Errorf("processing stopped on first error: %s", report.Errors[0].Error)
	} else if succeeded == 0 {
		e.fatalOccurred.Store(true)
		finalErr = fmt.Errorf("%w: %d files discovered", ErrAllFilesFailed, len(paths))
	}

	if finalErr == nil {
		if err := record.WriteCSV(e.opts.OutputPath, rows); err != nil {
			e.fatalOccurred.Store(true)
			finalErr = fmt.Errorf("%w: %q: %w", ErrCSVWrite, e.opts.OutputPath, err)
		} else {
			e.logger.Info("Metrics CSV written", slog.String("path", e.opts.OutputPath), slog.Int("rows", len(rows)))
		}
	}

	if e.opts.CacheEnabled {
		if persistErr := e.cacheManager.Persist(e.opts.CacheFilePath); persistErr != nil {
			e.logger.Error("Failed to persist cache index", slog.String("path", e.opts.CacheFilePath), slog.String("error", persistErr.Error()))
		}
	}

	e.finishReport(&report, startTime, scannedTotal)
	e.logger.Info("Analysis run finished",
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("processed", report.Summary.ProcessedCount),
		slog.Int("cached", report.Summary.CachedCount),
		slog.Int("skipped", report.Summary.SkippedCount),
		slog.Int("errors", report.Summary.ErrorCount),
		slog.Bool("fatalErrorOccurred", report.Summary.FatalErrorOccurred))

	if hookErr := e.opts.EventHooks.OnRunComplete(report); hookErr != nil {
		e.logger.Warn("OnRunComplete hook returned an error", slog.String("error", hookErr.Error()))
	}
	return report, finalErr
}

// dispatch runs the worker pool over the sorted paths and returns results
// re-ordered by discovery index.
func (e *Engine) dispatch(paths []string) []indexedResult {
	jobs := make(chan indexedJob)
	resultsChan := make(chan indexedResult, e.concurrency)
	var wg sync.WaitGroup

	for i := 0; i < e.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			log := e.logger.With(slog.Int("workerId", workerID))
			for job := range jobs {
				if e.ctx.Err() != nil {
					resultsChan <- indexedResult{index: job.index, result: ProcessResult{RelPath: job.path}, status: StatusFailed, err: e.ctx.Err()}
					continue
				}
				e.notifyStatus(job.path, StatusProcessing, "", 0)
				res, status, err := e.processor.ProcessFile(e.ctx, job.path)
				if err != nil {
					log.Debug("File processing finished with error", slog.String("path", job.path), slog.String("status", string(status)), slog.String("error", err.Error()))
					if status == StatusFailed && e.opts.OnErrorMode == OnErrorStop {
						e.cancelFunc()
					}
				}
				e.notifyStatus(job.path, status, errString(err), res.Duration)
				resultsChan <- indexedResult{index: job.index, result: res, status: status, err: err}
			}
		}(i)
	}

	go func() {
		defer close(jobs)
		for i, p := range paths {
			select {
			case jobs <- indexedJob{index: i, path: p}:
			case <-e.ctx.Done():
				// Remaining paths are reported as failed below.
				for j := i; j < len(paths); j++ {
					resultsChan <- indexedResult{index: j, result: ProcessResult{RelPath: paths[j]}, status: StatusFailed, err: e.ctx.Err()}
				}
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	ordered := make([]indexedResult, len(paths))
	for res := range resultsChan {
		ordered[res.index] = res
	}
	return ordered
}

func (e *Engine) notifyStatus(path string, status Status, msg string, d time.Duration) {
	if hookErr := e.opts.EventHooks.OnFileStatusUpdate(path, status, msg, d); hookErr != nil {
		e.logger.Warn("Event hook OnFileStatusUpdate failed", slog.String("path", path), slog.String("error", hookErr.Error()))
	}
}

func (e *Engine) finishReport(report *Report, startTime time.Time, scanned int) {
	toolCommit := ""
	if e.opts.GitClient != nil {
		if commit, dirty, err := e.opts.GitClient.HeadCommit("."); err == nil {
			toolCommit = commit
			if dirty {
				toolCommit += "-dirty"
			}
		} else {
			e.logger.Debug("Tool commit unavailable", slog.String("error", err.Error()))
		}
	}
	report.Summary = ReportSummary{
		InputPath:          e.opts.InputPath,
		OutputPath:         e.opts.OutputPath,
		ProfileUsed:        e.opts.ProfileName,
		ConfigFilePath:     e.opts.ConfigFilePath,
		TotalFilesScanned:  scanned,
		ProcessedCount:     len(report.ProcessedFiles),
		CachedCount:        report.Summary.CachedCount,
		SkippedCount:       len(report.SkippedFiles),
		ErrorCount:         len(report.Errors),
		MismatchCount:      report.Summary.MismatchCount,
		CrashCount:         report.Summary.CrashCount,
		TimeoutCount:       report.Summary.TimeoutCount,
		FatalErrorOccurred: e.fatalOccurred.Load(),
		DurationSeconds:    time.Since(startTime).Seconds(),
		CacheEnabled:       e.opts.CacheEnabled,
		Concurrency:        e.concurrency,
		ToolVersion:        e.opts.AppVersion,
		ToolCommit:         toolCommit,
		Timestamp:          time.Now().UTC(),
		SchemaVersion:      ReportSchemaVersion,
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
