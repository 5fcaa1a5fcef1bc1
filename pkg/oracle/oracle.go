// Package oracle analyzes event logs emitted by simulated command-queue
// devices. It walks an input path for trace files, folds each one through a
// single-pass protocol checker, derives ordering and latency metrics, and
// emits one CSV row per run. The CLI in cmd/trace-oracle is a thin wrapper
// over AnalyzeLogs.
package oracle

import (
	"context"
	"fmt"
	"log/slog"
)

// AnalyzeLogs is the main entry point for the analysis library. It validates
// options, builds an Engine, and executes the run. The returned Report is
// populated even when err is non-nil, so callers can render partial results.
func AnalyzeLogs(ctx context.Context, opts Options) (Report, error) {
	if opts.Logger == nil {
		return Report{}, fmt.Errorf("%w: Logger implementation cannot be nil", ErrConfigValidation)
	}
	logger := slog.New(opts.Logger)

	if opts.EventHooks == nil {
		return Report{}, fmt.Errorf("%w: EventHooks implementation cannot be nil (use NoOpHooks if needed)", ErrConfigValidation)
	}
	if opts.Concurrency < 0 {
		err := fmt.Errorf("%w: concurrency cannot be negative", ErrConfigValidation)
		logger.Error(err.Error(), slog.Int("concurrency", opts.Concurrency))
		return Report{}, err
	}

	engine, err := NewEngine(ctx, opts)
	if err != nil {
		logger.Error("Engine initialization failed", slog.String("error", err.Error()))
		return Report{}, err
	}
	return engine.Run()
}
