// Package cli wires the configured UI surface (TUI, progress bar, or plain
// logs) to the analysis library and renders the final report.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/schollz/progressbar/v3"

	"github.com/seqlab/trace-oracle/internal/cli/git"
	"github.com/seqlab/trace-oracle/internal/cli/hooks"
	"github.com/seqlab/trace-oracle/internal/cli/ui"
	"github.com/seqlab/trace-oracle/pkg/oracle"
)

// Run orchestrates the main application logic after configuration loading.
// isTTY reports whether stderr is an interactive terminal; it decides
// between the TUI, a progress bar, and plain log output.
func Run(ctx context.Context, opts oracle.Options, logger *slog.Logger, isTTY bool) error {
	if opts.GitClient == nil {
		opts.GitClient = git.NewGoGitClient(opts.Logger)
	}

	useTUI := opts.TuiEnabled && isTTY && !opts.Verbose
	if useTUI {
		return runWithTUI(ctx, opts, logger)
	}

	var bar hooks.ProgressBar
	if isTTY && !opts.Verbose {
		bar = newProgressBar()
	}
	opts.EventHooks = hooks.NewCLIHooks(logger, false, opts.Verbose, nil, bar)

	report, err := oracle.AnalyzeLogs(ctx, opts)
	renderErr := report.Render(os.Stdout, opts.OutputFormat)
	if renderErr != nil {
		logger.Error("Failed to render report", slog.String("error", renderErr.Error()))
	}
	if err != nil {
		logger.Error("Analysis failed", slog.Any("error", err))
		return err
	}
	return renderErr
}

// runWithTUI drives the analysis under a Bubble Tea program. The engine runs
// in a goroutine and feeds the model through hook messages; the program exits
// when RunCompleteMsg arrives or the user quits.
func runWithTUI(ctx context.Context, opts oracle.Options, logger *slog.Logger) error {
	model := ui.NewModel()
	program := tea.NewProgram(&model, tea.WithContext(ctx), tea.WithOutput(os.Stderr))
	opts.EventHooks = hooks.NewCLIHooks(logger, true, false, &programAdapter{program: program}, nil)

	type runOutcome struct {
		report oracle.Report
		err    error
	}
	outcome := make(chan runOutcome, 1)
	go func() {
		report, err := oracle.AnalyzeLogs(ctx, opts)
		outcome <- runOutcome{report: report, err: err}
		// OnRunComplete already sent RunCompleteMsg; if the engine bailed
		// before hooks fired, unblock the program explicitly.
		if err != nil {
			program.Send(hooks.RunCompleteMsg{Report: report})
		}
	}()

	if _, teaErr := program.Run(); teaErr != nil && !errors.Is(teaErr, tea.ErrProgramKilled) {
		logger.Error("Terminal UI failed", slog.String("error", teaErr.Error()))
	}

	res := <-outcome
	if renderErr := res.report.Render(os.Stdout, opts.OutputFormat); renderErr != nil {
		logger.Error("Failed to render report", slog.String("error", renderErr.Error()))
	}
	if res.err != nil {
		logger.Error("Analysis failed", slog.Any("error", res.err))
		return res.err
	}
	return nil
}

// programAdapter narrows *tea.Program to the hooks.TUIProgram interface
// (Send takes the named tea.Msg type upstream).
type programAdapter struct {
	program *tea.Program
}

func (a *programAdapter) Send(msg interface{}) { a.program.Send(msg) }

// barAdapter narrows *progressbar.ProgressBar to the hooks.ProgressBar
// interface (Describe has no error return upstream).
type barAdapter struct {
	bar *progressbar.ProgressBar
}

func (a *barAdapter) Add(num int) error { return a.bar.Add(num) }

func (a *barAdapter) Describe(description string) error {
	a.bar.Describe(description)
	return nil
}

func (a *barAdapter) Close() error { return a.bar.Close() }

func newProgressBar() hooks.ProgressBar {
	return &barAdapter{bar: progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("analyzing traces"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
	)}
}

// ExitCode maps a run error to the process exit status. Configuration
// problems exit 2, everything else fatal exits 1.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, oracle.ErrConfigValidation):
		return 2
	default:
		return 1
	}
}
