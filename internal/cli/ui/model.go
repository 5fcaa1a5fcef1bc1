// Package ui implements the interactive terminal view shown while traces
// are being analyzed.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/seqlab/trace-oracle/internal/cli/hooks"
	"github.com/seqlab/trace-oracle/pkg/oracle"
)

// recentLines is how many finished files stay visible in the rolling tail.
const recentLines = 12

// Summary holds the aggregated statistics displayed in the footer.
type Summary struct {
	TotalFilesScanned int
	ProcessedCount    int
	CachedCount       int
	SkippedCount      int
	ErrorCount        int
	MismatchCount     int
	StartTime         time.Time
}

// fileLine is one finished file in the rolling tail.
type fileLine struct {
	path     string
	status   oracle.Status
	message  string
	duration time.Duration
}

// Model represents the state of the TUI. It receives hook messages via
// Program.Send and never touches the analysis engine directly.
type Model struct {
	spinner      spinner.Model
	width        int
	height       int
	recent       []fileLine
	summary      Summary
	phaseMessage string
	fatalError   string
	report       *oracle.Report
	done         bool
	quitting     bool
}

// NewModel constructs the initial TUI model.
func NewModel() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorProcessing)
	return Model{
		spinner:      s,
		summary:      Summary{StartTime: time.Now()},
		phaseMessage: "Initializing...",
		recent:       make([]fileLine, 0, recentLines),
	}
}

// FinalReport returns the run report delivered by RunCompleteMsg, if any.
func (m *Model) FinalReport() (oracle.Report, bool) {
	if m.report == nil {
		return oracle.Report{}, false
	}
	return *m.report, true
}

// Init starts the spinner animation.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles user input and hook events.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done || m.quitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case hooks.FileDiscoveredMsg:
		m.summary.TotalFilesScanned++
		if m.phaseMessage == "Initializing..." {
			m.phaseMessage = "Scanning..."
		}

	case hooks.FileStatusUpdateMsg:
		if msg.Status == oracle.StatusProcessing {
			m.phaseMessage = "Analyzing..."
			return m, nil
		}
		m.applyFinalStatus(msg)

	case hooks.RunCompleteMsg:
		report := msg.Report
		m.report = &report
		m.done = true
		m.summary.MismatchCount = report.Summary.MismatchCount
		if report.Summary.FatalErrorOccurred {
			m.fatalError = "run aborted, see log output"
		}
		m.phaseMessage = "Done"
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) applyFinalStatus(msg hooks.FileStatusUpdateMsg) {
	switch msg.Status {
	case oracle.StatusSuccess:
		m.summary.ProcessedCount++
	case oracle.StatusCached:
		m.summary.ProcessedCount++
		m.summary.CachedCount++
	case oracle.StatusSkipped:
		m.summary.SkippedCount++
	case oracle.StatusFailed:
		m.summary.ErrorCount++
	default:
		return
	}
	m.recent = append(m.recent, fileLine{
		path:     msg.Path,
		status:   msg.Status,
		message:  msg.Message,
		duration: msg.Duration,
	})
	if len(m.recent) > recentLines {
		m.recent = m.recent[len(m.recent)-recentLines:]
	}
}

// View renders the header, the rolling tail of finished files, and the
// summary footer.
func (m *Model) View() string {
	if m.quitting && !m.done {
		return "Aborting...\n"
	}
	var b strings.Builder
	header := fmt.Sprintf(" trace-oracle  %s %s", m.spinner.View(), m.phaseMessage)
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n\n")

	for _, line := range m.recent {
		b.WriteString("  ")
		b.WriteString(renderLine(line, m.width))
		b.WriteString("\n")
	}

	elapsed := time.Since(m.summary.StartTime)
	footer := fmt.Sprintf(" scanned %d | ok %d | cached %d | skipped %d | errors %d | %s ",
		m.summary.TotalFilesScanned,
		m.summary.ProcessedCount,
		m.summary.CachedCount,
		m.summary.SkippedCount,
		m.summary.ErrorCount,
		formatDuration(elapsed))
	b.WriteString("\n")
	b.WriteString(footerStyle.Render(footer))
	if m.fatalError != "" {
		b.WriteString("\n")
		b.WriteString(statusStyleFailed.Render("fatal: " + m.fatalError))
	}
	b.WriteString("\n")
	return b.String()
}

func renderLine(line fileLine, width int) string {
	var style lipgloss.Style
	icon := " "
	switch line.status {
	case oracle.StatusSuccess:
		style, icon = statusStyleSuccess, "✓"
	case oracle.StatusFailed:
		style, icon = statusStyleFailed, "✗"
	case oracle.StatusSkipped:
		style, icon = statusStyleSkipped, "S"
	case oracle.StatusCached:
		style, icon = statusStyleCached, "C"
	}
	details := ""
	switch line.status {
	case oracle.StatusFailed:
		details = line.message
	case oracle.StatusSkipped:
		parts := strings.SplitN(line.message, ":", 2)
		details = strings.TrimSpace(parts[0])
	default:
		details = formatDuration(line.duration)
	}
	out := fmt.Sprintf("%s %s  %s", style.Render("["+icon+"]"), line.path, dimStyle.Render(details))
	if width > 4 && lipgloss.Width(out) > width-2 {
		out = out[:width-2]
	}
	return out
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d == 0 {
		return ""
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

const (
	colorHeaderFg   = lipgloss.Color("252")
	colorHeaderBg   = lipgloss.Color("62")
	colorFooterFg   = lipgloss.Color("252")
	colorFooterBg   = lipgloss.Color("56")
	colorSuccess    = lipgloss.Color("40")
	colorFailed     = lipgloss.Color("196")
	colorSkipped    = lipgloss.Color("214")
	colorCached     = lipgloss.Color("39")
	colorDim        = lipgloss.Color("244")
	colorProcessing = lipgloss.Color("205")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorHeaderFg).
			Background(colorHeaderBg).
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorFooterFg).
			Background(colorFooterBg).
			Padding(0, 1)

	statusStyleSuccess = lipgloss.NewStyle().Foreground(colorSuccess)
	statusStyleFailed  = lipgloss.NewStyle().Foreground(colorFailed)
	statusStyleSkipped = lipgloss.NewStyle().Foreground(colorSkipped)
	statusStyleCached  = lipgloss.NewStyle().Foreground(colorCached)
	dimStyle           = lipgloss.NewStyle().Foreground(colorDim)
)
