package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqlab/trace-oracle/internal/cli/hooks"
	"github.com/seqlab/trace-oracle/pkg/oracle"
)

func update(m *Model, msg tea.Msg) *Model {
	next, _ := m.Update(msg)
	return next.(*Model)
}

func TestModelCountsStatusUpdates(t *testing.T) {
	m := NewModel()
	p := &m

	for i := 0; i < 3; i++ {
		p = update(p, hooks.FileDiscoveredMsg{Path: "x"})
	}
	assert.Equal(t, 3, p.summary.TotalFilesScanned)
	assert.Equal(t, "Scanning...", p.phaseMessage)

	p = update(p, hooks.FileStatusUpdateMsg{Path: "a.log", Status: oracle.StatusProcessing})
	assert.Equal(t, "Analyzing...", p.phaseMessage)
	assert.Empty(t, p.recent, "processing is not a final state")

	p = update(p, hooks.FileStatusUpdateMsg{Path: "a.log", Status: oracle.StatusSuccess, Duration: 2 * time.Millisecond})
	p = update(p, hooks.FileStatusUpdateMsg{Path: "b.log", Status: oracle.StatusCached})
	p = update(p, hooks.FileStatusUpdateMsg{Path: "c.log", Status: oracle.StatusSkipped, Message: "binary"})
	p = update(p, hooks.FileStatusUpdateMsg{Path: "d.log", Status: oracle.StatusFailed, Message: "bad header"})

	assert.Equal(t, 2, p.summary.ProcessedCount)
	assert.Equal(t, 1, p.summary.CachedCount)
	assert.Equal(t, 1, p.summary.SkippedCount)
	assert.Equal(t, 1, p.summary.ErrorCount)
	assert.Len(t, p.recent, 4)
}

func TestModelRecentTailIsBounded(t *testing.T) {
	m := NewModel()
	p := &m
	for i := 0; i < recentLines+5; i++ {
		p = update(p, hooks.FileStatusUpdateMsg{Path: "f.log", Status: oracle.StatusSuccess})
	}
	assert.Len(t, p.recent, recentLines)
}

func TestModelRunCompleteQuits(t *testing.T) {
	m := NewModel()
	p := &m

	report := oracle.Report{Summary: oracle.ReportSummary{MismatchCount: 2}}
	next, cmd := p.Update(hooks.RunCompleteMsg{Report: report})
	p = next.(*Model)

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.True(t, p.done)
	assert.Equal(t, 2, p.summary.MismatchCount)

	got, ok := p.FinalReport()
	require.True(t, ok)
	assert.Equal(t, report, got)
}

func TestModelFatalErrorSurfaces(t *testing.T) {
	m := NewModel()
	p := &m
	report := oracle.Report{Summary: oracle.ReportSummary{FatalErrorOccurred: true}}
	p = update(p, hooks.RunCompleteMsg{Report: report})
	assert.NotEmpty(t, p.fatalError)
	assert.Contains(t, p.View(), "fatal:")
}

func TestModelKeyQuit(t *testing.T) {
	m := NewModel()
	p := &m
	next, cmd := p.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	p = next.(*Model)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.True(t, p.quitting)
	assert.Equal(t, "Aborting...\n", p.View())
}

func TestModelViewRendersSummaryFooter(t *testing.T) {
	m := NewModel()
	p := &m
	p = update(p, tea.WindowSizeMsg{Width: 100, Height: 30})
	p = update(p, hooks.FileDiscoveredMsg{Path: "a.log"})
	p = update(p, hooks.FileStatusUpdateMsg{Path: "a.log", Status: oracle.StatusSuccess, Duration: time.Millisecond})

	out := p.View()
	assert.Contains(t, out, "trace-oracle")
	assert.Contains(t, out, "a.log")
	assert.Contains(t, out, "scanned 1")
	assert.Contains(t, out, "ok 1")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "", formatDuration(0))
	assert.Equal(t, "250µs", formatDuration(250*time.Microsecond))
	assert.Equal(t, "12ms", formatDuration(12*time.Millisecond))
	assert.Equal(t, "1.50s", formatDuration(1500*time.Millisecond))
}
