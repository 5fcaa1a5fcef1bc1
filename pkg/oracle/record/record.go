// Package record assembles the per-run result row and serializes the full
// batch to CSV. The column set and ordering are an interchange contract
// with existing aggregation and plotting tooling and must stay stable.
package record

import (
	"fmt"
	"strconv"

	"github.com/seqlab/trace-oracle/pkg/oracle/metrics"
	"github.com/seqlab/trace-oracle/pkg/oracle/trace"
)

// Columns is the fixed CSV header, in the order the downstream tooling
// expects.
var Columns = []string{
	"run_id",
	"seed_id",
	"schedule_seed",
	"policy",
	"bound_k",
	"fault_mode",
	"n_cmds",
	"scheduler_version",
	"git_commit",
	"mismatch",
	"timeout",
	"crash",
	"pending_left",
	"pending_peak",
	"pending_area",
	"pending_mean",
	"RD",
	"FE",
	"RCS",
	"completion_rate",
	"mean_latency_disp",
	"p95_latency_disp",
	"max_latency_disp",
	"mean_latency_step",
	"p95_latency_step",
	"max_latency_step",
	"n_ok",
	"n_err",
	"n_timeout",
	"n_fences",
	"viol_complete_unexpected",
	"viol_reset_pending_mismatch",
	"viol_bound_k_overflow",
	"tail_budget_step",
	"tail_slack_step",
	"tail_exceed",
	"log_file",
}

// Indices of the run-admissibility flags within Columns, used when a row
// is replayed from cache and the flags are needed without re-parsing.
const (
	colMismatch = 9
	colTimeout  = 10
	colCrash    = 11
)

// Row is one normalized result row. Terminal counters carry a presence
// flag because a crashed run has no RUN_END line and those cells are
// emitted empty rather than as zero.
type Row struct {
	Header trace.Header

	Mismatch bool
	Timeout  bool
	Crash    bool

	TerminalSeen bool
	PendingLeft  int
	PendingPeak  int
	PendingArea  int
	PendingMean  float64

	RD             float64
	FE             float64
	RCS            float64
	CompletionRate float64

	Disp metrics.LatencyStats
	Step metrics.LatencyStats

	NOK      int
	NErr     int
	NTimeout int
	NFences  int

	ViolCompleteUnexpected   int
	ViolResetPendingMismatch int
	ViolBoundOverflow        int

	TailBudget int
	TailSlack  float64
	TailExceed int

	LogFile string
}

// Build derives the full row from a finalized run state. The step-latency
// ordering check can still ratchet the mismatch flag here; everything else
// is a straight read of the state.
func Build(s *trace.RunState, occ trace.OccupancyStats, logFile string) Row {
	disp, step, orderViolation := metrics.Latencies(s)
	if orderViolation {
		s.Mismatch = true
	}

	completionRate := 1.0
	if s.Header.NCmds > 0 {
		completionRate = float64(s.NOK) / float64(s.Header.NCmds)
	}

	budget, slack, exceed := metrics.TailBudget(s, step.P95)

	return Row{
		Header: s.Header,

		Mismatch: s.Mismatch,
		Timeout:  s.Timeout,
		Crash:    s.Crash,

		TerminalSeen: s.EndSeen,
		PendingLeft:  s.PendingLeft,
		PendingPeak:  s.PendingPeak,
		PendingArea:  occ.Area,
		PendingMean:  occ.Mean(),

		RD:             metrics.ReorderingDegree(s),
		FE:             metrics.FenceSatisfaction(s),
		RCS:            metrics.ResetCompletionScore(s),
		CompletionRate: completionRate,

		Disp: disp,
		Step: step,

		NOK:      s.NOK,
		NErr:     s.NErr,
		NTimeout: s.NTimeout,
		NFences:  len(s.Fences),

		ViolCompleteUnexpected:   s.ViolCompleteUnexpected,
		ViolResetPendingMismatch: s.ViolResetPendingMismatch,
		ViolBoundOverflow:        s.ViolBoundOverflow,

		TailBudget: budget,
		TailSlack:  slack,
		TailExceed: exceed,

		LogFile: logFile,
	}
}

// Fields renders the row into CSV cells aligned with Columns. Floats use
// fixed six-decimal precision for reproducibility across implementations.
func (r Row) Fields() []string {
	left, peak := "", ""
	if r.TerminalSeen {
		left = strconv.Itoa(r.PendingLeft)
		peak = strconv.Itoa(r.PendingPeak)
	}
	return []string{
		r.Header.RunID,
		r.Header.SeedID,
		strconv.FormatInt(r.Header.ScheduleSeed, 10),
		r.Header.Policy,
		r.Header.BoundK,
		r.Header.FaultMode,
		strconv.Itoa(r.Header.NCmds),
		r.Header.SchedulerVersion,
		r.Header.GitCommit,
		boolCell(r.Mismatch),
		boolCell(r.Timeout),
		boolCell(r.Crash),
		left,
		peak,
		strconv.Itoa(r.PendingArea),
		fixed(r.PendingMean),
		fixed(r.RD),
		fixed(r.FE),
		fixed(r.RCS),
		fixed(r.CompletionRate),
		fixed(r.Disp.Mean),
		fixed(r.Disp.P95),
		fixed(r.Disp.Max),
		fixed(r.Step.Mean),
		fixed(r.Step.P95),
		fixed(r.Step.Max),
		strconv.Itoa(r.NOK),
		strconv.Itoa(r.NErr),
		strconv.Itoa(r.NTimeout),
		strconv.Itoa(r.NFences),
		strconv.Itoa(r.ViolCompleteUnexpected),
		strconv.Itoa(r.ViolResetPendingMismatch),
		strconv.Itoa(r.ViolBoundOverflow),
		strconv.Itoa(r.TailBudget),
		fixed(r.TailSlack),
		strconv.Itoa(r.TailExceed),
		r.LogFile,
	}
}

// FlagsFromFields recovers the admissibility flags from rendered cells,
// used when a cached row is replayed without re-parsing its trace.
func FlagsFromFields(fields []string) (mismatch, timeout, crash bool, ok bool) {
	if len(fields) != len(Columns) {
		return false, false, false, false
	}
	return fields[colMismatch] == "1", fields[colTimeout] == "1", fields[colCrash] == "1", true
}

func fixed(v float64) string {
	return fmt.Sprintf("%.6f", v)
}

func boolCell(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
