package trace

import (
	"regexp"
	"strconv"
	"strings"
)

// EventKind identifies one of the six recognized trace line shapes.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindHeader
	KindSubmit
	KindComplete
	KindFence
	KindReset
	KindRunEnd
)

// CmdTypeFence is the cmd_type marking a fence command in SUBMIT lines.
// Fence commands never enter the outstanding set.
const CmdTypeFence = "FENCE"

// Completion status values tallied per run.
const (
	StatusOK      = "OK"
	StatusErr     = "ERR"
	StatusTimeout = "TIMEOUT"
)

var (
	reHeader   = regexp.MustCompile(`^RUN_HEADER\((.*)\)\s*$`)
	reSubmit   = regexp.MustCompile(`^SUBMIT\(\s*cmd_id\s*=\s*(\d+)\s*,\s*cmd_type\s*=\s*([A-Z_]+)\s*\)\s*$`)
	reComplete = regexp.MustCompile(`^COMPLETE\(\s*cmd_id\s*=\s*(\d+)\s*,\s*status\s*=\s*([A-Z_]+)\s*,\s*out\s*=\s*(\d+)\s*\)\s*$`)
	reFence    = regexp.MustCompile(`^FENCE\(\s*fence_id\s*=\s*(\d+)\s*\)\s*$`)
	reReset    = regexp.MustCompile(`^RESET\(\s*reason\s*=\s*([^,]+),\s*pending_before\s*=\s*(\d+)\s*\)\s*$`)
	reRunEnd   = regexp.MustCompile(`^RUN_END\(\s*pending_left\s*=\s*(\d+)\s*,\s*pending_peak\s*=\s*(\d+)\s*\)\s*$`)
)

// Event is one decoded trace line. Only the fields relevant to the matched
// kind are populated.
type Event struct {
	Kind EventKind

	// Header fields (KindHeader).
	Header map[string]string

	CmdID   int    // SUBMIT, COMPLETE
	CmdType string // SUBMIT
	Status  string // COMPLETE
	Out     int    // COMPLETE payload size; parsed, unused by metrics

	FenceID int // FENCE

	Reason        string // RESET
	PendingBefore int    // RESET

	PendingLeft int // RUN_END
	PendingPeak int // RUN_END
}

// DecodeLine matches a single trace line against the six known shapes.
// Lines that match nothing decode to KindUnknown and the caller skips them;
// harness chatter interleaved in real logs must not fail a run.
func DecodeLine(line string) Event {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{Kind: KindUnknown}
	}

	if m := reSubmit.FindStringSubmatch(line); m != nil {
		return Event{
			Kind:    KindSubmit,
			CmdID:   mustInt(m[1]),
			CmdType: m[2],
		}
	}
	if m := reComplete.FindStringSubmatch(line); m != nil {
		return Event{
			Kind:   KindComplete,
			CmdID:  mustInt(m[1]),
			Status: m[2],
			Out:    mustInt(m[3]),
		}
	}
	if m := reFence.FindStringSubmatch(line); m != nil {
		return Event{Kind: KindFence, FenceID: mustInt(m[1])}
	}
	if m := reReset.FindStringSubmatch(line); m != nil {
		return Event{
			Kind:          KindReset,
			Reason:        strings.TrimSpace(m[1]),
			PendingBefore: mustInt(m[2]),
		}
	}
	if m := reRunEnd.FindStringSubmatch(line); m != nil {
		return Event{
			Kind:        KindRunEnd,
			PendingLeft: mustInt(m[1]),
			PendingPeak: mustInt(m[2]),
		}
	}
	if m := reHeader.FindStringSubmatch(line); m != nil {
		return Event{Kind: KindHeader, Header: ParseKVList(m[1])}
	}
	return Event{Kind: KindUnknown}
}

// ParseKVList parses "k=v, a=b, ..." where values contain no commas.
// Whitespace around '=' and ',' is tolerated; empty and malformed segments
// are dropped rather than failing the line.
func ParseKVList(s string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

// mustInt converts a digit-only regexp capture. The patterns guarantee the
// input is \d+, so overflow is the only possible failure; a saturated zero
// keeps parsing going the way the original tooling did.
func mustInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
