package trace

import (
	"strconv"
	"strings"
)

// Header carries the run configuration announced by the RUN_HEADER line.
// It is set once from the first header line seen; missing keys keep their
// zero defaults and the struct is never mutated afterwards.
type Header struct {
	RunID            string
	SeedID           string
	ScheduleSeed     int64
	Policy           string
	BoundK           string // raw header value; see BoundKValue
	FaultMode        string
	NCmds            int
	SchedulerVersion string
	GitCommit        string
}

// Fault modes announced in headers.
const (
	FaultNone    = "NONE"
	FaultReset   = "RESET"
	FaultTimeout = "TIMEOUT"
)

func headerFromKV(kv map[string]string, prev Header) Header {
	h := prev
	if v, ok := kv["run_id"]; ok {
		h.RunID = v
	}
	if v, ok := kv["seed_id"]; ok {
		h.SeedID = v
	}
	if v, ok := kv["schedule_seed"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			h.ScheduleSeed = n
		}
	}
	if v, ok := kv["policy"]; ok {
		h.Policy = v
	}
	if v, ok := kv["bound_k"]; ok {
		h.BoundK = v
	} else if v, ok := kv["submit_window"]; ok && h.BoundK == "" {
		// Older simulator builds announced the bound under submit_window.
		h.BoundK = v
	}
	if v, ok := kv["fault_mode"]; ok {
		h.FaultMode = v
	}
	if v, ok := kv["n_cmds"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			h.NCmds = n
		}
	}
	if v, ok := kv["scheduler_version"]; ok {
		h.SchedulerVersion = v
	}
	if v, ok := kv["git_commit"]; ok {
		h.GitCommit = v
	}
	return h
}

// BoundKValue returns the finite outstanding bound, if any. The simulator
// writes "inf" for unbounded runs; "unbounded" and an absent value mean the
// same, and an unparsable value degrades to unbounded rather than failing
// the run.
func (h Header) BoundKValue() (int, bool) {
	raw := strings.TrimSpace(h.BoundK)
	switch strings.ToLower(raw) {
	case "", "inf", "unbounded":
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
