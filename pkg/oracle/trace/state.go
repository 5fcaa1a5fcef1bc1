package trace

// FenceBoundary records one resolved FENCE line. FenceCmdID is -1 when the
// FENCE line arrived without a preceding fence-type SUBMIT; the boundary is
// still kept, anchored at the submission count observed at that point, so
// fence accounting degrades instead of disappearing.
type FenceBoundary struct {
	FenceID         int
	FenceCmdID      int
	FenceSubmitRank int
}

// RunState accumulates one file's events. It is built by folding lines in
// file order through Fold, closed with Finalize, and then read by the
// metrics engine. A RunState is never shared across files or goroutines.
type RunState struct {
	Header     Header
	headerSeen bool

	// Submission axis: rank counts SUBMIT lines only, step counts every
	// SUBMIT/COMPLETE/FENCE/RESET event.
	SubmitOrder []int          // cmd_id in submission order
	SubmitRank  map[int]int    // cmd_id -> 0-based submission index
	SubmitStep  map[int]int    // cmd_id -> global event step at submission
	CmdType     map[int]string // cmd_id -> cmd_type

	CompleteOrder []int          // cmd_id in completion order
	CompleteRank  map[int]int    // cmd_id -> 0-based completion index
	CompleteStep  map[int]int    // cmd_id -> global event step at completion
	Status        map[int]string // cmd_id -> completion status

	Fences []FenceBoundary

	// Pending fence-command slot: a SUBMIT of type FENCE arms it, the next
	// FENCE line consumes it.
	pendingFenceCmd int
	fencePending    bool

	ResetSeen          bool
	ResetPendingBefore int

	EndSeen     bool
	PendingLeft int
	PendingPeak int

	// Run-level flags. Crash implies Mismatch (one-way ratchet, set in
	// Finalize).
	Mismatch bool
	Timeout  bool
	Crash    bool

	NOK      int
	NErr     int
	NTimeout int

	ViolCompleteUnexpected   int
	ViolResetPendingMismatch int
	ViolBoundOverflow        int

	eventStep   int
	outstanding map[int]struct{}
}

// NewRunState returns an empty per-file state.
func NewRunState() *RunState {
	return &RunState{
		SubmitRank:    make(map[int]int),
		SubmitStep:    make(map[int]int),
		CmdType:       make(map[int]string),
		CompleteRank:  make(map[int]int),
		CompleteStep:  make(map[int]int),
		Status:        make(map[int]string),
		outstanding:   make(map[int]struct{}),
		pendingFenceCmd: -1,
	}
}

// Parse folds every line of a trace file and finalizes the state.
func Parse(lines []string) *RunState {
	s := NewRunState()
	for _, line := range lines {
		s.Fold(line)
	}
	s.Finalize()
	return s
}

// Fold applies one trace line to the state. Protocol violations never stop
// the fold; they set flags or bump counters and parsing continues.
func (s *RunState) Fold(line string) {
	ev := DecodeLine(line)
	switch ev.Kind {
	case KindHeader:
		s.Header = headerFromKV(ev.Header, s.Header)
		s.headerSeen = true
	case KindSubmit:
		s.foldSubmit(ev)
	case KindComplete:
		s.foldComplete(ev)
	case KindFence:
		s.foldFence(ev)
	case KindReset:
		s.foldReset(ev)
	case KindRunEnd:
		s.PendingLeft = ev.PendingLeft
		s.PendingPeak = ev.PendingPeak
		s.EndSeen = true
	case KindUnknown:
		// Harness chatter, skipped.
	}
}

func (s *RunState) foldSubmit(ev Event) {
	if ev.CmdType != CmdTypeFence {
		s.outstanding[ev.CmdID] = struct{}{}
		if bound, finite := s.Header.BoundKValue(); finite && len(s.outstanding) > bound {
			s.ViolBoundOverflow++
		}
	}

	if _, dup := s.SubmitRank[ev.CmdID]; dup {
		s.Mismatch = true
	} else {
		s.SubmitRank[ev.CmdID] = len(s.SubmitOrder)
		s.SubmitOrder = append(s.SubmitOrder, ev.CmdID)
		s.CmdType[ev.CmdID] = ev.CmdType
		s.SubmitStep[ev.CmdID] = s.eventStep
	}

	// The slot is armed even on a duplicate submit; the next FENCE line
	// pairs with whatever fence command was seen last.
	if ev.CmdType == CmdTypeFence {
		s.pendingFenceCmd = ev.CmdID
		s.fencePending = true
	}
	s.eventStep++
}

func (s *RunState) foldComplete(ev Event) {
	// Unexpected-completion check applies to anything not known to be a
	// fence command, including ids that were never submitted.
	if s.CmdType[ev.CmdID] != CmdTypeFence {
		if _, ok := s.outstanding[ev.CmdID]; !ok {
			s.ViolCompleteUnexpected++
		} else {
			delete(s.outstanding, ev.CmdID)
		}
	}

	if _, ok := s.SubmitRank[ev.CmdID]; !ok {
		s.Mismatch = true // complete for unknown cmd_id
	}

	if _, dup := s.CompleteRank[ev.CmdID]; dup {
		s.Mismatch = true
	} else {
		s.CompleteRank[ev.CmdID] = len(s.CompleteOrder)
		s.CompleteOrder = append(s.CompleteOrder, ev.CmdID)
		s.Status[ev.CmdID] = ev.Status
		s.CompleteStep[ev.CmdID] = s.eventStep
	}

	// Status tallies count every COMPLETE line, duplicates included.
	switch ev.Status {
	case StatusOK:
		s.NOK++
	case StatusErr:
		s.NErr++
	case StatusTimeout:
		s.NTimeout++
		s.Timeout = true
	}
	s.eventStep++
}

func (s *RunState) foldFence(ev Event) {
	if !s.fencePending {
		// Fence resolution with no armed fence command: a mismatch, but the
		// boundary is recorded at the current submission count anyway.
		s.Mismatch = true
		s.Fences = append(s.Fences, FenceBoundary{
			FenceID:         ev.FenceID,
			FenceCmdID:      -1,
			FenceSubmitRank: len(s.SubmitOrder),
		})
	} else {
		rank, ok := s.SubmitRank[s.pendingFenceCmd]
		if !ok {
			rank = len(s.SubmitOrder)
		}
		s.Fences = append(s.Fences, FenceBoundary{
			FenceID:         ev.FenceID,
			FenceCmdID:      s.pendingFenceCmd,
			FenceSubmitRank: rank,
		})
		s.pendingFenceCmd = -1
		s.fencePending = false
	}
	s.eventStep++
}

func (s *RunState) foldReset(ev Event) {
	s.ResetSeen = true
	s.ResetPendingBefore = ev.PendingBefore
	if ev.PendingBefore != len(s.outstanding) {
		s.ViolResetPendingMismatch++
	}
	// RESET drains the device queue regardless of whether the declared
	// count matched.
	s.outstanding = make(map[int]struct{})
	s.eventStep++
}

// Finalize evaluates the post-pass invariants: a missing RUN_END is a crash
// (and a crash forces mismatch), and a NONE-fault run must terminate with
// nothing left pending.
func (s *RunState) Finalize() {
	if !s.EndSeen {
		s.Crash = true
		s.Mismatch = true
	}
	if s.Header.FaultMode == FaultNone && s.EndSeen && s.PendingLeft > 0 {
		s.Mismatch = true
	}
}

// Outstanding reports the current size of the live outstanding set. Exposed
// for tests; metrics never read it.
func (s *RunState) Outstanding() int { return len(s.outstanding) }
