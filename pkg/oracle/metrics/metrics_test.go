package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seqlab/trace-oracle/pkg/oracle/trace"
)

// stateFromOrders builds a minimal RunState where every command is a plain
// WRITE submitted in the given order and completed in the given order.
func stateFromOrders(submits, completes []int) *trace.RunState {
	s := &trace.RunState{
		SubmitRank:   map[int]int{},
		SubmitStep:   map[int]int{},
		CmdType:      map[int]string{},
		CompleteRank: map[int]int{},
		CompleteStep: map[int]int{},
		Status:       map[int]string{},
	}
	for i, cid := range submits {
		s.SubmitOrder = append(s.SubmitOrder, cid)
		s.SubmitRank[cid] = i
		s.CmdType[cid] = "WRITE"
	}
	for i, cid := range completes {
		s.CompleteOrder = append(s.CompleteOrder, cid)
		s.CompleteRank[cid] = i
	}
	return s
}

func TestFenwickPrefixSums(t *testing.T) {
	fw := NewFenwick(8)
	fw.Add(0, 1)
	fw.Add(3, 2)
	fw.Add(7, 5)

	assert.Equal(t, 1, fw.Sum(0))
	assert.Equal(t, 1, fw.Sum(2))
	assert.Equal(t, 3, fw.Sum(3))
	assert.Equal(t, 8, fw.Sum(7))
	assert.Equal(t, 0, fw.Sum(-1))

	assert.Equal(t, 2, fw.RangeSum(1, 3))
	assert.Equal(t, 7, fw.RangeSum(3, 7))
	assert.Equal(t, 0, fw.RangeSum(5, 4))
	assert.Equal(t, 8, fw.RangeSum(0, 7))
}

func TestReorderingDegreeInOrder(t *testing.T) {
	s := stateFromOrders([]int{0, 1, 2, 3}, []int{0, 1, 2, 3})
	assert.Equal(t, 0.0, ReorderingDegree(s))
}

func TestReorderingDegreeFullReversal(t *testing.T) {
	s := stateFromOrders([]int{0, 1, 2, 3}, []int{3, 2, 1, 0})
	assert.Equal(t, 1.0, ReorderingDegree(s))
}

func TestReorderingDegreePartial(t *testing.T) {
	// One inversion among three completions: 1/C(3,2) = 1/3.
	s := stateFromOrders([]int{0, 1, 2, 3}, []int{1, 0, 2})
	assert.InDelta(t, 1.0/3.0, ReorderingDegree(s), 1e-12)
}

func TestReorderingDegreeFewerThanTwoSamples(t *testing.T) {
	assert.Equal(t, 0.0, ReorderingDegree(stateFromOrders(nil, nil)))
	assert.Equal(t, 0.0, ReorderingDegree(stateFromOrders([]int{0}, []int{0})))
}

func TestReorderingDegreeIgnoresUnknownCompletions(t *testing.T) {
	// cmd 5 was never submitted; its completion must not contribute ranks.
	s := stateFromOrders([]int{0, 1}, []int{5, 0, 1})
	assert.Equal(t, 0.0, ReorderingDegree(s))
}

func TestFenceSatisfactionNoFences(t *testing.T) {
	s := stateFromOrders([]int{0, 1}, []int{0, 1})
	assert.Equal(t, 1.0, FenceSatisfaction(s))
}

// fencedState arms a fence command between two WRITE submissions.
func fencedState(completes []int) *trace.RunState {
	s := stateFromOrders([]int{0, 10, 1}, completes)
	s.CmdType[10] = trace.CmdTypeFence
	s.Fences = []trace.FenceBoundary{{FenceID: 1, FenceCmdID: 10, FenceSubmitRank: 1}}
	return s
}

func TestFenceSatisfactionRespected(t *testing.T) {
	assert.Equal(t, 1.0, FenceSatisfaction(fencedState([]int{0, 1})))
}

func TestFenceSatisfactionViolated(t *testing.T) {
	assert.Equal(t, 0.0, FenceSatisfaction(fencedState([]int{1, 0})))
}

func TestFenceSatisfactionNeverCompletedBefore(t *testing.T) {
	// The before-side command never completed, so the pair cannot be ok.
	assert.Equal(t, 0.0, FenceSatisfaction(fencedState([]int{1})))
}

func TestFenceSatisfactionBothNeverCompletedIsNotOK(t *testing.T) {
	// Two uncompleted commands tie at the sentinel position; a tie is a
	// counted, unsatisfied pair.
	assert.Equal(t, 0.0, FenceSatisfaction(fencedState(nil)))
}

func TestFenceSatisfactionNoCrossPairsIsVacuous(t *testing.T) {
	// Fence submitted last: no after-side commands, boundary is skipped.
	s := stateFromOrders([]int{0, 1, 10}, []int{0, 1})
	s.CmdType[10] = trace.CmdTypeFence
	s.Fences = []trace.FenceBoundary{{FenceID: 1, FenceCmdID: 10, FenceSubmitRank: 2}}
	assert.Equal(t, 1.0, FenceSatisfaction(s))
}

func TestFenceSatisfactionMultipleBoundariesAggregate(t *testing.T) {
	// Boundary at rank 1: pairs (0,1),(0,2) both ok. Boundary at rank 3:
	// pairs (0,2),(1,2) with 2 completing first, both violated. 2/4.
	s := stateFromOrders([]int{0, 10, 1, 11, 2}, []int{2, 0, 1})
	s.CmdType[10] = trace.CmdTypeFence
	s.CmdType[11] = trace.CmdTypeFence
	s.Fences = []trace.FenceBoundary{
		{FenceID: 1, FenceCmdID: 10, FenceSubmitRank: 1},
		{FenceID: 2, FenceCmdID: 11, FenceSubmitRank: 3},
	}
	assert.InDelta(t, 0.5, FenceSatisfaction(s), 1e-12)
}

func TestResetCompletionScoreNonResetFaultIsOne(t *testing.T) {
	for _, mode := range []string{trace.FaultNone, trace.FaultTimeout, ""} {
		s := stateFromOrders(nil, nil)
		s.Header.FaultMode = mode
		s.ResetSeen = true
		s.ResetPendingBefore = 4
		s.EndSeen = true
		s.PendingLeft = 4
		assert.Equal(t, 1.0, ResetCompletionScore(s), "mode %q", mode)
	}
}

func TestResetCompletionScoreDrainFraction(t *testing.T) {
	s := stateFromOrders(nil, nil)
	s.Header.FaultMode = trace.FaultReset
	s.ResetSeen = true
	s.ResetPendingBefore = 4
	s.EndSeen = true
	s.PendingLeft = 1
	assert.InDelta(t, 0.75, ResetCompletionScore(s), 1e-12)
}

func TestResetCompletionScoreClampsAtZero(t *testing.T) {
	s := stateFromOrders(nil, nil)
	s.Header.FaultMode = trace.FaultReset
	s.ResetSeen = true
	s.ResetPendingBefore = 4
	s.EndSeen = true
	s.PendingLeft = 6
	assert.Equal(t, 0.0, ResetCompletionScore(s))
}

func TestResetCompletionScoreNoResetSeenIsOne(t *testing.T) {
	s := stateFromOrders(nil, nil)
	s.Header.FaultMode = trace.FaultReset
	s.EndSeen = true
	s.PendingLeft = 3
	assert.Equal(t, 1.0, ResetCompletionScore(s))
}

func TestResetCompletionScoreCrashTreatsLeftAsZero(t *testing.T) {
	s := stateFromOrders(nil, nil)
	s.Header.FaultMode = trace.FaultReset
	s.ResetSeen = true
	s.ResetPendingBefore = 4
	assert.Equal(t, 1.0, ResetCompletionScore(s))
}

func withSteps(s *trace.RunState, submitSteps, completeSteps map[int]int) *trace.RunState {
	for cid, st := range submitSteps {
		s.SubmitStep[cid] = st
	}
	for cid, st := range completeSteps {
		s.CompleteStep[cid] = st
	}
	return s
}

func TestLatenciesBothFamilies(t *testing.T) {
	s := withSteps(stateFromOrders([]int{0, 1, 2}, []int{1, 0, 2}),
		map[int]int{0: 0, 1: 1, 2: 2},
		map[int]int{0: 4, 1: 3, 2: 5})

	disp, step, violation := Latencies(s)
	assert.False(t, violation)

	// Displacement samples: 0 -> +1, 1 -> -1, 2 -> 0. Nearest-rank p95 on
	// three samples lands on the middle element.
	assert.Equal(t, 0.0, disp.Mean)
	assert.Equal(t, 0.0, disp.P95)
	assert.Equal(t, 1.0, disp.Max)

	// Step samples: 4, 2, 3.
	assert.Equal(t, 3.0, step.Mean)
	assert.Equal(t, 3.0, step.P95)
	assert.Equal(t, 4.0, step.Max)
}

func TestLatenciesStepViolationExcludedButFlagged(t *testing.T) {
	s := withSteps(stateFromOrders([]int{0, 1}, []int{0, 1}),
		map[int]int{0: 5, 1: 1},
		map[int]int{0: 2, 1: 3})

	disp, step, violation := Latencies(s)
	assert.True(t, violation)
	// Both completions keep their displacement samples.
	assert.Equal(t, 0.0, disp.Mean)
	assert.Equal(t, 0.0, disp.Max)
	// Only cmd 1 survives into the step family.
	assert.Equal(t, 2.0, step.Mean)
	assert.Equal(t, 2.0, step.Max)
}

func TestLatenciesSkipFenceAndUncompleted(t *testing.T) {
	s := withSteps(stateFromOrders([]int{0, 10, 1}, []int{0, 10}),
		map[int]int{0: 0, 10: 1, 1: 2},
		map[int]int{0: 3, 10: 4})
	s.CmdType[10] = trace.CmdTypeFence

	disp, step, violation := Latencies(s)
	assert.False(t, violation)
	assert.Equal(t, 0.0, disp.Mean) // only cmd 0, rank 0 -> 0
	assert.Equal(t, 3.0, step.Mean)
	assert.Equal(t, 3.0, step.Max)
}

func TestLatenciesEmpty(t *testing.T) {
	disp, step, violation := Latencies(stateFromOrders(nil, nil))
	assert.False(t, violation)
	assert.Equal(t, LatencyStats{}, disp)
	assert.Equal(t, LatencyStats{}, step)
}

func TestSummarizeNearestRankP95(t *testing.T) {
	samples := make([]int, 0, 20)
	for v := 20; v >= 1; v-- {
		samples = append(samples, v)
	}
	st := summarize(samples)
	assert.InDelta(t, 10.5, st.Mean, 1e-12)
	assert.Equal(t, 19.0, st.P95) // index floor(0.95*19) = 18
	assert.Equal(t, 20.0, st.Max)
}

func TestTailBudgetFiniteBound(t *testing.T) {
	s := stateFromOrders(nil, nil)
	s.Header.BoundK = "4"

	budget, slack, exceed := TailBudget(s, 12)
	assert.Equal(t, 11, budget)
	assert.InDelta(t, 1.0, slack, 1e-12)
	assert.Equal(t, 1, exceed)

	budget, slack, exceed = TailBudget(s, 11)
	assert.Equal(t, 11, budget)
	assert.Equal(t, 0.0, slack)
	assert.Equal(t, 0, exceed)
}

func TestTailBudgetUnboundedUsesPeak(t *testing.T) {
	s := stateFromOrders(nil, nil)
	s.Header.BoundK = "inf"
	s.EndSeen = true
	s.PendingPeak = 5

	budget, slack, exceed := TailBudget(s, 10)
	assert.Equal(t, 13, budget)
	assert.InDelta(t, -3.0, slack, 1e-12)
	assert.Equal(t, 0, exceed)
}

func TestTailBudgetUnboundedCrashPeakZero(t *testing.T) {
	s := stateFromOrders(nil, nil)
	s.Header.BoundK = "unbounded"

	budget, _, exceed := TailBudget(s, 4)
	assert.Equal(t, 3, budget)
	assert.Equal(t, 1, exceed)
}
