package metrics

import (
	"math"
	"sort"

	"github.com/seqlab/trace-oracle/pkg/oracle/trace"
)

// neverCompleted stands in for the completion position of a command that
// never completed: larger than any real position, equal to itself, so a
// completed command always beats it and two uncompleted commands tie
// (ties are not ok-pairs).
const neverCompleted = math.MaxInt

// ReorderingDegree is the normalized inversion count between submission
// order and completion order: 0 for a rank-preserving completion order,
// 1 for the full reversal. Completions whose id was never validly
// submitted are ignored (they already count as mismatch).
func ReorderingDegree(s *trace.RunState) float64 {
	ranks := make([]int, 0, len(s.CompleteOrder))
	for _, cid := range s.CompleteOrder {
		if r, ok := s.SubmitRank[cid]; ok {
			ranks = append(ranks, r)
		}
	}
	if len(ranks) < 2 {
		return 0
	}

	// Compress ranks to a dense 0..k-1 space.
	sorted := append([]int(nil), ranks...)
	sort.Ints(sorted)
	comp := make(map[int]int, len(sorted))
	for _, r := range sorted {
		if _, ok := comp[r]; !ok {
			comp[r] = len(comp)
		}
	}

	fw := NewFenwick(len(comp))
	inversions := 0
	for seen, r := range ranks {
		x := comp[r]
		inversions += seen - fw.Sum(x)
		fw.Add(x, 1)
	}

	n := len(ranks)
	pairs := float64(n) * float64(n-1) / 2
	return float64(inversions) / pairs
}

// FenceSatisfaction is the fraction of cross-fence command pairs whose
// completion order respects the fence, aggregated over all boundaries.
// Vacuously 1 with no fences or no constrained pairs.
func FenceSatisfaction(s *trace.RunState) float64 {
	if len(s.Fences) == 0 {
		return 1
	}

	cpos := func(cid int) int {
		if p, ok := s.CompleteRank[cid]; ok {
			return p
		}
		return neverCompleted
	}

	okSum, totalSum := 0, 0
	for _, f := range s.Fences {
		var before, after []int
		for _, cid := range s.SubmitOrder {
			if s.CmdType[cid] == trace.CmdTypeFence {
				continue // the fence command itself is not constrained
			}
			rank := s.SubmitRank[cid]
			switch {
			case rank < f.FenceSubmitRank:
				before = append(before, cid)
			case rank > f.FenceSubmitRank:
				after = append(after, cid)
			}
		}
		if len(before) == 0 || len(after) == 0 {
			continue
		}
		for _, x := range before {
			cx := cpos(x)
			for _, y := range after {
				if cx < cpos(y) {
					okSum++
				}
			}
		}
		totalSum += len(before) * len(after)
	}

	if totalSum == 0 {
		return 1
	}
	return float64(okSum) / float64(totalSum)
}

// ResetCompletionScore measures how much of the pre-reset backlog drained
// by run end. Only RESET-fault runs are scored; everything else is 1.
func ResetCompletionScore(s *trace.RunState) float64 {
	if s.Header.FaultMode != trace.FaultReset {
		return 1
	}
	expected := 0
	if s.ResetSeen {
		expected = s.ResetPendingBefore
	}
	left := 0
	if s.EndSeen {
		left = s.PendingLeft
	}
	if expected == 0 {
		return 1
	}
	rcs := float64(expected-left) / float64(expected)
	if rcs < 0 {
		return 0
	}
	if rcs > 1 {
		return 1
	}
	return rcs
}

// LatencyStats summarizes one latency sample family. All fields are 0 for
// an empty sample.
type LatencyStats struct {
	Mean float64
	P95  float64
	Max  float64
}

// Latencies computes the two latency families over completed non-fence
// commands. Displacement latency (completion rank minus submission rank,
// signed) keeps every completed command. Step latency (completion step
// minus submission step) excludes commands whose completion step precedes
// their submission step; those violations are reported via the returned
// flag so the caller can ratchet the run's mismatch. The exclusion applies
// to step latency only; the asymmetry is part of the contract.
func Latencies(s *trace.RunState) (disp, step LatencyStats, orderViolation bool) {
	var dispSamples, stepSamples []int
	for _, cid := range s.SubmitOrder {
		if s.CmdType[cid] == trace.CmdTypeFence {
			continue
		}
		cp, completed := s.CompleteRank[cid]
		if !completed {
			continue
		}
		dispSamples = append(dispSamples, cp-s.SubmitRank[cid])

		ss, okS := s.SubmitStep[cid]
		cs, okC := s.CompleteStep[cid]
		if !okS || !okC {
			continue
		}
		if cs < ss {
			orderViolation = true
			continue
		}
		stepSamples = append(stepSamples, cs-ss)
	}
	return summarize(dispSamples), summarize(stepSamples), orderViolation
}

// summarize sorts ascending and takes mean, nearest-rank p95
// (index floor(0.95*(n-1))) and max.
func summarize(samples []int) LatencyStats {
	if len(samples) == 0 {
		return LatencyStats{}
	}
	sort.Ints(samples)
	total := 0
	for _, v := range samples {
		total += v
	}
	idx := int(0.95 * float64(len(samples)-1))
	return LatencyStats{
		Mean: float64(total) / float64(len(samples)),
		P95:  float64(samples[idx]),
		Max:  float64(samples[len(samples)-1]),
	}
}

// TailBudget scales a latency allowance from the queue bound (or, for
// unbounded runs, the observed occupancy peak) and checks the step-latency
// tail against it. The triple is the contract surfaced to the adversarial
// search; the formula must not drift.
func TailBudget(s *trace.RunState, p95Step float64) (budget int, slack float64, exceed int) {
	if k, finite := s.Header.BoundKValue(); finite {
		budget = 2*k + 3
	} else {
		peak := 0
		if s.EndSeen {
			peak = s.PendingPeak
		}
		budget = 2*peak + 3
	}
	slack = p95Step - float64(budget)
	if slack > 0 {
		exceed = 1
	}
	return budget, slack, exceed
}
