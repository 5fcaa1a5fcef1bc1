package trace

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func header(policy, boundK, faultMode string, nCmds int) string {
	return "RUN_HEADER(run_id=r1, seed_id=7, schedule_seed=99, policy=" + policy +
		", bound_k=" + boundK + ", fault_mode=" + faultMode +
		", n_cmds=" + strconv.Itoa(nCmds) + ", scheduler_version=2, git_commit=abc1234)"
}

func TestParseCleanRun(t *testing.T) {
	s := Parse([]string{
		header("FIFO", "4", FaultNone, 2),
		"SUBMIT(cmd_id=0, cmd_type=WRITE)",
		"SUBMIT(cmd_id=1, cmd_type=READ)",
		"COMPLETE(cmd_id=0, status=OK, out=8)",
		"COMPLETE(cmd_id=1, status=OK, out=8)",
		"RUN_END(pending_left=0, pending_peak=2)",
	})
	assert.False(t, s.Mismatch)
	assert.False(t, s.Crash)
	assert.False(t, s.Timeout)
	assert.True(t, s.EndSeen)
	assert.Equal(t, 2, s.NOK)
	assert.Equal(t, []int{0, 1}, s.SubmitOrder)
	assert.Equal(t, []int{0, 1}, s.CompleteOrder)
	assert.Equal(t, 2, s.PendingPeak)
	assert.Equal(t, "r1", s.Header.RunID)
	assert.Equal(t, 0, s.Outstanding())
}

func TestParseMissingRunEndIsCrashAndMismatch(t *testing.T) {
	s := Parse([]string{
		header("FIFO", "4", FaultNone, 1),
		"SUBMIT(cmd_id=0, cmd_type=WRITE)",
		"COMPLETE(cmd_id=0, status=OK, out=8)",
	})
	assert.True(t, s.Crash)
	assert.True(t, s.Mismatch, "crash must imply mismatch")
	assert.False(t, s.EndSeen)
}

func TestParseNoneFaultPendingLeftIsMismatch(t *testing.T) {
	s := Parse([]string{
		header("FIFO", "4", FaultNone, 1),
		"SUBMIT(cmd_id=0, cmd_type=WRITE)",
		"RUN_END(pending_left=1, pending_peak=1)",
	})
	assert.True(t, s.Mismatch)
	assert.False(t, s.Crash)
}

func TestParseResetFaultPendingLeftAllowed(t *testing.T) {
	s := Parse([]string{
		header("FIFO", "4", FaultReset, 2),
		"SUBMIT(cmd_id=0, cmd_type=WRITE)",
		"SUBMIT(cmd_id=1, cmd_type=WRITE)",
		"RESET(reason=FAULT_INJECT, pending_before=2)",
		"RUN_END(pending_left=2, pending_peak=2)",
	})
	assert.False(t, s.Mismatch)
	assert.True(t, s.ResetSeen)
	assert.Equal(t, 2, s.ResetPendingBefore)
	assert.Equal(t, 0, s.Outstanding(), "reset drains the live set")
}

func TestFoldDuplicateSubmit(t *testing.T) {
	s := Parse([]string{
		header("FIFO", "inf", FaultNone, 2),
		"SUBMIT(cmd_id=0, cmd_type=WRITE)",
		"SUBMIT(cmd_id=0, cmd_type=WRITE)",
		"COMPLETE(cmd_id=0, status=OK, out=0)",
		"RUN_END(pending_left=1, pending_peak=2)",
	})
	assert.True(t, s.Mismatch)
	// The duplicate is not recorded a second time.
	assert.Equal(t, []int{0}, s.SubmitOrder)
}

func TestFoldCompleteForUnknownID(t *testing.T) {
	s := Parse([]string{
		header("FIFO", "inf", FaultNone, 1),
		"COMPLETE(cmd_id=9, status=OK, out=0)",
		"RUN_END(pending_left=0, pending_peak=0)",
	})
	assert.True(t, s.Mismatch)
	assert.Equal(t, 1, s.ViolCompleteUnexpected)
	// Status tallies still count the line.
	assert.Equal(t, 1, s.NOK)
}

func TestFoldDuplicateCompleteCountsStatusTwice(t *testing.T) {
	s := Parse([]string{
		header("FIFO", "inf", FaultNone, 1),
		"SUBMIT(cmd_id=0, cmd_type=WRITE)",
		"COMPLETE(cmd_id=0, status=OK, out=0)",
		"COMPLETE(cmd_id=0, status=OK, out=0)",
		"RUN_END(pending_left=0, pending_peak=1)",
	})
	assert.True(t, s.Mismatch)
	assert.Equal(t, []int{0}, s.CompleteOrder)
	assert.Equal(t, 2, s.NOK)
	assert.Equal(t, 1, s.ViolCompleteUnexpected, "second complete hits an empty outstanding set")
}

func TestFoldTimeoutStatusSetsFlag(t *testing.T) {
	s := Parse([]string{
		header("FIFO", "inf", FaultTimeout, 1),
		"SUBMIT(cmd_id=0, cmd_type=WRITE)",
		"COMPLETE(cmd_id=0, status=TIMEOUT, out=0)",
		"RUN_END(pending_left=0, pending_peak=1)",
	})
	assert.True(t, s.Timeout)
	assert.Equal(t, 1, s.NTimeout)
	assert.False(t, s.Mismatch)
}

func TestFoldFencePairing(t *testing.T) {
	s := Parse([]string{
		header("FIFO", "inf", FaultNone, 3),
		"SUBMIT(cmd_id=0, cmd_type=WRITE)",
		"SUBMIT(cmd_id=1, cmd_type=FENCE)",
		"FENCE(fence_id=1)",
		"SUBMIT(cmd_id=2, cmd_type=WRITE)",
		"COMPLETE(cmd_id=0, status=OK, out=0)",
		"COMPLETE(cmd_id=2, status=OK, out=0)",
		"RUN_END(pending_left=0, pending_peak=1)",
	})
	require.Len(t, s.Fences, 1)
	assert.Equal(t, 1, s.Fences[0].FenceID)
	assert.Equal(t, 1, s.Fences[0].FenceCmdID)
	assert.Equal(t, 1, s.Fences[0].FenceSubmitRank)
	assert.False(t, s.Mismatch)
}

func TestFoldFenceWithoutArmedCommand(t *testing.T) {
	s := Parse([]string{
		header("FIFO", "inf", FaultNone, 1),
		"SUBMIT(cmd_id=0, cmd_type=WRITE)",
		"FENCE(fence_id=5)",
		"COMPLETE(cmd_id=0, status=OK, out=0)",
		"RUN_END(pending_left=0, pending_peak=1)",
	})
	assert.True(t, s.Mismatch)
	require.Len(t, s.Fences, 1)
	assert.Equal(t, -1, s.Fences[0].FenceCmdID)
	assert.Equal(t, 1, s.Fences[0].FenceSubmitRank, "anchored at the current submission count")
}

func TestFoldResetPendingMismatch(t *testing.T) {
	s := Parse([]string{
		header("FIFO", "inf", FaultReset, 2),
		"SUBMIT(cmd_id=0, cmd_type=WRITE)",
		"RESET(reason=FAULT_INJECT, pending_before=3)",
		"RUN_END(pending_left=0, pending_peak=1)",
	})
	assert.Equal(t, 1, s.ViolResetPendingMismatch)
	assert.Equal(t, 0, s.Outstanding())
}

func TestFoldBoundOverflow(t *testing.T) {
	s := Parse([]string{
		header("FIFO", "1", FaultNone, 3),
		"SUBMIT(cmd_id=0, cmd_type=WRITE)",
		"SUBMIT(cmd_id=1, cmd_type=WRITE)",
		"SUBMIT(cmd_id=2, cmd_type=WRITE)",
		"COMPLETE(cmd_id=0, status=OK, out=0)",
		"COMPLETE(cmd_id=1, status=OK, out=0)",
		"COMPLETE(cmd_id=2, status=OK, out=0)",
		"RUN_END(pending_left=0, pending_peak=3)",
	})
	assert.Equal(t, 2, s.ViolBoundOverflow)
	assert.False(t, s.Mismatch, "overflow is a counter, not an admissibility flag")
}

func TestFoldFenceSubmitDoesNotEnterOutstanding(t *testing.T) {
	s := NewRunState()
	s.Fold(header("FIFO", "1", FaultNone, 2))
	s.Fold("SUBMIT(cmd_id=0, cmd_type=WRITE)")
	s.Fold("SUBMIT(cmd_id=1, cmd_type=FENCE)")
	assert.Equal(t, 1, s.Outstanding())
	assert.Equal(t, 0, s.ViolBoundOverflow, "fence submits never count against the bound")
}

func TestEventStepAdvancesPerEvent(t *testing.T) {
	s := Parse([]string{
		header("FIFO", "inf", FaultNone, 2),
		"SUBMIT(cmd_id=0, cmd_type=WRITE)",
		"SUBMIT(cmd_id=1, cmd_type=WRITE)",
		"noise line the scheduler printed",
		"COMPLETE(cmd_id=1, status=OK, out=0)",
		"COMPLETE(cmd_id=0, status=OK, out=0)",
		"RUN_END(pending_left=0, pending_peak=2)",
	})
	// Header, unknown lines and RUN_END do not advance the step counter.
	assert.Equal(t, 0, s.SubmitStep[0])
	assert.Equal(t, 1, s.SubmitStep[1])
	assert.Equal(t, 2, s.CompleteStep[1])
	assert.Equal(t, 3, s.CompleteStep[0])
}

func TestOccupancyAreaAndMean(t *testing.T) {
	lines := []string{
		header("FIFO", "inf", FaultNone, 2),
		"SUBMIT(cmd_id=0, cmd_type=WRITE)",  // pending 1
		"SUBMIT(cmd_id=1, cmd_type=WRITE)",  // pending 2
		"SUBMIT(cmd_id=2, cmd_type=FENCE)",  // excluded
		"COMPLETE(cmd_id=0, status=OK, out=0)", // pending 1
		"COMPLETE(cmd_id=1, status=OK, out=0)", // pending 0
		"RUN_END(pending_left=0, pending_peak=2)",
	}
	s := Parse(lines)
	occ := Occupancy(lines, s)
	assert.Equal(t, 4, occ.Area)
	assert.Equal(t, 4, occ.Steps)
	assert.InDelta(t, 1.0, occ.Mean(), 1e-9)
}

func TestOccupancyUnknownCompleteDecrements(t *testing.T) {
	lines := []string{
		"SUBMIT(cmd_id=0, cmd_type=WRITE)",     // pending 1
		"COMPLETE(cmd_id=99, status=OK, out=0)", // unknown id still decrements
		"COMPLETE(cmd_id=0, status=OK, out=0)",  // floors at zero
	}
	s := Parse(lines)
	occ := Occupancy(lines, s)
	assert.Equal(t, 1, occ.Area)
	assert.Equal(t, 3, occ.Steps)
}

func TestOccupancyEmpty(t *testing.T) {
	occ := Occupancy(nil, NewRunState())
	assert.Equal(t, 0, occ.Area)
	assert.Equal(t, 0, occ.Steps)
	assert.Equal(t, 0.0, occ.Mean())
}
