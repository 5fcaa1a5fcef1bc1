package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteTrace writes a trace file made of the given lines at path, ensuring
// parent directories exist.
func WriteTrace(t *testing.T, path string, lines ...string) {
	t.Helper()
	fullPath := filepath.Clean(path)
	dir := filepath.Dir(fullPath)
	err := os.MkdirAll(dir, 0755)
	require.NoError(t, err, "Failed to create directory %s for trace file", dir)
	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	err = os.WriteFile(fullPath, []byte(content), 0644)
	require.NoError(t, err, "Failed to write trace file %s", fullPath)
}

// Header renders a RUN_HEADER line with typical sweep values and the given
// policy, bound and fault mode.
func Header(policy, boundK, faultMode string) string {
	return fmt.Sprintf("RUN_HEADER(run_id=run-0001, seed_id=7, schedule_seed=1234, policy=%s, bound_k=%s, fault_mode=%s, n_cmds=4, scheduler_version=2, git_commit=abc1234)",
		policy, boundK, faultMode)
}

// Submit renders a SUBMIT line.
func Submit(cmdID int, cmdType string) string {
	return fmt.Sprintf("SUBMIT(cmd_id=%d, cmd_type=%s)", cmdID, cmdType)
}

// Complete renders a COMPLETE line.
func Complete(cmdID int, status string, out int) string {
	return fmt.Sprintf("COMPLETE(cmd_id=%d, status=%s, out=%d)", cmdID, status, out)
}

// Fence renders a FENCE completion marker line.
func Fence(fenceID int) string {
	return fmt.Sprintf("FENCE(fence_id=%d)", fenceID)
}

// Reset renders a RESET line.
func Reset(reason string, pendingBefore int) string {
	return fmt.Sprintf("RESET(reason=%s, pending_before=%d)", reason, pendingBefore)
}

// RunEnd renders a RUN_END terminal line.
func RunEnd(pendingLeft, pendingPeak int) string {
	return fmt.Sprintf("RUN_END(pending_left=%d, pending_peak=%d)", pendingLeft, pendingPeak)
}
