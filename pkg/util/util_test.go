package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seqlab/trace-oracle/pkg/util"
)

func TestMatchesIgnorePattern(t *testing.T) {
	testCases := []struct {
		name    string
		pattern string
		relPath string
		want    bool
	}{
		{"exact file", "notes.txt", "notes.txt", true},
		{"glob extension", "*.bak", "trace.bak", true},
		{"glob at depth", "*.bak", "runs/day1/trace.bak", true},
		{"directory name at depth", "scratch", "runs/scratch", true},
		{"full path glob", "runs/*/draft.log", "runs/day1/draft.log", true},
		{"prefix glob on basename", "tmp*", "runs/tmpdir", true},
		{"no match", "*.bak", "trace.log", false},
		{"partial name does not match", "trace", "trace.log", false},
		{"star does not cross separators", "runs/*.log", "runs/day1/a.log", false},
		{"empty pattern", "", "trace.log", false},
		{"empty path", "*.log", "", false},
		{"dot path", "*", ".", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, util.MatchesIgnorePattern(tc.pattern, tc.relPath))
		})
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	assert.Equal(t, "open failed: no such file",
		util.SanitizeErrorMessage("open failed:\n  no such file\r\n"))
	assert.Equal(t, "plain", util.SanitizeErrorMessage("plain"))
	assert.Equal(t, "", util.SanitizeErrorMessage("  \n\r  "))
}
