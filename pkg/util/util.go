package util

import (
	"path/filepath"
	"strings"
)

// MatchesIgnorePattern checks a slash-relative path against a glob-style
// ignore pattern. A simplified matcher built on filepath.Match: a bare
// pattern is tried against the full relative path and against every path
// suffix, so "tmp*" ignores tmp directories at any depth.
func MatchesIgnorePattern(pattern, relPath string) bool {
	pattern = filepath.ToSlash(pattern)
	relPath = filepath.ToSlash(relPath)
	if pattern == "" || relPath == "" || relPath == "." {
		return false
	}
	if match, _ := filepath.Match(pattern, relPath); match {
		return true
	}
	parts := strings.Split(relPath, "/")
	for i := range parts {
		if match, _ := filepath.Match(pattern, strings.Join(parts[i:], "/")); match {
			return true
		}
	}
	return false
}

// SanitizeErrorMessage collapses an error string to a single line suitable
// for progress output and report fields.
func SanitizeErrorMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	return strings.Join(strings.Fields(msg), " ")
}
