// Package git resolves version-control metadata about the tool's own
// checkout, used to stamp reports for provenance.
package git

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/seqlab/trace-oracle/pkg/oracle"
)

// ErrGitOperation wraps failures from the go-git backend.
var ErrGitOperation = errors.New("git operation failed")

// GoGitClient implements the oracle.GitClient interface using go-git.
type GoGitClient struct {
	logger *slog.Logger
}

// NewGoGitClient creates a new GoGitClient.
func NewGoGitClient(loggerHandler slog.Handler) oracle.GitClient {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	logger := slog.New(loggerHandler).With(slog.String("component", "gitClient"), slog.String("backend", "go-git"))
	return &GoGitClient{logger: logger}
}

// HeadCommit returns the HEAD commit hash of the repository at or above
// repoPath and whether the worktree carries uncommitted changes. A missing
// repository is an error; the caller treats it as "no provenance".
func (c *GoGitClient) HeadCommit(repoPath string) (string, bool, error) {
	absRepoPath, err := filepath.Abs(repoPath)
	if err != nil {
		return "", false, fmt.Errorf("%w: resolving path %q: %w", ErrGitOperation, repoPath, err)
	}
	repo, err := git.PlainOpenWithOptions(absRepoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			c.logger.Debug("Not a git repository", slog.String("path", absRepoPath))
		}
		return "", false, fmt.Errorf("%w: opening repository at %q: %w", ErrGitOperation, absRepoPath, err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			c.logger.Debug("Repository has no HEAD yet", slog.String("path", absRepoPath))
		}
		return "", false, fmt.Errorf("%w: resolving HEAD: %w", ErrGitOperation, err)
	}
	commit := head.Hash().String()

	dirty := false
	worktree, err := repo.Worktree()
	if err == nil {
		status, statusErr := worktree.Status()
		if statusErr != nil {
			c.logger.Debug("Worktree status unavailable", slog.String("error", statusErr.Error()))
		} else {
			dirty = !status.IsClean()
		}
	}

	c.logger.Debug("Resolved tool commit", slog.String("commit", commit), slog.Bool("dirty", dirty))
	return commit, dirty, nil
}
