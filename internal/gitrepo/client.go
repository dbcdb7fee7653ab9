// Package gitrepo wraps the instance's local git repository: opening or
// creating it, staging the exact paths a sync touched, and recording one
// commit per pull.
package gitrepo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/gocortexio/gcgit/pkg/logger"
)

// Fallback identity when the repository has no user.name/user.email
// configured. Commits must never fail on a missing identity.
const (
	fallbackAuthorName  = "gcgit"
	fallbackAuthorEmail = "gcgit@localhost"
)

// CommitFailedError reports a failed staging or commit operation. The
// working tree keeps the applied changes; only the recording failed.
type CommitFailedError struct {
	Op  string
	Err error
}

func (e *CommitFailedError) Error() string {
	return fmt.Sprintf("git %s failed: %v", e.Op, e.Err)
}

func (e *CommitFailedError) Unwrap() error { return e.Err }

// Client defines the git operations a sync needs.
//
//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client
type Client interface {
	// Stage adds the given paths (relative to the repository root) to the
	// index. Deleted paths are staged as removals.
	Stage(paths []string) error

	// Commit records the staged changes with the given message and returns
	// the commit hash.
	Commit(message string) (string, error)

	// HasStagedChanges reports whether the index differs from HEAD.
	HasStagedChanges() (bool, error)

	// DirtyPaths lists worktree paths that differ from HEAD, for status
	// reporting.
	DirtyPaths() ([]string, error)
}

// defaultClient implements Client using go-git.
type defaultClient struct {
	repo *git.Repository
}

// Open opens the repository at dir, initializing a fresh one when the
// directory is not a repository yet.
func Open(dir string) (Client, error) {
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		logger.Infof("Initializing git repository in %s", dir)
		repo, err = git.PlainInit(dir, false)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %s: %w", dir, err)
	}
	return &defaultClient{repo: repo}, nil
}

// Init creates a new repository at dir. Fails if one already exists.
func Init(dir string) (Client, error) {
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize git repository at %s: %w", dir, err)
	}
	return &defaultClient{repo: repo}, nil
}

// Stage adds the given paths to the index. go-git's Add handles deleted
// files by staging the removal, so one code path covers writes and deletes.
func (c *defaultClient) Stage(paths []string) error {
	wt, err := c.repo.Worktree()
	if err != nil {
		return &CommitFailedError{Op: "stage", Err: err}
	}
	for _, p := range paths {
		if _, err := wt.Add(p); err != nil {
			return &CommitFailedError{Op: "stage", Err: fmt.Errorf("path %s: %w", p, err)}
		}
	}
	return nil
}

// Commit records the staged changes and returns the commit hash.
func (c *defaultClient) Commit(message string) (string, error) {
	wt, err := c.repo.Worktree()
	if err != nil {
		return "", &CommitFailedError{Op: "commit", Err: err}
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  fallbackAuthorName,
			Email: fallbackAuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", &CommitFailedError{Op: "commit", Err: err}
	}
	return hash.String(), nil
}

// HasStagedChanges reports whether the index differs from HEAD.
func (c *defaultClient) HasStagedChanges() (bool, error) {
	status, err := c.status()
	if err != nil {
		return false, err
	}
	for _, fs := range status {
		if fs.Staging != git.Unmodified && fs.Staging != git.Untracked {
			return true, nil
		}
	}
	return false, nil
}

// DirtyPaths lists paths whose worktree or staged state differs from HEAD.
func (c *defaultClient) DirtyPaths() ([]string, error) {
	status, err := c.status()
	if err != nil {
		return nil, err
	}
	var paths []string
	for p, fs := range status {
		if fs.Worktree == git.Unmodified && fs.Staging == git.Unmodified {
			continue
		}
		// Lock artifacts are transient and never tracked.
		if strings.HasPrefix(p, ".gcgit.lock") {
			continue
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func (c *defaultClient) status() (git.Status, error) {
	wt, err := c.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get repository status: %w", err)
	}
	return status, nil
}
