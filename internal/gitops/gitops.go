// Package gitops keeps a book directory under git so every change to the
// CSV files is a commit.
package gitops

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Default identity for commits made by budgetbox.
const (
	DefaultAuthor = "budgetbox"
	DefaultEmail  = "budgetbox@localhost"
)

// ErrNotRepo is returned by Open when the directory has no .git.
var ErrNotRepo = errors.New("not a git repository")

// Repo is a book directory tracked by git. Commits are serialized.
type Repo struct {
	Dir    string
	Author string
	Email  string

	mu sync.Mutex
}

// Available reports whether a git binary is on PATH.
func Available() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// Init initializes a new git repository at dir.
func Init(dir string) (*Repo, error) {
	cmd := exec.Command("git", "init", "-q")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("git init: %s: %w", out, err)
	}
	return newRepo(dir), nil
}

// Open returns the repository at dir, or ErrNotRepo.
func Open(dir string) (*Repo, error) {
	if !IsRepo(dir) {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotRepo)
	}
	return newRepo(dir), nil
}

// IsRepo reports whether dir is the root of a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

func newRepo(dir string) *Repo {
	return &Repo{Dir: dir, Author: DefaultAuthor, Email: DefaultEmail}
}

// Commit stages all files and commits them. It returns the short hash, or
// "" when the tree had nothing to commit.
func (r *Repo) Commit(message string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.git("add", "-A"); err != nil {
		return "", err
	}

	status, err := r.git("status", "--porcelain")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(status) == "" {
		return "", nil
	}

	if _, err := r.git("commit", "-q", "-m", message); err != nil {
		return "", err
	}

	hash, err := r.git("rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(hash), nil
}

// git runs a git subcommand in the repo with the configured identity, so a
// machine without user.name set can still commit.
func (r *Repo) git(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME="+r.Author,
		"GIT_AUTHOR_EMAIL="+r.Email,
		"GIT_COMMITTER_NAME="+r.Author,
		"GIT_COMMITTER_EMAIL="+r.Email,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %s: %w", args[0], strings.TrimSpace(string(out)), err)
	}
	return string(out), nil
}
