package gitops

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if !Available() {
		t.Skip("git not installed")
	}
}

func lastCommit(t *testing.T, dir, format string) string {
	t.Helper()
	cmd := exec.Command("git", "log", "--format="+format, "-1")
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err)
	return string(out)
}

func TestInit(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	_, err := Init(dir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, ".git"))
	require.NoError(t, err, ".git directory should exist")
}

func TestOpen(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	_, err := Open(dir)
	assert.ErrorIs(t, err, ErrNotRepo)
	assert.False(t, IsRepo(dir))

	_, err = Init(dir)
	require.NoError(t, err)
	repo, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, repo.Dir)
	assert.True(t, IsRepo(dir))
}

func TestCommit(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	repo, err := Init(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "movements.csv"), []byte("header\n"), 0o644))

	hash, err := repo.Commit("allocate: transaction 4")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	assert.Contains(t, lastCommit(t, dir, "%s"), "allocate: transaction 4")
	assert.Contains(t, lastCommit(t, dir, "%an <%ae>"), DefaultAuthor+" <"+DefaultEmail+">")
}

func TestCommit_NothingToCommit(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	repo, err := Init(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("x\n"), 0o644))
	_, err = repo.Commit("first")
	require.NoError(t, err)

	hash, err := repo.Commit("second")
	require.NoError(t, err)
	assert.Empty(t, hash)
	assert.Contains(t, lastCommit(t, dir, "%s"), "first")
}

func TestCommit_CustomIdentity(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	repo, err := Init(dir)
	require.NoError(t, err)
	repo.Author, repo.Email = "Household", "home@example.com"

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("x\n"), 0o644))
	_, err = repo.Commit("init")
	require.NoError(t, err)
	assert.Contains(t, lastCommit(t, dir, "%an <%ae>"), "Household <home@example.com>")
}
