package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetbox/budgetbox/internal/catalog"
	"github.com/budgetbox/budgetbox/internal/config"
	"github.com/budgetbox/budgetbox/internal/gitops"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "budgetbox-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "budgetbox")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/budgetbox")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	os.Exit(m.Run())
}

func runBudgetbox(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), config.EnvBook+"=", config.EnvAddr+"=")
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func initBook(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := runBudgetbox(t, "init", dir, "--name", "Household")
	require.NoError(t, err)
	return dir
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	out, err := runBudgetbox(t, "init", dir, "--name", "Household")
	require.NoError(t, err, out)
	assert.Contains(t, out, `Initialized budget book "Household"`)

	expectedDirs := []string{
		"categories",
		"transactions",
		"funds",
		"rules",
		"logs",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range expectedDirs {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	_, err = os.Stat(filepath.Join(dir, "import", ".gitkeep"))
	assert.NoError(t, err)
}

func TestInit_Config(t *testing.T) {
	dir := initBook(t)

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)

	assert.Equal(t, "Household", cfg.Book.Name)
	assert.Equal(t, "exact", cfg.Forms.Split.Policy)
	assert.True(t, cfg.Forms.Split.AutoAppend)
	assert.Equal(t, "at-most", cfg.Forms.Allocate.Policy)
	assert.Equal(t, "at-most", cfg.Forms.Debit.Policy)
	assert.Equal(t, "0.01", cfg.Reconcile.Tolerance)
}

func TestInit_Categories(t *testing.T) {
	dir := initBook(t)

	cats, err := catalog.Load(dir)
	require.NoError(t, err)
	assert.Len(t, cats.All(), len(catalog.DefaultCatalog()))
	assert.Len(t, cats.FundManaged(), 3)
}

func TestInit_AlreadyExists(t *testing.T) {
	dir := initBook(t)

	out, err := runBudgetbox(t, "init", dir, "--name", "Again")
	require.Error(t, err)
	assert.Contains(t, out, "already exists")
}

func TestInit_RequiresName(t *testing.T) {
	out, err := runBudgetbox(t, "init", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, out, `required flag(s) "name" not set`)
}

func TestInit_Git(t *testing.T) {
	if !gitops.Available() {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	out, err := runBudgetbox(t, "init", dir, "--name", "Household")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Committed ")
	assert.True(t, gitops.IsRepo(dir))

	log := exec.Command("git", "log", "--format=%s", "-1")
	log.Dir = dir
	msg, err := log.Output()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "init: Household")
}

func TestInit_NoGit(t *testing.T) {
	dir := t.TempDir()
	out, err := runBudgetbox(t, "init", dir, "--name", "Household", "--no-git")
	require.NoError(t, err, out)
	assert.False(t, gitops.IsRepo(dir))
}
