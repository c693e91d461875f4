package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetbox/budgetbox/internal/allocation"
	"github.com/budgetbox/budgetbox/internal/importer"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Household")
	cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}
	cfg.Import.Account = "joint"

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default("Household")

	assert.Equal(t, "Household", cfg.Book.Name)
	assert.Equal(t, "exact", cfg.Forms.Split.Policy)
	assert.True(t, cfg.Forms.Split.AutoAppend)
	assert.Equal(t, []string{"description"}, cfg.Forms.Split.RequiredFields)
	assert.Equal(t, "at-most", cfg.Forms.Allocate.Policy)
	assert.False(t, cfg.Forms.Allocate.AutoAppend)
	assert.Equal(t, "at-most", cfg.Forms.Debit.Policy)
	assert.Equal(t, "0.01", cfg.Reconcile.Tolerance)
	assert.Equal(t, "chase", cfg.Import.Format)
	require.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default("Household")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Household")
	assert.Contains(t, contents, "policy: exact")
	assert.Contains(t, contents, "auto_append: true")
	assert.Contains(t, contents, "tolerance: \"0.01\"")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"policy", "forms:\n  split:\n    policy: sometimes\n  allocate:\n    policy: exact\n  debit:\n    policy: exact\n", "forms.split.policy"},
		{"tolerance", "reconcile:\n  tolerance: abc\nforms:\n  split: {policy: exact}\n  allocate: {policy: exact}\n  debit: {policy: exact}\n", "reconcile.tolerance"},
		{"negative tolerance", "reconcile:\n  tolerance: \"-1\"\nforms:\n  split: {policy: exact}\n  allocate: {policy: exact}\n  debit: {policy: exact}\n", "must be positive"},
		{"field", "forms:\n  split: {policy: exact, required_fields: [colour]}\n  allocate: {policy: exact}\n  debit: {policy: exact}\n", "unknown field"},
		{"min lines", "forms:\n  split: {policy: exact}\n  allocate: {policy: exact, min_lines: -1}\n  debit: {policy: exact}\n", "forms.allocate.min_lines"},
		{"generic missing", "forms:\n  split: {policy: exact}\n  allocate: {policy: exact}\n  debit: {policy: exact}\nimport:\n  format: generic\n", "import.generic section"},
		{"generic delimiter", "forms:\n  split: {policy: exact}\n  allocate: {policy: exact}\n  debit: {policy: exact}\nimport:\n  generic: {delimiter: \";;\", date_format: \"2006-01-02\"}\n", "single character"},
		{"generic date format", "forms:\n  split: {policy: exact}\n  allocate: {policy: exact}\n  debit: {policy: exact}\nimport:\n  generic: {amount_column: 2}\n", "import.generic: date format is required"},
		{"yaml", "forms: [", "parsing config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAllocation(t *testing.T) {
	cfg := Default("Household")
	cfg.Reconcile.Tolerance = "0.05"

	ac, err := cfg.Allocation(FormSplit, "COOP")
	require.NoError(t, err)
	assert.Equal(t, allocation.PolicyExact, ac.Policy)
	assert.True(t, ac.AutoAppend)
	assert.Equal(t, 1, ac.MinLines)
	assert.Equal(t, "COOP", ac.Description)
	assert.Equal(t, "0.05", ac.Tolerance.String())

	ac, err = cfg.Allocation(FormDebit, "")
	require.NoError(t, err)
	assert.Equal(t, allocation.PolicyAtMost, ac.Policy)

	_, err = cfg.Allocation("transfer", "")
	assert.Error(t, err)
}

func TestTolerance_BlankIsDefault(t *testing.T) {
	cfg := &Config{}
	tol, err := cfg.Tolerance()
	require.NoError(t, err)
	assert.True(t, tol.Equal(allocation.DefaultTolerance))
}

func TestGenericLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	yml := `forms:
  split: {policy: exact}
  allocate: {policy: at-most}
  debit: {policy: at-most}
import:
  format: generic
  generic:
    delimiter: ";"
    header_rows: 2
    date_column: 1
    description_column: 4
    amount_column: 3
    type_column: 0
    date_format: "02/01/2006"
    decimal_comma: true
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Import.Generic)

	l, err := cfg.Import.Generic.Layout()
	require.NoError(t, err)
	assert.Equal(t, ';', l.Delimiter)
	assert.Equal(t, 2, l.HeaderRows)
	assert.Equal(t, 1, l.DateColumn)
	assert.Equal(t, 4, l.DescriptionColumn)
	assert.Equal(t, 3, l.AmountColumn)
	assert.Equal(t, 0, l.TypeColumn)
	assert.True(t, l.DecimalComma)
}

func TestGenericLayout_Defaults(t *testing.T) {
	l, err := GenericCSVConfig{AmountColumn: 2, DescriptionColumn: 1, DateFormat: "2006-01-02"}.Layout()
	require.NoError(t, err)
	assert.Equal(t, ',', l.Delimiter)
	assert.Equal(t, importer.NoColumn, l.TypeColumn)
}
