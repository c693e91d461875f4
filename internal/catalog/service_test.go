package catalog

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExistsLookup(t *testing.T) {
	svc := NewService(DefaultCatalog())

	c, ok := svc.Get(30)
	assert.True(t, ok)
	assert.Equal(t, "Groceries", c.Name)

	assert.True(t, svc.Exists(50))
	assert.False(t, svc.Exists(999))

	c, err := svc.Lookup(" 51 ")
	require.NoError(t, err)
	assert.Equal(t, "Vacation", c.Name)

	_, err = svc.Lookup("abc")
	assert.ErrorIs(t, err, ErrUnknownCategory)
	_, err = svc.Lookup("999")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestTree(t *testing.T) {
	svc := NewService(DefaultCatalog())

	roots := svc.Roots()
	assert.Len(t, roots, 5)
	for _, r := range roots {
		assert.True(t, r.IsRoot())
	}

	kids := svc.Children(3)
	require.Len(t, kids, 2)
	assert.Equal(t, 30, kids[0].ID)
	assert.Empty(t, svc.Children(0))
}

func TestFundManagedAndDescriptors(t *testing.T) {
	svc := NewService(DefaultCatalog())
	assert.Len(t, svc.FundManaged(), 3)

	d := svc.Descriptors(Filter{FundManaged: true})
	require.Len(t, d, 3)
	assert.Equal(t, 50, d[0].ID)
	assert.Equal(t, 5, d[0].Parent)
	assert.True(t, d[0].FundManaged)

	assert.Len(t, svc.Descriptors(Filter{}), len(DefaultCatalog()))
	assert.Len(t, svc.Descriptors(Filter{RootsOnly: true}), 5)
}

func TestResolveFinal(t *testing.T) {
	svc := NewService(DefaultCatalog())

	c, err := svc.ResolveFinal("3", "31")
	require.NoError(t, err)
	assert.Equal(t, 31, c.ID)

	c, err = svc.ResolveFinal("3", "")
	require.NoError(t, err)
	assert.Equal(t, 3, c.ID)

	_, err = svc.ResolveFinal("3", "20")
	assert.ErrorIs(t, err, ErrNotChild)

	_, err = svc.ResolveFinal("99", "")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewService(DefaultCatalog()).Save(dir))

	_, err := os.Stat(Path(dir))
	require.NoError(t, err)

	svc, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, svc.All(), len(DefaultCatalog()))
	assert.True(t, svc.Exists(52))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}
