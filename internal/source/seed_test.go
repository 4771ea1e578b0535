package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenpaws/prospect-cli/internal/candidate"
)

func TestSeed_BuiltinBank(t *testing.T) {
	provider, err := NewSeed("")
	require.NoError(t, err)

	res, err := provider.Collect(context.Background(), Request{})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 23)
	assert.Empty(t, res.StopReasons)

	byName := make(map[string]candidate.Organization)
	for _, o := range res.Candidates {
		assert.NotEmpty(t, o.Name)
		assert.Equal(t, candidate.SourceSeed, o.Source)
		byName[o.Name] = o
	}

	petsmart, ok := byName["PetSmart Charities"]
	require.True(t, ok)
	assert.Equal(t, 10, petsmart.Score)
	assert.Equal(t, candidate.CategoryPetIndustry, petsmart.Category)

	maddies, ok := byName["Maddie's Fund"]
	require.True(t, ok)
	assert.Equal(t, candidate.CategoryFoundation, maddies.Category)
}

func TestSeed_FileOverridesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
seeds:
  - name: Oatly
    website: https://www.oatly.com
    category: vegan_brand
    donation_potential_score: 9
    notes: Upgraded after a confirmed sponsorship.
  - name: Rose City Pet Bakery
    website: https://rosecitypetbakery.example
    category: local_business
    donation_potential_score: 6
    notes: Local gift-basket donor.
`), 0o644))

	provider, err := NewSeed(path)
	require.NoError(t, err)

	res, err := provider.Collect(context.Background(), Request{})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 24)

	byName := make(map[string]candidate.Organization)
	for _, o := range res.Candidates {
		byName[o.Name] = o
	}
	assert.Equal(t, 9, byName["Oatly"].Score)
	assert.Equal(t, candidate.CategoryLocalBusiness, byName["Rose City Pet Bakery"].Category)
}

func TestNewSeed_MissingFile(t *testing.T) {
	_, err := NewSeed(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read seed file")
}

func TestLoadSeedFile_RejectsNamelessEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
seeds:
  - website: https://nameless.example
    donation_potential_score: 4
`), 0o644))

	_, err := LoadSeedFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a name")
}
