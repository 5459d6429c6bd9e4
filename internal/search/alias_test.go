package search_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grognard-labs/aslcat/internal/models"
	"github.com/grognard-labs/aslcat/internal/search"
)

// warnings collects WarnFunc output for assertions.
type warnings []string

func (w *warnings) add(format string, args ...any) {
	*w = append(*w, fmt.Sprintf(format, args...))
}

func TestNewAliasesWarnings(t *testing.T) {
	var warns warnings

	search.NewAliases(map[string][]string{
		"mmp":   {"Multi-Man Publishing"},
		"empty": {},
	}, [][]string{
		{"MMP", "The Gamers"}, // "mmp" collides with the one-way key
		{"lonely"},
	}, warns.add)

	assert.Contains(t, warns, `Search alias "empty" has no alternates.`)
	assert.Contains(t, warns, `Duplicate search alias: "mmp"`)
	assert.Contains(t, warns, "Search alias group [lonely] needs at least two members.")
}

func TestNewAliasesCaseFolding(t *testing.T) {
	aliases := search.NewAliases(map[string][]string{
		"  MMP  ": {"Multi-Man   Publishing"},
	}, nil, nil)

	// keys and alternates are folded, so any casing of the key matches
	assert.Equal(t,
		`("multi-man publishing" OR mmp)`,
		search.MakeQueryString("mMp", aliases))
}

func TestNewWeights(t *testing.T) {
	var warns warnings

	weights := search.NewWeights(map[string]any{
		"name":      2,
		"authors":   1.5,
		"bogus":     3,
		"scenarios": "heavy",
	}, warns.add)

	assert.InDelta(t, 2.0, weights.Weight("name"), 1e-9)
	assert.InDelta(t, 1.5, weights.Weight("authors"), 1e-9)
	assert.InDelta(t, 1.0, weights.Weight("description"), 1e-9, "unset fields default to 1")
	assert.InDelta(t, 1.0, weights.Weight("scenarios"), 1e-9, "bad value keeps the default")
	assert.Len(t, warns, 2)
}

// fakeResolver maps names to authors without a database.
type fakeResolver map[string]int64

func (f fakeResolver) AuthorByName(ctx context.Context, name string) (*models.Author, error) {
	id, ok := f[name]
	if !ok {
		return nil, fmt.Errorf("author %q not found", name)
	}
	return &models.Author{ID: id, Name: name}, nil
}

func TestResolveAuthorAliases(t *testing.T) {
	resolver := fakeResolver{
		"Jim Smith": 1,
		"J. Smith":  2,
		"Anon":      7,
	}
	var warns warnings

	aliases := search.ResolveAuthorAliases(context.Background(), [][]string{
		{"Jim Smith", "J. Smith"},
		{"Anon", "Nobody"}, // "Nobody" doesn't resolve, leaving a 1-member group
	}, resolver, warns.add)

	require.Contains(t, warns, `Unknown author for alias: "Nobody"`)

	assert.ElementsMatch(t, []int64{1, 2}, aliases.Group(1))
	assert.ElementsMatch(t, []int64{1, 2}, aliases.Group(2))

	// degenerate group was dropped, unknown ids resolve to themselves
	assert.Equal(t, []int64{7}, aliases.Group(7))
	assert.Equal(t, []int64{99}, aliases.Group(99))
}
