package search

import (
	"context"
	"sort"
	"strings"

	"github.com/grognard-labs/aslcat/internal/models"
)

// WarnFunc receives non-fatal problems found while loading search
// configuration. The startup message collector satisfies this signature.
type WarnFunc func(format string, args ...any)

type aliasEntry struct {
	// alternates is the expansion list, case-folded and sorted. For two-way
	// groups it contains every member including the lookup key itself; for
	// one-way rules the key is not included (it is appended at expansion
	// time).
	alternates []string
	key        string // canonical one-way key, empty for two-way groups
	twoWay     bool
}

// Aliases holds the text-substitution rules applied during query compilation.
// Keys are case-folded and whitespace-squashed at load time, and matching at
// compile time happens on a lowercased copy of the query.
type Aliases struct {
	entries map[string]aliasEntry
	// keys sorted by descending length so a multi-word alias wins over a
	// shorter one whose text it contains.
	keys []string
}

// NewAliases builds the alias table from the two config mechanisms: one-way
// rules (key -> phrases) and symmetric groups. Duplicate keys across either
// mechanism are reported through warn; the last writer wins. warn may be nil.
func NewAliases(oneWay map[string][]string, groups [][]string, warn WarnFunc) *Aliases {
	if warn == nil {
		warn = func(string, ...any) {}
	}
	entries := map[string]aliasEntry{}

	set := func(key string, e aliasEntry) {
		if _, dup := entries[key]; dup {
			warn("Duplicate search alias: %q", key)
		}
		entries[key] = e
	}

	// Deterministic load order regardless of map iteration.
	keys := make([]string, 0, len(oneWay))
	for key := range oneWay {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		alts := foldAll(oneWay[key])
		if len(alts) == 0 {
			warn("Search alias %q has no alternates.", key)
			continue
		}
		canon := fold(key)
		e := aliasEntry{alternates: alts, key: canon}
		set(canon, e)
		// Alternates are registered in quoted form: a multi-word alternate
		// only triggers when the user searched for it as a phrase.
		for _, alt := range alts {
			set(`"`+alt+`"`, e)
		}
	}

	for _, group := range groups {
		members := foldAll(group)
		if len(members) < 2 {
			warn("Search alias group %v needs at least two members.", group)
			continue
		}
		for _, member := range members {
			set(member, aliasEntry{alternates: members, twoWay: true})
		}
	}

	a := &Aliases{entries: entries}
	for key := range entries {
		a.keys = append(a.keys, key)
	}
	sort.Slice(a.keys, func(i, j int) bool {
		if len(a.keys[i]) != len(a.keys[j]) {
			return len(a.keys[i]) > len(a.keys[j])
		}
		return a.keys[i] < a.keys[j]
	})
	return a
}

// expand returns the match-expression replacement for a matched alias key.
// The second return is false when the key is unknown.
func (a *Aliases) expand(matched string) (string, bool) {
	e, ok := a.entries[matched]
	if !ok {
		return "", false
	}
	terms := append([]string{}, e.alternates...)
	if !e.twoWay {
		terms = append(terms, e.key)
	}
	for i, term := range terms {
		terms[i] = quoteToken(term)
	}
	return "(" + strings.Join(terms, " OR ") + ")", true
}

// fold case-folds and squashes whitespace, the canonical form for alias keys
// and alternates.
func fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = fold(s); s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Index columns that carry weights, in table order. The owner column is
// excluded: it never contributes to relevance.
var weightedColumns = []string{"name", "name2", "description", "authors", "scenarios", "tags"}

// WeightTable maps index columns to relevance weights. Missing columns
// default to 1.0.
type WeightTable map[string]float64

// Weight returns the configured weight for a column.
func (w WeightTable) Weight(column string) float64 {
	if v, ok := w[column]; ok {
		return v
	}
	return 1.0
}

// NewWeights folds the raw config weight map into a WeightTable. Unknown
// column names and non-numeric values are reported through warn and ignored.
func NewWeights(raw map[string]any, warn WarnFunc) WeightTable {
	if warn == nil {
		warn = func(string, ...any) {}
	}
	w := WeightTable{}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		known := false
		for _, col := range weightedColumns {
			if col == name {
				known = true
				break
			}
		}
		if !known {
			warn("Unknown search weight field: %q", name)
			continue
		}
		switch v := raw[name].(type) {
		case float64:
			w[name] = v
		case int:
			w[name] = float64(v)
		default:
			warn("Can't parse search weight for %q: %v", name, raw[name])
		}
	}
	return w
}

// AuthorResolver looks up authors by their unique name, used to resolve
// author alias groups at startup.
type AuthorResolver interface {
	AuthorByName(ctx context.Context, name string) (*models.Author, error)
}

// AuthorAliases maps an author id to the full set of ids considered the same
// person (always including the author itself). Unlike text aliases this is
// identity-based: it is consulted when searching "articles by this author",
// never during query-string compilation.
type AuthorAliases map[int64][]int64

// ResolveAuthorAliases turns configured name groups into id groups.
// Names that don't resolve are reported through warn and skipped.
func ResolveAuthorAliases(ctx context.Context, groups [][]string, resolver AuthorResolver, warn WarnFunc) AuthorAliases {
	if warn == nil {
		warn = func(string, ...any) {}
	}
	out := AuthorAliases{}
	for _, group := range groups {
		var ids []int64
		for _, name := range group {
			author, err := resolver.AuthorByName(ctx, name)
			if err != nil {
				warn("Unknown author for alias: %q", name)
				continue
			}
			ids = append(ids, author.ID)
		}
		if len(ids) < 2 {
			continue
		}
		for _, id := range ids {
			out[id] = ids
		}
	}
	return out
}

// Group returns every id searched when looking for articles by the given
// author, always at least the author itself.
func (a AuthorAliases) Group(id int64) []int64 {
	if ids, ok := a[id]; ok {
		return ids
	}
	return []int64{id}
}
