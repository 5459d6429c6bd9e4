package search_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grognard-labs/aslcat/internal/models"
	"github.com/grognard-labs/aslcat/internal/search"
)

func TestIndexUpsertReplaces(t *testing.T) {
	ix := setupIndex(t)
	ctx := context.Background()

	p := models.Publisher{ID: 1, Name: "Avalon Hill"}
	require.NoError(t, ix.Upsert(ctx, search.PublisherRecord(&p)))

	// re-index under the same owner key with different content
	p.Name = "Multi-Man Publishing"
	require.NoError(t, ix.Upsert(ctx, search.PublisherRecord(&p)))

	hits, err := ix.Search(ctx, "avalon", nil, search.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, hits, "old content must be gone")

	hits, err = ix.Search(ctx, "publishing", nil, search.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 1, "no duplicate rows for one owner")
	assert.Equal(t, "publisher:1", hits[0].Owner)
}

func TestIndexDelete(t *testing.T) {
	ix := setupIndex(t)
	ctx := context.Background()

	p := models.Publisher{ID: 7, Name: "Le Franc Tireur"}
	require.NoError(t, ix.Upsert(ctx, search.PublisherRecord(&p)))
	require.NoError(t, ix.Delete(ctx, "publisher:7"))

	hits, err := ix.Search(ctx, "tireur", nil, search.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, hits)

	// deleting an absent owner is a no-op
	require.NoError(t, ix.Delete(ctx, "publisher:7"))
}

func TestIndexRebuild(t *testing.T) {
	ix := setupIndex(t)
	ctx := context.Background()

	// stale row that must not survive the rebuild
	gone := models.Publisher{ID: 99, Name: "Defunct Games"}
	require.NoError(t, ix.Upsert(ctx, search.PublisherRecord(&gone)))

	cat := &fakeCatalog{
		publishers: []models.Publisher{{ID: 1, Name: "Multi-Man Publishing"}},
		publications: []models.Publication{
			{ID: 2, Name: "ASL Journal", Tags: "magazine;official"},
		},
		articles: []models.Article{
			{ID: 3, Title: "King of the Hill", Snippet: "Fight for hill 621.",
				Authors: []models.Author{{ID: 1, Name: "Jim Smith"}}},
		},
	}
	require.NoError(t, ix.Rebuild(ctx, cat))

	hits, err := ix.Search(ctx, "defunct", nil, search.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, hits)

	for query, owner := range map[string]string{
		"publishing": "publisher:1",
		"journal":    "publication:2",
		"hill":       "article:3",
		"smith":      "article:3",
		"magazine":   "publication:2",
	} {
		hits, err := ix.Search(ctx, query, nil, search.SearchOptions{})
		require.NoError(t, err, "query: %s", query)
		require.Len(t, hits, 1, "query: %s", query)
		assert.Equal(t, owner, hits[0].Owner, "query: %s", query)
	}
}

func TestSearchWithAliasExpansion(t *testing.T) {
	ix := setupIndex(t)
	ctx := context.Background()

	aliases := search.NewAliases(map[string][]string{
		"mmp": {"Multi-Man Publishing", "Multiman Publishing"},
	}, nil, nil)

	byAlternate := models.Publisher{ID: 1, Name: "Multiman Publishing"}
	byKey := models.Publisher{ID: 2, Name: "MMP"}
	require.NoError(t, ix.Upsert(ctx, search.PublisherRecord(&byAlternate)))
	require.NoError(t, ix.Upsert(ctx, search.PublisherRecord(&byKey)))

	// the key retrieves content holding any alternate
	hits, err := ix.Search(ctx, search.MakeQueryString("MMP", aliases), nil, search.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// a quoted alternate retrieves content holding the key
	hits, err = ix.Search(ctx, search.MakeQueryString(`"Multi-Man Publishing"`, aliases), nil, search.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// without the alias table only the literal text matches
	hits, err = ix.Search(ctx, search.MakeQueryString("MMP", nil), nil, search.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "publisher:2", hits[0].Owner)
}

func TestRebuildNewestFirstTiebreak(t *testing.T) {
	ix := setupIndex(t)
	ctx := context.Background()

	// Identical text and rating, so relevance cannot separate the two; the
	// rebuild inserts in catalog order, which lists newest entities first.
	cat := &fakeCatalog{
		articles: []models.Article{
			{ID: 9, Title: "Phantom fortress"},
			{ID: 4, Title: "Phantom fortress"},
		},
	}
	require.NoError(t, ix.Rebuild(ctx, cat))

	hits, err := ix.Search(ctx, "phantom", nil, search.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "article:9", hits[0].Owner, "newest surfaces first on an even match")
	assert.Equal(t, "article:4", hits[1].Owner)
}

func TestSearchRatingOrdersFirst(t *testing.T) {
	ix := setupIndex(t)
	ctx := context.Background()

	articles := []models.Article{
		{ID: 1, Title: "Fallschirmjager tactics", Rating: intPtr(1)},
		{ID: 2, Title: "Fallschirmjager drops"},
		{ID: 3, Title: "Fallschirmjager at Crete", Rating: intPtr(3)},
	}
	for i := range articles {
		require.NoError(t, ix.Upsert(ctx, search.ArticleRecord(&articles[i])))
	}

	hits, err := ix.Search(ctx, "fallschirmjager", nil, search.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "article:3", hits[0].Owner)
	assert.Equal(t, 3, hits[0].Rating)
	assert.Equal(t, "article:1", hits[1].Owner)
	assert.Equal(t, "article:2", hits[2].Owner)
	assert.Equal(t, 0, hits[2].Rating, "unrated reads back as zero")
}

func TestSearchHighlighting(t *testing.T) {
	ix := setupIndex(t)
	ctx := context.Background()

	a := models.Article{
		ID:      1,
		Title:   "Hunting DUKWs and Buffalos",
		Snippet: "Amtracs in the PTO.",
		Authors: []models.Author{{ID: 1, Name: "Jim Smith"}},
	}
	require.NoError(t, ix.Upsert(ctx, search.ArticleRecord(&a)))

	hits, err := ix.Search(ctx, "hunting", nil, search.SearchOptions{
		BeginMark: "[", EndMark: "]",
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)

	assert.Equal(t, "[Hunting] DUKWs and Buffalos", hits[0].Fields["name"])
	assert.Equal(t, "Amtracs in the PTO.", hits[0].Fields["description"], "unmatched field carries no marks")
	assert.Equal(t, "Jim Smith", hits[0].Fields["authors"])
	_, hasName2 := hits[0].Fields["name2"]
	assert.False(t, hasName2, "NULL columns are absent from Fields")
}

func TestSearchColumnScope(t *testing.T) {
	ix := setupIndex(t)
	ctx := context.Background()

	a := models.Article{
		ID:      1,
		Title:   "Smith and Wesson",
		Authors: []models.Author{{ID: 1, Name: "Jim Smith"}},
	}
	b := models.Article{ID: 2, Title: "Smith's guide to OBA"}
	require.NoError(t, ix.Upsert(ctx, search.ArticleRecord(&a)))
	require.NoError(t, ix.Upsert(ctx, search.ArticleRecord(&b)))

	hits, err := ix.Search(ctx, "smith", nil, search.SearchOptions{
		Columns: []string{"authors"},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1, "title-only match must be filtered out")
	assert.Equal(t, "article:1", hits[0].Owner)
}

func TestSearchErrors(t *testing.T) {
	ix := setupIndex(t)
	ctx := context.Background()

	_, err := ix.Search(ctx, "  ", nil, search.SearchOptions{})
	assert.ErrorIs(t, err, search.ErrEmptyQuery)

	_, err = ix.Search(ctx, "AND", nil, search.SearchOptions{})
	var qerr *search.QueryError
	require.ErrorAs(t, err, &qerr)
	assert.NotContains(t, qerr.Msg, "fts5:", "engine prefix is stripped")
}
