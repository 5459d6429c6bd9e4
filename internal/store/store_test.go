package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grognard-labs/aslcat/internal/db"
	"github.com/grognard-labs/aslcat/internal/models"
	"github.com/grognard-labs/aslcat/internal/store"
)

// setupStore creates a temporary SQLite catalog for testing.
func setupStore(t *testing.T) *store.Store {
	t.Helper()

	sdb, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sdb.Close() })

	s := store.New(sdb)
	require.NoError(t, s.Init())
	return s
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestPublisherCRUD(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	p := models.Publisher{Name: "Multi-Man Publishing", URL: "https://mmpgamers.com"}
	require.NoError(t, s.SavePublisher(ctx, &p))
	require.NotZero(t, p.ID, "insert writes the id back")
	assert.NotZero(t, p.TimeCreated)

	got, err := s.Publisher(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Multi-Man Publishing", got.Name)
	assert.Empty(t, got.Description)

	p.Description = "Current ASL license holder."
	require.NoError(t, s.SavePublisher(ctx, &p))
	got, err = s.Publisher(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Current ASL license holder.", got.Description)

	require.NoError(t, s.DeletePublisher(ctx, p.ID))
	_, err = s.Publisher(ctx, p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// updates and deletes of absent rows report not-found
	assert.ErrorIs(t, s.DeletePublisher(ctx, p.ID), store.ErrNotFound)
	missing := models.Publisher{ID: 9999, Name: "Ghost"}
	assert.ErrorIs(t, s.SavePublisher(ctx, &missing), store.ErrNotFound)
}

func TestPublishersNewestFirst(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for _, name := range []string{"First", "Second", "Third"} {
		p := models.Publisher{Name: name}
		require.NoError(t, s.SavePublisher(ctx, &p))
	}

	// equal creation times fall back to id, newest insert first
	all, err := s.Publishers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Third", all[0].Name)
	assert.Equal(t, "First", all[2].Name)
}

func TestArticleAssociations(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	a := models.Article{
		Title:   "Hunting DUKWs and Buffalos",
		Tags:    "pto;vehicles",
		Rating:  intPtr(3),
		Authors: []models.Author{{Name: "Jim Smith"}, {Name: "Joe Blow"}},
		Scenarios: []models.Scenario{
			{DisplayID: "HS17", Name: "Foul Temptress"},
			{Name: "Unnamed Nightmare"},
		},
	}
	require.NoError(t, s.SaveArticle(ctx, &a))
	require.NotZero(t, a.ID)
	require.NotZero(t, a.Authors[0].ID, "resolved author ids are written back")

	got, err := s.Article(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, got.Authors, 2)
	assert.Equal(t, "Jim Smith", got.Authors[0].Name, "author order preserved")
	assert.Equal(t, "Joe Blow", got.Authors[1].Name)
	require.Len(t, got.Scenarios, 2)
	assert.Equal(t, "HS17", got.Scenarios[0].DisplayID)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 3, *got.Rating)

	// saving again replaces associations wholesale; known authors are
	// reused, not duplicated
	a.Authors = []models.Author{{Name: "Joe Blow"}}
	a.Scenarios = nil
	require.NoError(t, s.SaveArticle(ctx, &a))

	got, err = s.Article(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, got.Authors, 1)
	assert.Equal(t, "Joe Blow", got.Authors[0].Name)
	assert.Empty(t, got.Scenarios)

	authors, err := s.Authors(ctx)
	require.NoError(t, err)
	assert.Len(t, authors, 2, "unlinked author rows survive for alias resolution")
}

func TestAuthorByName(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	a := models.Article{Title: "x", Authors: []models.Author{{Name: "Jim Smith"}}}
	require.NoError(t, s.SaveArticle(ctx, &a))

	author, err := s.AuthorByName(ctx, "Jim Smith")
	require.NoError(t, err)
	assert.Equal(t, a.Authors[0].ID, author.ID)

	_, err = s.AuthorByName(ctx, "Nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCascadeDelete(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	publ := models.Publisher{Name: "MMP"}
	require.NoError(t, s.SavePublisher(ctx, &publ))

	pub := models.Publication{Name: "ASL Journal 1", PublisherID: int64Ptr(publ.ID)}
	require.NoError(t, s.SavePublication(ctx, &pub))

	art := models.Article{Title: "Inside", PublicationID: int64Ptr(pub.ID)}
	require.NoError(t, s.SaveArticle(ctx, &art))

	pubIDs, err := s.PublicationIDsForPublisher(ctx, publ.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{pub.ID}, pubIDs)

	artIDs, err := s.ArticleIDsForPublisher(ctx, publ.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{art.ID}, artIDs)

	require.NoError(t, s.DeletePublisher(ctx, publ.ID))

	_, err = s.Publication(ctx, pub.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Article(ctx, art.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTagCounts(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	pub := models.Publication{Name: "AJ1", Tags: "magazine;official"}
	require.NoError(t, s.SavePublication(ctx, &pub))

	a1 := models.Article{Title: "a", Tags: "pto;magazine"}
	a2 := models.Article{Title: "b", Tags: "magazine"}
	require.NoError(t, s.SaveArticle(ctx, &a1))
	require.NoError(t, s.SaveArticle(ctx, &a2))

	tags, err := s.TagCounts(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 3)

	assert.Equal(t, store.TagCount{Tag: "magazine", Count: 3}, tags[0])
	// equal counts tie-break alphabetically
	assert.Equal(t, store.TagCount{Tag: "official", Count: 1}, tags[1])
	assert.Equal(t, store.TagCount{Tag: "pto", Count: 1}, tags[2])
}
