package search_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grognard-labs/aslcat/internal/db"
	"github.com/grognard-labs/aslcat/internal/models"
	"github.com/grognard-labs/aslcat/internal/search"
)

// fakeCatalog backs the search pipeline with in-memory entities.
type fakeCatalog struct {
	publishers   []models.Publisher
	publications []models.Publication
	articles     []models.Article
}

func (c *fakeCatalog) Publisher(ctx context.Context, id int64) (*models.Publisher, error) {
	for i := range c.publishers {
		if c.publishers[i].ID == id {
			return &c.publishers[i], nil
		}
	}
	return nil, fmt.Errorf("publisher %d not found", id)
}

func (c *fakeCatalog) Publication(ctx context.Context, id int64) (*models.Publication, error) {
	for i := range c.publications {
		if c.publications[i].ID == id {
			return &c.publications[i], nil
		}
	}
	return nil, fmt.Errorf("publication %d not found", id)
}

func (c *fakeCatalog) Article(ctx context.Context, id int64) (*models.Article, error) {
	for i := range c.articles {
		if c.articles[i].ID == id {
			return &c.articles[i], nil
		}
	}
	return nil, fmt.Errorf("article %d not found", id)
}

func (c *fakeCatalog) Publishers(ctx context.Context) ([]models.Publisher, error) {
	return c.publishers, nil
}

func (c *fakeCatalog) Publications(ctx context.Context) ([]models.Publication, error) {
	return c.publications, nil
}

func (c *fakeCatalog) Articles(ctx context.Context) ([]models.Article, error) {
	return c.articles, nil
}

// setupIndex creates an initialized index on a temporary database.
func setupIndex(t *testing.T) *search.Index {
	t.Helper()

	sdb, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sdb.Close() })

	ix := search.NewIndex(sdb, nil)
	require.NoError(t, ix.Init(context.Background()))
	return ix
}

func intPtr(v int) *int { return &v }
