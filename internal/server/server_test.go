package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grognard-labs/aslcat/internal/config"
	"github.com/grognard-labs/aslcat/internal/db"
	"github.com/grognard-labs/aslcat/internal/models"
	"github.com/grognard-labs/aslcat/internal/search"
	"github.com/grognard-labs/aslcat/internal/server"
	"github.com/grognard-labs/aslcat/internal/startup"
	"github.com/grognard-labs/aslcat/internal/store"
)

type fixture struct {
	store *store.Store
	index *search.Index
	srv   *httptest.Server
}

// setupServer wires a full application around a temporary database.
func setupServer(t *testing.T, cfg config.Search) *fixture {
	t.Helper()

	sdb, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sdb.Close() })

	st := store.New(sdb)
	require.NoError(t, st.Init())

	log := zap.NewNop()
	ix := search.NewIndex(sdb, log)
	require.NoError(t, ix.Init(context.Background()))

	msgs := startup.New(log)
	aliases := search.NewAliases(cfg.Aliases, cfg.Groups, msgs.Warning)
	weights := search.NewWeights(cfg.Weights, msgs.Warning)
	authors := search.ResolveAuthorAliases(context.Background(), cfg.AuthorAliases, st, msgs.Warning)

	formatter := search.NewFormatter(st, search.NewRuleLinker(""), log)
	s := server.New(st, ix, formatter, aliases, weights, authors, msgs, log)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	return &fixture{store: st, index: ix, srv: ts}
}

func (f *fixture) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.srv.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeResults(t *testing.T, resp *http.Response) []map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var results []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&results))
	return results
}

func (f *fixture) addArticle(t *testing.T, a models.Article) models.Article {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.SaveArticle(ctx, &a))
	require.NoError(t, f.index.Upsert(ctx, search.ArticleRecord(&a)))
	return a
}

func TestSearchEndpoint(t *testing.T) {
	f := setupServer(t, config.Search{})
	f.addArticle(t, models.Article{Title: "Hunting DUKWs and Buffalos", Snippet: "Amtracs in the PTO."})
	f.addArticle(t, models.Article{Title: "Festung Budapest"})

	resp := f.post(t, "/search", map[string]any{"query": "hunting"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := decodeResults(t, resp)
	require.Len(t, results, 1)

	rec := results[0]
	assert.Equal(t, "article", rec["type"])
	assert.Equal(t, "Hunting DUKWs and Buffalos", rec["article_title"])
	hl, _ := rec["article_title!"].(string)
	assert.Contains(t, hl, `<span class="hilite">Hunting</span>`)
}

func TestSearchEndpointNoHilite(t *testing.T) {
	f := setupServer(t, config.Search{})
	f.addArticle(t, models.Article{Title: "Hunting DUKWs"})

	resp := f.post(t, "/search", map[string]any{"query": "hunting", "no_hilite": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := decodeResults(t, resp)
	require.Len(t, results, 1)
	for key := range results[0] {
		assert.False(t, strings.HasSuffix(key, "!"), "unexpected highlighted key %q", key)
	}
}

func TestSearchEndpointEmptyQuery(t *testing.T) {
	f := setupServer(t, config.Search{})

	for _, query := range []string{"", "   "} {
		resp := f.post(t, "/search", map[string]any{"query": query})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		assert.Equal(t, "Please enter something to search for.", body["error"])
	}
}

func TestSearchEndpointBadQuery(t *testing.T) {
	f := setupServer(t, config.Search{})
	f.addArticle(t, models.Article{Title: "anything"})

	resp := f.post(t, "/search", map[string]any{"query": "foo AND AND bar"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchEndpointListings(t *testing.T) {
	f := setupServer(t, config.Search{})
	ctx := context.Background()

	p := models.Publisher{Name: "MMP"}
	require.NoError(t, f.store.SavePublisher(ctx, &p))
	f.addArticle(t, models.Article{Title: "Some Article"})

	resp := f.post(t, "/search", map[string]any{"query": "<!publishers!>"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := decodeResults(t, resp)
	require.Len(t, results, 1)
	assert.Equal(t, "publisher", results[0]["type"])
	assert.Equal(t, "MMP", results[0]["publ_name"])
}

func TestAuthorSearchUsesAliases(t *testing.T) {
	// articles by the same person under two names
	f := setupServer(t, config.Search{})
	a1 := f.addArticle(t, models.Article{Title: "First", Authors: []models.Author{{Name: "Jim Smith"}}})
	f.addArticle(t, models.Article{Title: "Second", Authors: []models.Author{{Name: "J. Smith"}}})
	f.addArticle(t, models.Article{Title: "Other", Authors: []models.Author{{Name: "Joe Blow"}}})

	// re-wire with the alias table now that the authors exist
	authors := search.ResolveAuthorAliases(context.Background(),
		[][]string{{"Jim Smith", "J. Smith"}}, f.store, nil)
	require.Len(t, authors.Group(a1.Authors[0].ID), 2)

	f2 := &fixture{store: f.store, index: f.index}
	srv := server.New(f.store, f.index,
		search.NewFormatter(f.store, search.NewRuleLinker(""), zap.NewNop()),
		search.NewAliases(nil, nil, nil), nil, authors,
		startup.New(zap.NewNop()), zap.NewNop())
	f2.srv = httptest.NewServer(srv.Handler())
	defer f2.srv.Close()

	resp := f2.post(t, "/search/authors/"+strconv.FormatInt(a1.Authors[0].ID, 10), map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := decodeResults(t, resp)
	require.Len(t, results, 2)

	titles := []string{results[0]["article_title"].(string), results[1]["article_title"].(string)}
	assert.ElementsMatch(t, []string{"First", "Second"}, titles)
}

func TestTagSearch(t *testing.T) {
	f := setupServer(t, config.Search{})
	f.addArticle(t, models.Article{Title: "Tagged", Tags: "pto;vehicles"})
	f.addArticle(t, models.Article{Title: "PTO in the title only"})

	resp := f.post(t, "/search/tag/pto", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := decodeResults(t, resp)
	require.Len(t, results, 1, "tag search is scoped to the tags column")
	assert.Equal(t, "Tagged", results[0]["article_title"])
}

func TestTagsEndpoint(t *testing.T) {
	f := setupServer(t, config.Search{})
	f.addArticle(t, models.Article{Title: "a", Tags: "pto"})
	f.addArticle(t, models.Article{Title: "b", Tags: "pto;eto"})

	resp, err := http.Get(f.srv.URL + "/tags")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tags []store.TagCount
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tags))
	require.Len(t, tags, 2)
	assert.Equal(t, store.TagCount{Tag: "pto", Count: 2}, tags[0])
}

func TestArticleCRUDKeepsIndexInSync(t *testing.T) {
	f := setupServer(t, config.Search{})

	// create
	resp := f.post(t, "/articles", map[string]any{
		"article_title":   "Hill 621",
		"article_authors": []string{"Jim Smith"},
		"article_tags":    []string{"eto"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	id := int64(created["article_id"].(float64))
	require.NotZero(t, id)

	// the new article is searchable immediately
	resp = f.post(t, "/search", map[string]any{"query": "hill"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, decodeResults(t, resp), 1)

	// delete drops the index row
	req, err := http.NewRequest(http.MethodDelete,
		f.srv.URL+"/articles/"+strconv.FormatInt(id, 10), nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.post(t, "/search", map[string]any{"query": "hill"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeResults(t, resp))
}

func TestStartupMessagesEndpoint(t *testing.T) {
	f := setupServer(t, config.Search{
		Weights: map[string]any{"bogus": 2},
	})

	resp, err := http.Get(f.srv.URL + "/startup-messages")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var msgs map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	require.Len(t, msgs["warning"], 1)
	assert.Contains(t, msgs["warning"][0], "bogus")
}
