package server

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/grognard-labs/aslcat/internal/metrics"
	"github.com/grognard-labs/aslcat/internal/search"
)

// Special query fragments that pull in a complete entity listing alongside
// (or instead of) a text search. The frontend sends these for the "show
// everything" views.
const (
	wantPublishers   = "<!publishers!>"
	wantPublications = "<!publications!>"
	wantArticles     = "<!articles!>"
)

const emptyQueryMsg = "Please enter something to search for."

type searchRequest struct {
	Query     string `json:"query"`
	NoHilite  bool   `json:"no_hilite"`
	Randomize bool   `json:"randomize"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	query := req.Query
	var listings []string
	for _, want := range []string{wantPublishers, wantPublications, wantArticles} {
		if strings.Contains(query, want) {
			listings = append(listings, want)
			query = strings.ReplaceAll(query, want, " ")
		}
	}
	query = strings.TrimSpace(query)

	if query == "" && len(listings) == 0 {
		writeError(w, http.StatusBadRequest, emptyQueryMsg)
		return
	}

	var results []map[string]any
	if query != "" {
		var err error
		results, err = s.runSearch(r.Context(), query, search.SearchOptions{})
		if err != nil {
			s.writeSearchError(w, err)
			return
		}
	}

	for _, want := range listings {
		full, err := s.fullListing(r.Context(), want)
		if err != nil {
			s.handleStoreError(w, err)
			return
		}
		results = append(results, full...)
	}

	s.writeResults(w, results, req)
}

// handleAuthorSearch finds everything written by the given author, folding
// in their alias identities.
func (s *Server) handleAuthorSearch(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid author id")
		return
	}
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var phrases []string
	for _, aid := range s.authors.Group(id) {
		author, err := s.store.Author(r.Context(), aid)
		if err != nil {
			s.log.Warn("author alias id did not resolve", zap.Int64("id", aid), zap.Error(err))
			continue
		}
		phrases = append(phrases, search.QuotePhrase(author.Name))
	}
	if len(phrases) == 0 {
		writeError(w, http.StatusNotFound, "author not found")
		return
	}

	results, err := s.execSearch(r.Context(), strings.Join(phrases, " OR "), search.SearchOptions{
		Columns: []string{"authors"},
	})
	if err != nil {
		s.writeSearchError(w, err)
		return
	}
	s.writeResults(w, results, req)
}

func (s *Server) handleTagSearch(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	if strings.TrimSpace(tag) == "" {
		writeError(w, http.StatusBadRequest, emptyQueryMsg)
		return
	}
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := s.execSearch(r.Context(), search.QuotePhrase(tag), search.SearchOptions{
		Columns: []string{"tags"},
	})
	if err != nil {
		s.writeSearchError(w, err)
		return
	}
	s.writeResults(w, results, req)
}

// runSearch compiles a user query and executes it.
func (s *Server) runSearch(ctx context.Context, query string, opts search.SearchOptions) ([]map[string]any, error) {
	return s.execSearch(ctx, search.MakeQueryString(query, s.aliases), opts)
}

// execSearch runs an already-compiled match expression through the index and
// the formatter.
func (s *Server) execSearch(ctx context.Context, expr string, opts search.SearchOptions) ([]map[string]any, error) {
	if opts.BeginMark == "" {
		opts.BeginMark = search.DefaultBeginMark
		opts.EndMark = search.DefaultEndMark
	}
	metrics.SearchesTotal.Inc()
	hits, err := s.index.Search(ctx, expr, s.weights, opts)
	if err != nil {
		return nil, err
	}
	return s.formatter.Format(ctx, hits, opts.BeginMark)
}

func (s *Server) writeSearchError(w http.ResponseWriter, err error) {
	var qerr *search.QueryError
	switch {
	case errors.Is(err, search.ErrEmptyQuery):
		metrics.SearchErrorsTotal.Inc()
		writeError(w, http.StatusBadRequest, emptyQueryMsg)
	case errors.As(err, &qerr):
		metrics.SearchErrorsTotal.Inc()
		writeError(w, http.StatusBadRequest, "Invalid search query: "+qerr.Msg)
	default:
		s.log.Error("search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeResults(w http.ResponseWriter, results []map[string]any, req searchRequest) {
	if req.NoHilite {
		for _, rec := range results {
			for key := range rec {
				if strings.HasSuffix(key, "!") {
					delete(rec, key)
				}
			}
		}
	}
	if req.Randomize {
		rand.Shuffle(len(results), func(i, j int) {
			results[i], results[j] = results[j], results[i]
		})
	}
	if results == nil {
		results = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, results)
}

// fullListing returns every entity of one kind as plain (unhighlighted)
// result records.
func (s *Server) fullListing(ctx context.Context, want string) ([]map[string]any, error) {
	var out []map[string]any
	switch want {
	case wantPublishers:
		publishers, err := s.store.Publishers(ctx)
		if err != nil {
			return nil, err
		}
		for i := range publishers {
			rec := publishers[i].Vals()
			rec["type"] = search.KindPublisher.String()
			out = append(out, rec)
		}
	case wantPublications:
		publications, err := s.store.Publications(ctx)
		if err != nil {
			return nil, err
		}
		for i := range publications {
			rec := publications[i].Vals()
			rec["type"] = search.KindPublication.String()
			out = append(out, rec)
		}
	case wantArticles:
		articles, err := s.store.Articles(ctx)
		if err != nil {
			return nil, err
		}
		for i := range articles {
			rec := articles[i].Vals()
			rec["type"] = search.KindArticle.String()
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.TagCounts(r.Context())
	if err != nil {
		s.handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) handleStartupMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.startup.Snapshot())
}
