// Package server exposes the catalog over HTTP: the search endpoints the
// frontend drives, CRUD for the three entity kinds, and the operational
// surface (tag listing, startup messages, Prometheus metrics).
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/grognard-labs/aslcat/internal/metrics"
	"github.com/grognard-labs/aslcat/internal/search"
	"github.com/grognard-labs/aslcat/internal/startup"
	"github.com/grognard-labs/aslcat/internal/store"
)

// Server holds the wired application: storage, the search pipeline, and the
// startup message log.
type Server struct {
	store     *store.Store
	index     *search.Index
	formatter *search.Formatter
	aliases   *search.Aliases
	weights   search.WeightTable
	authors   search.AuthorAliases
	startup   *startup.Messages
	log       *zap.Logger
}

// New assembles the HTTP server from its already-initialized parts.
func New(
	st *store.Store,
	index *search.Index,
	formatter *search.Formatter,
	aliases *search.Aliases,
	weights search.WeightTable,
	authors search.AuthorAliases,
	msgs *startup.Messages,
	log *zap.Logger,
) *Server {
	return &Server{
		store:     st,
		index:     index,
		formatter: formatter,
		aliases:   aliases,
		weights:   weights,
		authors:   authors,
		startup:   msgs,
		log:       log,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Post("/search", s.handleSearch)
	r.Post("/search/authors/{id}", s.handleAuthorSearch)
	r.Post("/search/tag/{tag}", s.handleTagSearch)

	r.Get("/tags", s.handleTags)
	r.Get("/startup-messages", s.handleStartupMessages)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/publishers", func(r chi.Router) {
		r.Get("/", s.handleListPublishers)
		r.Post("/", s.handleSavePublisher)
		r.Get("/{id}", s.handleGetPublisher)
		r.Put("/{id}", s.handleSavePublisher)
		r.Delete("/{id}", s.handleDeletePublisher)
	})
	r.Route("/publications", func(r chi.Router) {
		r.Get("/", s.handleListPublications)
		r.Post("/", s.handleSavePublication)
		r.Get("/{id}", s.handleGetPublication)
		r.Put("/{id}", s.handleSavePublication)
		r.Delete("/{id}", s.handleDeletePublication)
	})
	r.Route("/articles", func(r chi.Router) {
		r.Get("/", s.handleListArticles)
		r.Post("/", s.handleSaveArticle)
		r.Get("/{id}", s.handleGetArticle)
		r.Put("/{id}", s.handleSaveArticle)
		r.Delete("/{id}", s.handleDeleteArticle)
	})
	r.Get("/authors", s.handleListAuthors)
	r.Get("/scenarios", s.handleListScenarios)

	return r
}

// decodeJSON decodes a request body, tolerating an absent one.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleStoreError maps storage failures onto HTTP statuses.
func (s *Server) handleStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.log.Error("storage error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
