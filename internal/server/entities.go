package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/grognard-labs/aslcat/internal/metrics"
	"github.com/grognard-labs/aslcat/internal/models"
	"github.com/grognard-labs/aslcat/internal/search"
)

// Request bodies use the same field names as the public projections, so a
// record read from the API can be edited and sent straight back.

type publisherRequest struct {
	Name        string `json:"publ_name"`
	Description string `json:"publ_description"`
	URL         string `json:"publ_url"`
}

type publicationRequest struct {
	Name        string   `json:"pub_name"`
	Edition     string   `json:"pub_edition"`
	Date        string   `json:"pub_date"`
	Description string   `json:"pub_description"`
	URL         string   `json:"pub_url"`
	Seqno       int      `json:"pub_seqno"`
	Tags        []string `json:"pub_tags"`
	PublisherID *int64   `json:"publ_id"`
}

type scenarioRequest struct {
	RoarID    string `json:"scenario_roar_id"`
	DisplayID string `json:"scenario_display_id"`
	Name      string `json:"scenario_name"`
}

type articleRequest struct {
	Title         string            `json:"article_title"`
	Subtitle      string            `json:"article_subtitle"`
	Date          string            `json:"article_date"`
	Snippet       string            `json:"article_snippet"`
	Seqno         int               `json:"article_seqno"`
	Pageno        string            `json:"article_pageno"`
	URL           string            `json:"article_url"`
	Tags          []string          `json:"article_tags"`
	Rating        *int              `json:"article_rating"`
	PublicationID *int64            `json:"pub_id"`
	PublisherID   *int64            `json:"publ_id"`
	Authors       []string          `json:"article_authors"`
	Scenarios     []scenarioRequest `json:"article_scenarios"`
}

// syncIndex pushes one entity's index row after a successful save. Index
// write failures are logged rather than failing the request: the catalog row
// is already committed, and the next rebuild repairs the index.
func (s *Server) syncIndex(r *http.Request, rec search.Record) {
	metrics.IndexOpsTotal.WithLabelValues("upsert").Inc()
	if err := s.index.Upsert(r.Context(), rec); err != nil {
		s.log.Error("index upsert failed", zap.String("owner", rec.Owner), zap.Error(err))
	}
}

// dropOwners removes index rows for deleted entities, same failure policy as
// syncIndex.
func (s *Server) dropOwners(r *http.Request, kind search.Kind, ids []int64) {
	for _, id := range ids {
		metrics.IndexOpsTotal.WithLabelValues("delete").Inc()
		owner := search.MakeOwnerKey(kind, id)
		if err := s.index.Delete(r.Context(), owner); err != nil {
			s.log.Error("index delete failed", zap.String("owner", owner), zap.Error(err))
		}
	}
}

func (s *Server) handleListPublishers(w http.ResponseWriter, r *http.Request) {
	publishers, err := s.store.Publishers(r.Context())
	if err != nil {
		s.handleStoreError(w, err)
		return
	}
	out := make([]map[string]any, len(publishers))
	for i := range publishers {
		out[i] = publishers[i].Vals()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPublisher(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	p, err := s.store.Publisher(r.Context(), id)
	if err != nil {
		s.handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Vals())
}

func (s *Server) handleSavePublisher(w http.ResponseWriter, r *http.Request) {
	var req publisherRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "publisher name is required")
		return
	}

	p := models.Publisher{Name: req.Name, Description: req.Description, URL: req.URL}
	status := http.StatusCreated
	if r.Method == http.MethodPut {
		id, err := idParam(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		p.ID = id
		status = http.StatusOK
	}
	if err := s.store.SavePublisher(r.Context(), &p); err != nil {
		s.handleStoreError(w, err)
		return
	}
	s.syncIndex(r, search.PublisherRecord(&p))
	writeJSON(w, status, p.Vals())
}

func (s *Server) handleDeletePublisher(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	// The relational delete cascades to publications and articles, so their
	// index rows have to be collected first.
	pubIDs, err := s.store.PublicationIDsForPublisher(r.Context(), id)
	if err != nil {
		s.handleStoreError(w, err)
		return
	}
	artIDs, err := s.store.ArticleIDsForPublisher(r.Context(), id)
	if err != nil {
		s.handleStoreError(w, err)
		return
	}
	if err := s.store.DeletePublisher(r.Context(), id); err != nil {
		s.handleStoreError(w, err)
		return
	}

	s.dropOwners(r, search.KindPublisher, []int64{id})
	s.dropOwners(r, search.KindPublication, pubIDs)
	s.dropOwners(r, search.KindArticle, artIDs)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPublications(w http.ResponseWriter, r *http.Request) {
	publications, err := s.store.Publications(r.Context())
	if err != nil {
		s.handleStoreError(w, err)
		return
	}
	out := make([]map[string]any, len(publications))
	for i := range publications {
		out[i] = publications[i].Vals()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPublication(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	p, err := s.store.Publication(r.Context(), id)
	if err != nil {
		s.handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Vals())
}

func (s *Server) handleSavePublication(w http.ResponseWriter, r *http.Request) {
	var req publicationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "publication name is required")
		return
	}

	p := models.Publication{
		Name:        req.Name,
		Edition:     req.Edition,
		Date:        req.Date,
		Description: req.Description,
		URL:         req.URL,
		Seqno:       req.Seqno,
		Tags:        models.EncodeTags(req.Tags),
		PublisherID: req.PublisherID,
	}
	status := http.StatusCreated
	if r.Method == http.MethodPut {
		id, err := idParam(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		p.ID = id
		status = http.StatusOK
	}
	if err := s.store.SavePublication(r.Context(), &p); err != nil {
		s.handleStoreError(w, err)
		return
	}
	s.syncIndex(r, search.PublicationRecord(&p))
	writeJSON(w, status, p.Vals())
}

func (s *Server) handleDeletePublication(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	artIDs, err := s.store.ArticleIDsForPublication(r.Context(), id)
	if err != nil {
		s.handleStoreError(w, err)
		return
	}
	if err := s.store.DeletePublication(r.Context(), id); err != nil {
		s.handleStoreError(w, err)
		return
	}

	s.dropOwners(r, search.KindPublication, []int64{id})
	s.dropOwners(r, search.KindArticle, artIDs)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := s.store.Articles(r.Context())
	if err != nil {
		s.handleStoreError(w, err)
		return
	}
	out := make([]map[string]any, len(articles))
	for i := range articles {
		out[i] = articles[i].Vals()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	a, err := s.store.Article(r.Context(), id)
	if err != nil {
		s.handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.Vals())
}

func (s *Server) handleSaveArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "article title is required")
		return
	}

	a := models.Article{
		Title:         req.Title,
		Subtitle:      req.Subtitle,
		Date:          req.Date,
		Snippet:       req.Snippet,
		Seqno:         req.Seqno,
		Pageno:        req.Pageno,
		URL:           req.URL,
		Tags:          models.EncodeTags(req.Tags),
		Rating:        req.Rating,
		PublicationID: req.PublicationID,
		PublisherID:   req.PublisherID,
	}
	for _, name := range req.Authors {
		a.Authors = append(a.Authors, models.Author{Name: name})
	}
	for _, sc := range req.Scenarios {
		a.Scenarios = append(a.Scenarios, models.Scenario{
			RoarID: sc.RoarID, DisplayID: sc.DisplayID, Name: sc.Name,
		})
	}

	status := http.StatusCreated
	if r.Method == http.MethodPut {
		id, err := idParam(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		a.ID = id
		status = http.StatusOK
	}
	if err := s.store.SaveArticle(r.Context(), &a); err != nil {
		s.handleStoreError(w, err)
		return
	}
	s.syncIndex(r, search.ArticleRecord(&a))
	writeJSON(w, status, a.Vals())
}

func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.store.DeleteArticle(r.Context(), id); err != nil {
		s.handleStoreError(w, err)
		return
	}
	s.dropOwners(r, search.KindArticle, []int64{id})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := s.store.Authors(r.Context())
	if err != nil {
		s.handleStoreError(w, err)
		return
	}
	out := make([]map[string]any, len(authors))
	for i := range authors {
		out[i] = authors[i].Vals()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := s.store.Scenarios(r.Context())
	if err != nil {
		s.handleStoreError(w, err)
		return
	}
	out := make([]map[string]any, len(scenarios))
	for i := range scenarios {
		out[i] = scenarios[i].Vals()
	}
	writeJSON(w, http.StatusOK, out)
}
