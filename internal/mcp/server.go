// Package mcp exposes the catalog's search surface over the Model Context
// Protocol, so LLM assistants can query the article index directly.
package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/grognard-labs/aslcat/internal/search"
	"github.com/grognard-labs/aslcat/internal/store"
)

// Version is advertised to clients for capability negotiation.
const Version = "1.0.0"

// handlers carries the wired search pipeline for tool invocations.
type handlers struct {
	store     *store.Store
	index     *search.Index
	formatter *search.Formatter
	aliases   *search.Aliases
	weights   search.WeightTable
	authors   search.AuthorAliases
	log       *zap.Logger
}

// Serve runs the MCP server over stdio. Stdout carries JSON-RPC, so all
// logging must go to stderr (the caller's zap config is responsible for
// that).
func Serve(
	st *store.Store,
	index *search.Index,
	formatter *search.Formatter,
	aliases *search.Aliases,
	weights search.WeightTable,
	authors search.AuthorAliases,
	log *zap.Logger,
) error {
	h := &handlers{
		store:     st,
		index:     index,
		formatter: formatter,
		aliases:   aliases,
		weights:   weights,
		authors:   authors,
		log:       log,
	}

	s := server.NewMCPServer(
		"aslcat",
		Version,
		server.WithToolCapabilities(true),
	)
	registerTools(s, h)

	log.Info("MCP server ready", zap.String("version", Version), zap.String("transport", "stdio"))

	err := server.ServeStdio(s)
	if errors.Is(err, context.Canceled) {
		log.Info("server stopped")
		return nil
	}
	return err
}

// registerTools exposes catalog operations as MCP tools.
func registerTools(s *server.MCPServer, h *handlers) {
	s.AddTool(
		mcp.NewTool("aslcat_search",
			mcp.WithDescription("Full-text search over publishers, publications and articles. Supports quoted phrases and raw FTS queries with AND/OR/NOT."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		),
		h.searchCatalog,
	)

	s.AddTool(
		mcp.NewTool("aslcat_search_author",
			mcp.WithDescription("Find everything written by an author, including their known aliases"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Author name, matched exactly")),
		),
		h.searchAuthor,
	)

	s.AddTool(
		mcp.NewTool("aslcat_search_tag",
			mcp.WithDescription("Find publications and articles carrying a tag"),
			mcp.WithString("tag", mcp.Required(), mcp.Description("Tag value")),
		),
		h.searchTag,
	)

	s.AddTool(
		mcp.NewTool("aslcat_tags",
			mcp.WithDescription("List all tags in use with their frequency"),
		),
		h.listTags,
	)

	s.AddTool(
		mcp.NewTool("aslcat_lookup",
			mcp.WithDescription("Fetch one catalog entity by type and id"),
			mcp.WithString("type", mcp.Required(), mcp.Description("Entity type: publisher, publication or article")),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Entity id")),
		),
		h.lookupEntity,
	)
}
