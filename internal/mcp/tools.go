package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/grognard-labs/aslcat/internal/search"
)

// runSearch executes a compiled match expression and returns formatted
// result records. Highlighting markers are left at their defaults so the
// LLM can see which fields matched.
func (h *handlers) runSearch(ctx context.Context, expr string, opts search.SearchOptions) ([]map[string]any, error) {
	if opts.BeginMark == "" {
		opts.BeginMark = search.DefaultBeginMark
		opts.EndMark = search.DefaultEndMark
	}
	hits, err := h.index.Search(ctx, expr, h.weights, opts)
	if err != nil {
		return nil, err
	}
	return h.formatter.Format(ctx, hits, opts.BeginMark)
}

// searchCatalog handles aslcat_search tool calls.
func (h *handlers) searchCatalog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query is required"), nil
	}

	results, err := h.runSearch(ctx, search.MakeQueryString(query, h.aliases), search.SearchOptions{})
	h.log.Info("mcp search", zap.String("query", query), zap.Int("count", len(results)))
	if err != nil {
		return searchError(err)
	}
	return jsonResult(results)
}

// searchAuthor handles aslcat_search_author tool calls.
func (h *handlers) searchAuthor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name is required"), nil
	}

	author, err := h.store.AuthorByName(ctx, name)
	if err != nil {
		return mcp.NewToolResultError("unknown author: " + name), nil
	}

	// The alias group folds in the author's other bylines.
	var phrases []string
	for _, aid := range h.authors.Group(author.ID) {
		a, err := h.store.Author(ctx, aid)
		if err != nil {
			h.log.Warn("author alias id did not resolve", zap.Int64("id", aid), zap.Error(err))
			continue
		}
		phrases = append(phrases, search.QuotePhrase(a.Name))
	}
	if len(phrases) == 0 {
		phrases = append(phrases, search.QuotePhrase(author.Name))
	}

	results, err := h.runSearch(ctx, strings.Join(phrases, " OR "), search.SearchOptions{
		Columns: []string{"authors"},
	})
	h.log.Info("mcp author search", zap.String("author", name), zap.Int("count", len(results)))
	if err != nil {
		return searchError(err)
	}
	return jsonResult(results)
}

// searchTag handles aslcat_search_tag tool calls.
func (h *handlers) searchTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError("tag is required"), nil
	}

	results, err := h.runSearch(ctx, search.QuotePhrase(tag), search.SearchOptions{
		Columns: []string{"tags"},
	})
	h.log.Info("mcp tag search", zap.String("tag", tag), zap.Int("count", len(results)))
	if err != nil {
		return searchError(err)
	}
	return jsonResult(results)
}

// listTags handles aslcat_tags tool calls.
func (h *handlers) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := h.store.TagCounts(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tags)
}

// lookupEntity handles aslcat_lookup tool calls.
func (h *handlers) lookupEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError("type is required"), nil
	}
	id, err := req.RequireFloat("id")
	if err != nil {
		return mcp.NewToolResultError("id is required"), nil
	}

	var vals map[string]any
	switch typ {
	case "publisher":
		p, err := h.store.Publisher(ctx, int64(id))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		vals = p.Vals()
	case "publication":
		p, err := h.store.Publication(ctx, int64(id))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		vals = p.Vals()
	case "article":
		a, err := h.store.Article(ctx, int64(id))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		vals = a.Vals()
	default:
		return mcp.NewToolResultError("type must be publisher, publication or article"), nil
	}
	vals["type"] = typ
	return jsonResult(vals)
}

// searchError maps pipeline failures onto MCP error results. Query problems
// carry the reason so the LLM can correct and retry.
func searchError(err error) (*mcp.CallToolResult, error) {
	var qerr *search.QueryError
	switch {
	case errors.Is(err, search.ErrEmptyQuery):
		return mcp.NewToolResultError("query compiled to nothing - provide search terms"), nil
	case errors.As(err, &qerr):
		return mcp.NewToolResultError("invalid query: " + qerr.Msg), nil
	default:
		return mcp.NewToolResultError(err.Error()), nil
	}
}

// jsonResult serialises a value as indented JSON wrapped in an MCP text
// result. LLMs parse formatted output more reliably than compact JSON.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
