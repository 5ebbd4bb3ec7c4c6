package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/unicitykb/ragserve/engine/domain"
)

const (
	searchToolName = "unicity_search"
	listToolName   = "list_documents"
)

// searchInput is the MCP tool input schema for semantic search.
type searchInput struct {
	Query    string `json:"query" jsonschema:"search query about the knowledge base"`
	NResults int    `json:"n_results,omitempty" jsonschema:"number of results to return (1-10, default 4)"`
}

// searchOutput is the structured search response.
type searchOutput struct {
	Results []domain.SearchResult `json:"results"`
	Message string                `json:"message,omitempty"`
}

// listInput is the (empty) input schema of the document listing.
type listInput struct{}

// newMCPServer registers the two read-only tools.
func (s *server) newMCPServer() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "rag", Version: "1.0.0"}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name: searchToolName,
		Description: "Search the Unicity knowledge base using semantic search. " +
			"Use this for any questions about Unicity protocol, architecture, " +
			"tokens, agents, consensus, aggregation layer, execution layer, " +
			"prediction markets, BFT, sparse Merkle trees, or related topics.",
	}, s.handleSearch)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        listToolName,
		Description: "List all documents currently in the Unicity knowledge base.",
	}, s.handleList)

	return srv
}

func (s *server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, in searchInput) (*mcp.CallToolResult, searchOutput, error) {
	s.mSearches.Inc()
	start := time.Now()
	defer s.mSearchDur.Since(start)

	results, images, err := s.svc.Search(ctx, in.Query, in.NResults)
	if err != nil {
		s.mSearchErr.Inc()
		s.logger.Error("search tool failed", "err", err, "kind", domain.KindOf(err).String())
		return errorResult(searchToolName, err), searchOutput{}, nil
	}

	out := searchOutput{Results: results}
	if len(results) == 0 {
		out.Message = "No results found."
	}

	payload, _ := json.Marshal(out)
	content := []mcp.Content{&mcp.TextContent{Text: string(payload)}}
	for _, img := range images {
		content = append(content, &mcp.ImageContent{Data: img.Data, MIMEType: img.MimeType})
	}
	return &mcp.CallToolResult{Content: content}, out, nil
}

func (s *server) handleList(ctx context.Context, _ *mcp.CallToolRequest, _ listInput) (*mcp.CallToolResult, domain.DocumentList, error) {
	list, err := s.svc.ListDocuments(ctx)
	if err != nil {
		s.logger.Error("list tool failed", "err", err, "kind", domain.KindOf(err).String())
		return errorResult(listToolName, err), domain.DocumentList{}, nil
	}

	payload, _ := json.Marshal(list)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
	}, list, nil
}

// toolError is the structured error payload every tool failure maps to at
// this single boundary point. Failures are scoped to the one request; they
// never crash the process or affect other in-flight queries.
type toolError struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Tool  string `json:"tool"`
}

func errorResult(tool string, err error) *mcp.CallToolResult {
	payload, _ := json.Marshal(toolError{
		Error: err.Error(),
		Kind:  domain.KindOf(err).String(),
		Tool:  tool,
	})
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
	}
}
