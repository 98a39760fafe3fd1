package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flowdeck/flowdeck/internal/flow"
)

// handleSearchFlows searches published flows, semantically when an index
// is configured and by name otherwise.
func (s *Server) handleSearchFlows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	if s.index != nil {
		hits, err := s.index.Search(ctx, query, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if len(hits) == 0 {
			return mcp.NewToolResultText("No flows found."), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Found %d flow(s):\n", len(hits)))
		for _, h := range hits {
			sb.WriteString(fmt.Sprintf("\n- %s (id: %s, similarity: %.1f%%)\n", h.Name, h.FlowID, h.Similarity*100))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}

	found, err := s.store.SearchByName(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(found) == 0 {
		return mcp.NewToolResultText("No flows found."), nil
	}
	return mcp.NewToolResultText(formatFlowList(found)), nil
}

// handleGetFlow renders a full flow as markdown.
func (s *Server) handleGetFlow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flowID, err := request.RequireString("flow_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: flow_id"), nil
	}

	agg, err := s.store.GetAggregate(ctx, flowID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("no flow found with id %q", flowID)), nil
	}

	return mcp.NewToolResultText(s.renderer.FlowMarkdown(agg)), nil
}

// handleListFlows lists published flows newest first.
func (s *Server) handleListFlows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summaries, err := s.store.List(ctx, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing flows failed: %v", err)), nil
	}
	if len(summaries) == 0 {
		return mcp.NewToolResultText("No flows published yet."), nil
	}

	fs := make([]flow.Flow, len(summaries))
	for i, s := range summaries {
		fs[i] = s.Flow
	}
	return mcp.NewToolResultText(formatFlowList(fs)), nil
}

// handleGetFlowRelations reports the parent and children of a flow.
func (s *Server) handleGetFlowRelations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flowID, err := request.RequireString("flow_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: flow_id"), nil
	}

	rel, err := s.store.Relations(ctx, flowID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("no flow found with id %q", flowID)), nil
	}

	var sb strings.Builder
	if rel.Parent != nil {
		sb.WriteString(fmt.Sprintf("Parent: %s (id: %s)\n", rel.Parent.Name, rel.Parent.ID))
	} else {
		sb.WriteString("Parent: none\n")
	}
	if len(rel.Children) == 0 {
		sb.WriteString("Children: none\n")
	} else {
		sb.WriteString(fmt.Sprintf("Children (%d):\n", len(rel.Children)))
		for _, c := range rel.Children {
			sb.WriteString(fmt.Sprintf("- %s (id: %s)\n", c.Name, c.ID))
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// formatFlowList renders flows as a compact listing for agent consumption.
func formatFlowList(fs []flow.Flow) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d flow(s):\n", len(fs)))
	for _, f := range fs {
		sb.WriteString(fmt.Sprintf("\n- %s (id: %s)\n", f.Name, f.ID))
		if f.Description != "" {
			sb.WriteString(fmt.Sprintf("  %s\n", f.Description))
		}
	}
	return sb.String()
}
