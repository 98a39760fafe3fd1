package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchFlowsTool defines the search_flows MCP tool.
var searchFlowsTool = mcp.NewTool("search_flows",
	mcp.WithDescription("Search published code walkthrough flows. Uses semantic search when available, name matching otherwise."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 10)"),
	),
)

// getFlowTool defines the get_flow MCP tool.
var getFlowTool = mcp.NewTool("get_flow",
	mcp.WithDescription("Get a flow rendered as markdown: its description, note steps, and code locations with surrounding context."),
	mcp.WithString("flow_id",
		mcp.Required(),
		mcp.Description("ID of the flow to retrieve"),
	),
)

// listFlowsTool defines the list_flows MCP tool.
var listFlowsTool = mcp.NewTool("list_flows",
	mcp.WithDescription("List published flows, most recently updated first."),
)

// getFlowRelationsTool defines the get_flow_relations MCP tool.
var getFlowRelationsTool = mcp.NewTool("get_flow_relations",
	mcp.WithDescription("Get the parent flow and child flows branched from the given flow."),
	mcp.WithString("flow_id",
		mcp.Required(),
		mcp.Description("ID of the flow"),
	),
)
