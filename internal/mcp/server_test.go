package mcp

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flowdeck/flowdeck/internal/db"
	"github.com/flowdeck/flowdeck/internal/flow"
	"github.com/flowdeck/flowdeck/internal/flows"
	"github.com/flowdeck/flowdeck/internal/semantic"
)

func setupTestServer(t *testing.T) (*Server, *flows.Store) {
	t.Helper()
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	store := flows.NewStore(d)
	return NewServer(store, nil), store
}

func seedFlow(t *testing.T, store *flows.Store, name string, status flow.Status) flow.Aggregate {
	t.Helper()
	saved, err := store.SaveAggregate(context.Background(), flow.Aggregate{
		Flow: &flow.Flow{Name: name, Description: "about " + name, Status: status},
		Matches: []flow.Match{
			{ContentKind: flow.KindNote, OrderIndex: 0, Step: &flow.StepContent{Title: "Intro", Body: "start here"}},
			{ContentKind: flow.KindMatch, OrderIndex: 1, Grep: &flow.GrepMatch{
				FileName: "main.go",
				Meta:     flow.GrepMeta{ContextLines: []string{"func main() {", "}"}, Line: "func main() {", LineNo: 3},
			}},
		},
	})
	if err != nil {
		t.Fatalf("SaveAggregate: %v", err)
	}
	return saved
}

func toolRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("result has %d content blocks", len(res.Content))
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func TestSearchFlowsFallsBackToNameMatch(t *testing.T) {
	srv, store := setupTestServer(t)
	public := seedFlow(t, store, "Login handshake", flow.StatusPublic)
	seedFlow(t, store, "Login secrets", flow.StatusPrivate)

	res, err := srv.handleSearchFlows(context.Background(), toolRequest("search_flows", map[string]any{"query": "login"}))
	if err != nil {
		t.Fatalf("handleSearchFlows: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Found 1 flow(s):") {
		t.Errorf("text = %q, want a single public hit", text)
	}
	if !strings.Contains(text, "Login handshake") || !strings.Contains(text, public.Flow.ID) {
		t.Errorf("text = %q, missing public flow", text)
	}
	if strings.Contains(text, "Login secrets") {
		t.Errorf("private flow leaked into results: %q", text)
	}
}

func TestSearchFlowsNoResults(t *testing.T) {
	srv, store := setupTestServer(t)
	seedFlow(t, store, "Request lifecycle", flow.StatusPublic)

	res, err := srv.handleSearchFlows(context.Background(), toolRequest("search_flows", map[string]any{"query": "zebra"}))
	if err != nil {
		t.Fatalf("handleSearchFlows: %v", err)
	}
	if got := resultText(t, res); got != "No flows found." {
		t.Errorf("text = %q", got)
	}
}

func TestSearchFlowsMissingQuery(t *testing.T) {
	srv, _ := setupTestServer(t)

	res, err := srv.handleSearchFlows(context.Background(), toolRequest("search_flows", nil))
	if err != nil {
		t.Fatalf("handleSearchFlows: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected an error result")
	}
	if got := resultText(t, res); !strings.Contains(got, "missing required parameter: query") {
		t.Errorf("text = %q", got)
	}
}

// hashEmbedder buckets words into a fixed-size vector so similarity is
// deterministic without a real embedding backend.
type hashEmbedder struct{}

func (hashEmbedder) Name() string { return "word-hash" }

func (hashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 32)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(word))
			vec[h.Sum32()%32]++
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v * v)
		}
		if norm > 0 {
			scale := float32(1 / math.Sqrt(norm))
			for j := range vec {
				vec[j] *= scale
			}
		}
		out[i] = vec
	}
	return out, nil
}

func TestSearchFlowsPrefersIndexWhenConfigured(t *testing.T) {
	_, store := setupTestServer(t)
	ctx := context.Background()

	idx, err := semantic.NewIndex(hashEmbedder{})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	if err := idx.IndexFlow(ctx, flow.Aggregate{
		Flow: &flow.Flow{ID: "db", Name: "Database migrations", Status: flow.StatusPublic},
		Matches: []flow.Match{
			{ContentKind: flow.KindNote, Step: &flow.StepContent{Title: "Schema", Body: "how schema changes roll out"}},
		},
	}); err != nil {
		t.Fatalf("IndexFlow: %v", err)
	}

	srv := NewServer(store, idx)
	res, err := srv.handleSearchFlows(ctx, toolRequest("search_flows", map[string]any{"query": "database schema changes"}))
	if err != nil {
		t.Fatalf("handleSearchFlows: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Database migrations") || !strings.Contains(text, "similarity:") {
		t.Errorf("text = %q, want a ranked semantic hit", text)
	}
}

func TestGetFlowRendersMarkdown(t *testing.T) {
	srv, store := setupTestServer(t)
	saved := seedFlow(t, store, "Request lifecycle", flow.StatusPublic)

	res, err := srv.handleGetFlow(context.Background(), toolRequest("get_flow", map[string]any{"flow_id": saved.Flow.ID}))
	if err != nil {
		t.Fatalf("handleGetFlow: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "# Request lifecycle") {
		t.Errorf("markdown missing flow heading: %q", text)
	}
	if !strings.Contains(text, "main.go") {
		t.Errorf("markdown missing match step file: %q", text)
	}
}

func TestGetFlowUnknownID(t *testing.T) {
	srv, _ := setupTestServer(t)

	res, err := srv.handleGetFlow(context.Background(), toolRequest("get_flow", map[string]any{"flow_id": "nope"}))
	if err != nil {
		t.Fatalf("handleGetFlow: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected an error result")
	}
	if got := resultText(t, res); !strings.Contains(got, `no flow found with id "nope"`) {
		t.Errorf("text = %q", got)
	}
}

func TestListFlows(t *testing.T) {
	srv, store := setupTestServer(t)

	res, err := srv.handleListFlows(context.Background(), toolRequest("list_flows", nil))
	if err != nil {
		t.Fatalf("handleListFlows: %v", err)
	}
	if got := resultText(t, res); got != "No flows published yet." {
		t.Errorf("text = %q", got)
	}

	seedFlow(t, store, "Websocket feed", flow.StatusPublic)
	res, err = srv.handleListFlows(context.Background(), toolRequest("list_flows", nil))
	if err != nil {
		t.Fatalf("handleListFlows: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Websocket feed") || !strings.Contains(text, "about Websocket feed") {
		t.Errorf("text = %q", text)
	}
}

func TestGetFlowRelations(t *testing.T) {
	srv, store := setupTestServer(t)
	ctx := context.Background()

	parent := seedFlow(t, store, "Parent walkthrough", flow.StatusPublic)
	child, err := store.SaveAggregate(ctx, flow.Aggregate{
		Flow:    &flow.Flow{Name: "Branched walkthrough", Status: flow.StatusPublic, ParentFlowID: parent.Flow.ID},
		Matches: []flow.Match{{ContentKind: flow.KindNote, Step: &flow.StepContent{Title: "Fork"}}},
	})
	if err != nil {
		t.Fatalf("SaveAggregate: %v", err)
	}

	res, err := srv.handleGetFlowRelations(ctx, toolRequest("get_flow_relations", map[string]any{"flow_id": parent.Flow.ID}))
	if err != nil {
		t.Fatalf("handleGetFlowRelations: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Parent: none") || !strings.Contains(text, "Children (1):") || !strings.Contains(text, child.Flow.ID) {
		t.Errorf("parent relations = %q", text)
	}

	res, err = srv.handleGetFlowRelations(ctx, toolRequest("get_flow_relations", map[string]any{"flow_id": child.Flow.ID}))
	if err != nil {
		t.Fatalf("handleGetFlowRelations: %v", err)
	}
	text = resultText(t, res)
	if !strings.Contains(text, "Parent: Parent walkthrough") || !strings.Contains(text, "Children: none") {
		t.Errorf("child relations = %q", text)
	}
}
