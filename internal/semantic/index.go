package semantic

import (
	"context"
	"fmt"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/flowdeck/flowdeck/internal/flow"
)

const collectionName = "flows"

// Hit is one semantic search result.
type Hit struct {
	FlowID     string  `json:"flow_id"`
	Name       string  `json:"name"`
	Similarity float32 `json:"similarity"`
}

// Index is an in-memory embedding index over flows.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
}

// NewIndex creates an empty index using the given embedder.
func NewIndex(e Embedder) (*Index, error) {
	db := chromem.NewDB()
	ef := ToChromemFunc(e)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Index{db: db, collection: col, embedFunc: ef}, nil
}

// IndexFlow embeds the flow's name, description, and note bodies as one
// document keyed by flow id. Re-indexing a flow replaces its document.
func (x *Index) IndexFlow(ctx context.Context, agg flow.Aggregate) error {
	if agg.Flow == nil || agg.Flow.ID == "" {
		return fmt.Errorf("indexing flow without id")
	}

	var b strings.Builder
	b.WriteString(agg.Flow.Name)
	b.WriteString("\n")
	b.WriteString(agg.Flow.Description)
	for _, m := range agg.Matches {
		if m.Step != nil {
			b.WriteString("\n")
			b.WriteString(m.Step.Title)
			b.WriteString("\n")
			b.WriteString(m.Step.Body)
		}
	}

	doc := chromem.Document{
		ID:      agg.Flow.ID,
		Content: b.String(),
		Metadata: map[string]string{
			"name":   agg.Flow.Name,
			"status": string(agg.Flow.Status),
		},
	}
	return x.collection.AddDocuments(ctx, []chromem.Document{doc}, 1)
}

// Remove drops a flow's document from the index.
func (x *Index) Remove(ctx context.Context, flowID string) error {
	return x.collection.Delete(ctx, nil, nil, flowID)
}

// Search returns up to limit flows ranked by similarity to the query.
func (x *Index) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}

	// chromem requires nResults <= collection size.
	count := x.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := x.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			FlowID:     r.ID,
			Name:       r.Metadata["name"],
			Similarity: r.Similarity,
		}
	}
	return hits, nil
}

// Count reports the number of indexed flows.
func (x *Index) Count() int {
	return x.collection.Count()
}
