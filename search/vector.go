package search

import (
	"context"
	"fmt"
)

// VectorEngine retrieves resumes by ANN similarity between the query
// embedding and stored resume embeddings.
type VectorEngine struct {
	store    DocumentStore
	embedder QueryEmbedder
}

// NewVectorEngine creates a vector engine over the given store and
// embedder.
func NewVectorEngine(s DocumentStore, e QueryEmbedder) *VectorEngine {
	return &VectorEngine{store: s, embedder: e}
}

// Search embeds the query and returns the k nearest resumes in store
// order, with similarity clamped to [0,1]. An embedding dimension
// mismatch fails the request.
func (e *VectorEngine) Search(ctx context.Context, query string, k int, trace *Trace) ([]Result, error) {
	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	matches, err := e.store.VectorQuery(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{
			ID:        m.Resume.ID,
			Name:      m.Resume.Name,
			Email:     m.Resume.Email,
			Phone:     m.Resume.Phone,
			Snippet:   leadingSnippet(m.Resume.Content),
			Score:     clamp01(m.Score),
			MatchType: MatchVector,
			content:   m.Resume.Content,
		})
	}

	if trace != nil {
		trace.VectorResults = len(results)
	}
	return results, nil
}

// clamp01 bounds cosine similarity to [0,1]; storage cosine is typically
// already non-negative but the metric permits [-1,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
