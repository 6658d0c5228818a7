package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrDimensionMismatch is returned when the provider produces a vector of
// a different length than the process-wide embedding dimension.
var ErrDimensionMismatch = errors.New("llm: embedding dimension mismatch")

// maxEmbedChars is the maximum character length for a single text sent to
// the embedding model. Most embedding models have a context window of 8192
// tokens; ~24000 chars leaves headroom for varied tokenisers.
const maxEmbedChars = 24000

// Embedder wraps a Provider's Embed operation and enforces a fixed vector
// dimension. Every embedding in the store must have exactly this length or
// KNN search silently degrades, so a mismatch is fatal for the request.
// Stateless and safe for concurrent use.
type Embedder struct {
	provider Provider
	dim      int
}

// NewEmbedder creates an Embedder with the given fixed dimension.
func NewEmbedder(provider Provider, dim int) *Embedder {
	return &Embedder{provider: provider, dim: dim}
}

// Dim returns the enforced embedding dimension.
func (e *Embedder) Dim() int {
	return e.dim
}

// Embed generates embeddings for a batch of texts, validating the
// dimension of every returned vector.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	trimmed := make([]string, len(texts))
	for i, t := range texts {
		trimmed[i] = truncateForEmbed(t)
	}

	vectors, err := e.provider.Embed(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != e.dim {
			return nil, fmt.Errorf("%w: got %d, want %d (text %d)", ErrDimensionMismatch, len(v), e.dim, i)
		}
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}
	return vectors[0], nil
}

// truncateForEmbed truncates text to maxEmbedChars on a word boundary.
func truncateForEmbed(text string) string {
	if len(text) <= maxEmbedChars {
		return text
	}
	// Cut at the last space before the limit to avoid splitting a word.
	cut := strings.LastIndex(text[:maxEmbedChars], " ")
	if cut <= 0 {
		cut = maxEmbedChars
	}
	return text[:cut]
}
