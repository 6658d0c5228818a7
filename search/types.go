// Package search implements the two-stage resume retrieval pipeline:
// keyword, vector, and hybrid candidate generation followed by an optional
// LLM re-rank/filter stage.
package search

import (
	"context"

	"github.com/mkrishnan/resumatch/llm"
	"github.com/mkrishnan/resumatch/store"
)

// Match types tag each result with the stage that last owned its ranking.
const (
	MatchKeyword     = "keyword"
	MatchVector      = "vector"
	MatchHybrid      = "hybrid"
	MatchLLMReranked = "llm-reranked"
)

// Search type selectors accepted by the pipeline.
const (
	TypeKeyword = "keyword"
	TypeVector  = "vector"
	TypeHybrid  = "hybrid"
)

// snippetMaxLen bounds the content snippet attached to a result.
const snippetMaxLen = 200

// Result is a single ranked resume candidate. Scores are normalized to
// [0,1]; scores from different engines are only comparable after that
// normalization.
type Result struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	Snippet      string         `json:"snippet"`
	Score        float64        `json:"score"`
	MatchType    string         `json:"matchType"`
	ExtractedInfo *ExtractedInfo `json:"extractedInfo,omitempty"`
	LLMReasoning string         `json:"llmReasoning,omitempty"`
	// LLMAnalysis duplicates the re-rank reasoning and extracted info in a
	// single sub-record attached by the pipeline. Kept alongside the flat
	// fields for callers that consume the grouped form.
	LLMAnalysis *ResultAnalysis `json:"llmAnalysis,omitempty"`

	// content carries the full resume text between stages so the
	// re-ranker can prompt with more than the snippet. Not serialized.
	content string
}

// Content returns the full resume text carried with the result.
func (r *Result) Content() string { return r.content }

// ResultAnalysis is the grouped per-result re-rank record.
type ResultAnalysis struct {
	Reasoning     string         `json:"reasoning,omitempty"`
	ExtractedInfo *ExtractedInfo `json:"extractedInfo,omitempty"`
}

// ExtractedInfo holds structured details the LLM extracted from a resume.
// Fields are evidence-based strings, not guarantees.
type ExtractedInfo struct {
	CurrentCompany string   `json:"currentCompany,omitempty"`
	Location       string   `json:"location,omitempty"`
	Skills         []string `json:"skills,omitempty"`
	Experience     string   `json:"experience,omitempty"`
	KeyHighlights  []string `json:"keyHighlights,omitempty"`
}

// Trace records the breakdown of a single retrieval operation.
type Trace struct {
	ID             string  `json:"traceId"`
	KeywordResults int     `json:"keyword_results,omitempty"`
	VectorResults  int     `json:"vector_results,omitempty"`
	MergedResults  int     `json:"merged_results,omitempty"`
	VectorWeight   float64 `json:"vector_weight,omitempty"`
	KeywordWeight  float64 `json:"keyword_weight,omitempty"`
	Reranked       bool    `json:"reranked,omitempty"`
	RerankSummary  string  `json:"rerank_summary,omitempty"`
	ElapsedMs      int64   `json:"elapsed_ms"`
}

// Engine is the common contract for the keyword, vector, and hybrid
// engines. trace may be nil.
type Engine interface {
	Search(ctx context.Context, query string, k int, trace *Trace) ([]Result, error)
}

// DocumentStore is the slice of the store the engines depend on.
// *store.Store satisfies it.
type DocumentStore interface {
	KeywordQuery(ctx context.Context, pattern string, limit int) ([]store.Resume, error)
	VectorQuery(ctx context.Context, vector []float32, k int) ([]store.VectorMatch, error)
}

// QueryEmbedder maps a query string to a fixed-dimension vector.
// *llm.Embedder satisfies it.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChatClient is the slice of the LLM provider the re-ranker depends on.
// llm.Provider satisfies it.
type ChatClient interface {
	Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}
