package search

import (
	"context"
	"fmt"
	"time"
)

// RerankConfig controls the pipeline's second stage.
type RerankConfig struct {
	Enabled bool
	// RetrievalK is how many candidates the first stage fetches when
	// re-ranking is enabled, giving the re-ranker room to filter before
	// the final truncation to the caller's k.
	RetrievalK int
}

// Pipeline orchestrates candidate generation and the optional LLM
// re-rank/filter stage.
type Pipeline struct {
	keyword  Engine
	vector   Engine
	hybrid   *HybridEngine
	reranker *Reranker
	rerank   RerankConfig
}

// NewPipeline creates the retrieval pipeline. reranker may be nil when
// re-ranking is disabled.
func NewPipeline(keyword, vector Engine, hybrid *HybridEngine, reranker *Reranker, rerank RerankConfig) *Pipeline {
	if rerank.RetrievalK <= 0 {
		rerank.RetrievalK = 10
	}
	return &Pipeline{
		keyword:  keyword,
		vector:   vector,
		hybrid:   hybrid,
		reranker: reranker,
		rerank:   rerank,
	}
}

// Hybrid exposes the hybrid engine for runtime weight updates.
func (p *Pipeline) Hybrid() *HybridEngine {
	return p.hybrid
}

// Search runs one retrieval for the given search type. The returned list
// is sorted by effective score descending, holds at most k results, and
// each result's MatchType names the stage that last owned the ranking.
func (p *Pipeline) Search(ctx context.Context, query, searchType string, k int, trace *Trace) ([]Result, error) {
	start := time.Now()

	fetch := k
	if p.rerank.Enabled && p.reranker != nil {
		fetch = p.rerank.RetrievalK
		if fetch < k {
			fetch = k
		}
	}

	var engine Engine
	switch searchType {
	case TypeKeyword:
		engine = p.keyword
	case TypeVector:
		engine = p.vector
	case TypeHybrid:
		engine = p.hybrid
	default:
		return nil, fmt.Errorf("unknown search type %q", searchType)
	}

	results, err := engine.Search(ctx, query, fetch, trace)
	if err != nil {
		return nil, err
	}

	if p.rerank.Enabled && p.reranker != nil && len(results) > 0 {
		reranked, analysis := p.reranker.RerankAndFilter(ctx, query, results, trace)
		results = reranked
		if trace != nil {
			trace.Reranked = true
			trace.RerankSummary = analysis.Summary
		}
		attachAnalysis(results, analysis)
	}

	if len(results) > k {
		results = results[:k]
	}

	if trace != nil {
		trace.ElapsedMs = time.Since(start).Milliseconds()
	}
	return results, nil
}

// attachAnalysis writes the grouped llmAnalysis record onto each result,
// matched by name. The re-ranker already set the flat reasoning and
// extracted-info fields; both forms are emitted.
func attachAnalysis(results []Result, analysis *Analysis) {
	if analysis == nil || len(analysis.Verdicts) == 0 {
		return
	}
	byName := make(map[string]Verdict, len(analysis.Verdicts))
	for _, v := range analysis.Verdicts {
		byName[v.Name] = v
	}
	for i := range results {
		if v, ok := byName[results[i].Name]; ok {
			results[i].LLMAnalysis = &ResultAnalysis{
				Reasoning:     v.Reasoning,
				ExtractedInfo: v.ExtractedInfo,
			}
		}
	}
}
