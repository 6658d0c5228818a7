package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"sync"
)

// HybridConfig configures the hybrid engine's score fusion.
type HybridConfig struct {
	VectorWeight  float64
	KeywordWeight float64
	// IdentityKey selects how documents are matched across the two result
	// sets: "name" (default) or "id". Name keying can collide or be
	// absent; prefer "id" when the corpus allows it.
	IdentityKey string
}

// weightDriftTolerance is how far the weights may drift from summing to
// 1.0 before a warning is logged. Drift never fails a search.
const weightDriftTolerance = 0.01

// HybridEngine runs the keyword and vector engines concurrently and fuses
// their scores under configurable weights.
type HybridEngine struct {
	keyword Engine
	vector  Engine

	mu          sync.Mutex
	wVector     float64
	wKeyword    float64
	identityKey string
}

// NewHybridEngine creates a hybrid engine over the two candidate engines.
func NewHybridEngine(keyword, vector Engine, cfg HybridConfig) *HybridEngine {
	checkWeightSum(cfg.VectorWeight, cfg.KeywordWeight)
	key := cfg.IdentityKey
	if key == "" {
		key = "name"
	}
	return &HybridEngine{
		keyword:     keyword,
		vector:      vector,
		wVector:     cfg.VectorWeight,
		wKeyword:    cfg.KeywordWeight,
		identityKey: key,
	}
}

// Weights returns the current fusion weights.
func (e *HybridEngine) Weights() (vector, keyword float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wVector, e.wKeyword
}

// UpdateWeights changes the fusion weights for subsequent searches.
// In-flight searches keep the snapshot they read at dispatch; there is no
// barrier between an update and concurrent searches (last writer wins).
func (e *HybridEngine) UpdateWeights(vector, keyword float64) {
	checkWeightSum(vector, keyword)
	e.mu.Lock()
	e.wVector = vector
	e.wKeyword = keyword
	e.mu.Unlock()
}

func checkWeightSum(vector, keyword float64) {
	if math.Abs(vector+keyword-1.0) > weightDriftTolerance {
		slog.Warn("hybrid: weights do not sum to 1.0",
			"vector_weight", vector, "keyword_weight", keyword)
	}
}

// Search fans out to the keyword and vector engines, each asked for 3k
// candidates, and merges by document identity: merged = v·w_v + k·w_k.
// Either engine failing fails the hybrid search.
func (e *HybridEngine) Search(ctx context.Context, query string, k int, trace *Trace) ([]Result, error) {
	wVector, wKeyword := e.Weights()
	if trace != nil {
		trace.VectorWeight = wVector
		trace.KeywordWeight = wKeyword
	}

	// Over-fetch so documents ranked low by one engine can still surface
	// after fusion.
	fetch := 3 * k

	type subResult struct {
		results []Result
		err     error
	}
	kwCh := make(chan subResult, 1)
	vecCh := make(chan subResult, 1)

	go func() {
		r, err := e.keyword.Search(ctx, query, fetch, trace)
		kwCh <- subResult{r, err}
	}()
	go func() {
		r, err := e.vector.Search(ctx, query, fetch, trace)
		vecCh <- subResult{r, err}
	}()

	kwRes := <-kwCh
	vecRes := <-vecCh

	if vecRes.err != nil {
		return nil, fmt.Errorf("hybrid vector leg: %w", vecRes.err)
	}
	if kwRes.err != nil {
		return nil, fmt.Errorf("hybrid keyword leg: %w", kwRes.err)
	}

	merged := e.merge(vecRes.results, kwRes.results, wVector, wKeyword)
	if len(merged) > k {
		merged = merged[:k]
	}

	if trace != nil {
		trace.MergedResults = len(merged)
	}
	return merged, nil
}

// merge fuses the two result sets keyed by document identity. Vector
// results seed the accumulator; keyword results add their weighted score
// to an existing entry (keeping the longer snippet) or insert a new one.
func (e *HybridEngine) merge(vecResults, kwResults []Result, wVector, wKeyword float64) []Result {
	type entry struct {
		result Result
		score  float64
	}

	byKey := make(map[string]*entry, len(vecResults)+len(kwResults))
	var order []string // first-seen key order for deterministic ties

	for _, r := range vecResults {
		key := e.identity(r)
		if _, ok := byKey[key]; !ok {
			byKey[key] = &entry{result: r, score: r.Score * wVector}
			order = append(order, key)
		}
	}

	for _, r := range kwResults {
		key := e.identity(r)
		if ent, ok := byKey[key]; ok {
			ent.score += r.Score * wKeyword
			if len(r.Snippet) > len(ent.result.Snippet) {
				ent.result.Snippet = r.Snippet
			}
		} else {
			byKey[key] = &entry{result: r, score: r.Score * wKeyword}
			order = append(order, key)
		}
	}

	merged := make([]Result, 0, len(order))
	for _, key := range order {
		ent := byKey[key]
		r := ent.result
		r.Score = ent.score
		r.MatchType = MatchHybrid
		merged = append(merged, r)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}

func (e *HybridEngine) identity(r Result) string {
	if e.identityKey == "id" {
		return strconv.FormatInt(r.ID, 10)
	}
	return r.Name
}
