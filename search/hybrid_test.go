package search

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
)

func TestHybridSearchMerge(t *testing.T) {
	// A appears in both legs, C only in vector, B only in keyword.
	vector := &fixedEngine{results: []Result{
		namedResult("Asha Rao", 0.9),
		namedResult("Chitra Nair", 0.7),
	}}
	keyword := &fixedEngine{results: []Result{
		namedResult("Asha Rao", 0.5),
		namedResult("Boris Ivanov", 0.4),
	}}
	e := NewHybridEngine(keyword, vector, HybridConfig{VectorWeight: 0.7, KeywordWeight: 0.3})

	results, err := e.Search(context.Background(), "q", 5, nil)
	if err != nil {
		t.Fatalf("hybrid search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 merged results, got %d", len(results))
	}

	want := []struct {
		name  string
		score float64
	}{
		{"Asha Rao", 0.9*0.7 + 0.5*0.3},  // 0.78
		{"Chitra Nair", 0.7 * 0.7},       // 0.49
		{"Boris Ivanov", 0.4 * 0.3},      // 0.12
	}
	const eps = 1e-9
	for i, w := range want {
		if results[i].Name != w.name {
			t.Errorf("result %d = %s, want %s", i, results[i].Name, w.name)
		}
		if math.Abs(results[i].Score-w.score) > eps {
			t.Errorf("%s score = %f, want %f", w.name, results[i].Score, w.score)
		}
		if results[i].MatchType != MatchHybrid {
			t.Errorf("%s match type = %q, want %q", w.name, results[i].MatchType, MatchHybrid)
		}
	}
}

func TestHybridSearchTruncatesToK(t *testing.T) {
	vector := &fixedEngine{results: []Result{
		namedResult("A", 0.9), namedResult("B", 0.8), namedResult("C", 0.7),
	}}
	e := NewHybridEngine(&fixedEngine{}, vector, HybridConfig{VectorWeight: 0.7, KeywordWeight: 0.3})

	results, err := e.Search(context.Background(), "q", 2, nil)
	if err != nil {
		t.Fatalf("hybrid search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected k=2 results, got %d", len(results))
	}
}

func TestHybridSearchVectorErrorWins(t *testing.T) {
	vecErr := errors.New("vector leg down")
	kwErr := errors.New("keyword leg down")
	e := NewHybridEngine(
		&fixedEngine{err: kwErr},
		&fixedEngine{err: vecErr},
		HybridConfig{VectorWeight: 0.7, KeywordWeight: 0.3},
	)

	_, err := e.Search(context.Background(), "q", 5, nil)
	if !errors.Is(err, vecErr) {
		t.Fatalf("vector error should be reported first, got %v", err)
	}
}

func TestHybridSearchKeywordError(t *testing.T) {
	kwErr := errors.New("keyword leg down")
	e := NewHybridEngine(
		&fixedEngine{err: kwErr},
		&fixedEngine{results: []Result{namedResult("A", 0.9)}},
		HybridConfig{VectorWeight: 0.7, KeywordWeight: 0.3},
	)

	_, err := e.Search(context.Background(), "q", 5, nil)
	if !errors.Is(err, kwErr) {
		t.Fatalf("expected keyword error to fail the search, got %v", err)
	}
}

func TestHybridSearchKeepsLongerSnippet(t *testing.T) {
	short := namedResult("Asha Rao", 0.9)
	short.Snippet = "short"
	long := namedResult("Asha Rao", 0.5)
	long.Snippet = "a considerably longer snippet with the match in context"

	e := NewHybridEngine(
		&fixedEngine{results: []Result{long}},
		&fixedEngine{results: []Result{short}},
		HybridConfig{VectorWeight: 0.7, KeywordWeight: 0.3},
	)

	results, err := e.Search(context.Background(), "q", 5, nil)
	if err != nil {
		t.Fatalf("hybrid search: %v", err)
	}
	if results[0].Snippet != long.Snippet {
		t.Errorf("merge should keep the longer snippet, got %q", results[0].Snippet)
	}
}

func TestHybridIdentityByID(t *testing.T) {
	// Same ID, different name spellings: with id keying they merge.
	v := namedResult("Asha Rao", 0.9)
	v.ID = 7
	k := namedResult("ASHA RAO", 0.5)
	k.ID = 7

	e := NewHybridEngine(
		&fixedEngine{results: []Result{k}},
		&fixedEngine{results: []Result{v}},
		HybridConfig{VectorWeight: 0.7, KeywordWeight: 0.3, IdentityKey: "id"},
	)

	results, err := e.Search(context.Background(), "q", 5, nil)
	if err != nil {
		t.Fatalf("hybrid search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("id keying should merge the two entries, got %d results", len(results))
	}

	// With the default name keying the same inputs stay separate.
	e2 := NewHybridEngine(
		&fixedEngine{results: []Result{k}},
		&fixedEngine{results: []Result{v}},
		HybridConfig{VectorWeight: 0.7, KeywordWeight: 0.3},
	)
	results, err = e2.Search(context.Background(), "q", 5, nil)
	if err != nil {
		t.Fatalf("hybrid search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("name keying should keep distinct spellings apart, got %d results", len(results))
	}
}

func TestHybridUpdateWeights(t *testing.T) {
	vector := &fixedEngine{results: []Result{namedResult("A", 1.0)}}
	keyword := &fixedEngine{results: []Result{namedResult("A", 1.0)}}
	e := NewHybridEngine(keyword, vector, HybridConfig{VectorWeight: 0.7, KeywordWeight: 0.3})

	e.UpdateWeights(0.5, 0.5)
	wv, wk := e.Weights()
	if wv != 0.5 || wk != 0.5 {
		t.Fatalf("weights = %f/%f, want 0.5/0.5", wv, wk)
	}

	results, err := e.Search(context.Background(), "q", 1, nil)
	if err != nil {
		t.Fatalf("hybrid search: %v", err)
	}
	if math.Abs(results[0].Score-1.0) > 1e-9 {
		t.Errorf("score under 0.5/0.5 = %f, want 1.0", results[0].Score)
	}
}

func TestHybridConcurrentSearchAndUpdate(t *testing.T) {
	vector := &fixedEngine{results: []Result{namedResult("A", 0.9)}}
	keyword := &fixedEngine{results: []Result{namedResult("B", 0.4)}}
	e := NewHybridEngine(keyword, vector, HybridConfig{VectorWeight: 0.7, KeywordWeight: 0.3})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := e.Search(context.Background(), "q", 5, nil); err != nil {
				t.Errorf("concurrent search: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			e.UpdateWeights(0.6, 0.4)
		}()
	}
	wg.Wait()
}

func TestHybridTraceWeights(t *testing.T) {
	e := NewHybridEngine(
		&fixedEngine{},
		&fixedEngine{results: []Result{namedResult("A", 0.9)}},
		HybridConfig{VectorWeight: 0.7, KeywordWeight: 0.3},
	)

	trace := &Trace{}
	if _, err := e.Search(context.Background(), "q", 5, trace); err != nil {
		t.Fatalf("hybrid search: %v", err)
	}
	if trace.VectorWeight != 0.7 || trace.KeywordWeight != 0.3 {
		t.Errorf("trace weights = %f/%f, want 0.7/0.3", trace.VectorWeight, trace.KeywordWeight)
	}
	if trace.MergedResults != 1 {
		t.Errorf("trace merged = %d, want 1", trace.MergedResults)
	}
}
