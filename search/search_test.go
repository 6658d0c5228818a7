package search

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/mkrishnan/resumatch/llm"
	"github.com/mkrishnan/resumatch/store"
)

// fakeStore implements DocumentStore in memory. KeywordQuery applies the
// pattern across the same six fields the real adapter queries; VectorQuery
// returns a canned match list.
type fakeStore struct {
	resumes    []store.Resume
	vectorHits []store.VectorMatch
	vectorErr  error
	keywordErr error

	mu           sync.Mutex
	vectorCalls  int
	keywordCalls int
}

func (f *fakeStore) KeywordQuery(ctx context.Context, pattern string, limit int) ([]store.Resume, error) {
	f.mu.Lock()
	f.keywordCalls++
	f.mu.Unlock()
	if f.keywordErr != nil {
		return nil, f.keywordErr
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	var out []store.Resume
	for _, r := range f.resumes {
		if re.MatchString(r.Content) || re.MatchString(r.Name) || re.MatchString(r.Email) ||
			re.MatchString(r.Skills) || re.MatchString(r.Role) || re.MatchString(r.Company) {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) VectorQuery(ctx context.Context, vector []float32, k int) ([]store.VectorMatch, error) {
	f.mu.Lock()
	f.vectorCalls++
	f.mu.Unlock()
	if f.vectorErr != nil {
		return nil, f.vectorErr
	}
	hits := f.vectorHits
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// fakeEmbedder returns a fixed vector for any query.
type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

// fakeChat replies with a canned completion (or error) and records the
// last request.
type fakeChat struct {
	response string
	err      error

	mu      sync.Mutex
	calls   int
	lastReq llm.ChatRequest
}

func (f *fakeChat) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Content: f.response}, nil
}

// fixedEngine satisfies Engine with a preset result list.
type fixedEngine struct {
	results []Result
	err     error
}

func (f *fixedEngine) Search(ctx context.Context, query string, k int, trace *Trace) ([]Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	results := f.results
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func namedResult(name string, score float64) Result {
	return Result{
		Name:    name,
		Email:   fmt.Sprintf("%s@example.com", name),
		Score:   score,
		Snippet: "snippet for " + name,
		content: "resume content for " + name,
	}
}
