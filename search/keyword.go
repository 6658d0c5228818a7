package search

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mkrishnan/resumatch/store"
)

// Per-field weights for the BM25-style match count. A hit in skills is
// worth three hits in the body text; company matches retrieve but do not
// score.
const (
	weightContent = 1.0
	weightName    = 2.0
	weightEmail   = 1.5
	weightSkills  = 3.0
	weightRole    = 2.5
)

// keywordScoreCeiling is the raw weighted count that maps to a 1.0 score.
const keywordScoreCeiling = 30.0

// KeywordEngine scores resumes by weighted regex hit counts across the
// store's text fields.
type KeywordEngine struct {
	store DocumentStore
}

// NewKeywordEngine creates a keyword engine over the given store.
func NewKeywordEngine(s DocumentStore) *KeywordEngine {
	return &KeywordEngine{store: s}
}

// Search tokenizes the query, retrieves candidate resumes matching any
// token, and ranks them by the weighted per-field match count normalized
// to [0,1].
func (e *KeywordEngine) Search(ctx context.Context, query string, k int, trace *Trace) ([]Result, error) {
	re, err := tokenPattern(query)
	if err != nil {
		return nil, err
	}

	// Fetch 2k candidates so scoring has headroom beyond the final cut.
	resumes, err := e.store.KeywordQuery(ctx, re.String(), 2*k)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	results := make([]Result, 0, len(resumes))
	for _, r := range resumes {
		results = append(results, Result{
			ID:        r.ID,
			Name:      r.Name,
			Email:     r.Email,
			Phone:     r.Phone,
			Snippet:   matchSnippet(r.Content, re),
			Score:     keywordScore(r, re),
			MatchType: MatchKeyword,
			content:   r.Content,
		})
	}

	// Stable sort keeps the adapter's deterministic order for ties.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}

	if trace != nil {
		trace.KeywordResults = len(results)
	}
	return results, nil
}

// tokenPattern builds a case-insensitive alternation regex over the
// whitespace-separated query tokens.
func tokenPattern(query string) (*regexp.Regexp, error) {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("keyword search: empty query")
	}
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return regexp.Compile("(?i)(" + strings.Join(quoted, "|") + ")")
}

// keywordScore computes the weighted match count for a resume, normalized
// to [0,1] against keywordScoreCeiling.
func keywordScore(r store.Resume, re *regexp.Regexp) float64 {
	raw := weightContent*countIn(r.Content, re) +
		weightName*countIn(r.Name, re) +
		weightEmail*countIn(r.Email, re) +
		weightSkills*countIn(r.Skills, re) +
		weightRole*countIn(r.Role, re)

	score := raw / keywordScoreCeiling
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func countIn(field string, re *regexp.Regexp) float64 {
	if field == "" {
		return 0
	}
	return float64(len(re.FindAllStringIndex(field, -1)))
}
