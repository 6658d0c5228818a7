package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mkrishnan/resumatch/llm"
)

// candidateContentLimit bounds how much of each resume's text is placed in
// the re-rank prompt.
const candidateContentLimit = 3000

// rerankSystemPrompt is the stable instruction set for the re-rank stage.
// It defines two evaluation modes the model selects from the query itself.
const rerankSystemPrompt = `You are an expert technical recruiter evaluating resume candidates against a search query. Work in one of two modes depending on the query:

STRICT MODE — use when the query contains concrete criteria (a city, a company name, specific skills, a minimum number of years of experience, a role title):
- A candidate matches ONLY if the resume text explicitly satisfies every stated criterion.
- Location: the city or region name must appear in the resume text itself. NEVER infer location from a phone number's country or area code, and NEVER infer it from where a company is headquartered.
- Skills: the skill (or an unambiguous equivalent) must be named in the resume.
- Experience: compute years from the dates or explicit statements in the resume; if the resume gives no way to establish the threshold, the candidate does not match.
- Score each candidate's relevance from 0.0 to 1.0: 1.0 = every criterion strongly satisfied with direct evidence; 0.7-0.9 = all criteria satisfied, evidence less direct; 0.4-0.6 = most criteria satisfied; below 0.4 = weak match; candidates that fail any criterion get matchesCriteria=false regardless of score.

LENIENT MODE — use when the query is generic ("top candidates", "best profiles", "good engineers") with no concrete criteria:
- Mark every candidate as matching (matchesCriteria=true).
- Rank by overall resume quality: depth of experience, breadth and relevance of skills, clarity of accomplishments.

In both modes, for each candidate optionally extract what the resume states: current company, location, skills, total experience, and key highlights. Only report what the text supports; never invent details.

Respond with a single JSON object and nothing else:
{
  "matches": [
    {
      "name": "<candidate name exactly as given>",
      "relevanceScore": <0.0-1.0>,
      "matchesCriteria": <true|false>,
      "reasoning": "<one or two sentences of evidence>",
      "extractedInfo": {
        "currentCompany": "<string, optional>",
        "location": "<string, optional>",
        "skills": ["<string>", ...],
        "experience": "<string, optional>",
        "keyHighlights": ["<string>", ...]
      }
    }
  ],
  "summary": "<one sentence describing the overall outcome>"
}

Include every candidate in "matches", including non-matching ones.`

// Analysis is the structured outcome of one re-rank run.
type Analysis struct {
	Summary  string    `json:"summary"`
	Verdicts []Verdict `json:"verdicts,omitempty"`
}

// Verdict is the model's judgement on a single candidate.
type Verdict struct {
	Name            string         `json:"name"`
	Relevance       float64        `json:"relevance"`
	MatchesCriteria bool           `json:"matchesCriteria"`
	Reasoning       string         `json:"reasoning,omitempty"`
	ExtractedInfo   *ExtractedInfo `json:"extractedInfo,omitempty"`
}

// Reranker re-orders and filters candidates with a single LLM call.
type Reranker struct {
	chat ChatClient
}

// NewReranker creates a re-ranker over the given chat client.
func NewReranker(chat ChatClient) *Reranker {
	return &Reranker{chat: chat}
}

// RerankAndFilter asks the LLM to judge each candidate against the query,
// drops non-matching candidates, and re-orders the rest by relevance.
//
// The stage fails open: on an LLM transport error or an unparseable
// response the original candidates are returned unchanged with a summary
// describing the fallback. Candidates are never dropped silently.
func (r *Reranker) RerankAndFilter(ctx context.Context, query string, candidates []Result, trace *Trace) ([]Result, *Analysis) {
	if len(candidates) == 0 {
		return nil, &Analysis{}
	}

	resp, err := r.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: rerankSystemPrompt},
			{Role: "user", Content: formatCandidates(query, candidates)},
		},
	})
	if err != nil {
		slog.Warn("rerank: llm call failed, returning candidates unranked", "error", err)
		return candidates, &Analysis{
			Summary: fmt.Sprintf("Re-ranking unavailable (%v); returning the original %d candidates.", err, len(candidates)),
		}
	}

	var parsed rerankResponse
	if err := json.Unmarshal([]byte(llm.ExtractJSON(resp.Content)), &parsed); err != nil {
		slog.Warn("rerank: unparseable llm response, returning candidates unranked",
			"error", err, "response_len", len(resp.Content))
		return candidates, &Analysis{
			Summary: fmt.Sprintf("Re-rank response could not be parsed; returning the original %d candidates.", len(candidates)),
		}
	}

	return applyVerdicts(candidates, parsed)
}

// applyVerdicts folds the model's verdicts back onto the original
// candidate set. The output is always a subset of the input.
func applyVerdicts(candidates []Result, parsed rerankResponse) ([]Result, *Analysis) {
	byName := make(map[string]int, len(candidates))
	for i, c := range candidates {
		byName[c.Name] = i
	}

	analysis := &Analysis{Summary: parsed.Summary}
	var results []Result

	for _, m := range parsed.Matches {
		idx, ok := byName[m.Name]
		if !ok {
			slog.Warn("rerank: verdict names unknown candidate, ignoring", "name", m.Name)
			continue
		}

		info := m.ExtractedInfo.toExtractedInfo()
		analysis.Verdicts = append(analysis.Verdicts, Verdict{
			Name:            m.Name,
			Relevance:       m.RelevanceScore,
			MatchesCriteria: m.MatchesCriteria,
			Reasoning:       m.Reasoning,
			ExtractedInfo:   info,
		})

		if !m.MatchesCriteria {
			continue
		}

		c := candidates[idx]
		c.Score = m.RelevanceScore
		c.MatchType = MatchLLMReranked
		c.LLMReasoning = m.Reasoning
		c.ExtractedInfo = info
		results = append(results, c)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, analysis
}

// formatCandidates builds the user message: the verbatim query followed by
// the numbered candidate list.
func formatCandidates(query string, candidates []Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nCandidates:\n", query)
	for i, c := range candidates {
		content := c.content
		if content == "" {
			content = c.Snippet
		}
		truncated := false
		if len(content) > candidateContentLimit {
			content = content[:candidateContentLimit]
			truncated = true
		}
		fmt.Fprintf(&b, "\n%d. Name: %s\n   Email: %s\n   Phone: %s\n   Resume: %s", i+1, c.Name, c.Email, c.Phone, content)
		if truncated {
			b.WriteString(" [truncated]")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// --- response schema ---

type rerankResponse struct {
	Matches []rerankMatch `json:"matches"`
	Summary string        `json:"summary"`
}

type rerankMatch struct {
	Name            string             `json:"name"`
	RelevanceScore  float64            `json:"relevanceScore"`
	MatchesCriteria bool               `json:"matchesCriteria"`
	Reasoning       string             `json:"reasoning"`
	ExtractedInfo   *extractedInfoJSON `json:"extractedInfo"`
}

// extractedInfoJSON tolerates the loose shapes the model produces: skills
// and keyHighlights arrive either as a string list or as one
// comma-separated string. The union never leaves this parser.
type extractedInfoJSON struct {
	CurrentCompany string     `json:"currentCompany"`
	Location       string     `json:"location"`
	Skills         stringList `json:"skills"`
	Experience     string     `json:"experience"`
	KeyHighlights  stringList `json:"keyHighlights"`
}

func (e *extractedInfoJSON) toExtractedInfo() *ExtractedInfo {
	if e == nil {
		return nil
	}
	return &ExtractedInfo{
		CurrentCompany: e.CurrentCompany,
		Location:       e.Location,
		Skills:         e.Skills,
		Experience:     e.Experience,
		KeyHighlights:  e.KeyHighlights,
	}
}

// stringList unmarshals from either a JSON array of strings or a single
// comma-separated string.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("expected string or string list: %w", err)
	}
	if single == "" {
		*s = nil
		return nil
	}

	parts := strings.Split(single, ",")
	list = make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	*s = list
	return nil
}
