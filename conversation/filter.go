package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mkrishnan/resumatch/llm"
	"github.com/mkrishnan/resumatch/search"
)

// filterSystemPrompt instructs the model to narrow a previously retrieved
// candidate set. It must never alter candidate data or invent matches.
const filterSystemPrompt = `You are filtering an existing list of resume candidates against a follow-up criterion from a recruiter. The list was produced by an earlier search; your only job is to decide, for each candidate, whether they satisfy the new criterion.

Common filter categories:
- Company type: service-based companies (IT services, consulting, outsourcing — e.g. TCS, Infosys, Wipro, Accenture, Cognizant) versus product-based companies (build their own products — e.g. Google, Amazon, Flipkart, startups with their own platform).
- Location: the stated location text must satisfy the criterion.
- Experience: compare the stated experience against the threshold in the criterion.
- Skills: the named skill must appear in the candidate's listed skills or resume text.

Rules:
- Judge ONLY from the candidate data given below. Never modify it and never fabricate a match a candidate's data does not support.
- If the data gives no way to decide for a candidate, that candidate does not match.
- Include every candidate in your answer, matching or not.

Respond with a single JSON object and nothing else:
{
  "filteredResults": [
    {"name": "<candidate name exactly as given>", "matches": <true|false>, "reasoning": "<one sentence>"}
  ],
  "summary": "<one sentence describing what the filter kept>"
}`

// Filter narrows a conversation's cached results with one LLM call. It
// never touches the document store or the retrieval engines.
type Filter struct {
	chat          search.ChatClient
	intentPhrases []string
}

// NewFilter creates a filter using the given chat client and filter-intent
// phrases.
func NewFilter(chat search.ChatClient, intentPhrases []string) *Filter {
	return &Filter{chat: chat, intentPhrases: intentPhrases}
}

// MatchesIntent reports whether the message contains any filter-intent
// phrase (case-insensitive substring).
func (f *Filter) MatchesIntent(message string) bool {
	lower := strings.ToLower(message)
	for _, p := range f.intentPhrases {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// Apply filters cached against the criterion and returns the matching
// subset in its original order plus a textual summary. history, when
// non-nil, is included in the prompt for context.
//
/// The operation fails open: on an LLM error or an unparseable response all
// cached results are returned with a summary describing the fallback.
func (f *Filter) Apply(ctx context.Context, criterion string, cached []search.Result, history []Message) ([]search.Result, string) {
	if len(cached) == 0 {
		return nil, "No previous results to filter."
	}

	resp, err := f.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: filterSystemPrompt},
			{Role: "user", Content: formatFilterPrompt(criterion, cached, history)},
		},
	})
	if err != nil {
		slog.Warn("filter: llm call failed, returning cached results unfiltered", "error", err)
		return cached, fmt.Sprintf("Filtering unavailable (%v); showing all %d previous results.", err, len(cached))
	}

	var parsed filterResponse
	if err := json.Unmarshal([]byte(llm.ExtractJSON(resp.Content)), &parsed); err != nil {
		slog.Warn("filter: unparseable llm response, returning cached results unfiltered",
			"error", err, "response_len", len(resp.Content))
		return cached, fmt.Sprintf("Filter response could not be parsed; showing all %d previous results.", len(cached))
	}

	matching := make(map[string]bool, len(parsed.FilteredResults))
	for _, v := range parsed.FilteredResults {
		if v.Matches {
			matching[v.Name] = true
		}
	}

	// Preserve the cached order; the model only decides membership.
	var results []search.Result
	for _, r := range cached {
		if matching[r.Name] {
			results = append(results, r)
		}
	}

	summary := parsed.Summary
	if summary == "" {
		summary = fmt.Sprintf("%d of %d previous results match.", len(results), len(cached))
	}
	return results, summary
}

// formatFilterPrompt builds the user message: optional recent history, the
// criterion, and the cached candidates with their extracted info.
func formatFilterPrompt(criterion string, cached []search.Result, history []Message) string {
	var b strings.Builder

	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Filter criterion: %s\n\nCandidates:\n", criterion)
	for i, r := range cached {
		fmt.Fprintf(&b, "\n%d. Name: %s\n   Email: %s\n   Phone: %s\n", i+1, r.Name, r.Email, r.Phone)
		if info := r.ExtractedInfo; info != nil {
			if info.CurrentCompany != "" {
				fmt.Fprintf(&b, "   Company: %s\n", info.CurrentCompany)
			}
			if info.Location != "" {
				fmt.Fprintf(&b, "   Location: %s\n", info.Location)
			}
			if len(info.Skills) > 0 {
				fmt.Fprintf(&b, "   Skills: %s\n", strings.Join(info.Skills, ", "))
			}
			if info.Experience != "" {
				fmt.Fprintf(&b, "   Experience: %s\n", info.Experience)
			}
			if len(info.KeyHighlights) > 0 {
				fmt.Fprintf(&b, "   Highlights: %s\n", strings.Join(info.KeyHighlights, "; "))
			}
		}
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   Summary: %s\n", r.Snippet)
		}
	}
	return b.String()
}

type filterResponse struct {
	FilteredResults []filterVerdict `json:"filteredResults"`
	Summary         string          `json:"summary"`
}

type filterVerdict struct {
	Name      string `json:"name"`
	Matches   bool   `json:"matches"`
	Reasoning string `json:"reasoning"`
}
