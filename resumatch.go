// Package resumatch implements hybrid resume retrieval: keyword and
// vector search fused into ranked candidates, an optional LLM
// re-rank/filter stage, and conversational follow-up filtering over a
// conversation's cached results.
package resumatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkrishnan/resumatch/conversation"
	"github.com/mkrishnan/resumatch/ingest"
	"github.com/mkrishnan/resumatch/llm"
	"github.com/mkrishnan/resumatch/search"
	"github.com/mkrishnan/resumatch/store"
)

// Service is the main entry point for resume retrieval.
type Service interface {
	// Search runs one retrieval for the given search type
	// ("keyword", "vector", or "hybrid"; empty defaults to hybrid).
	Search(ctx context.Context, query, searchType string, topK int) (*SearchResponse, error)

	// Chat handles a conversational message: either a fresh retrieval or,
	// for follow-ups on cached results, a filter over them.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// History returns a conversation's messages, oldest first.
	History(ctx context.Context, conversationID string) ([]conversation.Message, error)

	// DeleteConversation removes a conversation and its cached results.
	DeleteConversation(ctx context.Context, conversationID string) error

	// Ingest parses one resume file, extracts contact details, and indexes
	// it. IngestDir does the same for every supported file in a directory.
	Ingest(ctx context.Context, path string) (*ingest.Result, error)
	IngestDir(ctx context.Context, dir string) ([]ingest.Result, error)

	// ListResumes returns all indexed resumes.
	ListResumes(ctx context.Context) ([]store.Resume, error)

	// UpdateWeights changes the hybrid fusion weights for subsequent
	// searches.
	UpdateWeights(vector, keyword float64)

	// Close shuts down the service.
	Close() error
}

// SearchResponse is the result of one Search call.
type SearchResponse struct {
	Query    string          `json:"query"`
	Results  []search.Result `json:"results"`
	Metadata SearchMetadata  `json:"metadata"`
}

// SearchMetadata describes how a result set was produced. TopK echoes the
// effective limit after defaulting.
type SearchMetadata struct {
	TraceID       string  `json:"traceId"`
	SearchType    string  `json:"searchType"`
	TopK          int     `json:"topK"`
	ResultCount   int     `json:"resultCount"`
	DurationMs    int64   `json:"durationMs"`
	VectorWeight  float64 `json:"vectorWeight,omitempty"`
	KeywordWeight float64 `json:"keywordWeight,omitempty"`
	RerankSummary string  `json:"rerankSummary,omitempty"`
}

// ChatRequest is one conversational turn.
type ChatRequest struct {
	Message string `json:"message"`
	// ConversationID continues an existing conversation. Empty starts a
	// new one; supplying it marks the message as a follow-up.
	ConversationID string `json:"conversationId,omitempty"`
	// IncludeHistory adds the conversation's recent messages to the
	// filter prompt for context. Omitted means true.
	IncludeHistory *bool `json:"includeHistory,omitempty"`
	TopK           int   `json:"topK,omitempty"`
}

// ChatResponse is the outcome of one chat turn.
type ChatResponse struct {
	Response       string          `json:"response"`
	ConversationID string          `json:"conversationId"`
	MessageCount   int             `json:"messageCount"`
	Provider       string          `json:"provider"`
	Model          string          `json:"model"`
	Results        []search.Result `json:"results,omitempty"`
	Metadata       ChatMetadata    `json:"metadata"`
}

// ChatMetadata describes the retrieval behind a chat turn. SearchType is
// "hybrid" for fresh retrievals and "filter" for follow-ups over cached
// results.
type ChatMetadata struct {
	Query       string `json:"query"`
	SearchType  string `json:"searchType"`
	ResultCount int    `json:"resultCount"`
	DurationMs  int64  `json:"durationMs"`
}

/// Default result limits per entry point: searches return a short ranked
// list, chat turns a fuller candidate set for follow-up filtering.
const (
	defaultSearchTopK = 3
	defaultChatTopK   = 10
)

type service struct {
	cfg       Config
	store     *store.Store
	chatLLM   llm.Provider
	pipeline  *search.Pipeline
	convStore *conversation.Store
	filter    *conversation.Filter
	ingester  *ingest.Ingester
}

// New creates a Service from the given configuration. The store, both LLM
// providers, the retrieval pipeline, and the conversation store are wired
// here; any construction failure surfaces to the caller.
func New(cfg Config) (Service, error) {
	if cfg.EmbeddingDim < 0 {
		return nil, fmt.Errorf("%w: embedding_dim %d", ErrInvalidConfig, cfg.EmbeddingDim)
	}
	if cfg.WeightVector < 0 || cfg.WeightKeyword < 0 {
		return nil, fmt.Errorf("%w: negative hybrid weight %f/%f",
			ErrInvalidConfig, cfg.WeightVector, cfg.WeightKeyword)
	}
	if cfg.EmbeddingDim == 0 {
		cfg.EmbeddingDim = 1024
	}
	if cfg.MaxHistory == 0 {
		cfg.MaxHistory = 10
	}
	if cfg.RerankTopK == 0 {
		cfg.RerankTopK = 10
	}
	if cfg.FilterIntentPhrases == nil {
		cfg.FilterIntentPhrases = DefaultFilterIntentPhrases
	}

	s, err := store.New(cfg.resolveDBPath(), cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	chatLLM, err := llm.NewProvider(llm.Config{
		Provider: cfg.Chat.Provider,
		Model:    cfg.Chat.Model,
		BaseURL:  cfg.Chat.BaseURL,
		APIKey:   cfg.Chat.APIKey,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating chat provider: %w", err)
	}

	embedLLM, err := llm.NewProvider(llm.Config{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		BaseURL:  cfg.Embedding.BaseURL,
		APIKey:   cfg.Embedding.APIKey,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}
	embedder := llm.NewEmbedder(embedLLM, cfg.EmbeddingDim)

	keyword := search.NewKeywordEngine(s)
	vector := search.NewVectorEngine(s, embedder)
	hybrid := search.NewHybridEngine(keyword, vector, search.HybridConfig{
		VectorWeight:  cfg.WeightVector,
		KeywordWeight: cfg.WeightKeyword,
		IdentityKey:   cfg.HybridIdentityKey,
	})
	pipeline := search.NewPipeline(keyword, vector, hybrid,
		search.NewReranker(chatLLM), search.RerankConfig{
			Enabled:    cfg.RerankEnabled,
			RetrievalK: cfg.RerankTopK,
		})

	return &service{
		cfg:       cfg,
		store:     s,
		chatLLM:   chatLLM,
		pipeline:  pipeline,
		convStore: conversation.NewStore(cfg.MaxHistory),
		filter:    conversation.NewFilter(chatLLM, cfg.FilterIntentPhrases),
		ingester:  ingest.NewIngester(s, embedder, cfg.IngestBatchSize),
	}, nil
}

func (s *service) Search(ctx context.Context, query, searchType string, topK int) (*SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidQuery
	}
	if searchType == "" {
		searchType = search.TypeHybrid
	}
	if topK <= 0 {
		topK = defaultSearchTopK
	}

	trace := &search.Trace{ID: uuid.NewString()}
	results, err := s.pipeline.Search(ctx, query, searchType, topK, trace)
	if err != nil {
		return nil, err
	}

	meta := SearchMetadata{
		TraceID:       trace.ID,
		SearchType:    searchType,
		TopK:          topK,
		ResultCount:   len(results),
		DurationMs:    trace.ElapsedMs,
		RerankSummary: trace.RerankSummary,
	}
	if searchType == search.TypeHybrid {
		meta.VectorWeight = trace.VectorWeight
		meta.KeywordWeight = trace.KeywordWeight
	}

	slog.Debug("search completed", "trace_id", trace.ID, "type", searchType,
		"results", len(results), "elapsed_ms", trace.ElapsedMs)
	return &SearchResponse{Query: query, Results: results, Metadata: meta}, nil
}

func (s *service) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrInvalidMessage
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultChatTopK
	}
	includeHistory := true
	if req.IncludeHistory != nil {
		includeHistory = *req.IncludeHistory
	}

	clientSuppliedID := req.ConversationID != ""
	convID := req.ConversationID
	if convID == "" {
		convID = uuid.NewString()
	}

	start := time.Now()

	// Follow-up filtering applies only when the conversation already
	// exists, has cached results, and the message signals a follow-up
	// (an intent phrase, or the client passing the id back).
	var (
		results    []search.Result
		response   string
		searchType string
	)
	memory := s.convStore.Get(convID)
	if memory != nil && memory.HasResults() &&
		(s.filter.MatchesIntent(req.Message) || clientSuppliedID) {
		var history []conversation.Message
		if includeHistory {
			history = memory.Messages()
		}
		results, response = s.filter.Apply(ctx, req.Message, memory.LastResults(), history)
		if len(results) > topK {
			results = results[:topK]
		}
		searchType = "filter"
	} else {
		trace := &search.Trace{ID: uuid.NewString()}
		var err error
		results, err = s.pipeline.Search(ctx, req.Message, search.TypeHybrid, topK, trace)
		if err != nil {
			return nil, err
		}
		response = composeResponse(req.Message, results, trace.RerankSummary)
		searchType = search.TypeHybrid

		// Only fresh retrievals refresh the cache; a filter run reads it
		// but never replaces it.
		memory = s.convStore.GetOrCreate(convID)
		memory.SetLastResults(results)
	}

	memory.AddExchange(req.Message, response)

	return &ChatResponse{
		Response:       response,
		ConversationID: convID,
		MessageCount:   memory.Len(),
		Provider:       s.cfg.Chat.Provider,
		Model:          s.cfg.Chat.Model,
		Results:        results,
		Metadata: ChatMetadata{
			Query:       req.Message,
			SearchType:  searchType,
			ResultCount: len(results),
			DurationMs:  time.Since(start).Milliseconds(),
		},
	}, nil
}

// composeResponse builds the assistant's text for a fresh retrieval.
func composeResponse(query string, results []search.Result, summary string) string {
	if len(results) == 0 {
		return fmt.Sprintf("No candidates found for %q.", query)
	}

	var b strings.Builder
	if summary != "" {
		b.WriteString(summary)
	} else {
		fmt.Fprintf(&b, "Found %d candidate(s) for %q.", len(results), query)
	}
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s", i+1, r.Name)
		if r.Email != "" {
			fmt.Fprintf(&b, " (%s)", r.Email)
		}
		if r.LLMReasoning != "" {
			fmt.Fprintf(&b, ": %s", r.LLMReasoning)
		}
	}
	return b.String()
}

func (s *service) History(ctx context.Context, conversationID string) ([]conversation.Message, error) {
	memory := s.convStore.Get(conversationID)
	if memory == nil {
		return nil, ErrConversationNotFound
	}
	return memory.Messages(), nil
}

func (s *service) DeleteConversation(ctx context.Context, conversationID string) error {
	if !s.convStore.Delete(conversationID) {
		return ErrConversationNotFound
	}
	return nil
}

func (s *service) Ingest(ctx context.Context, path string) (*ingest.Result, error) {
	return s.ingester.File(ctx, path)
}

func (s *service) IngestDir(ctx context.Context, dir string) ([]ingest.Result, error) {
	return s.ingester.Dir(ctx, dir)
}

func (s *service) ListResumes(ctx context.Context) ([]store.Resume, error) {
	return s.store.ListResumes(ctx)
}

func (s *service) UpdateWeights(vector, keyword float64) {
	s.pipeline.Hybrid().UpdateWeights(vector, keyword)
}

func (s *service) Close() error {
	return s.store.Close()
}
