package llm

import (
	"context"
	"fmt"
	"testing"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantType string
	}{
		{"ollama", "*llm.ollamaProvider"},
		{"lmstudio", "*llm.lmStudioProvider"},
		{"openrouter", "*llm.openRouterProvider"},
		{"openai", "*llm.openAIProvider"},
		{"groq", "*llm.groqProvider"},
		{"xai", "*llm.xaiProvider"},
		{"custom", "*llm.openAICompatProvider"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := Config{
				Provider: tt.provider,
				Model:    "test-model",
			}
			p, err := NewProvider(cfg)
			if err != nil {
				t.Fatalf("NewProvider(%q) returned error: %v", tt.provider, err)
			}
			gotType := fmt.Sprintf("%T", p)
			if gotType != tt.wantType {
				t.Errorf("NewProvider(%q) type = %s, want %s", tt.provider, gotType, tt.wantType)
			}
		})
	}
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(Config{Provider: "doesnotexist"})
	if err == nil {
		t.Fatal("expected error for unknown provider, got nil")
	}
	want := "unknown llm provider: doesnotexist"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestNewProviderEmpty(t *testing.T) {
	_, err := NewProvider(Config{})
	if err == nil {
		t.Fatal("expected error for empty provider, got nil")
	}
}

// fixedEmbedProvider returns canned vectors regardless of input.
type fixedEmbedProvider struct {
	vectors [][]float32
}

func (p *fixedEmbedProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return &ChatResponse{Content: "ok"}, nil
}

func (p *fixedEmbedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return p.vectors, nil
}

func TestEmbedderDimensionEnforced(t *testing.T) {
	ctx := context.Background()

	good := NewEmbedder(&fixedEmbedProvider{vectors: [][]float32{{1, 2, 3, 4}}}, 4)
	vec, err := good.EmbedQuery(ctx, "query")
	if err != nil {
		t.Fatalf("expected matching dimension to pass: %v", err)
	}
	if len(vec) != 4 {
		t.Fatalf("expected 4-dim vector, got %d", len(vec))
	}

	bad := NewEmbedder(&fixedEmbedProvider{vectors: [][]float32{{1, 2, 3}}}, 4)
	if _, err := bad.EmbedQuery(ctx, "query"); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestEmbedderCountMismatch(t *testing.T) {
	e := NewEmbedder(&fixedEmbedProvider{vectors: [][]float32{{1, 2, 3, 4}}}, 4)
	if _, err := e.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected count mismatch error")
	}
}

func TestTruncateForEmbed(t *testing.T) {
	short := "hello world"
	if got := truncateForEmbed(short); got != short {
		t.Errorf("short text should pass through, got %q", got)
	}

	long := ""
	for len(long) < maxEmbedChars+100 {
		long += "word "
	}
	got := truncateForEmbed(long)
	if len(got) > maxEmbedChars {
		t.Errorf("truncated text exceeds limit: %d", len(got))
	}
	if got[len(got)-1] == ' ' {
		// Cut lands after a space boundary; the kept text ends mid-run.
		t.Errorf("expected cut on word boundary without trailing space")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced with tag", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced with prose", "Here you go:\n```json\n{\"a\": 1}\n```\nDone.", `{"a": 1}`},
		{"unterminated fence", "```json\n{\"a\": 1}", `{"a": 1}`},
		{"plain prose", "sorry I cannot comply", "sorry I cannot comply"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.input); got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
