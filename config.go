package resumatch

import (
	"os"
	"path/filepath"
)

// Config holds all configuration for the resumatch service.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.resumatch/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "resumatch". The file will be <DBName>.db inside the
	// storage directory (~/.resumatch/ or working dir).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.resumatch/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// LLM providers
	Chat      LLMConfig `json:"chat" yaml:"chat"`
	Embedding LLMConfig `json:"embedding" yaml:"embedding"`

	// EmbeddingDim is the fixed process-wide embedding dimension.
	// Must match the embedding model; vectors of any other length are
	// rejected.
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`

	// Hybrid score fusion weights. They should sum to 1.0; a drift larger
	// than 0.01 is logged but tolerated.
	WeightVector  float64 `json:"weight_vector" yaml:"weight_vector"`
	WeightKeyword float64 `json:"weight_keyword" yaml:"weight_keyword"`

	// HybridIdentityKey selects how hybrid merge identifies a document
	// across the keyword and vector result sets: "name" (default) or "id".
	HybridIdentityKey string `json:"hybrid_identity_key" yaml:"hybrid_identity_key"`

	// LLM re-ranking stage.
	RerankEnabled bool `json:"rerank_enabled" yaml:"rerank_enabled"`
	// RerankTopK is how many candidates retrieval fetches for the
	// re-ranker; the final result is truncated to the caller's topK.
	RerankTopK int `json:"rerank_top_k" yaml:"rerank_top_k"`

	// MaxHistory bounds the number of messages kept per conversation.
	MaxHistory int `json:"max_history" yaml:"max_history"`

	// FilterIntentPhrases are the case-insensitive substrings that mark a
	// chat message as a follow-up filter over cached results. English-only
	// by default; override for other locales.
	FilterIntentPhrases []string `json:"filter_intent_phrases" yaml:"filter_intent_phrases"`

	// IngestBatchSize is how many resume texts are embedded per provider
	// call during ingestion.
	IngestBatchSize int `json:"ingest_batch_size" yaml:"ingest_batch_size"`
}

// LLMConfig configures a single LLM provider endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // ollama, lmstudio, openrouter, openai, groq, xai, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// DefaultFilterIntentPhrases marks a chat message as a follow-up filter
// over previously returned candidates.
var DefaultFilterIntentPhrases = []string{
	"only", "filter", "show me", "display",
	"from those", "from the above", "from previous", "from these",
	"among them", "out of these", "narrow down", "refine",
}

// DefaultConfig returns a Config with sensible defaults for local inference.
// Database is stored in ~/.resumatch/resumatch.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:     "resumatch",
		StorageDir: "home",
		Chat: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			BaseURL:  "http://localhost:11434",
		},
		Embedding: LLMConfig{
			Provider: "ollama",
			Model:    "mxbai-embed-large",
			BaseURL:  "http://localhost:11434",
		},
		EmbeddingDim:        1024,
		WeightVector:        0.7,
		WeightKeyword:       0.3,
		HybridIdentityKey:   "name",
		RerankEnabled:       true,
		RerankTopK:          10,
		MaxHistory:          10,
		FilterIntentPhrases: DefaultFilterIntentPhrases,
		IngestBatchSize:     10,
	}
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "resumatch"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		dir := filepath.Join(home, ".resumatch")
		return filepath.Join(dir, name+".db")
	}
}
