package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mkrishnan/resumatch/store"
)

// DocumentWriter is the slice of the store the ingester writes through.
// *store.Store satisfies it.
type DocumentWriter interface {
	UpsertResume(ctx context.Context, r store.Resume) (int64, error)
	GetResumeBySourcePath(ctx context.Context, path string) (*store.Resume, error)
	InsertEmbedding(ctx context.Context, resumeID int64, embedding []float32) error
}

// TextEmbedder embeds a batch of texts. *llm.Embedder satisfies it.
type TextEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Result reports the outcome of one ingested file.
type Result struct {
	Path     string `json:"path"`
	ResumeID int64  `json:"resumeId,omitempty"`
	Name     string `json:"name,omitempty"`
	Skipped  bool   `json:"skipped,omitempty"` // content unchanged since last ingest
	Error    string `json:"error,omitempty"`
}

// Ingester parses resume files, extracts contact details, and writes
// documents and embeddings to the store.
type Ingester struct {
	registry  *Registry
	writer    DocumentWriter
	embedder  TextEmbedder
	batchSize int
}

// NewIngester creates an ingester. batchSize bounds how many resumes are
// embedded per provider call; non-positive values fall back to 10.
func NewIngester(writer DocumentWriter, embedder TextEmbedder, batchSize int) *Ingester {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Ingester{
		registry:  NewRegistry(),
		writer:    writer,
		embedder:  embedder,
		batchSize: batchSize,
	}
}

// Registry exposes the parser registry for custom format registration.
func (in *Ingester) Registry() *Registry { return in.registry }

// File ingests a single resume file: parse, extract contacts, upsert,
// embed. Unchanged content (same hash at the same source path) is skipped
// without touching the provider.
func (in *Ingester) File(ctx context.Context, path string) (*Result, error) {
	parser, err := in.registry.Get(path)
	if err != nil {
		return nil, err
	}

	text, err := parser.Parse(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("ingest %s: empty document", path)
	}

	hash := contentHash(text)
	if existing, err := in.writer.GetResumeBySourcePath(ctx, path); err == nil && existing.ContentHash == hash {
		slog.Debug("ingest: content unchanged, skipping", "path", path, "resume_id", existing.ID)
		return &Result{Path: path, ResumeID: existing.ID, Name: existing.Name, Skipped: true}, nil
	}

	contact := ExtractContact(text)
	id, err := in.writer.UpsertResume(ctx, store.Resume{
		Name:        contact.Name,
		Email:       contact.Email,
		Phone:       contact.Phone,
		Role:        contact.Role,
		Skills:      contact.Skills,
		Company:     contact.Company,
		Content:     text,
		ContentHash: hash,
		SourcePath:  path,
	})
	if err != nil {
		return nil, fmt.Errorf("storing %s: %w", path, err)
	}

	vectors, err := in.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", path, err)
	}
	if err := in.writer.InsertEmbedding(ctx, id, vectors[0]); err != nil {
		return nil, fmt.Errorf("indexing %s: %w", path, err)
	}

	slog.Info("ingest: resume indexed", "path", path, "resume_id", id, "name", contact.Name)
	return &Result{Path: path, ResumeID: id, Name: contact.Name}, nil
}

// Dir ingests every supported file directly under dir (no recursion).
// Per-file failures are recorded in the results, not returned; only a
// directory read failure fails the whole run. Embeddings are batched per
// the configured batch size.
func (in *Ingester) Dir(ctx context.Context, dir string) ([]Result, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if _, perr := in.registry.Get(path); perr == nil {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var results []Result
	for start := 0; start < len(paths); start += in.batchSize {
		end := start + in.batchSize
		if end > len(paths) {
			end = len(paths)
		}
		results = append(results, in.batch(ctx, paths[start:end])...)
	}
	return results, nil
}

// batch parses and upserts each file, then embeds the batch with one
// provider call.
func (in *Ingester) batch(ctx context.Context, paths []string) []Result {
	results := make([]Result, 0, len(paths))

	type pending struct {
		resultIdx int
		resumeID  int64
		text      string
	}
	var toEmbed []pending

	for _, path := range paths {
		parser, err := in.registry.Get(path)
		if err != nil {
			results = append(results, Result{Path: path, Error: err.Error()})
			continue
		}
		text, err := parser.Parse(ctx, path)
		if err != nil {
			slog.Warn("ingest: parse failed", "path", path, "error", err)
			results = append(results, Result{Path: path, Error: err.Error()})
			continue
		}
		if strings.TrimSpace(text) == "" {
			results = append(results, Result{Path: path, Error: "empty document"})
			continue
		}

		hash := contentHash(text)
		if existing, err := in.writer.GetResumeBySourcePath(ctx, path); err == nil && existing.ContentHash == hash {
			results = append(results, Result{Path: path, ResumeID: existing.ID, Name: existing.Name, Skipped: true})
			continue
		}

		contact := ExtractContact(text)
		id, err := in.writer.UpsertResume(ctx, store.Resume{
			Name:        contact.Name,
			Email:       contact.Email,
			Phone:       contact.Phone,
			Role:        contact.Role,
			Skills:      contact.Skills,
			Company:     contact.Company,
			Content:     text,
			ContentHash: hash,
			SourcePath:  path,
		})
		if err != nil {
			results = append(results, Result{Path: path, Error: err.Error()})
			continue
		}

		results = append(results, Result{Path: path, ResumeID: id, Name: contact.Name})
		toEmbed = append(toEmbed, pending{resultIdx: len(results) - 1, resumeID: id, text: text})
	}

	if len(toEmbed) == 0 {
		return results
	}

	texts := make([]string, len(toEmbed))
	for i, p := range toEmbed {
		texts[i] = p.text
	}
	vectors, err := in.embedder.Embed(ctx, texts)
	if err != nil {
		slog.Warn("ingest: batch embedding failed", "files", len(toEmbed), "error", err)
		for _, p := range toEmbed {
			results[p.resultIdx].Error = fmt.Sprintf("embedding: %v", err)
		}
		return results
	}

	for i, p := range toEmbed {
		if err := in.writer.InsertEmbedding(ctx, p.resumeID, vectors[i]); err != nil {
			results[p.resultIdx].Error = fmt.Sprintf("indexing: %v", err)
		}
	}
	return results
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
