//go:build cgo

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath, 4) // dim=4 for test vectors
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResume(name, email string) Resume {
	return Resume{
		Name:        name,
		Email:       email,
		Phone:       "+1 555 0100",
		Role:        "QA Engineer",
		Skills:      "Java, Selenium",
		Company:     "Acme Corp",
		Content:     name + " is a QA engineer with Selenium experience.",
		ContentHash: "hash-" + email,
	}
}

// ---------------------------------------------------------------------------
// Schema / construction
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	s := newTestStore(t)
	if s.EmbeddingDim() != 4 {
		t.Fatalf("expected embedding dim 4, got %d", s.EmbeddingDim())
	}
	if s.DB() == nil {
		t.Fatal("expected non-nil *sql.DB")
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "dir", "test.db")
	s, err := New(dbPath, 4)
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

// ---------------------------------------------------------------------------
// Resume CRUD
// ---------------------------------------------------------------------------

func TestUpsertAndGetResume(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertResume(ctx, sampleResume("Asha Rao", "asha@example.com"))
	if err != nil {
		t.Fatalf("upserting resume: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero resume id")
	}

	got, err := s.GetResume(ctx, id)
	if err != nil {
		t.Fatalf("getting resume: %v", err)
	}
	if got.Name != "Asha Rao" || got.Skills != "Java, Selenium" {
		t.Errorf("unexpected resume: %+v", got)
	}

	// Same email updates in place.
	updated := sampleResume("Asha Rao", "asha@example.com")
	updated.Role = "SDET"
	id2, err := s.UpsertResume(ctx, updated)
	if err != nil {
		t.Fatalf("upserting duplicate email: %v", err)
	}
	if id2 != id {
		t.Errorf("expected upsert to reuse id %d, got %d", id, id2)
	}
	got, err = s.GetResume(ctx, id)
	if err != nil {
		t.Fatalf("re-getting resume: %v", err)
	}
	if got.Role != "SDET" {
		t.Errorf("expected updated role SDET, got %q", got.Role)
	}

	n, err := s.CountResumes(ctx)
	if err != nil {
		t.Fatalf("counting resumes: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 resume after upsert, got %d", n)
	}
}

func TestDeleteResume(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertResume(ctx, sampleResume("Asha Rao", "asha@example.com"))
	if err != nil {
		t.Fatalf("upserting resume: %v", err)
	}
	if err := s.InsertEmbedding(ctx, id, []float32{1, 0, 0, 0}); err != nil {
		t.Fatalf("inserting embedding: %v", err)
	}

	if err := s.DeleteResume(ctx, id); err != nil {
		t.Fatalf("deleting resume: %v", err)
	}
	if _, err := s.GetResume(ctx, id); err == nil {
		t.Error("expected error getting deleted resume")
	}
	if err := s.DeleteResume(ctx, id); err == nil {
		t.Error("expected error deleting unknown resume")
	}
}

// ---------------------------------------------------------------------------
// Keyword queries
// ---------------------------------------------------------------------------

func TestKeywordQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := sampleResume("Asha Rao", "asha@example.com") // skills contain Selenium
	b := sampleResume("Boris Ivanov", "boris@example.com")
	b.Skills = "Python"
	b.Content = "Boris writes data pipelines in Python."
	c := sampleResume("Chitra Nair", "chitra@example.com")
	c.Skills = "Manual Testing"
	c.Content = "Chitra has hands-on selenium test automation exposure."

	for _, r := range []Resume{a, b, c} {
		if _, err := s.UpsertResume(ctx, r); err != nil {
			t.Fatalf("upserting %s: %v", r.Name, err)
		}
	}

	got, err := s.KeywordQuery(ctx, "(?i)(selenium)", 10)
	if err != nil {
		t.Fatalf("keyword query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches for selenium, got %d", len(got))
	}
	// Deterministic rowid order.
	if got[0].Name != "Asha Rao" || got[1].Name != "Chitra Nair" {
		t.Errorf("unexpected order: %s, %s", got[0].Name, got[1].Name)
	}

	// Email field is part of the disjunction.
	got, err = s.KeywordQuery(ctx, "(?i)(boris@example)", 10)
	if err != nil {
		t.Fatalf("keyword query by email: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Boris Ivanov" {
		t.Errorf("expected Boris via email match, got %+v", got)
	}

	// No match is not an error.
	got, err = s.KeywordQuery(ctx, "(?i)(cobol)", 10)
	if err != nil {
		t.Fatalf("keyword query with no matches: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no matches, got %d", len(got))
	}
}

func TestKeywordQueryLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		r := sampleResume("Person", email)
		r.Name = "Person " + email
		if _, err := s.UpsertResume(ctx, r); err != nil {
			t.Fatalf("upserting %d: %v", i, err)
		}
	}

	got, err := s.KeywordQuery(ctx, "(?i)(selenium)", 2)
	if err != nil {
		t.Fatalf("keyword query: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected limit 2 respected, got %d", len(got))
	}
}

// ---------------------------------------------------------------------------
// Vector queries
// ---------------------------------------------------------------------------

func TestVectorQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	vectors := map[string][]float32{
		"asha@example.com":   {1, 0, 0, 0},
		"boris@example.com":  {0, 1, 0, 0},
		"chitra@example.com": {0.9, 0.1, 0, 0},
	}
	for email, vec := range vectors {
		id, err := s.UpsertResume(ctx, sampleResume("R "+email, email))
		if err != nil {
			t.Fatalf("upserting %s: %v", email, err)
		}
		if err := s.InsertEmbedding(ctx, id, vec); err != nil {
			t.Fatalf("embedding %s: %v", email, err)
		}
	}

	got, err := s.VectorQuery(ctx, []float32{1, 0, 0, 0}, 2)
	if err != nil {
		t.Fatalf("vector query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 nearest, got %d", len(got))
	}
	if got[0].Resume.Email != "asha@example.com" {
		t.Errorf("expected exact match first, got %s", got[0].Resume.Email)
	}
	if got[0].Score < got[1].Score {
		t.Errorf("expected descending similarity: %f then %f", got[0].Score, got[1].Score)
	}
	if got[0].Score < 0.99 {
		t.Errorf("expected near-perfect similarity for identical vector, got %f", got[0].Score)
	}
}

func TestVectorQueryIndexMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Drop the vector table to simulate a missing index.
	if _, err := s.DB().ExecContext(ctx, "DROP TABLE vec_resumes"); err != nil {
		t.Fatalf("dropping vec table: %v", err)
	}

	_, err := s.VectorQuery(ctx, []float32{1, 0, 0, 0}, 2)
	if !errors.Is(err, ErrVectorIndexMissing) {
		t.Errorf("expected ErrVectorIndexMissing, got %v", err)
	}
}
