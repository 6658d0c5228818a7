package store

import "fmt"

// schemaSQL returns the DDL for all tables. embeddingDim controls the
// vec0 virtual table dimension.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
-- Resume documents. One row per candidate; the full resume text lives in
-- content, with the commonly-queried fields denormalized alongside it.
CREATE TABLE IF NOT EXISTS resumes (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT '',
    skills TEXT NOT NULL DEFAULT '',
    company TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    source_path TEXT NOT NULL DEFAULT '',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Vector index via sqlite-vec. One embedding per resume.
CREATE VIRTUAL TABLE IF NOT EXISTS vec_resumes USING vec0(
    resume_id INTEGER PRIMARY KEY,
    embedding float[%d]
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_resumes_email ON resumes(email) WHERE email != '';
CREATE INDEX IF NOT EXISTS idx_resumes_name ON resumes(name);
CREATE INDEX IF NOT EXISTS idx_resumes_hash ON resumes(content_hash);
`, embeddingDim)
}
