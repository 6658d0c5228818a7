package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/mattn/go-sqlite3"
)

// driverName is a sqlite3 driver variant that exposes a REGEXP function to
// SQL. sqlite-vec is loaded as an auto-extension so it applies to this
// driver's connections as well.
const driverName = "sqlite3_regexp"

func init() {
	sqlite_vec.Auto()
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", regexpMatch, true)
		},
	})
}

// regexpCache avoids recompiling the same pattern for every candidate row.
var regexpCache sync.Map // pattern string -> *regexp.Regexp

func regexpMatch(pattern, s string) (bool, error) {
	if cached, ok := regexpCache.Load(pattern); ok {
		return cached.(*regexp.Regexp).MatchString(s), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	regexpCache.Store(pattern, re)
	return re.MatchString(s), nil
}

// ErrVectorIndexMissing is returned by VectorQuery when the vector index
// is absent or the KNN module is unavailable, so callers can distinguish
// it from ordinary query failures.
var ErrVectorIndexMissing = errors.New("store: vector index missing or knn unsupported")

// Resume is a stored resume document. The core never mutates resumes; they
// are written by the ingestion path and read by the search engines.
type Resume struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Role        string `json:"role"`
	Skills      string `json:"skills"` // comma-separated token list
	Company     string `json:"company"`
	Content     string `json:"content"`
	ContentHash string `json:"content_hash"`
	SourcePath  string `json:"source_path,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// VectorMatch pairs a resume with its raw cosine similarity to a query
// vector. Similarity is typically in [0,1] but cosine permits [-1,1];
// callers normalize.
type VectorMatch struct {
	Resume Resume  `json:"resume"`
	Score  float64 `json:"score"`
}

// Store wraps the SQLite database holding all resume data. It is safe for
// concurrent use; the connection pool is shared across requests.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including the sqlite-vec virtual table.
func New(dbPath string, embeddingDim int) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open(driverName, dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, embeddingDim: embeddingDim}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EmbeddingDim returns the configured embedding dimension.
func (s *Store) EmbeddingDim() int {
	return s.embeddingDim
}

const resumeColumns = `id, name, email, phone, role, skills, company, content,
	content_hash, source_path, created_at, updated_at`

func scanResume(scan func(dest ...any) error) (Resume, error) {
	var r Resume
	err := scan(&r.ID, &r.Name, &r.Email, &r.Phone, &r.Role, &r.Skills,
		&r.Company, &r.Content, &r.ContentHash, &r.SourcePath,
		&r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// KeywordQuery returns resumes where the given regular expression matches
// any of the six text fields. The caller owns scoring; results carry no
// score and are ordered by rowid, which is deterministic for a fixed
// snapshot. Case-insensitivity is the caller's responsibility (embed (?i)
// in the pattern).
func (s *Store) KeywordQuery(ctx context.Context, pattern string, limit int) ([]Resume, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+resumeColumns+`
		FROM resumes
		WHERE content REGEXP ?1 OR name REGEXP ?1 OR email REGEXP ?1
		   OR skills REGEXP ?1 OR role REGEXP ?1 OR company REGEXP ?1
		ORDER BY id
		LIMIT ?2
	`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword query: %w", err)
	}
	defer rows.Close()

	var results []Resume
	for rows.Next() {
		r, err := scanResume(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// VectorQuery performs a KNN search returning the k nearest resumes with
// their cosine similarity (1 - distance). Returns ErrVectorIndexMissing
// (wrapped) when the vector index is unavailable.
func (s *Store) VectorQuery(ctx context.Context, vector []float32, k int) ([]VectorMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.distance, `+prefixColumns("r", resumeColumns)+`
		FROM vec_resumes v
		JOIN resumes r ON r.id = v.resume_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, serializeFloat32(vector), k)
	if err != nil {
		if isVectorIndexErr(err) {
			return nil, fmt.Errorf("%w: %v", ErrVectorIndexMissing, err)
		}
		return nil, fmt.Errorf("vector query: %w", err)
	}
	defer rows.Close()

	var results []VectorMatch
	for rows.Next() {
		var distance float64
		var r Resume
		if err := rows.Scan(&distance, &r.ID, &r.Name, &r.Email, &r.Phone,
			&r.Role, &r.Skills, &r.Company, &r.Content, &r.ContentHash,
			&r.SourcePath, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		// Convert distance to similarity (1 - distance for cosine).
		results = append(results, VectorMatch{Resume: r, Score: 1.0 - distance})
	}
	return results, rows.Err()
}

// isVectorIndexErr reports whether err indicates the vec_resumes table or
// the vec0 module is unavailable rather than an ordinary query failure.
func isVectorIndexErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such table: vec_resumes") ||
		strings.Contains(msg, "no such module: vec0")
}

// --- ingestion write path ---

// UpsertResume inserts or updates a resume keyed by its email when present,
// otherwise by source path. Returns the resume ID.
func (s *Store) UpsertResume(ctx context.Context, r Resume) (int64, error) {
	if r.Email != "" {
		var existing int64
		err := s.db.QueryRowContext(ctx,
			"SELECT id FROM resumes WHERE email = ?", r.Email).Scan(&existing)
		if err == nil {
			return existing, s.updateResume(ctx, existing, r)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
	} else if r.SourcePath != "" {
		var existing int64
		err := s.db.QueryRowContext(ctx,
			"SELECT id FROM resumes WHERE source_path = ?", r.SourcePath).Scan(&existing)
		if err == nil {
			return existing, s.updateResume(ctx, existing, r)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO resumes (name, email, phone, role, skills, company, content, content_hash, source_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Name, r.Email, r.Phone, r.Role, r.Skills, r.Company, r.Content, r.ContentHash, r.SourcePath)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) updateResume(ctx context.Context, id int64, r Resume) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE resumes SET name = ?, email = ?, phone = ?, role = ?, skills = ?,
			company = ?, content = ?, content_hash = ?, source_path = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, r.Name, r.Email, r.Phone, r.Role, r.Skills, r.Company, r.Content,
		r.ContentHash, r.SourcePath, id)
	return err
}

// GetResume returns a single resume by ID.
func (s *Store) GetResume(ctx context.Context, id int64) (*Resume, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+resumeColumns+" FROM resumes WHERE id = ?", id)
	r, err := scanResume(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resume %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetResumeBySourcePath returns the resume ingested from the given path.
func (s *Store) GetResumeBySourcePath(ctx context.Context, path string) (*Resume, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+resumeColumns+" FROM resumes WHERE source_path = ?", path)
	r, err := scanResume(row.Scan)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListResumes returns all resumes ordered by insertion.
func (s *Store) ListResumes(ctx context.Context) ([]Resume, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+resumeColumns+" FROM resumes ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Resume
	for rows.Next() {
		r, err := scanResume(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// CountResumes returns the number of stored resumes.
func (s *Store) CountResumes(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM resumes").Scan(&n)
	return n, err
}

// InsertEmbedding stores (or replaces) the embedding for a resume.
func (s *Store) InsertEmbedding(ctx context.Context, resumeID int64, embedding []float32) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO vec_resumes (resume_id, embedding) VALUES (?, ?)",
		resumeID, serializeFloat32(embedding))
	return err
}

// DeleteResume removes a resume and its embedding.
func (s *Store) DeleteResume(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM vec_resumes WHERE resume_id = ?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM resumes WHERE id = ?", id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("resume %d not found", id)
		}
		return nil
	})
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// prefixColumns prefixes each column in a comma-separated list with the
// given table alias.
func prefixColumns(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

// serializeFloat32 encodes a vector in the little-endian layout sqlite-vec
// expects.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
