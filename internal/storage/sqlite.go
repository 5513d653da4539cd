package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/ashita-ai/mekiki/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS assessments (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL,
	description          TEXT NOT NULL DEFAULT '',
	url                  TEXT NOT NULL DEFAULT '',
	remote_testing       INTEGER NOT NULL DEFAULT 0,
	adaptive_irt         INTEGER NOT NULL DEFAULT 0,
	test_types           TEXT NOT NULL DEFAULT '[]',
	job_levels           TEXT NOT NULL DEFAULT '[]',
	languages            TEXT NOT NULL DEFAULT '[]',
	key_features         TEXT NOT NULL DEFAULT '[]',
	duration_text        TEXT NOT NULL DEFAULT '',
	duration_min_minutes INTEGER,
	duration_max_minutes INTEGER,
	is_untimed           INTEGER NOT NULL DEFAULT 0,
	is_variable_duration INTEGER NOT NULL DEFAULT 0,
	source               TEXT NOT NULL DEFAULT '',
	embedding            BLOB,
	created_at           TEXT NOT NULL,
	updated_at           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS assessments_name_idx ON assessments (name);
`

// SQLiteStore is the single-file catalog driver for deployments without
// Postgres. Vectors live in a BLOB column and similarity search is a linear
// scan in Go, which is fine at catalog scale.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens (creating if needed) the database file at path and
// ensures the schema exists.
func NewSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	// The sqlite driver serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

const sqliteUpsertSQL = `
	INSERT INTO assessments (id, name, description, url, remote_testing, adaptive_irt,
		test_types, job_levels, languages, key_features,
		duration_text, duration_min_minutes, duration_max_minutes, is_untimed, is_variable_duration,
		source, embedding, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name                 = excluded.name,
		description          = excluded.description,
		url                  = excluded.url,
		remote_testing       = excluded.remote_testing,
		adaptive_irt         = excluded.adaptive_irt,
		test_types           = excluded.test_types,
		job_levels           = excluded.job_levels,
		languages            = excluded.languages,
		key_features         = excluded.key_features,
		duration_text        = excluded.duration_text,
		duration_min_minutes = excluded.duration_min_minutes,
		duration_max_minutes = excluded.duration_max_minutes,
		is_untimed           = excluded.is_untimed,
		is_variable_duration = excluded.is_variable_duration,
		source               = excluded.source,
		embedding            = COALESCE(excluded.embedding, assessments.embedding),
		updated_at           = excluded.updated_at`

func sqliteUpsertArgs(a model.Assessment, now string) ([]any, error) {
	testTypes, err := marshalList(a.TestTypes)
	if err != nil {
		return nil, err
	}
	jobLevels, err := marshalList(a.JobLevels)
	if err != nil {
		return nil, err
	}
	languages, err := marshalList(a.Languages)
	if err != nil {
		return nil, err
	}
	keyFeatures, err := marshalList(a.KeyFeatures)
	if err != nil {
		return nil, err
	}

	var blob []byte
	if a.Embedding != nil {
		blob = encodeVector(a.Embedding.Slice())
	}
	return []any{
		a.ID, a.Name, a.Description, a.URL, a.RemoteTesting, a.AdaptiveIRT,
		testTypes, jobLevels, languages, keyFeatures,
		a.DurationText, a.DurationMinMinutes, a.DurationMaxMinutes, a.IsUntimed, a.IsVariable,
		a.Source, blob, now, now,
	}, nil
}

// UpsertAssessment inserts or replaces a catalog entry by id.
func (s *SQLiteStore) UpsertAssessment(ctx context.Context, a model.Assessment) (model.Assessment, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	args, err := sqliteUpsertArgs(a, now)
	if err != nil {
		return model.Assessment{}, fmt.Errorf("storage: upsert assessment: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqliteUpsertSQL, args...); err != nil {
		return model.Assessment{}, fmt.Errorf("storage: upsert assessment: %w", err)
	}
	return s.GetAssessment(ctx, a.ID)
}

// UpsertAssessments inserts or replaces catalog entries inside one
// transaction and returns the number of rows written.
func (s *SQLiteStore) UpsertAssessments(ctx context.Context, items []model.Assessment) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("storage: upsert assessments: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertSQL)
	if err != nil {
		return 0, fmt.Errorf("storage: upsert assessments: prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for i, a := range items {
		args, err := sqliteUpsertArgs(a, now)
		if err != nil {
			return i, fmt.Errorf("storage: upsert assessments: item %d (%s): %w", i, a.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return i, fmt.Errorf("storage: upsert assessments: item %d (%s): %w", i, a.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage: upsert assessments: commit: %w", err)
	}
	return len(items), nil
}

const sqliteSelectColumns = `id, name, description, url, remote_testing, adaptive_irt,
	test_types, job_levels, languages, key_features,
	duration_text, duration_min_minutes, duration_max_minutes, is_untimed, is_variable_duration,
	source, created_at, updated_at`

// GetAssessment returns a single catalog entry.
// Returns ErrNotFound if the id does not exist.
func (s *SQLiteStore) GetAssessment(ctx context.Context, id string) (model.Assessment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteSelectColumns+` FROM assessments WHERE id = ?`, id,
	)
	a, err := scanSQLiteAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Assessment{}, ErrNotFound
	}
	if err != nil {
		return model.Assessment{}, fmt.Errorf("storage: get assessment: %w", err)
	}
	return a, nil
}

// ListAssessments returns a filtered page of the catalog in stable id order.
// Filters are applied in Go; the whole catalog fits in memory comfortably.
func (s *SQLiteStore) ListAssessments(ctx context.Context, p ListParams) ([]model.Assessment, int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteSelectColumns+` FROM assessments ORDER BY id`,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("storage: list assessments: %w", err)
	}
	defer rows.Close()

	var items []model.Assessment
	for rows.Next() {
		a, err := scanSQLiteAssessment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("storage: list assessments: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("storage: list assessments: rows: %w", err)
	}

	filtered := filterAssessments(items, p)
	return pageAssessments(filtered, p.Limit, p.Offset), len(filtered), nil
}

// DeleteAssessment removes a catalog entry.
// Returns ErrNotFound if the id does not exist.
func (s *SQLiteStore) DeleteAssessment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM assessments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage: delete assessment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: delete assessment: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountAssessments returns the total catalog size.
func (s *SQLiteStore) CountAssessments(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assessments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: count assessments: %w", err)
	}
	return n, nil
}

// MatchAssessments scans stored vectors and ranks them by cosine similarity
// computed in Go.
func (s *SQLiteStore) MatchAssessments(ctx context.Context, p MatchParams) ([]model.MatchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteSelectColumns+`, embedding FROM assessments WHERE embedding IS NOT NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: match assessments: %w", err)
	}
	defer rows.Close()

	var results []model.MatchResult
	for rows.Next() {
		a, blob, err := scanSQLiteAssessmentWithVector(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: match assessments: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("storage: match assessments: %s: %w", a.ID, err)
		}
		sim := cosineSimilarity(p.Embedding, vec)
		if sim < p.MinSimilarity {
			continue
		}
		results = append(results, model.MatchResult{Assessment: a, Similarity: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: match assessments: rows: %w", err)
	}

	// Rows arrive in id order, so the stable sort breaks similarity ties
	// by id ascending.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// AssessmentsMissingEmbedding returns catalog entries without a vector,
// oldest first, up to limit.
func (s *SQLiteStore) AssessmentsMissingEmbedding(ctx context.Context, limit int) ([]model.Assessment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteSelectColumns+` FROM assessments
		 WHERE embedding IS NULL
		 ORDER BY created_at, id
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: assessments missing embedding: %w", err)
	}
	defer rows.Close()

	var items []model.Assessment
	for rows.Next() {
		a, err := scanSQLiteAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: assessments missing embedding: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// ListEmbeddings pages through stored vectors in id order for index rebuilds.
func (s *SQLiteStore) ListEmbeddings(ctx context.Context, limit, offset int) ([]IDVector, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, source, embedding FROM assessments
		 WHERE embedding IS NOT NULL
		 ORDER BY id
		 LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list embeddings: %w", err)
	}
	defer rows.Close()

	var out []IDVector
	for rows.Next() {
		var v IDVector
		var blob []byte
		if err := rows.Scan(&v.ID, &v.Name, &v.Source, &blob); err != nil {
			return nil, fmt.Errorf("storage: scan embedding: %w", err)
		}
		if v.Embedding, err = decodeVector(blob); err != nil {
			return nil, fmt.Errorf("storage: list embeddings: %s: %w", v.ID, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpdateAssessmentEmbedding replaces the stored vector for one entry.
// Returns ErrNotFound if the id does not exist.
func (s *SQLiteStore) UpdateAssessmentEmbedding(ctx context.Context, id string, embedding []float32) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE assessments SET embedding = ?, updated_at = ? WHERE id = ?`,
		encodeVector(embedding), time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("storage: update embedding: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: update embedding: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks the database file is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database file.
func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteAssessment(row rowScanner) (model.Assessment, error) {
	a, _, err := scanSQLiteRow(row, false)
	return a, err
}

func scanSQLiteAssessmentWithVector(row rowScanner) (model.Assessment, []byte, error) {
	return scanSQLiteRow(row, true)
}

func scanSQLiteRow(row rowScanner, withVector bool) (model.Assessment, []byte, error) {
	var (
		a                      model.Assessment
		testTypes, jobLevels   string
		languages, keyFeatures string
		minMin, maxMin         sql.NullInt64
		createdAt, updatedAt   string
		blob                   []byte
	)

	dest := []any{
		&a.ID, &a.Name, &a.Description, &a.URL, &a.RemoteTesting, &a.AdaptiveIRT,
		&testTypes, &jobLevels, &languages, &keyFeatures,
		&a.DurationText, &minMin, &maxMin, &a.IsUntimed, &a.IsVariable,
		&a.Source, &createdAt, &updatedAt,
	}
	if withVector {
		dest = append(dest, &blob)
	}
	if err := row.Scan(dest...); err != nil {
		return model.Assessment{}, nil, err
	}

	var err error
	if a.TestTypes, err = unmarshalList(testTypes); err != nil {
		return model.Assessment{}, nil, fmt.Errorf("test_types: %w", err)
	}
	if a.JobLevels, err = unmarshalList(jobLevels); err != nil {
		return model.Assessment{}, nil, fmt.Errorf("job_levels: %w", err)
	}
	if a.Languages, err = unmarshalList(languages); err != nil {
		return model.Assessment{}, nil, fmt.Errorf("languages: %w", err)
	}
	if a.KeyFeatures, err = unmarshalList(keyFeatures); err != nil {
		return model.Assessment{}, nil, fmt.Errorf("key_features: %w", err)
	}
	if minMin.Valid {
		v := int(minMin.Int64)
		a.DurationMinMinutes = &v
	}
	if maxMin.Valid {
		v := int(maxMin.Int64)
		a.DurationMaxMinutes = &v
	}
	if a.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return model.Assessment{}, nil, fmt.Errorf("created_at: %w", err)
	}
	if a.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return model.Assessment{}, nil, fmt.Errorf("updated_at: %w", err)
	}
	return a, blob, nil
}

func marshalList(v []string) (string, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalList(s string) ([]string, error) {
	if s == "" || s == "[]" || s == "null" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// filterAssessments applies ListParams filters in Go for drivers that do
// not push them into SQL.
func filterAssessments(items []model.Assessment, p ListParams) []model.Assessment {
	var out []model.Assessment
	search := strings.ToLower(p.Search)
	for _, a := range items {
		if p.Source != "" && a.Source != p.Source {
			continue
		}
		if p.TestType != "" && !containsStr(a.TestTypes, p.TestType) {
			continue
		}
		if p.JobLevel != "" && !containsStr(a.JobLevels, p.JobLevel) {
			continue
		}
		if p.RemoteTesting != nil && a.RemoteTesting != *p.RemoteTesting {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(a.Name), search) &&
			!strings.Contains(strings.ToLower(a.Description), search) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func pageAssessments(items []model.Assessment, limit, offset int) []model.Assessment {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func containsStr(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
