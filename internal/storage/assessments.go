package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/ashita-ai/mekiki/internal/model"
)

// assessmentColumns is the scan order shared by every assessment query.
// The embedding column is deliberately absent: vectors are write-only from
// the application's point of view and similarity is computed in SQL.
const assessmentColumns = `id, name, description, url, remote_testing, adaptive_irt,
	 test_types, job_levels, languages, key_features,
	 duration_text, duration_min_minutes, duration_max_minutes, is_untimed, is_variable_duration,
	 source, created_at, updated_at`

const upsertAssessmentSQL = `
	INSERT INTO assessments (id, name, description, url, remote_testing, adaptive_irt,
		test_types, job_levels, languages, key_features,
		duration_text, duration_min_minutes, duration_max_minutes, is_untimed, is_variable_duration,
		source, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	ON CONFLICT (id) DO UPDATE SET
		name                 = EXCLUDED.name,
		description          = EXCLUDED.description,
		url                  = EXCLUDED.url,
		remote_testing       = EXCLUDED.remote_testing,
		adaptive_irt         = EXCLUDED.adaptive_irt,
		test_types           = EXCLUDED.test_types,
		job_levels           = EXCLUDED.job_levels,
		languages            = EXCLUDED.languages,
		key_features         = EXCLUDED.key_features,
		duration_text        = EXCLUDED.duration_text,
		duration_min_minutes = EXCLUDED.duration_min_minutes,
		duration_max_minutes = EXCLUDED.duration_max_minutes,
		is_untimed           = EXCLUDED.is_untimed,
		is_variable_duration = EXCLUDED.is_variable_duration,
		source               = EXCLUDED.source,
		embedding            = COALESCE(EXCLUDED.embedding, assessments.embedding),
		updated_at           = NOW()`

func upsertAssessmentArgs(a model.Assessment) []any {
	return []any{
		a.ID, a.Name, a.Description, a.URL, a.RemoteTesting, a.AdaptiveIRT,
		a.TestTypes, a.JobLevels, a.Languages, a.KeyFeatures,
		a.DurationText, a.DurationMinMinutes, a.DurationMaxMinutes, a.IsUntimed, a.IsVariable,
		a.Source, a.Embedding,
	}
}

// enqueueOutboxSQL queues an index sync for the outbox worker. Repeated
// writes to the same assessment coalesce into a single pending entry with
// its retry state reset.
const enqueueOutboxSQL = `
	INSERT INTO search_outbox (assessment_id, operation)
	VALUES ($1, $2)
	ON CONFLICT (assessment_id, operation) DO UPDATE SET
		created_at = now(), attempts = 0, locked_until = NULL, last_error = NULL`

// UpsertAssessment inserts or replaces a catalog entry by id. An existing
// embedding survives an upsert that carries none, so reloading catalog
// metadata does not force regeneration.
func (db *DB) UpsertAssessment(ctx context.Context, a model.Assessment) (model.Assessment, error) {
	if !db.outboxEnabled {
		row := db.pool.QueryRow(ctx,
			upsertAssessmentSQL+" RETURNING "+assessmentColumns,
			upsertAssessmentArgs(a)...,
		)
		out, err := scanAssessmentRow(row)
		if err != nil {
			return model.Assessment{}, fmt.Errorf("storage: upsert assessment: %w", err)
		}
		return out, nil
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return model.Assessment{}, fmt.Errorf("storage: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		upsertAssessmentSQL+" RETURNING "+assessmentColumns,
		upsertAssessmentArgs(a)...,
	)
	out, err := scanAssessmentRow(row)
	if err != nil {
		return model.Assessment{}, fmt.Errorf("storage: upsert assessment: %w", err)
	}
	if _, err := tx.Exec(ctx, enqueueOutboxSQL, a.ID, "upsert"); err != nil {
		return model.Assessment{}, fmt.Errorf("storage: queue index sync: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Assessment{}, fmt.Errorf("storage: commit upsert: %w", err)
	}
	return out, nil
}

// UpsertAssessments inserts or replaces catalog entries in a single batch
// round trip and returns the number of rows written. The batch runs in one
// implicit transaction, so index sync entries land with their rows.
func (db *DB) UpsertAssessments(ctx context.Context, items []model.Assessment) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	b := &pgx.Batch{}
	for _, a := range items {
		b.Queue(upsertAssessmentSQL, upsertAssessmentArgs(a)...)
		if db.outboxEnabled {
			b.Queue(enqueueOutboxSQL, a.ID, "upsert")
		}
	}

	br := db.pool.SendBatch(ctx, b)
	defer br.Close()

	for i := range items {
		if _, err := br.Exec(); err != nil {
			return i, fmt.Errorf("storage: upsert assessments: item %d (%s): %w", i, items[i].ID, err)
		}
		if db.outboxEnabled {
			if _, err := br.Exec(); err != nil {
				return i, fmt.Errorf("storage: queue index sync: item %d (%s): %w", i, items[i].ID, err)
			}
		}
	}
	return len(items), nil
}

// GetAssessment returns a single catalog entry.
// Returns ErrNotFound if the id does not exist.
func (db *DB) GetAssessment(ctx context.Context, id string) (model.Assessment, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+assessmentColumns+` FROM assessments WHERE id = $1`, id,
	)
	a, err := scanAssessmentRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Assessment{}, ErrNotFound
	}
	if err != nil {
		return model.Assessment{}, fmt.Errorf("storage: get assessment: %w", err)
	}
	return a, nil
}

// ListAssessments returns a filtered page of the catalog in stable id order,
// along with the total count matching the filters.
func (db *DB) ListAssessments(ctx context.Context, p ListParams) ([]model.Assessment, int, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}

	where, args := buildAssessmentWhereClause(p, 1)

	var total int
	if err := db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM assessments"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("storage: count assessments: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT `+assessmentColumns+` FROM assessments%s ORDER BY id LIMIT %d OFFSET %d`,
		where, limit, offset,
	)
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("storage: list assessments: %w", err)
	}
	defer rows.Close()

	items, err := scanAssessments(rows)
	return items, total, err
}

// DeleteAssessment removes a catalog entry.
// Returns ErrNotFound if the id does not exist.
func (db *DB) DeleteAssessment(ctx context.Context, id string) error {
	if !db.outboxEnabled {
		tag, err := db.pool.Exec(ctx, `DELETE FROM assessments WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("storage: delete assessment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM assessments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("storage: delete assessment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, enqueueOutboxSQL, id, "delete"); err != nil {
		return fmt.Errorf("storage: queue index sync: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit delete: %w", err)
	}
	return nil
}

// CountAssessments returns the total catalog size.
func (db *DB) CountAssessments(ctx context.Context) (int, error) {
	var n int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM assessments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: count assessments: %w", err)
	}
	return n, nil
}

// MatchAssessments performs cosine similarity search over the catalog using
// pgvector. Entries without embeddings are invisible to search.
func (db *DB) MatchAssessments(ctx context.Context, p MatchParams) ([]model.MatchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > 1000 {
		limit = 1000
	}

	vec := pgvector.NewVector(p.Embedding)
	query := fmt.Sprintf(
		`SELECT `+assessmentColumns+`, (1 - (embedding <=> $1)) AS similarity
		 FROM assessments
		 WHERE embedding IS NOT NULL AND (1 - (embedding <=> $1)) >= $2
		 ORDER BY embedding <=> $1, id
		 LIMIT %d`, limit,
	)
	rows, err := db.pool.Query(ctx, query, vec, p.MinSimilarity)
	if err != nil {
		return nil, fmt.Errorf("storage: match assessments: %w", err)
	}
	defer rows.Close()

	var results []model.MatchResult
	for rows.Next() {
		var a model.Assessment
		var similarity float32
		if err := rows.Scan(append(assessmentScanTargets(&a), &similarity)...); err != nil {
			return nil, fmt.Errorf("storage: scan match result: %w", err)
		}
		results = append(results, model.MatchResult{Assessment: a, Similarity: similarity})
	}
	return results, rows.Err()
}

// AssessmentsMissingEmbedding returns catalog entries without a vector,
// oldest first, up to limit.
func (db *DB) AssessmentsMissingEmbedding(ctx context.Context, limit int) ([]model.Assessment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.pool.Query(ctx, fmt.Sprintf(
		`SELECT `+assessmentColumns+` FROM assessments
		 WHERE embedding IS NULL
		 ORDER BY created_at, id
		 LIMIT %d`, limit,
	))
	if err != nil {
		return nil, fmt.Errorf("storage: assessments missing embedding: %w", err)
	}
	defer rows.Close()

	return scanAssessments(rows)
}

// ListEmbeddings pages through stored vectors in id order for index rebuilds.
func (db *DB) ListEmbeddings(ctx context.Context, limit, offset int) ([]IDVector, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := db.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, name, source, embedding FROM assessments
		 WHERE embedding IS NOT NULL
		 ORDER BY id
		 LIMIT %d OFFSET %d`, limit, offset,
	))
	if err != nil {
		return nil, fmt.Errorf("storage: list embeddings: %w", err)
	}
	defer rows.Close()

	var out []IDVector
	for rows.Next() {
		var v IDVector
		var vec pgvector.Vector
		if err := rows.Scan(&v.ID, &v.Name, &v.Source, &vec); err != nil {
			return nil, fmt.Errorf("storage: scan embedding: %w", err)
		}
		v.Embedding = vec.Slice()
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpdateAssessmentEmbedding replaces the stored vector for one entry.
// Returns ErrNotFound if the id does not exist.
func (db *DB) UpdateAssessmentEmbedding(ctx context.Context, id string, embedding []float32) error {
	const updateSQL = `UPDATE assessments SET embedding = $2, updated_at = NOW() WHERE id = $1`

	if !db.outboxEnabled {
		tag, err := db.pool.Exec(ctx, updateSQL, id, pgvector.NewVector(embedding))
		if err != nil {
			return fmt.Errorf("storage: update embedding: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, updateSQL, id, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("storage: update embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, enqueueOutboxSQL, id, "upsert"); err != nil {
		return fmt.Errorf("storage: queue index sync: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit embedding update: %w", err)
	}
	return nil
}

func buildAssessmentWhereClause(p ListParams, startArgIdx int) (string, []any) {
	var conditions []string
	var args []any
	idx := startArgIdx

	if p.Source != "" {
		conditions = append(conditions, fmt.Sprintf("source = $%d", idx))
		args = append(args, p.Source)
		idx++
	}
	if p.TestType != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(test_types)", idx))
		args = append(args, p.TestType)
		idx++
	}
	if p.JobLevel != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(job_levels)", idx))
		args = append(args, p.JobLevel)
		idx++
	}
	if p.RemoteTesting != nil {
		conditions = append(conditions, fmt.Sprintf("remote_testing = $%d", idx))
		args = append(args, *p.RemoteTesting)
		idx++
	}
	if p.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", idx, idx))
		args = append(args, "%"+p.Search+"%")
		idx++
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// assessmentScanTargets returns scan destinations matching assessmentColumns.
func assessmentScanTargets(a *model.Assessment) []any {
	return []any{
		&a.ID, &a.Name, &a.Description, &a.URL, &a.RemoteTesting, &a.AdaptiveIRT,
		&a.TestTypes, &a.JobLevels, &a.Languages, &a.KeyFeatures,
		&a.DurationText, &a.DurationMinMinutes, &a.DurationMaxMinutes, &a.IsUntimed, &a.IsVariable,
		&a.Source, &a.CreatedAt, &a.UpdatedAt,
	}
}

func scanAssessmentRow(row pgx.Row) (model.Assessment, error) {
	var a model.Assessment
	if err := row.Scan(assessmentScanTargets(&a)...); err != nil {
		return model.Assessment{}, err
	}
	return a, nil
}

func scanAssessments(rows pgx.Rows) ([]model.Assessment, error) {
	var items []model.Assessment
	for rows.Next() {
		var a model.Assessment
		if err := rows.Scan(assessmentScanTargets(&a)...); err != nil {
			return nil, fmt.Errorf("storage: scan assessment: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
