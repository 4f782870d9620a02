package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spigell/cv-matcher/internal/models"
	"github.com/spigell/cv-matcher/internal/similarity"
)

// Corrupt describes a row whose stored embedding could not be decoded.
type Corrupt struct {
	ID  string
	Err error
}

// InsertJob stores a job and returns its id. A job carrying an embedding is stored with it.
func (s *Store) InsertJob(ctx context.Context, job *models.Job) (int64, error) {
	embedding, err := encodeNullable(job.Embedding)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO jobs (title, description, summary, embedding, source_key, created_at)
VALUES (?, ?, ?, ?, ?, ?);`,
		job.Title, job.Description, job.Summary, embedding, job.SourceKey, nowText(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert job %q: %w", job.Title, ErrDuplicateSource)
		}
		return 0, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("job id: %w", err)
	}
	job.ID = id
	job.Embedded = embedding.Valid
	return id, nil
}

// JobsMissingEmbedding lists jobs whose embedding is NULL.
func (s *Store) JobsMissingEmbedding(ctx context.Context) ([]models.EmbeddingTarget, error) {
	return s.targets(ctx, `SELECT CAST(job_id AS TEXT), description FROM jobs WHERE embedding IS NULL ORDER BY job_id;`)
}

func (s *Store) SetJobEmbedding(ctx context.Context, id int64, vector []float64) error {
	encoded, err := similarity.Encode(vector)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE jobs SET embedding = ? WHERE job_id = ?;`, encoded, id)
	if err != nil {
		return fmt.Errorf("update job embedding: %w", err)
	}
	return expectAffected(res, fmt.Sprintf("job %d", id))
}

// JobEmbeddings returns every job with a decodable embedding ordered by id.
func (s *Store) JobEmbeddings(ctx context.Context) ([]models.Job, []Corrupt, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT job_id, title, embedding FROM jobs WHERE embedding IS NOT NULL ORDER BY job_id;`)
	if err != nil {
		return nil, nil, fmt.Errorf("query job embeddings: %w", err)
	}
	defer rows.Close()

	var (
		jobs    []models.Job
		corrupt []Corrupt
	)
	for rows.Next() {
		var (
			job     models.Job
			encoded string
		)
		if err := rows.Scan(&job.ID, &job.Title, &encoded); err != nil {
			return nil, nil, fmt.Errorf("scan job embedding: %w", err)
		}

		vector, err := similarity.Decode(encoded)
		if err != nil {
			corrupt = append(corrupt, Corrupt{ID: fmt.Sprint(job.ID), Err: err})
			continue
		}
		job.Embedding = vector
		job.Embedded = true
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate job embeddings: %w", err)
	}
	return jobs, corrupt, nil
}

func (s *Store) ListJobs(ctx context.Context) ([]models.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT job_id, title, description, summary, embedding IS NOT NULL, created_at FROM jobs ORDER BY job_id;`)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

func (s *Store) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT job_id, title, description, summary, embedding IS NOT NULL, created_at FROM jobs WHERE job_id = ?;`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	return job, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*models.Job, error) {
	var (
		job       models.Job
		summary   sql.NullString
		createdAt string
	)
	if err := row.Scan(&job.ID, &job.Title, &job.Description, &summary, &job.Embedded, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	if summary.Valid {
		job.Summary = &summary.String
	}
	job.CreatedAt = parseTime(createdAt)
	return &job, nil
}

func (s *Store) targets(ctx context.Context, query string) ([]models.EmbeddingTarget, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embedding targets: %w", err)
	}
	defer rows.Close()

	var targets []models.EmbeddingTarget
	for rows.Next() {
		var target models.EmbeddingTarget
		if err := rows.Scan(&target.ID, &target.Text); err != nil {
			return nil, fmt.Errorf("scan embedding target: %w", err)
		}
		targets = append(targets, target)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embedding targets: %w", err)
	}
	return targets, nil
}

func encodeNullable(vector []float64) (sql.NullString, error) {
	if len(vector) == 0 {
		return sql.NullString{}, nil
	}
	encoded, err := similarity.Encode(vector)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: encoded, Valid: true}, nil
}

func expectAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
