package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/cv-matcher/internal/models"
	"github.com/spigell/cv-matcher/internal/similarity"
)

// InsertCandidate stores a candidate. A taken id yields ErrDuplicateID and an
// already ingested source yields ErrDuplicateSource.
func (s *Store) InsertCandidate(ctx context.Context, c *models.Candidate) error {
	embedding, err := encodeNullable(c.Embedding)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO candidates (
  candidate_id, name, email, phone, education, experience, skills,
  certifications, achievements, tech_stack, resume_text, embedding, source, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		c.ID, c.Name, c.Email, c.Phone, c.Education, c.Experience, c.Skills,
		c.Certifications, c.Achievements, c.TechStack, c.ResumeText, embedding, c.Source, nowText(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "candidates.source") {
				return fmt.Errorf("insert candidate %s: %w", c.Source, ErrDuplicateSource)
			}
			return fmt.Errorf("insert candidate %s: %w", c.ID, ErrDuplicateID)
		}
		return fmt.Errorf("insert candidate: %w", err)
	}

	c.Embedded = embedding.Valid
	return nil
}

// CandidateSourceExists reports whether a document with this source was already ingested.
func (s *Store) CandidateSourceExists(ctx context.Context, source string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM candidates WHERE source = ?;`, source).Scan(&n); err != nil {
		return false, fmt.Errorf("lookup candidate source: %w", err)
	}
	return n > 0, nil
}

func (s *Store) CandidatesMissingEmbedding(ctx context.Context) ([]models.EmbeddingTarget, error) {
	return s.targets(ctx, `SELECT candidate_id, resume_text FROM candidates WHERE embedding IS NULL ORDER BY candidate_id;`)
}

func (s *Store) SetCandidateEmbedding(ctx context.Context, id string, vector []float64) error {
	encoded, err := similarity.Encode(vector)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE candidates SET embedding = ? WHERE candidate_id = ?;`, encoded, id)
	if err != nil {
		return fmt.Errorf("update candidate embedding: %w", err)
	}
	return expectAffected(res, "candidate "+id)
}

// CandidateEmbeddings returns every candidate with a decodable embedding ordered by id.
func (s *Store) CandidateEmbeddings(ctx context.Context) ([]models.Candidate, []Corrupt, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT candidate_id, name, embedding FROM candidates WHERE embedding IS NOT NULL ORDER BY candidate_id;`)
	if err != nil {
		return nil, nil, fmt.Errorf("query candidate embeddings: %w", err)
	}
	defer rows.Close()

	var (
		candidates []models.Candidate
		corrupt    []Corrupt
	)
	for rows.Next() {
		var (
			c       models.Candidate
			encoded string
		)
		if err := rows.Scan(&c.ID, &c.Name, &encoded); err != nil {
			return nil, nil, fmt.Errorf("scan candidate embedding: %w", err)
		}

		vector, err := similarity.Decode(encoded)
		if err != nil {
			corrupt = append(corrupt, Corrupt{ID: c.ID, Err: err})
			continue
		}
		c.Embedding = vector
		c.Embedded = true
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate candidate embeddings: %w", err)
	}
	return candidates, corrupt, nil
}

func (s *Store) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	var (
		c         models.Candidate
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT candidate_id, name, email, phone, education, experience, skills,
       certifications, achievements, tech_stack, resume_text, embedding IS NOT NULL, source, created_at
FROM candidates WHERE candidate_id = ?;`, id).Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Education, &c.Experience, &c.Skills,
		&c.Certifications, &c.Achievements, &c.TechStack, &c.ResumeText, &c.Embedded, &c.Source, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("candidate %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan candidate: %w", err)
	}

	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}
