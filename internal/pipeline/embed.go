package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/embedding"
	"github.com/spigell/cv-matcher/internal/models"
)

// EmbedStore is the persistence the embed pass reads from and writes to.
type EmbedStore interface {
	CandidatesMissingEmbedding(ctx context.Context) ([]models.EmbeddingTarget, error)
	JobsMissingEmbedding(ctx context.Context) ([]models.EmbeddingTarget, error)
	SetCandidateEmbedding(ctx context.Context, id string, vector []float64) error
	SetJobEmbedding(ctx context.Context, id int64, vector []float64) error
}

// Embed fills every NULL embedding, candidates first. Rows that fail stay NULL
// and are picked up again by the next pass.
func Embed(ctx context.Context, st EmbedStore, provider embedding.Provider, logger *zap.Logger) (*Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	report := NewReport(StageEmbed)

	candidates, err := st.CandidatesMissingEmbedding(ctx)
	if err != nil {
		return report, err
	}
	logger.Info("embedding candidates", zap.Int("count", len(candidates)))

	for _, target := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		vector, err := provider.Embed(ctx, target.Text)
		if err != nil {
			logger.Warn("embedding candidate", zap.String("candidate_id", target.ID), zap.Error(err))
			report.Fail("candidate:"+target.ID, err)
			continue
		}
		if err := st.SetCandidateEmbedding(ctx, target.ID, vector); err != nil {
			return report, err
		}
		report.Ok("candidate:"+target.ID, fmt.Sprintf("%d dimensions", len(vector)))
	}

	jobs, err := st.JobsMissingEmbedding(ctx)
	if err != nil {
		return report, err
	}
	logger.Info("embedding jobs", zap.Int("count", len(jobs)))

	for _, target := range jobs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		id, err := strconv.ParseInt(target.ID, 10, 64)
		if err != nil {
			return report, fmt.Errorf("job id %q: %w", target.ID, err)
		}

		vector, err := provider.Embed(ctx, target.Text)
		if err != nil {
			logger.Warn("embedding job", zap.Int64("job_id", id), zap.Error(err))
			report.Fail("job:"+target.ID, err)
			continue
		}
		if err := st.SetJobEmbedding(ctx, id, vector); err != nil {
			return report, err
		}
		report.Ok("job:"+target.ID, fmt.Sprintf("%d dimensions", len(vector)))
	}

	return report, nil
}
