package matcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/cverrors"
	"github.com/spigell/cv-matcher/internal/models"
	"github.com/spigell/cv-matcher/internal/store"
)

type memoryStore struct {
	jobs       []models.Job
	candidates []models.Candidate
	corrupt    []store.Corrupt

	runs    []models.MatchRun
	matches [][]models.Match
}

func (s *memoryStore) JobEmbeddings(context.Context) ([]models.Job, []store.Corrupt, error) {
	return s.jobs, nil, nil
}

func (s *memoryStore) CandidateEmbeddings(context.Context) ([]models.Candidate, []store.Corrupt, error) {
	return s.candidates, s.corrupt, nil
}

func (s *memoryStore) SaveMatchRun(_ context.Context, run models.MatchRun, matches []models.Match) error {
	s.runs = append(s.runs, run)
	s.matches = append(s.matches, matches)
	return nil
}

var (
	v1         = []float64{1, 0, 0}
	orthogonal = []float64{0, 1, 0}
)

func TestRunPersistsOnlyAboveThreshold(t *testing.T) {
	st := &memoryStore{
		jobs: []models.Job{{ID: 1, Title: "J1", Embedding: v1}},
		candidates: []models.Candidate{
			{ID: "C1", Embedding: v1},
			{ID: "C2", Embedding: orthogonal},
		},
	}

	m := New(st, Options{Threshold: 0.70, TopK: 3}, zap.NewNop())
	res, err := m.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, st.matches, 1)
	require.Len(t, st.matches[0], 1)
	assert.Equal(t, "C1", st.matches[0][0].CandidateID)
	assert.InDelta(t, 1.0, st.matches[0][0].Score, 1e-9)
	assert.Equal(t, res.Run.ID, st.matches[0][0].RunID)

	require.Len(t, res.Jobs, 1)
	ranked := res.Jobs[0].Ranked
	require.Len(t, ranked, 2)
	assert.True(t, ranked[0].Persisted)
	assert.Equal(t, "C2", ranked[1].CandidateID)
	assert.InDelta(t, 0.0, ranked[1].Score, 1e-9)
	assert.False(t, ranked[1].Persisted)
	assert.Equal(t, 1, res.Persisted)
}

func TestRunLargeComponentsRespectThreshold(t *testing.T) {
	st := &memoryStore{
		jobs: []models.Job{{ID: 1, Title: "J1", Embedding: []float64{1e200, 1e200}}},
		candidates: []models.Candidate{
			{ID: "C1", Embedding: []float64{0, 1e200}},
			{ID: "C2", Embedding: []float64{2e200, 2e200}},
		},
	}

	res, err := New(st, Options{Threshold: 0.99, TopK: 3}, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)

	ranked := res.Jobs[0].Ranked
	require.Len(t, ranked, 2)
	assert.Equal(t, "C2", ranked[0].CandidateID)
	assert.InDelta(t, 1.0, ranked[0].Score, 1e-9)
	assert.True(t, ranked[0].Persisted)
	assert.Equal(t, "C1", ranked[1].CandidateID)
	assert.InDelta(t, 0.7071067811865476, ranked[1].Score, 1e-9)
	assert.False(t, ranked[1].Persisted)

	require.Len(t, st.matches[0], 1)
	assert.Equal(t, "C2", st.matches[0][0].CandidateID)
}

func TestRunIsDeterministic(t *testing.T) {
	st := &memoryStore{}
	for j := 0; j < 5; j++ {
		st.jobs = append(st.jobs, models.Job{ID: int64(j + 1), Embedding: []float64{float64(j), 1, 0.5}})
	}
	for c := 0; c < 20; c++ {
		st.candidates = append(st.candidates, models.Candidate{
			ID:        fmt.Sprintf("C%07d", c),
			Embedding: []float64{float64(c % 4), float64(c % 3), 1},
		})
	}

	first, err := New(st, Options{Threshold: 0.5, TopK: 3, Workers: 4}, nil).Run(context.Background())
	require.NoError(t, err)
	second, err := New(st, Options{Threshold: 0.5, TopK: 3, Workers: 1}, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Jobs, second.Jobs)
	assert.Equal(t, len(st.matches[0]), len(st.matches[1]))
	assert.NotEqual(t, first.Run.ID, second.Run.ID)
}

func TestRankTiesAndTopK(t *testing.T) {
	job := models.Job{ID: 1, Embedding: []float64{1, 0}}
	candidates := []models.Candidate{
		{ID: "C3", Embedding: []float64{2, 0}},
		{ID: "C1", Embedding: []float64{1, 0}},
		{ID: "C2", Embedding: []float64{1, 1}},
		{ID: "C0", Embedding: []float64{0, 0}},
	}

	ranked, err := Rank(job, candidates, 3)
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, "C1", ranked[0].CandidateID)
	assert.Equal(t, "C3", ranked[1].CandidateID)
	assert.Equal(t, "C2", ranked[2].CandidateID)

	all, err := Rank(job, candidates, 10)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, 0.0, all[3].Score)
}

func TestRunFailsOnDimensionMismatchWithoutWriting(t *testing.T) {
	st := &memoryStore{
		jobs:       []models.Job{{ID: 1, Embedding: []float64{1, 0}}},
		candidates: []models.Candidate{{ID: "C1", Embedding: []float64{1, 0, 0}}},
	}

	_, err := New(st, Options{Threshold: 0.7, TopK: 3}, nil).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, cverrors.ErrDimensionMismatch))
	assert.Empty(t, st.runs)
}

func TestRunSkipsCorruptRows(t *testing.T) {
	st := &memoryStore{
		jobs:       []models.Job{{ID: 1, Embedding: v1}},
		candidates: []models.Candidate{{ID: "C1", Embedding: v1}},
		corrupt:    []store.Corrupt{{ID: "C2", Err: errors.New("bad json")}},
	}

	res, err := New(st, Options{Threshold: 0.7, TopK: 3}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"candidate:C2"}, res.Corrupt)
	assert.Equal(t, 1, res.Persisted)
}

func TestRunAgainstSQLite(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "matcher.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))

	jobID, err := st.InsertJob(ctx, &models.Job{Title: "J1", Description: "d", Embedding: v1})
	require.NoError(t, err)
	require.NoError(t, st.InsertCandidate(ctx, &models.Candidate{ID: "C1", ResumeText: "a", Embedding: v1}))
	require.NoError(t, st.InsertCandidate(ctx, &models.Candidate{ID: "C2", ResumeText: "b", Embedding: orthogonal}))

	m := New(st, Options{Threshold: 0.7, TopK: 3, Model: "mxbai-embed-large"}, zap.NewNop())
	_, err = m.Run(ctx)
	require.NoError(t, err)
	_, err = m.Run(ctx)
	require.NoError(t, err)

	views, err := st.LatestMatchesForJob(ctx, jobID, 0.7)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "C1", views[0].CandidateID)

	history, err := st.AllMatchesForJob(ctx, jobID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
