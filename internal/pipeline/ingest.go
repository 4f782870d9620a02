package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/cverrors"
	"github.com/spigell/cv-matcher/internal/document"
	"github.com/spigell/cv-matcher/internal/embedding"
	"github.com/spigell/cv-matcher/internal/extract"
	"github.com/spigell/cv-matcher/internal/models"
	"github.com/spigell/cv-matcher/internal/store"
)

const (
	maxIDAttempts = 5
	untitledJob   = "Untitled"
)

// IngestStore is the persistence ingestion writes to.
type IngestStore interface {
	InsertJob(ctx context.Context, job *models.Job) (int64, error)
	InsertCandidate(ctx context.Context, c *models.Candidate) error
	CandidateSourceExists(ctx context.Context, source string) (bool, error)
}

type Ingester struct {
	store  IngestStore
	logger *zap.Logger
	newID  func() string
}

func NewIngester(st IngestStore, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{store: st, logger: logger, newID: NewCandidateID}
}

// NewCandidateID returns "C" followed by 8 upper-case hex characters of a random UUID.
func NewCandidateID() string {
	return "C" + strings.ToUpper(uuid.NewString()[:8])
}

// Resumes ingests every supported file of dir. Files already ingested are skipped.
// A missing dir is reported as a failed item so the rest of the pass still runs.
func (i *Ingester) Resumes(ctx context.Context, dir string) (*Report, error) {
	report := NewReport(StageIngest + ":resumes")

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		i.logger.Warn("resumes directory does not exist", zap.String("dir", dir))
		report.Fail(dir, cverrors.NewExtractionError(dir, err))
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("read resumes directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !document.Supported(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		exists, err := i.store.CandidateSourceExists(ctx, name)
		if err != nil {
			return report, err
		}
		if exists {
			report.Skip(name, "already ingested")
			continue
		}

		text, err := document.ReadFile(filepath.Join(dir, name))
		if err != nil {
			i.logger.Warn("skipping resume", zap.String("file", name), zap.Error(err))
			report.Fail(name, err)
			continue
		}

		// Fields are read from a normalized copy, resume_text keeps the raw text.
		clean := document.Normalize(text)
		fields := extract.Fields(clean)
		if fields.Email == "" {
			fields.Email = extract.FindFirstEmail(clean)
		}

		c := &models.Candidate{Fields: fields, ResumeText: text, Source: name}
		if err := i.insertCandidate(ctx, c); err != nil {
			if errors.Is(err, store.ErrDuplicateSource) {
				report.Skip(name, "already ingested")
				continue
			}
			return report, err
		}

		i.logger.Debug("resume ingested", zap.String("file", name), zap.String("candidate_id", c.ID))
		report.Ok(name, c.ID)
	}

	return report, nil
}

// AddResume ingests one uploaded resume. The name comes from the file name, the email
// from the first address in the text and skills from the "Skills" section. The
// candidate is embedded right away when a provider is given; a failed embedding
// leaves it for the next embed pass.
func (i *Ingester) AddResume(ctx context.Context, fileName string, data []byte, provider embedding.Provider) (*models.Candidate, error) {
	text, err := document.Parse(fileName, data)
	if err != nil {
		return nil, err
	}

	base := filepath.Base(fileName)
	clean := document.Normalize(text)
	c := &models.Candidate{
		Fields: models.Fields{
			Name:   strings.TrimSuffix(base, filepath.Ext(base)),
			Email:  extract.FindFirstEmail(clean),
			Skills: extract.Section(clean, "Skills"),
		},
		ResumeText: text,
	}

	if provider != nil {
		vector, err := provider.Embed(ctx, text)
		if err != nil {
			i.logger.Warn("embedding uploaded resume", zap.String("file", base), zap.Error(err))
		} else {
			c.Embedding = vector
		}
	}

	if err := i.insertCandidate(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (i *Ingester) insertCandidate(ctx context.Context, c *models.Candidate) error {
	var err error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		c.ID = i.newID()
		err = i.store.InsertCandidate(ctx, c)
		if !errors.Is(err, store.ErrDuplicateID) {
			return err
		}
		i.logger.Debug("candidate id collision", zap.String("candidate_id", c.ID))
	}
	return fmt.Errorf("no free candidate id after %d attempts: %w", maxIDAttempts, err)
}

// JobsFile ingests the jobs CSV at path.
func (i *Ingester) JobsFile(ctx context.Context, path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return NewReport(StageIngest + ":jobs"), fmt.Errorf("open jobs csv: %w", err)
	}
	defer f.Close()

	return i.Jobs(ctx, f, filepath.Base(path), nil)
}

type jobRow struct {
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	Summary     string `mapstructure:"summary"`
}

var jobHeaders = map[string]string{
	"job title":       "title",
	"title":           "title",
	"job description": "description",
	"description":     "description",
	"summary":         "summary",
}

// Jobs ingests job rows from CSV. Rows already stored (same title and description)
// are skipped. With a provider every new job is embedded inline.
func (i *Ingester) Jobs(ctx context.Context, r io.Reader, source string, provider embedding.Provider) (*Report, error) {
	report := NewReport(StageIngest + ":jobs")

	data, err := io.ReadAll(r)
	if err != nil {
		return report, fmt.Errorf("read jobs csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(strings.NewReader(document.ToUTF8(data)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return report, cverrors.NewExtractionError(source, fmt.Errorf("read csv header: %w", err))
	}

	columns := make([]string, len(header))
	var hasDescription bool
	for idx, h := range header {
		columns[idx] = jobHeaders[strings.ToLower(strings.TrimSpace(h))]
		if columns[idx] == "description" {
			hasDescription = true
		}
	}
	if !hasDescription {
		return report, cverrors.NewExtractionError(source, errors.New("csv has no job description column"))
	}

	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		id := fmt.Sprintf("%s:%d", source, line)
		if err != nil {
			report.Fail(id, cverrors.NewExtractionError(id, err))
			continue
		}

		row, err := decodeJobRow(columns, record)
		if err != nil {
			report.Fail(id, cverrors.NewExtractionError(id, err))
			continue
		}
		if row.Description == "" {
			report.Fail(id, cverrors.NewExtractionError(id, errors.New("empty job description")))
			continue
		}

		job := &models.Job{
			Title:       row.Title,
			Description: row.Description,
			SourceKey:   JobSourceKey(row.Title, row.Description),
		}
		if row.Summary != "" {
			summary := row.Summary
			job.Summary = &summary
		}

		var embedErr error
		if provider != nil {
			job.Embedding, embedErr = provider.Embed(ctx, job.Description)
		}

		if _, err := i.store.InsertJob(ctx, job); err != nil {
			if errors.Is(err, store.ErrDuplicateSource) {
				report.Skip(id, "already ingested")
				continue
			}
			return report, err
		}

		if embedErr != nil {
			i.logger.Warn("job stored without embedding", zap.Int64("job_id", job.ID), zap.Error(embedErr))
			report.Fail(id, embedErr)
			continue
		}
		report.Ok(id, fmt.Sprintf("job %d", job.ID))
	}

	return report, nil
}

func decodeJobRow(columns, record []string) (jobRow, error) {
	values := make(map[string]string, len(columns))
	for idx, col := range columns {
		if col == "" || idx >= len(record) {
			continue
		}
		values[col] = record[idx]
	}

	var row jobRow
	if err := mapstructure.Decode(values, &row); err != nil {
		return row, fmt.Errorf("decode row: %w", err)
	}

	row.Title = document.Normalize(row.Title)
	if row.Title == "" {
		row.Title = untitledJob
	}
	row.Description = document.HTMLToText(row.Description)
	row.Summary = document.Normalize(row.Summary)
	return row, nil
}

// JobSourceKey identifies a job by its content so re-ingesting a file is a no-op.
func JobSourceKey(title, description string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(title+"\n"+description)))
}
