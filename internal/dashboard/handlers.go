package dashboard

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/cverrors"
	"github.com/spigell/cv-matcher/internal/document"
	"github.com/spigell/cv-matcher/internal/models"
	"github.com/spigell/cv-matcher/internal/notify"
	"github.com/spigell/cv-matcher/internal/pipeline"
	"github.com/spigell/cv-matcher/internal/store"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		s.logger.Error("writing health response", zap.Error(err))
	}
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListJobs(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	s.respondJSON(w, http.StatusOK, jobs)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobID(w, r, "id")
	if !ok {
		return
	}

	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, job)
}

func (s *Server) jobMatches(w http.ResponseWriter, r *http.Request) {
	views, ok := s.latestMatches(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, views)
}

func (s *Server) jobMatchesCSV(w http.ResponseWriter, r *http.Request) {
	views, ok := s.latestMatches(w, r)
	if !ok {
		return
	}

	name := "job"
	if len(views) > 0 {
		name = unsafeFileChars.ReplaceAllString(views[0].JobTitle, "_")
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_matches.csv"`, name))

	out := csv.NewWriter(w)
	records := [][]string{{"job_id", "job_title", "candidate_id", "name", "email", "skills", "similarity_score", "matched_on", "run_id"}}
	for _, v := range views {
		records = append(records, []string{
			strconv.FormatInt(v.JobID, 10),
			v.JobTitle,
			v.CandidateID,
			v.Name,
			v.Email,
			v.Skills,
			strconv.FormatFloat(v.Score, 'f', 4, 64),
			v.MatchedOn.Format(time.RFC3339),
			v.RunID,
		})
	}
	if err := out.WriteAll(records); err != nil {
		s.logger.Error("writing csv", zap.Error(err))
	}
}

func (s *Server) jobHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobID(w, r, "id")
	if !ok {
		return
	}

	views, err := s.store.AllMatchesForJob(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if views == nil {
		views = []models.MatchView{}
	}
	s.respondJSON(w, http.StatusOK, views)
}

func (s *Server) latestMatches(w http.ResponseWriter, r *http.Request) ([]models.MatchView, bool) {
	id, ok := s.jobID(w, r, "id")
	if !ok {
		return nil, false
	}

	minScore := s.minScore
	if raw := strings.TrimSpace(r.URL.Query().Get("min_score")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < -1 || v > 1 {
			s.respondError(w, http.StatusBadRequest, "min_score must be a number in [-1, 1]")
			return nil, false
		}
		minScore = v
	}

	if _, err := s.store.GetJob(r.Context(), id); err != nil {
		s.storeError(w, err)
		return nil, false
	}

	views, err := s.store.LatestMatchesForJob(r.Context(), id, minScore)
	if err != nil {
		s.storeError(w, err)
		return nil, false
	}
	if views == nil {
		views = []models.MatchView{}
	}
	return views, true
}

func (s *Server) getCandidate(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetCandidate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, c)
}

func (s *Server) runStage(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		s.respondError(w, http.StatusServiceUnavailable, "pipeline is not configured")
		return
	}

	reports, err := s.pipeline.Run(r.Context(), chi.URLParam(r, "stage"))
	switch {
	case errors.Is(err, pipeline.ErrUnknownStage):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, pipeline.ErrLocked):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, cverrors.ErrDimensionMismatch):
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		s.logger.Error("stage failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	default:
		s.respondJSON(w, http.StatusOK, reports)
	}
}

type uploadedResume struct {
	File        string `json:"file"`
	CandidateID string `json:"candidate_id,omitempty"`
	Embedded    bool   `json:"embedded"`
	Error       string `json:"error,omitempty"`
}

func (s *Server) uploadResumes(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUpload()); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("parse upload: %v", err))
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		s.respondError(w, http.StatusBadRequest, `no files in form field "files"`)
		return
	}

	results := make([]uploadedResume, 0, len(files))
	for _, fh := range files {
		res := uploadedResume{File: fh.Filename}
		if !document.Supported(fh.Filename) {
			res.Error = document.ErrUnsupportedFormat.Error()
			results = append(results, res)
			continue
		}

		data, err := readUpload(fh)
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}

		c, err := s.ingester.AddResume(r.Context(), fh.Filename, data, s.provider)
		switch {
		case errors.Is(err, cverrors.ErrExtraction):
			res.Error = err.Error()
		case err != nil:
			s.storeError(w, err)
			return
		default:
			res.CandidateID = c.ID
			res.Embedded = c.Embedded
		}
		results = append(results, res)
	}

	s.respondJSON(w, http.StatusOK, results)
}

func (s *Server) uploadJobs(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUpload()); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("parse upload: %v", err))
		return
	}

	f, fh, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, `no csv in form field "file"`)
		return
	}
	defer f.Close()

	report, err := s.ingester.Jobs(r.Context(), f, fh.Filename, s.provider)
	switch {
	case errors.Is(err, cverrors.ErrExtraction):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.storeError(w, err)
	default:
		s.respondJSON(w, http.StatusOK, report)
	}
}

func (s *Server) invite(w http.ResponseWriter, r *http.Request) {
	if s.notifier == nil {
		s.respondError(w, http.StatusServiceUnavailable, "notifier is not configured")
		return
	}

	jobID, ok := s.jobID(w, r, "jobID")
	if !ok {
		return
	}

	view, err := s.store.LatestMatch(r.Context(), jobID, chi.URLParam(r, "candidateID"))
	if err != nil {
		s.storeError(w, err)
		return
	}

	err = s.notifier.Invite(r.Context(), *view)
	switch {
	case errors.Is(err, notify.ErrNoRecipient):
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		s.logger.Warn("invitation failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "sent", "email": view.Email})
}

func (s *Server) jobID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "job id must be an integer")
		return 0, false
	}
	return id, true
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Error("store failure", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) maxUpload() int64 {
	mb := s.cfg.MaxUploadMB
	if mb <= 0 {
		mb = 20
	}
	return mb << 20
}
