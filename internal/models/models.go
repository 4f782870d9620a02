// Package models contains the entities persisted by the store.
package models

import "time"

// Fields are the structured attributes extracted from a resume.
type Fields struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Education      string `json:"education"`
	Experience     string `json:"experience"`
	Skills         string `json:"skills"`
	Certifications string `json:"certifications"`
	Achievements   string `json:"achievements"`
	TechStack      string `json:"tech_stack"`
}

type Job struct {
	ID          int64     `json:"job_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Summary     *string   `json:"summary,omitempty"`
	Embedding   []float64 `json:"-"`
	Embedded    bool      `json:"embedded"`
	SourceKey   string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

type Candidate struct {
	ID string `json:"candidate_id"`
	Fields
	ResumeText string    `json:"resume_text"`
	Embedding  []float64 `json:"-"`
	Embedded   bool      `json:"embedded"`
	Source     string    `json:"source,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Match is a single row of the append-only match log.
type Match struct {
	ID          int64     `json:"match_id"`
	JobID       int64     `json:"job_id"`
	CandidateID string    `json:"candidate_id"`
	Score       float64   `json:"similarity_score"`
	MatchedOn   time.Time `json:"matched_on"`
	RunID       string    `json:"run_id"`
}

// MatchRun tags every match produced by one matcher invocation.
type MatchRun struct {
	ID        string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Threshold float64   `json:"threshold"`
	TopK      int       `json:"top_k"`
	Model     string    `json:"model"`
}

// MatchView is the read model joining a match with its job and candidate.
type MatchView struct {
	MatchID     int64     `json:"match_id"`
	JobID       int64     `json:"job_id"`
	JobTitle    string    `json:"job_title"`
	CandidateID string    `json:"candidate_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Skills      string    `json:"skills"`
	ResumeText  string    `json:"resume_text,omitempty"`
	Score       float64   `json:"similarity_score"`
	MatchedOn   time.Time `json:"matched_on"`
	RunID       string    `json:"run_id"`
}

// EmbeddingTarget is a row that still needs an embedding.
type EmbeddingTarget struct {
	ID   string
	Text string
}
