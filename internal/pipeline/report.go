package pipeline

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Result is the outcome of one item of a batch stage.
type Result struct {
	ID      string
	Err     error
	Skipped bool
	Note    string
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := struct {
		ID      string `json:"id"`
		Error   string `json:"error,omitempty"`
		Skipped bool   `json:"skipped,omitempty"`
		Note    string `json:"note,omitempty"`
	}{ID: r.ID, Skipped: r.Skipped, Note: r.Note}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// Report aggregates the per-item results of a stage. Per-item failures never abort a stage.
type Report struct {
	Stage   string   `json:"stage"`
	Results []Result `json:"results"`
}

func NewReport(stage string) *Report {
	return &Report{Stage: stage, Results: []Result{}}
}

func (r *Report) Ok(id, note string) {
	r.Results = append(r.Results, Result{ID: id, Note: note})
}

func (r *Report) Fail(id string, err error) {
	r.Results = append(r.Results, Result{ID: id, Err: err})
}

func (r *Report) Skip(id, note string) {
	r.Results = append(r.Results, Result{ID: id, Skipped: true, Note: note})
}

func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil && !res.Skipped {
			n++
		}
	}
	return n
}

func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

func (r *Report) SkippedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Skipped {
			n++
		}
	}
	return n
}

// Failures returns the failed results only.
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Fields summarises the report for logging.
func (r *Report) Fields() []zap.Field {
	return []zap.Field{
		zap.String("name", r.Stage),
		zap.Int("total", len(r.Results)),
		zap.Int("succeeded", r.Succeeded()),
		zap.Int("failed", r.Failed()),
		zap.Int("skipped", r.SkippedCount()),
	}
}
