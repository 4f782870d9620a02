package store

import (
	"context"
	"fmt"
)

// SchemaVersion is recorded in PRAGMA user_version once the migrations ran.
const SchemaVersion = 1

var schemaV1 = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
  job_id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  summary TEXT,
  embedding TEXT,
  source_key TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`,
	`CREATE TABLE IF NOT EXISTS candidates (
  candidate_id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  education TEXT NOT NULL DEFAULT '',
  experience TEXT NOT NULL DEFAULT '',
  skills TEXT NOT NULL DEFAULT '',
  certifications TEXT NOT NULL DEFAULT '',
  achievements TEXT NOT NULL DEFAULT '',
  tech_stack TEXT NOT NULL DEFAULT '',
  resume_text TEXT NOT NULL DEFAULT '',
  embedding TEXT,
  source TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`,
	`CREATE TABLE IF NOT EXISTS match_runs (
  run_id TEXT PRIMARY KEY,
  started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  threshold REAL NOT NULL,
  top_k INTEGER NOT NULL,
  model TEXT NOT NULL DEFAULT ''
);`,
	`CREATE TABLE IF NOT EXISTS matches (
  match_id INTEGER PRIMARY KEY AUTOINCREMENT,
  job_id INTEGER NOT NULL REFERENCES jobs(job_id) ON DELETE CASCADE,
  candidate_id TEXT NOT NULL REFERENCES candidates(candidate_id) ON DELETE CASCADE,
  similarity_score REAL NOT NULL,
  matched_on TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  run_id TEXT NOT NULL REFERENCES match_runs(run_id) ON DELETE CASCADE
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_source_key ON jobs(source_key) WHERE source_key != '';`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_candidates_source ON candidates(source) WHERE source != '';`,
	`CREATE INDEX IF NOT EXISTS idx_matches_job_run ON matches(job_id, run_id);`,
	`CREATE INDEX IF NOT EXISTS idx_match_runs_started ON match_runs(started_at);`,
}

// Migrate creates the schema. It is safe to call on every start.
func (s *Store) Migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var version int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version >= SchemaVersion {
		return tx.Commit()
	}

	for _, stmt := range schemaV1 {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, SchemaVersion)); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}

	return tx.Commit()
}
