package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Job statuses.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

const defaultMaxAttempts = 3

const jobColumns = `id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at, last_error`

// stamp is the stored form of every job timestamp. Fixed-width UTC RFC 3339
// sorts lexically, which the due-job query relies on.
func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// retryDelay is the wait after the n-th failed attempt: 2s, 4s, 8s...
func retryDelay(n int) time.Duration { return time.Second << n }

// EnqueueJob inserts job as pending. A zero RunAfter means now and a zero
// MaxAttempts means three.
func (s *Store) EnqueueJob(job Job) error {
	now := time.Now()
	if job.RunAfter.IsZero() {
		job.RunAfter = now
	}
	if job.MaxAttempts == 0 {
		job.MaxAttempts = defaultMaxAttempts
	}
	if job.PayloadJSON == "" {
		job.PayloadJSON = "{}"
	}
	_, err := s.db.Exec(`INSERT INTO jobs (id, type, payload_json, status, max_attempts, run_after, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Type, job.PayloadJSON, JobPending, job.MaxAttempts, stamp(job.RunAfter), stamp(now), stamp(now))
	if err != nil {
		return fmt.Errorf("enqueueing %s job %s: %w", job.Type, job.ID, err)
	}
	return nil
}

// ClaimNextJob moves the longest-due pending job of one of types to running
// and returns it. It returns nil, nil when nothing is due.
func (s *Store) ClaimNextJob(types []string) (*Job, error) {
	if len(types) == 0 {
		return nil, nil
	}
	now := stamp(time.Now())
	args := []any{JobRunning, now, JobPending, now}
	for _, t := range types {
		args = append(args, t)
	}

	row := s.db.QueryRow(`UPDATE jobs SET status = ?, updated_at = ?
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = ? AND run_after <= ? AND type IN (`+placeholders(len(types))+`)
			ORDER BY run_after, created_at
			LIMIT 1
		)
		RETURNING `+jobColumns, args...)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claiming job: %w", err)
	}
	return job, nil
}

func (s *Store) CompleteJob(id string) error {
	res, err := s.db.Exec(`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`, JobCompleted, stamp(time.Now()), id)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

// FailJob records a failed attempt with its error. The job goes back to
// pending after retryDelay until it has used MaxAttempts, then it fails for
// good; final reports the latter.
func (s *Store) FailJob(id string, errMsg string) (final bool, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var attempts, maxAttempts int
	err = tx.QueryRow(`SELECT attempts, max_attempts FROM jobs WHERE id = ?`, id).Scan(&attempts, &maxAttempts)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}

	attempts++
	now := time.Now()
	status, runAfter := JobPending, now.Add(retryDelay(attempts))
	if attempts >= maxAttempts {
		status, runAfter = JobFailed, now
	}
	if _, err := tx.Exec(`UPDATE jobs SET status = ?, attempts = ?, last_error = ?, run_after = ?, updated_at = ? WHERE id = ?`,
		status, attempts, errMsg, stamp(runAfter), stamp(now), id); err != nil {
		return false, err
	}
	return status == JobFailed, tx.Commit()
}

// RequeueRunningJobs hands jobs a previous process left running back to the
// queue and reports how many there were.
func (s *Store) RequeueRunningJobs() (int, error) {
	res, err := s.db.Exec(`UPDATE jobs SET status = ?, updated_at = ? WHERE status = ?`, JobPending, stamp(time.Now()), JobRunning)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) CountJobs(status string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM jobs WHERE status = ?`, status).Scan(&n)
	return n, err
}

func scanJob(r rowScanner) (*Job, error) {
	var j Job
	var runAfter, createdAt, updatedAt string
	var lastError sql.NullString
	if err := r.Scan(&j.ID, &j.Type, &j.PayloadJSON, &j.Status, &j.Attempts, &j.MaxAttempts,
		&runAfter, &createdAt, &updatedAt, &lastError); err != nil {
		return nil, err
	}
	j.LastError = lastError.String

	for _, f := range []struct {
		dst *time.Time
		src string
	}{{&j.RunAfter, runAfter}, {&j.CreatedAt, createdAt}, {&j.UpdatedAt, updatedAt}} {
		t, err := time.Parse(time.RFC3339, f.src)
		if err != nil {
			return nil, fmt.Errorf("job %s: bad timestamp %q", j.ID, f.src)
		}
		*f.dst = t
	}
	return &j, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
