package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const jobColumns = `id, title, company, description, location, job_url, posted_by, created_at`

// ListJobs lists job postings, newest first
func (db *DB) ListJobs(ctx context.Context) ([]*Job, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	jobs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[Job])
	if err != nil {
		return nil, fmt.Errorf("failed to scan jobs: %w", err)
	}
	return jobs, nil
}

// GetJob retrieves a job posting, or nil
func (db *DB) GetJob(ctx context.Context, id int64) (*Job, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	job, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[Job])
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}
	return job, nil
}

// CreateJob inserts a posting and fills in its generated fields
func (db *DB) CreateJob(ctx context.Context, job *Job) error {
	err := db.pool.QueryRow(ctx, `
		INSERT INTO jobs (title, company, description, location, job_url, posted_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, job.Title, job.Company, job.Description, job.Location, job.JobURL, job.PostedBy,
	).Scan(&job.ID, &job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// UpdateJob overwrites a posting's editable fields
func (db *DB) UpdateJob(ctx context.Context, job *Job) error {
	_, err := db.pool.Exec(ctx, `
		UPDATE jobs SET title = $1, company = $2, description = $3, location = $4, job_url = $5
		WHERE id = $6
	`, job.Title, job.Company, job.Description, job.Location, job.JobURL, job.ID)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

// DeleteJob removes a posting
func (db *DB) DeleteJob(ctx context.Context, id int64) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}
