package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"secaudit/internal/domain"
)

// JobStore is the scan_jobs side of DB; it satisfies ports.JobRepository.
type JobStore struct{ db *DB }

func (db *DB) Jobs() *JobStore { return &JobStore{db: db} }

func (s *JobStore) Create(ctx context.Context, job domain.Job) error {
	_, err := s.db.Pool.Exec(ctx, `
        INSERT INTO scan_jobs (id, scan_type, target, status, started_at)
        VALUES ($1, $2, $3, $4, $5)
    `, job.ID, string(job.Kind), job.Target, string(job.Status), job.StartedAt)
	return err
}

func (s *JobStore) Get(ctx context.Context, jobID string) (domain.Job, error) {
	var (
		job      domain.Job
		kind     string
		status   string
		reportID *string
		results  []byte
		errText  *string
	)
	err := s.db.Pool.QueryRow(ctx, `
        SELECT id::text, scan_type, target, status, started_at, finished_at, report_id::text, results, error
        FROM scan_jobs WHERE id = $1
    `, jobID).Scan(&job.ID, &kind, &job.Target, &status, &job.StartedAt, &job.FinishedAt, &reportID, &results, &errText)
	if err != nil {
		return domain.Job{}, notFound(err)
	}
	job.Kind = domain.ScanKind(kind)
	job.StartedAt = job.StartedAt.UTC()
	if job.FinishedAt != nil {
		t := job.FinishedAt.UTC()
		job.FinishedAt = &t
	}
	job.Status = domain.JobStatus(status)
	if reportID != nil {
		job.ReportID = *reportID
	}
	if errText != nil {
		job.Error = *errText
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &job.Results); err != nil {
			return domain.Job{}, fmt.Errorf("decode job results: %w", err)
		}
	}
	return job, nil
}

// MarkCompleted writes status, report id and results in one statement, and
// only while the job is still running.
func (s *JobStore) MarkCompleted(ctx context.Context, jobID, reportID string, results []domain.ScanResult) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode job results: %w", err)
	}
	tag, err := s.db.Pool.Exec(ctx, `
        UPDATE scan_jobs SET status='completed', finished_at=now(), report_id=$2, results=$3
        WHERE id=$1 AND status='running'
    `, jobID, reportID, payload)
	if err != nil {
		return err
	}
	return s.checkFinished(ctx, jobID, tag)
}

func (s *JobStore) MarkFailed(ctx context.Context, jobID string, reason string) error {
	tag, err := s.db.Pool.Exec(ctx, `
        UPDATE scan_jobs SET status='failed', finished_at=now(), error=$2
        WHERE id=$1 AND status='running'
    `, jobID, reason)
	if err != nil {
		return err
	}
	return s.checkFinished(ctx, jobID, tag)
}

// checkFinished explains an update that touched no row.
func (s *JobStore) checkFinished(ctx context.Context, jobID string, tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := s.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM scan_jobs WHERE id=$1)`, jobID).Scan(&exists); err != nil {
		return notFound(err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return fmt.Errorf("job %s: %w", jobID, domain.ErrJobFinished)
}

// notFound maps missing rows and malformed ids onto domain.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
		return domain.ErrNotFound
	}
	return err
}

func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
