package ports

import (
	"context"

	"secaudit/internal/domain"
)

// JobRepository tracks scan jobs. MarkCompleted and MarkFailed each apply the
// whole terminal state in one update and fail with domain.ErrJobFinished if
// the job already left the running state.
type JobRepository interface {
	Create(ctx context.Context, job domain.Job) error
	Get(ctx context.Context, jobID string) (domain.Job, error)
	MarkCompleted(ctx context.Context, jobID, reportID string, results []domain.ScanResult) error
	MarkFailed(ctx context.Context, jobID string, reason string) error
}
