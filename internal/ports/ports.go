package ports

import (
	"context"

	"secaudit/internal/domain"
)

// ScanAdapter wraps one external scanning tool. Degraded runs (tool missing,
// timed out, unparsable output) come back as a result with status "degraded";
// the error is reserved for hard failures.
type ScanAdapter interface {
	Kind() domain.ScanKind
	Scan(ctx context.Context, target string) (domain.ScanResult, error)
}

// Scanner submits and tracks scan jobs.
type Scanner interface {
	Submit(ctx context.Context, kind domain.ScanKind, target string) (domain.Job, error)
	Status(ctx context.Context, jobID string) (domain.Job, error)
	Wait(ctx context.Context, jobID string) (domain.Job, error)
}

// Reports creates and serves scored reports.
type Reports interface {
	Create(ctx context.Context, results []domain.ScanResult) (domain.Report, error)
	Get(ctx context.Context, id string) (domain.Report, error)
	List(ctx context.Context, limit int) (reports []domain.ReportSummary, total int, err error)
	Delete(ctx context.Context, id string) (bool, error)
}

// ReportArchive keeps an external copy of each created report.
type ReportArchive interface {
	Put(ctx context.Context, report domain.Report) error
}
