package ports

import (
	"context"

	"secaudit/internal/domain"
)

// ReportRepository persists reports. Insert makes a report visible to Get and
// List in one step.
type ReportRepository interface {
	Insert(ctx context.Context, report domain.Report) error
	Get(ctx context.Context, id string) (domain.Report, error)
	List(ctx context.Context, limit int) (reports []domain.ReportSummary, total int, err error)
	Delete(ctx context.Context, id string) (bool, error)
}
