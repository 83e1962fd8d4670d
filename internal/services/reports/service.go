package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"secaudit/internal/domain"
	"secaudit/internal/ports"
	"secaudit/internal/services/scoring"
)

const (
	MinLimit     = 1
	MaxLimit     = 100
	DefaultLimit = 10
)

type Service struct {
	repo ports.ReportRepository
	now  func() time.Time
}

func New(repo ports.ReportRepository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Create scores results and stores them as a new report. The report is only
// visible once the repository insert succeeds.
func (s *Service) Create(ctx context.Context, results []domain.ScanResult) (domain.Report, error) {
	score := scoring.Score(results)
	total := 0
	for _, r := range results {
		total += r.TotalVulnerabilities
	}
	report := domain.Report{
		ID:                   uuid.NewString(),
		Score:                score,
		ScanResults:          append([]domain.ScanResult{}, results...),
		CreatedAt:            s.now(),
		Summary:              scoring.Summary(score, results),
		Recommendations:      scoring.Recommendations(score),
		TotalVulnerabilities: total,
	}
	if err := s.repo.Insert(ctx, report); err != nil {
		return domain.Report{}, fmt.Errorf("store report: %w", err)
	}
	return report, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Report, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int) ([]domain.ReportSummary, int, error) {
	if limit < MinLimit || limit > MaxLimit {
		return nil, 0, fmt.Errorf("%w: limit must be between %d and %d, got %d", domain.ErrValidation, MinLimit, MaxLimit, limit)
	}
	return s.repo.List(ctx, limit)
}

// Delete reports whether the report existed. Deleting twice is not an error.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	return s.repo.Delete(ctx, id)
}
