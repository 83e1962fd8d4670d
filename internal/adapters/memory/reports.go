// Package memory holds the process-local job and report tables. Both are safe
// for concurrent use and hand out copies, never references into the table.
package memory

import (
	"context"
	"sort"
	"sync"

	"secaudit/internal/domain"
)

type storedReport struct {
	report domain.Report
	seq    uint64
}

type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]storedReport
	seq     uint64
}

func NewReportStore() *ReportStore {
	return &ReportStore{reports: make(map[string]storedReport)}
}

func (s *ReportStore) Insert(_ context.Context, report domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.reports[report.ID] = storedReport{report: report, seq: s.seq}
	return nil
}

func (s *ReportStore) Get(_ context.Context, id string) (domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.reports[id]
	if !ok {
		return domain.Report{}, domain.ErrNotFound
	}
	return st.report, nil
}

// List returns summaries newest first. Reports created in the same instant
// keep insertion order (later first).
func (s *ReportStore) List(_ context.Context, limit int) ([]domain.ReportSummary, int, error) {
	s.mu.RLock()
	all := make([]storedReport, 0, len(s.reports))
	for _, st := range s.reports {
		all = append(all, st)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if !a.report.CreatedAt.Equal(b.report.CreatedAt) {
			return a.report.CreatedAt.After(b.report.CreatedAt)
		}
		return a.seq > b.seq
	})
	total := len(all)
	if limit < total {
		all = all[:limit]
	}
	out := make([]domain.ReportSummary, 0, len(all))
	for _, st := range all {
		out = append(out, st.report.Summarize())
	}
	return out, total, nil
}

func (s *ReportStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return false, nil
	}
	delete(s.reports, id)
	return true, nil
}
