package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"secaudit/internal/domain"
)

type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.Job
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]domain.Job)}
}

func (s *JobStore) Create(_ context.Context, job domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *JobStore) Get(_ context.Context, jobID string) (domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}
	if job.Results != nil {
		job.Results = append([]domain.ScanResult(nil), job.Results...)
	}
	return job, nil
}

func (s *JobStore) MarkCompleted(_ context.Context, jobID, reportID string, results []domain.ScanResult) error {
	return s.finish(jobID, func(j *domain.Job) {
		j.Status = domain.JobCompleted
		j.ReportID = reportID
		j.Results = append([]domain.ScanResult(nil), results...)
	})
}

func (s *JobStore) MarkFailed(_ context.Context, jobID string, reason string) error {
	return s.finish(jobID, func(j *domain.Job) {
		j.Status = domain.JobFailed
		j.Error = reason
	})
}

// finish applies the terminal transition under the write lock so readers see
// either the running job or the complete terminal state.
func (s *JobStore) finish(jobID string, apply func(*domain.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return fmt.Errorf("job %s: %w", jobID, domain.ErrJobFinished)
	}
	now := time.Now().UTC()
	job.FinishedAt = &now
	apply(&job)
	s.jobs[jobID] = job
	return nil
}
