package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"secaudit/internal/domain"
	"secaudit/internal/ports"
)

// Resolver reports which adapters a scan kind needs; an error rejects the
// request before any job exists.
type Resolver interface {
	Resolve(kind domain.ScanKind) ([]ports.ScanAdapter, error)
}

// Dispatcher starts a job's execution without waiting for it.
type Dispatcher interface {
	Dispatch(job domain.Job)
}

type Service struct {
	jobs         ports.JobRepository
	resolver     Resolver
	dispatcher   Dispatcher
	pollInterval time.Duration
}

func New(jobs ports.JobRepository, resolver Resolver, dispatcher Dispatcher) *Service {
	return &Service{jobs: jobs, resolver: resolver, dispatcher: dispatcher, pollInterval: 100 * time.Millisecond}
}

// Submit records a running job and hands it to the dispatcher. It returns as
// soon as the job is recorded.
func (s *Service) Submit(ctx context.Context, kind domain.ScanKind, target string) (domain.Job, error) {
	if _, err := s.resolver.Resolve(kind); err != nil {
		return domain.Job{}, err
	}
	job := domain.Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Target:    target,
		Status:    domain.JobRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return domain.Job{}, fmt.Errorf("record job: %w", err)
	}
	s.dispatcher.Dispatch(job)
	return job, nil
}

func (s *Service) Status(ctx context.Context, jobID string) (domain.Job, error) {
	return s.jobs.Get(ctx, jobID)
}

// Wait polls the job until it reaches a terminal state or ctx is done.
func (s *Service) Wait(ctx context.Context, jobID string) (domain.Job, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		job, err := s.jobs.Get(ctx, jobID)
		if err != nil {
			return domain.Job{}, err
		}
		if job.Status.Terminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}
