package scanrunner

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"secaudit/internal/domain"
	"secaudit/internal/ports"
)

// Outcome is what a successful pipeline run hands back for the job's terminal
// state.
type Outcome struct {
	Report  domain.Report
	Results []domain.ScanResult
}

// ScanProcessor performs the scan work for one job.
type ScanProcessor interface {
	Process(ctx context.Context, job domain.Job) (Outcome, error)
	// Discard undoes a successful Process whose job could not be completed.
	Discard(ctx context.Context, out Outcome)
	// Publish runs once the job is recorded as completed.
	Publish(ctx context.Context, out Outcome)
}

const terminalWriteTimeout = 5 * time.Second

// Dispatcher runs each job on its own goroutine. There is no cap on how many
// run at once.
type Dispatcher struct {
	ctx       context.Context
	jobs      ports.JobRepository
	processor ScanProcessor
	wg        sync.WaitGroup
}

// NewDispatcher binds executions to ctx; cancelling it aborts in-flight jobs.
func NewDispatcher(ctx context.Context, jobs ports.JobRepository, processor ScanProcessor) *Dispatcher {
	return &Dispatcher{ctx: ctx, jobs: jobs, processor: processor}
}

func (d *Dispatcher) Dispatch(job domain.Job) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("job %s: panic: %v\n%s", job.ID, r, debug.Stack())
				markFailed(d.ctx, d.jobs, job.ID, fmt.Sprintf("internal error: %v", r))
			}
		}()
		if err := ProcessInline(d.ctx, d.jobs, d.processor, job); err != nil {
			log.Printf("job %s: failed: %v", job.ID, err)
		}
	}()
}

// Shutdown waits for in-flight jobs until ctx expires.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessInline runs one job to its terminal state on the calling goroutine.
// Any error from the processor fails the whole job; nothing from a partial run
// is kept.
func ProcessInline(ctx context.Context, jobs ports.JobRepository, processor ScanProcessor, job domain.Job) error {
	log.Printf("job %s: starting (kind=%s target=%q)", job.ID, job.Kind, job.Target)
	out, err := processor.Process(ctx, job)

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
	defer cancel()
	if err == nil && ctx.Err() != nil {
		processor.Discard(wctx, out)
		err = fmt.Errorf("aborted: %w", ctx.Err())
	}
	if err != nil {
		markFailed(ctx, jobs, job.ID, err.Error())
		return err
	}
	if err := jobs.MarkCompleted(wctx, job.ID, out.Report.ID, out.Results); err != nil {
		log.Printf("job %s: complete err: %v", job.ID, err)
		processor.Discard(wctx, out)
		markFailed(ctx, jobs, job.ID, "record completion: "+err.Error())
		return err
	}
	log.Printf("job %s: completed (report=%s score=%d grade=%s)", job.ID, out.Report.ID, out.Report.Score.Score, out.Report.Score.Grade)
	processor.Publish(ctx, out)
	return nil
}

func markFailed(ctx context.Context, jobs ports.JobRepository, jobID, reason string) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
	defer cancel()
	if err := jobs.MarkFailed(wctx, jobID, reason); err != nil {
		log.Printf("job %s: mark failed err: %v", jobID, err)
	}
}
