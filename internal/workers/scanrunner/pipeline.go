package scanrunner

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"secaudit/internal/domain"
	"secaudit/internal/ports"
)

const archiveTimeout = 30 * time.Second

// Pipeline invokes the adapters a job asks for, then turns their results
// into a report.
type Pipeline struct {
	adapters map[domain.ScanKind]ports.ScanAdapter
	reports  ports.Reports
	archive  ports.ReportArchive
}

func NewPipeline(reports ports.Reports, adapters ...ports.ScanAdapter) *Pipeline {
	p := &Pipeline{adapters: make(map[domain.ScanKind]ports.ScanAdapter), reports: reports}
	for _, a := range adapters {
		p.adapters[a.Kind()] = a
	}
	return p
}

// WithArchive copies the report of every completed job to archive. Archive errors are
// logged and never fail the job.
func (p *Pipeline) WithArchive(archive ports.ReportArchive) *Pipeline {
	p.archive = archive
	return p
}

// Resolve maps a requested kind onto adapters in reporting order.
func (p *Pipeline) Resolve(kind domain.ScanKind) ([]ports.ScanAdapter, error) {
	if kind == domain.KindAll {
		out := make([]ports.ScanAdapter, 0, len(p.adapters))
		for _, k := range domain.Kinds {
			if a, ok := p.adapters[k]; ok {
				out = append(out, a)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("%w: no scanners configured", domain.ErrValidation)
		}
		return out, nil
	}
	a, ok := p.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no scanner for scan type %q", domain.ErrValidation, kind)
	}
	return []ports.ScanAdapter{a}, nil
}

func (p *Pipeline) Process(ctx context.Context, job domain.Job) (Outcome, error) {
	adapters, err := p.Resolve(job.Kind)
	if err != nil {
		return Outcome{}, err
	}

	results := make([]domain.ScanResult, len(adapters))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range adapters {
		i, a := i, a
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%s scan: panic: %v", a.Kind(), r)
				}
			}()
			started := time.Now()
			res, err := a.Scan(gctx, targetFor(job, a.Kind()))
			if err != nil {
				return fmt.Errorf("%s scan: %w", a.Kind(), err)
			}
			log.Printf("job %s: %s scan %s with %d finding(s) in %s", job.ID, a.Kind(), res.Status, res.TotalVulnerabilities, time.Since(started).Round(time.Millisecond))
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Outcome{}, err
	}

	report, err := p.reports.Create(ctx, results)
	if err != nil {
		return Outcome{}, fmt.Errorf("create report: %w", err)
	}
	return Outcome{Report: report, Results: results}, nil
}

// targetFor picks the target an adapter sees. A combined scan only carries
// one target, an image reference; the directory scanners keep their
// configured paths.
func targetFor(job domain.Job, kind domain.ScanKind) string {
	if job.Kind == domain.KindAll && kind != domain.KindImage {
		return ""
	}
	return job.Target
}

// Publish copies a report whose job has completed to the archive.
func (p *Pipeline) Publish(ctx context.Context, out Outcome) {
	if p.archive == nil || out.Report.ID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	err := retry(ctx, 3, 200*time.Millisecond, func() error { return p.archive.Put(ctx, out.Report) })
	if err != nil {
		log.Printf("archive report %s: %v", out.Report.ID, err)
	}
}

func (p *Pipeline) Discard(ctx context.Context, out Outcome) {
	if out.Report.ID == "" {
		return
	}
	if _, err := p.reports.Delete(ctx, out.Report.ID); err != nil {
		log.Printf("discard report %s: %v", out.Report.ID, err)
	}
}
