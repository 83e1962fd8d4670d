package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"secaudit/internal/adapters/memory"
	"secaudit/internal/domain"
)

func sample(kind domain.ScanKind, sevs ...domain.Severity) domain.ScanResult {
	vs := make([]domain.Vulnerability, 0, len(sevs))
	for _, s := range sevs {
		vs = append(vs, domain.Vulnerability{ID: "X-1", Severity: s, AffectedComponent: "pkg"})
	}
	return domain.NewScanResult(kind, vs, time.Time{})
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.NewReportStore())

	results := []domain.ScanResult{
		sample(domain.KindDependency, domain.Critical, domain.High),
		sample(domain.KindImage, domain.High, domain.Info),
	}
	rep, err := svc.Create(ctx, results)
	if err != nil {
		t.Fatal(err)
	}
	if rep.ID == "" {
		t.Fatal("empty report id")
	}
	if rep.Score.Score != 80 || rep.Score.Grade != "B" {
		t.Fatalf("score = %d/%s, want 80/B", rep.Score.Score, rep.Score.Grade)
	}
	if rep.TotalVulnerabilities != 4 {
		t.Fatalf("total = %d, want 4", rep.TotalVulnerabilities)
	}
	counted := rep.Score.CriticalIssues + rep.Score.HighIssues + rep.Score.MediumIssues + rep.Score.LowIssues
	infos := 1
	if counted+infos != rep.TotalVulnerabilities {
		t.Fatalf("score counts %d + info %d != total %d", counted, infos, rep.TotalVulnerabilities)
	}
	if len(rep.Recommendations) != 2 {
		t.Fatalf("recommendations = %q", rep.Recommendations)
	}

	got, err := svc.Get(ctx, rep.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != rep.ID || got.Summary != rep.Summary || len(got.ScanResults) != 2 {
		t.Fatalf("Get returned %+v", got)
	}
}

func TestListLimits(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.NewReportStore())
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	var ids []string
	for i := 0; i < 4; i++ {
		r, err := svc.Create(ctx, []domain.ScanResult{sample(domain.KindCode)})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, r.ID)
	}

	for _, n := range []int{1, 3, 4, 10, 100} {
		got, total, err := svc.List(ctx, n)
		if err != nil {
			t.Fatalf("List(%d): %v", n, err)
		}
		if total != 4 {
			t.Errorf("List(%d) total = %d", n, total)
		}
		if len(got) != min(n, 4) {
			t.Errorf("List(%d) returned %d", n, len(got))
		}
		if got[0].ID != ids[3] {
			t.Errorf("List(%d) first = %s, want newest %s", n, got[0].ID, ids[3])
		}
	}

	for _, n := range []int{0, -1, 101} {
		if _, _, err := svc.List(ctx, n); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("List(%d) err = %v, want validation error", n, err)
		}
	}
}

func TestDeleteThenGet(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.NewReportStore())
	rep, _ := svc.Create(ctx, nil)

	ok, err := svc.Delete(ctx, rep.ID)
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	if _, err := svc.Get(ctx, rep.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get after delete: %v", err)
	}
	ok, err = svc.Delete(ctx, rep.ID)
	if err != nil || ok {
		t.Fatalf("second Delete = %v, %v", ok, err)
	}
}

type failingRepo struct{ *memory.ReportStore }

func (f *failingRepo) Insert(context.Context, domain.Report) error {
	return errors.New("disk full")
}

func TestCreateFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{ReportStore: memory.NewReportStore()}
	svc := New(repo)
	if _, err := svc.Create(ctx, []domain.ScanResult{sample(domain.KindCode, domain.Low)}); err == nil {
		t.Fatal("expected error")
	}
	_, total, err := svc.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Fatalf("total = %d after failed create", total)
	}
}
