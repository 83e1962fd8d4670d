package scanners

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"secaudit/internal/domain"
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return b
}

type call struct {
	dir, name string
	args      []string
}

// fakeRunner returns a canned result and records the last invocation.
func fakeRunner(res CommandResult, err error, last *call) CommandRunner {
	return func(ctx context.Context, dir, name string, args ...string) (CommandResult, error) {
		if last != nil {
			*last = call{dir: dir, name: name, args: args}
		}
		return res, err
	}
}

func checkCounts(t *testing.T, r domain.ScanResult) {
	t.Helper()
	var c, h, m, l int
	for _, v := range r.Vulnerabilities {
		switch v.Severity {
		case domain.Critical:
			c++
		case domain.High:
			h++
		case domain.Medium:
			m++
		case domain.Low:
			l++
		}
	}
	if r.CriticalCount != c || r.HighCount != h || r.MediumCount != m || r.LowCount != l || r.TotalVulnerabilities != len(r.Vulnerabilities) {
		t.Fatalf("advisory counts %d/%d/%d/%d total %d do not match list", r.CriticalCount, r.HighCount, r.MediumCount, r.LowCount, r.TotalVulnerabilities)
	}
}

func TestDependencyParsesNpmAudit(t *testing.T) {
	var last call
	a := NewDependency("/srv/app", time.Second, fakeRunner(CommandResult{Stdout: fixture(t, "npm_audit.json"), ExitCode: 1}, nil, &last))

	res, err := a.Scan(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if last.dir != "/srv/app" || last.name != "npm" {
		t.Fatalf("ran %+v", last)
	}
	if res.Status != domain.ResultCompleted || res.ScanKind != domain.KindDependency {
		t.Fatalf("result %s/%s", res.ScanKind, res.Status)
	}
	if len(res.Vulnerabilities) != 3 {
		t.Fatalf("got %d vulnerabilities", len(res.Vulnerabilities))
	}
	checkCounts(t, res)

	leftPad, lodash, minimist := res.Vulnerabilities[0], res.Vulnerabilities[1], res.Vulnerabilities[2]
	if leftPad.Severity != domain.Info {
		t.Errorf("unknown npm severity mapped to %s", leftPad.Severity)
	}
	if lodash.Severity != domain.Critical || lodash.Description != "Prototype Pollution in lodash" {
		t.Errorf("lodash = %+v", lodash)
	}
	if lodash.CVSSScore == nil || *lodash.CVSSScore != 9.1 {
		t.Errorf("lodash cvss = %v", lodash.CVSSScore)
	}
	if *lodash.Recommendation != "Update to: 4.17.21" {
		t.Errorf("lodash recommendation = %q", *lodash.Recommendation)
	}
	if minimist.Severity != domain.Medium || minimist.AffectedComponent != "minimist@<0.2.4" || *minimist.Recommendation != "Update to: latest" {
		t.Errorf("minimist = %+v", minimist)
	}

	if _, err := a.Scan(context.Background(), "/other"); err != nil || last.dir != "/other" {
		t.Fatalf("target not used as directory: %+v", last)
	}
}

func TestCodeParsesBandit(t *testing.T) {
	var last call
	a := NewCode("/app/src", time.Second, fakeRunner(CommandResult{Stdout: fixture(t, "bandit.json"), ExitCode: 1}, nil, &last))

	res, err := a.Scan(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if last.name != "bandit" || last.args[1] != "/app/src" {
		t.Fatalf("ran %+v", last)
	}
	if len(res.Vulnerabilities) != 3 {
		t.Fatalf("got %d vulnerabilities", len(res.Vulnerabilities))
	}
	checkCounts(t, res)

	sqli := res.Vulnerabilities[0]
	if sqli.ID != "B608" || sqli.Severity != domain.High || sqli.AffectedComponent != "src/app/db.py:42" {
		t.Errorf("sqli = %+v", sqli)
	}
	if res.Vulnerabilities[1].Severity != domain.Medium {
		t.Errorf("md5 severity = %s", res.Vulnerabilities[1].Severity)
	}
	unknown := res.Vulnerabilities[2]
	if unknown.Severity != domain.Low || unknown.ID != "BANDIT-UNKNOWN" || unknown.Description != "Security issue detected" {
		t.Errorf("unknown = %+v", unknown)
	}
}

func TestImageParsesTrivy(t *testing.T) {
	var last call
	a := NewImage("auth-service:latest", time.Second, fakeRunner(CommandResult{Stdout: fixture(t, "trivy.json")}, nil, &last))

	res, err := a.Scan(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if last.name != "trivy" || last.args[len(last.args)-1] != "auth-service:latest" {
		t.Fatalf("ran %+v", last)
	}
	if len(res.Vulnerabilities) != 3 {
		t.Fatalf("got %d vulnerabilities", len(res.Vulnerabilities))
	}
	checkCounts(t, res)

	glibc, zlib, requests := res.Vulnerabilities[0], res.Vulnerabilities[1], res.Vulnerabilities[2]
	if glibc.Severity != domain.High || glibc.CVEID == nil || *glibc.CVEID != "CVE-2023-4911" {
		t.Errorf("glibc = %+v", glibc)
	}
	if glibc.CVSSScore == nil || *glibc.CVSSScore != 7.8 {
		t.Errorf("glibc cvss = %v, want nvd v3 score", glibc.CVSSScore)
	}
	if *glibc.Recommendation != "Update libc6 to version 2.36-9+deb12u3" {
		t.Errorf("glibc recommendation = %q", *glibc.Recommendation)
	}
	if glibc.AffectedComponent != "libc6@2.36-9 (in auth-service:latest (debian 12.4))" {
		t.Errorf("glibc component = %q", glibc.AffectedComponent)
	}
	if zlib.Severity != domain.Info || zlib.CVEID != nil || zlib.CVSSScore != nil {
		t.Errorf("zlib = %+v", zlib)
	}
	if zlib.Description != "zlib advisory" || *zlib.Recommendation != "No fix available yet" {
		t.Errorf("zlib = %+v", zlib)
	}
	if requests.Severity != domain.Critical || requests.CVSSScore == nil || *requests.CVSSScore != 9.3 {
		t.Errorf("requests = %+v", requests)
	}

	if _, err := a.Scan(context.Background(), "nginx:1.25"); err != nil || last.args[len(last.args)-1] != "nginx:1.25" {
		t.Fatalf("target image not used: %+v", last)
	}
}

func TestAdaptersDegradeInsteadOfFailing(t *testing.T) {
	tests := []struct {
		name string
		res  CommandResult
		err  error
	}{
		{"missing binary", CommandResult{}, &exec.Error{Name: "tool", Err: exec.ErrNotFound}},
		{"timeout", CommandResult{}, context.DeadlineExceeded},
		{"unexpected exit", CommandResult{ExitCode: 2, Stderr: []byte("boom\nmore")}, nil},
		{"empty output", CommandResult{Stdout: []byte("  \n")}, nil},
		{"garbage output", CommandResult{Stdout: []byte("<html>not json</html>")}, nil},
		{"other error", CommandResult{}, errors.New("permission denied")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := fakeRunner(tt.res, tt.err, nil)
			for _, a := range []interface {
				Scan(context.Context, string) (domain.ScanResult, error)
				Kind() domain.ScanKind
			}{
				NewDependency(".", time.Second, run),
				NewCode(".", time.Second, run),
				NewImage("img", time.Second, run),
			} {
				res, err := a.Scan(context.Background(), "")
				if err != nil {
					t.Fatalf("%s: error escaped adapter: %v", a.Kind(), err)
				}
				if res.Status != domain.ResultDegraded || res.Detail == "" {
					t.Fatalf("%s: status %s detail %q", a.Kind(), res.Status, res.Detail)
				}
				if len(res.Vulnerabilities) != 0 || res.TotalVulnerabilities != 0 || res.ScanKind != a.Kind() {
					t.Fatalf("%s: degraded result carries findings: %+v", a.Kind(), res)
				}
			}
		})
	}
}

func TestImageTreatsExitOneAsDegraded(t *testing.T) {
	a := NewImage("img", time.Second, fakeRunner(CommandResult{Stdout: fixture(t, "trivy.json"), ExitCode: 1}, nil, nil))
	res, _ := a.Scan(context.Background(), "")
	if res.Status != domain.ResultDegraded {
		t.Fatalf("status = %s", res.Status)
	}
}

func TestInvokeAppliesTimeout(t *testing.T) {
	run := func(ctx context.Context, _, _ string, _ ...string) (CommandResult, error) {
		<-ctx.Done()
		return CommandResult{}, ctx.Err()
	}
	a := NewCode(".", 10*time.Millisecond, run)
	res, err := a.Scan(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != domain.ResultDegraded {
		t.Fatalf("status = %s", res.Status)
	}
}
