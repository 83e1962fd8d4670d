package scanners

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"secaudit/internal/domain"
)

var npmSeverities = domain.SeverityTable{
	Values: map[string]domain.Severity{
		"critical": domain.Critical,
		"high":     domain.High,
		"moderate": domain.Medium,
		"low":      domain.Low,
		"info":     domain.Info,
	},
	Default: domain.Info,
}

// Dependency audits a node project with `npm audit`. The scan target, when
// given, is the project directory.
type Dependency struct {
	Dir string
	tool
}

func NewDependency(dir string, timeout time.Duration, run CommandRunner) *Dependency {
	return &Dependency{Dir: dir, tool: tool{run: run, timeout: timeout, okCodes: []int{0, 1}}}
}

func (d *Dependency) Kind() domain.ScanKind { return domain.KindDependency }

func (d *Dependency) Scan(ctx context.Context, target string) (domain.ScanResult, error) {
	started := time.Now()
	dir := d.Dir
	if target != "" {
		dir = target
	}
	out, reason := d.invoke(ctx, dir, "npm", "audit", "--json")
	if reason != "" {
		log.Printf("dependency scan degraded: %s", reason)
		return domain.DegradedResult(domain.KindDependency, reason, started), nil
	}
	vulns, err := parseNpmAudit(out)
	if err != nil {
		log.Printf("dependency scan degraded: %v", err)
		return domain.DegradedResult(domain.KindDependency, err.Error(), started), nil
	}
	return domain.NewScanResult(domain.KindDependency, vulns, started), nil
}

type npmAudit struct {
	Vulnerabilities map[string]npmVulnerability `json:"vulnerabilities"`
}

type npmVulnerability struct {
	Name         string            `json:"name"`
	Severity     string            `json:"severity"`
	Range        string            `json:"range"`
	Via          []json.RawMessage `json:"via"`
	FixAvailable json.RawMessage   `json:"fixAvailable"`
}

type npmAdvisory struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	CVSS  struct {
		Score float64 `json:"score"`
	} `json:"cvss"`
}

type npmFix struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func parseNpmAudit(data []byte) ([]domain.Vulnerability, error) {
	var audit npmAudit
	if err := json.Unmarshal(data, &audit); err != nil {
		return nil, fmt.Errorf("parse npm audit output: %w", err)
	}

	names := make([]string, 0, len(audit.Vulnerabilities))
	for name := range audit.Vulnerabilities {
		names = append(names, name)
	}
	sort.Strings(names)

	vulns := make([]domain.Vulnerability, 0, len(names))
	for _, pkg := range names {
		v := audit.Vulnerabilities[pkg]
		id := v.Name
		if id == "" {
			id = pkg
		}
		rng := v.Range
		if rng == "" {
			rng = "unknown"
		}
		vuln := domain.Vulnerability{
			ID:                id,
			Severity:          npmSeverities.Map(v.Severity),
			Description:       "npm vulnerability",
			AffectedComponent: pkg + "@" + rng,
			Recommendation:    ptr("Update to: " + fixVersion(v.FixAvailable)),
		}
		// via holds advisory objects for direct findings and plain package
		// names for transitive ones.
		for _, raw := range v.Via {
			var adv npmAdvisory
			if json.Unmarshal(raw, &adv) != nil || adv.Title == "" {
				continue
			}
			vuln.Description = adv.Title
			if adv.CVSS.Score > 0 {
				vuln.CVSSScore = ptr(adv.CVSS.Score)
			}
			break
		}
		vulns = append(vulns, vuln)
	}
	return vulns, nil
}

func fixVersion(raw json.RawMessage) string {
	var fix npmFix
	if len(raw) > 0 && json.Unmarshal(raw, &fix) == nil && fix.Version != "" {
		return fix.Version
	}
	return "latest"
}
