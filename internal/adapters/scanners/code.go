package scanners

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"secaudit/internal/domain"
)

// Bandit only distinguishes three levels.
var banditSeverities = domain.SeverityTable{
	Values: map[string]domain.Severity{
		"high":   domain.High,
		"medium": domain.Medium,
		"low":    domain.Low,
	},
	Default: domain.Low,
}

// Code runs bandit over a python source tree.
type Code struct {
	Dir string
	tool
}

func NewCode(dir string, timeout time.Duration, run CommandRunner) *Code {
	// bandit exits 1 when it reports issues
	return &Code{Dir: dir, tool: tool{run: run, timeout: timeout, okCodes: []int{0, 1}}}
}

func (c *Code) Kind() domain.ScanKind { return domain.KindCode }

func (c *Code) Scan(ctx context.Context, target string) (domain.ScanResult, error) {
	started := time.Now()
	dir := c.Dir
	if target != "" {
		dir = target
	}
	out, reason := c.invoke(ctx, "", "bandit", "-r", dir, "-f", "json", "-ll")
	if reason != "" {
		log.Printf("code scan degraded: %s", reason)
		return domain.DegradedResult(domain.KindCode, reason, started), nil
	}
	vulns, err := parseBandit(out)
	if err != nil {
		log.Printf("code scan degraded: %v", err)
		return domain.DegradedResult(domain.KindCode, err.Error(), started), nil
	}
	return domain.NewScanResult(domain.KindCode, vulns, started), nil
}

type banditReport struct {
	Results []banditIssue `json:"results"`
}

type banditIssue struct {
	Filename      string `json:"filename"`
	LineNumber    int    `json:"line_number"`
	IssueSeverity string `json:"issue_severity"`
	IssueText     string `json:"issue_text"`
	TestID        string `json:"test_id"`
	MoreInfo      string `json:"more_info"`
}

func parseBandit(data []byte) ([]domain.Vulnerability, error) {
	var report banditReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse bandit output: %w", err)
	}
	vulns := make([]domain.Vulnerability, 0, len(report.Results))
	for _, issue := range report.Results {
		id := issue.TestID
		if id == "" {
			id = "BANDIT-UNKNOWN"
		}
		text := issue.IssueText
		if text == "" {
			text = "Security issue detected"
		}
		file := issue.Filename
		if file == "" {
			file = "unknown"
		}
		location := fmt.Sprintf("%s:%d", file, issue.LineNumber)
		vulns = append(vulns, domain.Vulnerability{
			ID:                id,
			Severity:          banditSeverities.Map(issue.IssueSeverity),
			Description:       text,
			AffectedComponent: location,
			Recommendation:    ptr(strings.TrimSpace(fmt.Sprintf("Review code at %s. %s", location, issue.MoreInfo))),
		})
	}
	return vulns, nil
}
