// Package scoring turns scan results into a score, grade and recommendations.
// Everything here is pure.
package scoring

import (
	"fmt"
	"strings"

	"secaudit/internal/domain"
)

const maxScore = 100

// Score walks every vulnerability once. The per-result advisory counts are
// ignored.
func Score(results []domain.ScanResult) domain.SecurityScore {
	var out domain.SecurityScore
	penalty := 0
	for _, r := range results {
		for _, v := range r.Vulnerabilities {
			penalty += v.Severity.Weight()
			switch v.Severity {
			case domain.Critical:
				out.CriticalIssues++
			case domain.High:
				out.HighIssues++
			case domain.Medium:
				out.MediumIssues++
			case domain.Low:
				out.LowIssues++
			}
		}
	}
	out.Score = max(0, maxScore-penalty)
	out.Grade = Grade(out.Score)
	return out
}

func Grade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// Recommendations applies the rules in order. The generic advice is only
// given when no other rule fired.
func Recommendations(s domain.SecurityScore) []string {
	var out []string
	if s.CriticalIssues > 0 {
		out = append(out, fmt.Sprintf("URGENT: %d critical vulnerabilit%s detected. Fix immediately and block any deployment until resolved.",
			s.CriticalIssues, plural(s.CriticalIssues, "y", "ies")))
	}
	if s.HighIssues > 0 {
		out = append(out, fmt.Sprintf("%d high severity vulnerabilit%s detected. Schedule a fix within the next few days.",
			s.HighIssues, plural(s.HighIssues, "y", "ies")))
	}
	if s.MediumIssues > 5 {
		out = append(out, fmt.Sprintf("%d medium severity vulnerabilities detected. Schedule a full security review.", s.MediumIssues))
	}
	if s.Score < 70 {
		out = append(out, "Low security score. Run a full security audit and set up a prioritised action plan.")
	}
	if s.Score >= 90 {
		out = append(out, "Excellent security score. Maintain current practices and keep scanning regularly.")
	}
	if len(out) == 0 {
		out = append(out, "Keep scanning regularly and keep dependencies up to date.")
	}
	return out
}

// Summary renders the report summary line.
func Summary(s domain.SecurityScore, results []domain.ScanResult) string {
	total := 0
	kinds := make([]string, 0, len(results))
	for _, r := range results {
		total += r.TotalVulnerabilities
		kinds = append(kinds, string(r.ScanKind))
	}

	parts := []string{
		fmt.Sprintf("Security scan performed on %d component(s).", len(results)),
		fmt.Sprintf("Overall score: %d/100 (Grade: %s).", s.Score, s.Grade),
		fmt.Sprintf("%d vulnerabilit%s detected:", total, plural(total, "y", "ies")),
	}
	for _, c := range []struct {
		n     int
		label string
	}{
		{s.CriticalIssues, "critical"},
		{s.HighIssues, "high"},
		{s.MediumIssues, "medium"},
		{s.LowIssues, "low"},
	} {
		if c.n > 0 {
			parts = append(parts, fmt.Sprintf("- %d %s", c.n, c.label))
		}
	}
	parts = append(parts, "Scan types performed: "+strings.Join(kinds, ", "))
	return strings.Join(parts, " ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
