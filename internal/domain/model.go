package domain

import "time"

// Core domain models. The HTTP layer serialises these directly, so the json
// tags are the wire names.

type ScanKind string

const (
	KindDependency ScanKind = "dependency"
	KindCode       ScanKind = "code"
	KindImage      ScanKind = "image"
	KindAll        ScanKind = "all"
)

// Kinds lists the concrete scan kinds in the order results are reported.
var Kinds = []ScanKind{KindDependency, KindCode, KindImage}

type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

func (s JobStatus) Terminal() bool { return s == JobCompleted || s == JobFailed }

const (
	ResultCompleted = "completed"
	ResultDegraded  = "degraded"
)

type Vulnerability struct {
	ID                string   `json:"id" yaml:"id"`
	Severity          Severity `json:"severity" yaml:"severity"`
	Description       string   `json:"description" yaml:"description"`
	AffectedComponent string   `json:"affected_component" yaml:"affected_component"`
	CVEID             *string  `json:"cve_id,omitempty" yaml:"cve_id,omitempty"`
	CVSSScore         *float64 `json:"cvss_score,omitempty" yaml:"cvss_score,omitempty"`
	Recommendation    *string  `json:"recommendation,omitempty" yaml:"recommendation,omitempty"`
}

type ScanResult struct {
	ScanKind             ScanKind        `json:"scan_type" yaml:"scan_type"`
	Vulnerabilities      []Vulnerability `json:"vulnerabilities" yaml:"vulnerabilities"`
	TotalVulnerabilities int             `json:"total_vulnerabilities" yaml:"total_vulnerabilities"`
	CriticalCount        int             `json:"critical_count" yaml:"critical_count"`
	HighCount            int             `json:"high_count" yaml:"high_count"`
	MediumCount          int             `json:"medium_count" yaml:"medium_count"`
	LowCount             int             `json:"low_count" yaml:"low_count"`
	Timestamp            time.Time       `json:"timestamp" yaml:"timestamp"`
	DurationSeconds      *float64        `json:"duration_seconds,omitempty" yaml:"duration_seconds,omitempty"`
	Status               string          `json:"status" yaml:"status"`
	Detail               string          `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// NewScanResult builds a completed result whose advisory counts are derived
// from vulns.
func NewScanResult(kind ScanKind, vulns []Vulnerability, started time.Time) ScanResult {
	if vulns == nil {
		vulns = []Vulnerability{}
	}
	res := ScanResult{
		ScanKind:             kind,
		Vulnerabilities:      vulns,
		TotalVulnerabilities: len(vulns),
		Timestamp:            time.Now().UTC(),
		Status:               ResultCompleted,
	}
	for _, v := range vulns {
		switch v.Severity {
		case Critical:
			res.CriticalCount++
		case High:
			res.HighCount++
		case Medium:
			res.MediumCount++
		case Low:
			res.LowCount++
		}
	}
	if !started.IsZero() {
		d := time.Since(started).Seconds()
		res.DurationSeconds = &d
	}
	return res
}

// DegradedResult is what an adapter returns when its tool produced nothing
// usable. It carries no findings.
func DegradedResult(kind ScanKind, detail string, started time.Time) ScanResult {
	res := NewScanResult(kind, nil, started)
	res.Status = ResultDegraded
	res.Detail = detail
	return res
}

type SecurityScore struct {
	Score          int    `json:"score" yaml:"score"`
	Grade          string `json:"grade" yaml:"grade"`
	CriticalIssues int    `json:"critical_issues" yaml:"critical_issues"`
	HighIssues     int    `json:"high_issues" yaml:"high_issues"`
	MediumIssues   int    `json:"medium_issues" yaml:"medium_issues"`
	LowIssues      int    `json:"low_issues" yaml:"low_issues"`
}

type Report struct {
	ID                   string        `json:"id" yaml:"id"`
	Score                SecurityScore `json:"score" yaml:"score"`
	ScanResults          []ScanResult  `json:"scan_results" yaml:"scan_results"`
	CreatedAt            time.Time     `json:"created_at" yaml:"created_at"`
	Summary              string        `json:"summary" yaml:"summary"`
	Recommendations      []string      `json:"recommendations" yaml:"recommendations"`
	TotalVulnerabilities int           `json:"total_vulnerabilities" yaml:"total_vulnerabilities"`
}

// ReportSummary is the list projection of a Report; it drops scan payloads.
type ReportSummary struct {
	ID                   string    `json:"id"`
	Score                int       `json:"score"`
	Grade                string    `json:"grade"`
	CreatedAt            time.Time `json:"created_at"`
	TotalVulnerabilities int       `json:"total_vulnerabilities"`
}

func (r Report) Summarize() ReportSummary {
	return ReportSummary{
		ID:                   r.ID,
		Score:                r.Score.Score,
		Grade:                r.Score.Grade,
		CreatedAt:            r.CreatedAt,
		TotalVulnerabilities: r.TotalVulnerabilities,
	}
}

type Job struct {
	ID         string
	Kind       ScanKind
	Target     string
	Status     JobStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	ReportID   string
	Results    []ScanResult
	Error      string
}
