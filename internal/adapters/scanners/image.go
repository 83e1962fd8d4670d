package scanners

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"secaudit/internal/domain"
)

var trivySeverities = domain.SeverityTable{
	Values: map[string]domain.Severity{
		"critical": domain.Critical,
		"high":     domain.High,
		"medium":   domain.Medium,
		"low":      domain.Low,
		"unknown":  domain.Info,
	},
	Default: domain.Info,
}

// Image scans a container image with trivy. The scan target, when given, is
// the image reference.
type Image struct {
	DefaultImage string
	tool
}

func NewImage(defaultImage string, timeout time.Duration, run CommandRunner) *Image {
	return &Image{DefaultImage: defaultImage, tool: tool{run: run, timeout: timeout}}
}

func (i *Image) Kind() domain.ScanKind { return domain.KindImage }

func (i *Image) Scan(ctx context.Context, target string) (domain.ScanResult, error) {
	started := time.Now()
	image := i.DefaultImage
	if target != "" {
		image = target
	}
	out, reason := i.invoke(ctx, "", "trivy", "image", "--format", "json", "--severity", "CRITICAL,HIGH,MEDIUM,LOW", image)
	if reason != "" {
		log.Printf("image scan degraded: %s", reason)
		return domain.DegradedResult(domain.KindImage, reason, started), nil
	}
	vulns, err := parseTrivy(out, image)
	if err != nil {
		log.Printf("image scan degraded: %v", err)
		return domain.DegradedResult(domain.KindImage, err.Error(), started), nil
	}
	return domain.NewScanResult(domain.KindImage, vulns, started), nil
}

type trivyReport struct {
	Results []trivyResult `json:"Results"`
}

type trivyResult struct {
	Target          string               `json:"Target"`
	Vulnerabilities []trivyVulnerability `json:"Vulnerabilities"`
}

type trivyVulnerability struct {
	VulnerabilityID  string               `json:"VulnerabilityID"`
	PkgName          string               `json:"PkgName"`
	InstalledVersion string               `json:"InstalledVersion"`
	FixedVersion     string               `json:"FixedVersion"`
	Title            string               `json:"Title"`
	Description      string               `json:"Description"`
	Severity         string               `json:"Severity"`
	CVSS             map[string]trivyCVSS `json:"CVSS"`
}

type trivyCVSS struct {
	V2Score float64 `json:"V2Score"`
	V3Score float64 `json:"V3Score"`
}

func parseTrivy(data []byte, image string) ([]domain.Vulnerability, error) {
	var report trivyReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse trivy output: %w", err)
	}
	var vulns []domain.Vulnerability
	for _, res := range report.Results {
		target := res.Target
		if target == "" {
			target = image
		}
		for _, v := range res.Vulnerabilities {
			vulns = append(vulns, trivyToVulnerability(v, target))
		}
	}
	return vulns, nil
}

func trivyToVulnerability(v trivyVulnerability, target string) domain.Vulnerability {
	id := orDefault(v.VulnerabilityID, "TRIVY-UNKNOWN")
	pkg := orDefault(v.PkgName, "unknown")
	title := orDefault(v.Title, "Docker vulnerability")

	out := domain.Vulnerability{
		ID:                id,
		Severity:          trivySeverities.Map(v.Severity),
		Description:       orDefault(v.Description, title),
		AffectedComponent: fmt.Sprintf("%s@%s (in %s)", pkg, orDefault(v.InstalledVersion, "unknown"), target),
		CVSSScore:         cvssScore(v.CVSS),
		Recommendation:    ptr("No fix available yet"),
	}
	if strings.HasPrefix(v.VulnerabilityID, "CVE") {
		out.CVEID = ptr(v.VulnerabilityID)
	}
	if v.FixedVersion != "" {
		out.Recommendation = ptr(fmt.Sprintf("Update %s to version %s", pkg, v.FixedVersion))
	}
	return out
}

// cvssScore prefers the nvd entry, then other vendors by name, and within a
// vendor the v3 score over v2.
func cvssScore(byVendor map[string]trivyCVSS) *float64 {
	vendors := make([]string, 0, len(byVendor))
	for name := range byVendor {
		vendors = append(vendors, name)
	}
	sort.Slice(vendors, func(i, j int) bool {
		if (vendors[i] == "nvd") != (vendors[j] == "nvd") {
			return vendors[i] == "nvd"
		}
		return vendors[i] < vendors[j]
	})
	for _, name := range vendors {
		c := byVendor[name]
		if c.V3Score > 0 {
			return ptr(c.V3Score)
		}
		if c.V2Score > 0 {
			return ptr(c.V2Score)
		}
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
