package domain

import (
	"fmt"
	"strings"
)

type Severity string

const (
	Critical Severity = "critical"
	High     Severity = "high"
	Medium   Severity = "medium"
	Low      Severity = "low"
	Info     Severity = "info"
)

// Severities is ordered most severe first.
var Severities = []Severity{Critical, High, Medium, Low, Info}

var weights = map[Severity]int{
	Critical: 10,
	High:     5,
	Medium:   2,
	Low:      1,
	Info:     0,
}

// Weight is the score penalty of one finding at this severity. Unknown values
// weigh nothing.
func (s Severity) Weight() int { return weights[s] }

// Rank orders severities; higher is more severe. Unknown values rank below Info.
func (s Severity) Rank() int {
	for i, v := range Severities {
		if v == s {
			return len(Severities) - i
		}
	}
	return 0
}

func (s Severity) Valid() bool {
	_, ok := weights[s]
	return ok
}

func ParseSeverity(raw string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown severity %q", ErrValidation, raw)
	}
	return s, nil
}

// SeverityTable maps one tool's severity vocabulary onto Severity. Lookups are
// case-insensitive and unknown values fall back to Default.
type SeverityTable struct {
	Values  map[string]Severity
	Default Severity
}

func (t SeverityTable) Map(raw string) Severity {
	if s, ok := t.Values[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return t.Default
}

func ParseScanKind(raw string) (ScanKind, error) {
	switch k := ScanKind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindDependency, KindCode, KindImage, KindAll:
		return k, nil
	case "docker":
		return KindImage, nil
	case "":
		return KindAll, nil
	default:
		return "", fmt.Errorf("%w: unknown scan type %q", ErrValidation, raw)
	}
}
