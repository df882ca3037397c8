package finding

import (
	"fmt"
	"sort"
)

// Warning is the informational channel for degraded inputs: unreadable
// files, malformed front matter, cache failures. Warnings are never rot
// findings and never affect the exit decision.
type Warning struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// Warnf builds a Warning with a formatted message.
func Warnf(path, format string, args ...any) Warning {
	return Warning{Path: path, Message: fmt.Sprintf(format, args...)}
}

// Summary counts findings for reports and for the caller's exit decision.
type Summary struct {
	DocsScanned int            `json:"docs_scanned"`
	Total       int            `json:"total"`
	BySeverity  map[string]int `json:"by_severity"`
	ByCategory  map[string]int `json:"by_category"`
}

// Aggregator collects verdicts from every check, then produces the
// deduplicated, deterministically ordered finding list. Add is append-only;
// callers merge from concurrent checks through a single goroutine.
type Aggregator struct {
	findings []Finding
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Add appends findings without deduplication.
func (a *Aggregator) Add(findings ...Finding) {
	a.findings = append(a.findings, findings...)
}

// Len returns the number of findings added so far, before deduplication.
func (a *Aggregator) Len() int {
	return len(a.findings)
}

// Findings returns the deduplicated finding list in report order. Exact
// fingerprint duplicates collapse to the first occurrence: the same URL
// dead in two documents stays two findings because the location differs,
// while the same verdict reported twice for one location collapses.
// Ordering is by file, line, category, then target, so repeated scans of
// unchanged input serialize byte-identically.
func (a *Aggregator) Findings() []Finding {
	seen := make(map[string]bool, len(a.findings))
	out := make([]Finding, 0, len(a.findings))
	for _, f := range a.findings {
		if seen[f.Fingerprint] {
			continue
		}
		seen[f.Fingerprint] = true
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// Summarize counts findings by severity and category.
func Summarize(findings []Finding, docsScanned int) Summary {
	s := Summary{
		DocsScanned: docsScanned,
		Total:       len(findings),
		BySeverity:  make(map[string]int),
		ByCategory:  make(map[string]int),
	}
	for _, f := range findings {
		s.BySeverity[f.Severity]++
		s.ByCategory[f.Category]++
	}
	return s
}
