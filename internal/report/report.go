// Package report serializes scan results to the output formats: a human
// text report, stable JSON, and SARIF 2.1.0 for static-analysis
// consumers. Every format is deterministic: scanning an unchanged
// repository twice produces byte-identical output, so reports carry no
// timestamps, scan ids, or absolute paths.
package report

import (
	"encoding/json"
	"fmt"

	"docrot/internal/errors"
	"docrot/internal/finding"
)

// Supported output formats.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatSARIF = "sarif"
)

// Report is a completed scan ready for serialization.
type Report struct {
	Findings []finding.Finding
	Warnings []finding.Warning
	Summary  finding.Summary
}

// Render serializes the report in the named format. An empty format
// renders text.
func Render(r *Report, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return renderJSON(r)
	case FormatSARIF:
		return renderSARIF(r)
	case FormatText, "":
		return renderText(r), nil
	default:
		return nil, errors.New(errors.OutputFailed, fmt.Sprintf("unknown report format %q", format), nil)
	}
}

// jsonReport is the stable JSON document shape. Findings marshal with
// their own stable field names; map keys sort alphabetically under
// encoding/json, keeping the output deterministic.
type jsonReport struct {
	DocsScanned int               `json:"docs_scanned"`
	Total       int               `json:"total"`
	BySeverity  map[string]int    `json:"by_severity"`
	ByCategory  map[string]int    `json:"by_category"`
	Findings    []finding.Finding `json:"findings"`
	Warnings    []finding.Warning `json:"warnings,omitempty"`
}

func renderJSON(r *Report) ([]byte, error) {
	doc := jsonReport{
		DocsScanned: r.Summary.DocsScanned,
		Total:       r.Summary.Total,
		BySeverity:  r.Summary.BySeverity,
		ByCategory:  r.Summary.ByCategory,
		Findings:    r.Findings,
		Warnings:    r.Warnings,
	}
	if doc.Findings == nil {
		doc.Findings = []finding.Finding{}
	}
	if doc.BySeverity == nil {
		doc.BySeverity = map[string]int{}
	}
	if doc.ByCategory == nil {
		doc.ByCategory = map[string]int{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.New(errors.OutputFailed, "cannot marshal report", err)
	}
	return append(data, '\n'), nil
}
