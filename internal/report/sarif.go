package report

import (
	"encoding/json"

	"docrot/internal/errors"
	"docrot/internal/finding"
	"docrot/internal/version"
)

// SARIF 2.1.0 schema types
// See: https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-v2.1.0.html
//
// The run carries no invocation block: invocations record machine and
// working-directory details, which would break byte-identical output
// across hosts.

// SARIFReport is the top-level SARIF document.
type SARIFReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SARIFRun `json:"runs"`
}

// SARIFRun represents a single analysis run.
type SARIFRun struct {
	Tool    SARIFTool     `json:"tool"`
	Results []SARIFResult `json:"results"`
}

// SARIFTool describes the analysis tool.
type SARIFTool struct {
	Driver SARIFDriver `json:"driver"`
}

// SARIFDriver describes the primary analysis component.
type SARIFDriver struct {
	Name            string      `json:"name"`
	Version         string      `json:"version,omitempty"`
	SemanticVersion string      `json:"semanticVersion,omitempty"`
	InformationURI  string      `json:"informationUri,omitempty"`
	Rules           []SARIFRule `json:"rules,omitempty"`
}

// SARIFRule describes one finding category.
type SARIFRule struct {
	ID                   string                  `json:"id"`
	Name                 string                  `json:"name,omitempty"`
	ShortDescription     *SARIFMessage           `json:"shortDescription,omitempty"`
	DefaultConfiguration *SARIFRuleConfiguration `json:"defaultConfiguration,omitempty"`
}

// SARIFRuleConfiguration describes the default configuration for a rule.
type SARIFRuleConfiguration struct {
	Level string `json:"level,omitempty"` // error, warning, note, none
}

// SARIFResult represents a single finding.
type SARIFResult struct {
	RuleID       string            `json:"ruleId"`
	RuleIndex    int               `json:"ruleIndex"`
	Level        string            `json:"level,omitempty"`
	Message      SARIFMessage      `json:"message"`
	Locations    []SARIFLocation   `json:"locations,omitempty"`
	Fingerprints map[string]string `json:"fingerprints,omitempty"`
}

// SARIFMessage contains text in various formats.
type SARIFMessage struct {
	Text string `json:"text,omitempty"`
}

// SARIFLocation describes where a result was found.
type SARIFLocation struct {
	PhysicalLocation *SARIFPhysicalLocation `json:"physicalLocation,omitempty"`
}

// SARIFPhysicalLocation identifies a file and region.
type SARIFPhysicalLocation struct {
	ArtifactLocation *SARIFArtifactLocation `json:"artifactLocation,omitempty"`
	Region           *SARIFRegion           `json:"region,omitempty"`
}

// SARIFArtifactLocation identifies a file.
type SARIFArtifactLocation struct {
	URI       string `json:"uri,omitempty"`
	URIBaseID string `json:"uriBaseId,omitempty"`
}

// SARIFRegion identifies a region within a file.
type SARIFRegion struct {
	StartLine int `json:"startLine,omitempty"`
	EndLine   int `json:"endLine,omitempty"`
}

// ruleDescriptions holds the short description per category.
var ruleDescriptions = map[string]string{
	finding.CategoryBrokenLink:  "Relative link or anchor that no longer resolves",
	finding.CategoryStaleSymbol: "Referenced symbol not found in the repository",
	finding.CategoryCodeDrift:   "Code example that diverged from its source",
	finding.CategoryDeadURL:     "External URL that failed its liveness check",
}

// ruleDefaultLevels holds the default severity level per category.
var ruleDefaultLevels = map[string]string{
	finding.CategoryBrokenLink:  "warning",
	finding.CategoryStaleSymbol: "warning",
	finding.CategoryCodeDrift:   "error",
	finding.CategoryDeadURL:     "warning",
}

// renderSARIF produces a single run with one rule per category and one
// result per finding.
func renderSARIF(r *Report) ([]byte, error) {
	categories := finding.Categories()
	ruleIndex := make(map[string]int, len(categories))
	rules := make([]SARIFRule, 0, len(categories))
	for i, cat := range categories {
		ruleIndex[cat] = i
		rules = append(rules, SARIFRule{
			ID:               cat,
			Name:             cat,
			ShortDescription: &SARIFMessage{Text: ruleDescriptions[cat]},
			DefaultConfiguration: &SARIFRuleConfiguration{
				Level: ruleDefaultLevels[cat],
			},
		})
	}

	results := make([]SARIFResult, 0, len(r.Findings))
	for _, f := range r.Findings {
		results = append(results, SARIFResult{
			RuleID:    f.Category,
			RuleIndex: ruleIndex[f.Category],
			Level:     severityLevel(f.Severity),
			Message:   SARIFMessage{Text: f.Message},
			Locations: []SARIFLocation{
				{
					PhysicalLocation: &SARIFPhysicalLocation{
						ArtifactLocation: &SARIFArtifactLocation{
							URI:       f.File,
							URIBaseID: "%SRCROOT%",
						},
						Region: &SARIFRegion{
							StartLine: f.Line,
						},
					},
				},
			},
			Fingerprints: map[string]string{
				"docrot/v1": f.Fingerprint,
			},
		})
	}

	doc := SARIFReport{
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Version: "2.1.0",
		Runs: []SARIFRun{
			{
				Tool: SARIFTool{
					Driver: SARIFDriver{
						Name:            "docrot",
						Version:         version.Version,
						SemanticVersion: version.Version,
						InformationURI:  "https://docrot.dev",
						Rules:           rules,
					},
				},
				Results: results,
			},
		},
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.New(errors.OutputFailed, "cannot marshal SARIF report", err)
	}
	return append(data, '\n'), nil
}

// severityLevel converts a finding severity to a SARIF level.
func severityLevel(severity string) string {
	switch severity {
	case finding.SeverityHigh:
		return "error"
	case finding.SeverityMedium:
		return "warning"
	case finding.SeverityLow:
		return "note"
	default:
		return "warning"
	}
}
