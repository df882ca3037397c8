package finding

import (
	"reflect"
	"strings"
	"testing"
)

func TestFingerprintStable(t *testing.T) {
	a := BrokenLink("docs/guide.md", 12, "setup.md", "")
	b := BrokenLink("docs/guide.md", 12, "setup.md", "")
	if a.Fingerprint != b.Fingerprint {
		t.Errorf("same inputs produced different fingerprints: %q vs %q", a.Fingerprint, b.Fingerprint)
	}
	if len(a.Fingerprint) != 16 {
		t.Errorf("fingerprint length = %d, want 16", len(a.Fingerprint))
	}
	if a.Fingerprint != strings.ToLower(a.Fingerprint) {
		t.Errorf("fingerprint %q is not lowercase hex", a.Fingerprint)
	}
}

func TestFingerprintComponents(t *testing.T) {
	base := BrokenLink("docs/guide.md", 12, "setup.md", "")
	tests := []struct {
		name  string
		other Finding
	}{
		{"different category", DeadURL("docs/guide.md", 12, "setup.md", "404", true)},
		{"different file", BrokenLink("docs/other.md", 12, "setup.md", "")},
		{"different line", BrokenLink("docs/guide.md", 13, "setup.md", "")},
		{"different target", BrokenLink("docs/guide.md", 12, "install.md", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.other.Fingerprint == base.Fingerprint {
				t.Errorf("fingerprint did not change: %q", base.Fingerprint)
			}
		})
	}
}

func TestFingerprintIgnoresReason(t *testing.T) {
	// Reason and message are presentation; identity is category+location+target.
	a := BrokenLink("docs/guide.md", 12, "setup.md", "")
	b := BrokenLink("docs/guide.md", 12, "setup.md", "anchor not found")
	if a.Fingerprint != b.Fingerprint {
		t.Errorf("reason changed the fingerprint: %q vs %q", a.Fingerprint, b.Fingerprint)
	}
}

func TestConstructorPolicy(t *testing.T) {
	tests := []struct {
		name         string
		f            Finding
		wantCategory string
		wantSeverity string
		wantReason   string
		wantTarget   string
	}{
		{
			name:         "broken link",
			f:            BrokenLink("guide.md", 3, "missing.md", ""),
			wantCategory: CategoryBrokenLink,
			wantSeverity: SeverityMedium,
			wantTarget:   "missing.md",
		},
		{
			name:         "anchor not found",
			f:            BrokenLink("guide.md", 3, "setup.md#install", "anchor not found"),
			wantCategory: CategoryBrokenLink,
			wantSeverity: SeverityMedium,
			wantReason:   "anchor not found",
			wantTarget:   "setup.md#install",
		},
		{
			name:         "symbol not found",
			f:            StaleSymbolNotFound("guide.md", 9, "app.config.Loader"),
			wantCategory: CategoryStaleSymbol,
			wantSeverity: SeverityMedium,
			wantReason:   "not found",
			wantTarget:   "app.config.Loader",
		},
		{
			name:         "ambiguous symbol",
			f:            StaleSymbolAmbiguous("guide.md", 9, "Start", []string{"Client.Start", "Server.Start"}),
			wantCategory: CategoryStaleSymbol,
			wantSeverity: SeverityLow,
			wantReason:   "ambiguous",
			wantTarget:   "Start",
		},
		{
			name:         "major drift",
			f:            CodeDrift("guide.md", 20, "parse_config", "major", "parameter list changed"),
			wantCategory: CategoryCodeDrift,
			wantSeverity: SeverityHigh,
			wantReason:   "parameter list changed",
			wantTarget:   "parse_config",
		},
		{
			name:         "minor drift",
			f:            CodeDrift("guide.md", 20, "parse_config", "minor", "literal values changed"),
			wantCategory: CategoryCodeDrift,
			wantSeverity: SeverityLow,
			wantReason:   "literal values changed",
			wantTarget:   "parse_config",
		},
		{
			name:         "dead URL definitive",
			f:            DeadURL("guide.md", 30, "https://example.com/old", "404", true),
			wantCategory: CategoryDeadURL,
			wantSeverity: SeverityMedium,
			wantReason:   "404",
			wantTarget:   "https://example.com/old",
		},
		{
			name:         "dead URL transient",
			f:            DeadURL("guide.md", 30, "https://example.com/flaky", "unreachable after 3 attempts", false),
			wantCategory: CategoryDeadURL,
			wantSeverity: SeverityLow,
			wantReason:   "unreachable after 3 attempts",
			wantTarget:   "https://example.com/flaky",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.f.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", tt.f.Category, tt.wantCategory)
			}
			if tt.f.Severity != tt.wantSeverity {
				t.Errorf("Severity = %q, want %q", tt.f.Severity, tt.wantSeverity)
			}
			if tt.f.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", tt.f.Reason, tt.wantReason)
			}
			if tt.f.Target != tt.wantTarget {
				t.Errorf("Target = %q, want %q", tt.f.Target, tt.wantTarget)
			}
			if tt.f.Message == "" {
				t.Error("Message is empty")
			}
			if tt.f.Fingerprint == "" {
				t.Error("Fingerprint is empty")
			}
		})
	}
}

func TestDriftMessageNamesClass(t *testing.T) {
	f := CodeDrift("guide.md", 20, "parse_config", "major", "parameter list changed")
	if !strings.Contains(f.Message, "major") {
		t.Errorf("message %q does not name the drift class", f.Message)
	}
	if !strings.Contains(f.Message, "parameter list changed") {
		t.Errorf("message %q does not name the delta", f.Message)
	}
}

func TestAggregatorDedupe(t *testing.T) {
	agg := NewAggregator()
	// Same location+target from two code paths collapses.
	agg.Add(BrokenLink("guide.md", 3, "missing.md", ""))
	agg.Add(BrokenLink("guide.md", 3, "missing.md", "anchor not found"))
	// Same URL from two documents stays two findings.
	agg.Add(DeadURL("guide.md", 10, "https://example.com/old", "404", true))
	agg.Add(DeadURL("other.md", 4, "https://example.com/old", "404", true))

	got := agg.Findings()
	if len(got) != 3 {
		t.Fatalf("Findings() returned %d findings, want 3", len(got))
	}
	if got[0].File != "guide.md" || got[0].Line != 3 {
		t.Errorf("first finding at %s:%d, want guide.md:3", got[0].File, got[0].Line)
	}
	if got[0].Reason != "" {
		t.Errorf("dedupe kept later occurrence: reason %q", got[0].Reason)
	}
}

func TestAggregatorOrderDeterministic(t *testing.T) {
	findings := []Finding{
		StaleSymbolNotFound("b.md", 5, "gone.Thing"),
		BrokenLink("a.md", 9, "x.md", ""),
		DeadURL("a.md", 2, "https://example.com/b", "404", true),
		DeadURL("a.md", 2, "https://example.com/a", "404", true),
		BrokenLink("a.md", 2, "y.md", ""),
	}

	fwd := NewAggregator()
	fwd.Add(findings...)
	rev := NewAggregator()
	for i := len(findings) - 1; i >= 0; i-- {
		rev.Add(findings[i])
	}

	got := fwd.Findings()
	if !reflect.DeepEqual(got, rev.Findings()) {
		t.Fatal("insertion order changed the report order")
	}

	wantOrder := []string{
		"y.md",                  // a.md:2 broken-link
		"https://example.com/a", // a.md:2 dead-url, target tiebreak
		"https://example.com/b",
		"x.md",       // a.md:9
		"gone.Thing", // b.md:5
	}
	for i, want := range wantOrder {
		if got[i].Target != want {
			t.Errorf("position %d: target %q, want %q", i, got[i].Target, want)
		}
	}
}

func TestSummarize(t *testing.T) {
	findings := []Finding{
		BrokenLink("a.md", 1, "x.md", ""),
		StaleSymbolAmbiguous("a.md", 2, "Start", []string{"A.Start", "B.Start"}),
		CodeDrift("b.md", 3, "run", "major", "identifiers changed"),
		CodeDrift("b.md", 8, "stop", "minor", "literal values changed"),
	}
	s := Summarize(findings, 7)

	if s.Total != 4 {
		t.Errorf("Total = %d, want 4", s.Total)
	}
	if s.DocsScanned != 7 {
		t.Errorf("DocsScanned = %d, want 7", s.DocsScanned)
	}
	wantSev := map[string]int{SeverityHigh: 1, SeverityMedium: 1, SeverityLow: 2}
	if !reflect.DeepEqual(s.BySeverity, wantSev) {
		t.Errorf("BySeverity = %v, want %v", s.BySeverity, wantSev)
	}
	wantCat := map[string]int{CategoryBrokenLink: 1, CategoryStaleSymbol: 1, CategoryCodeDrift: 2}
	if !reflect.DeepEqual(s.ByCategory, wantCat) {
		t.Errorf("ByCategory = %v, want %v", s.ByCategory, wantCat)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, 0)
	if s.Total != 0 {
		t.Errorf("Total = %d, want 0", s.Total)
	}
	if len(s.BySeverity) != 0 || len(s.ByCategory) != 0 {
		t.Errorf("empty scan produced non-empty counts: %v %v", s.BySeverity, s.ByCategory)
	}
}
