package drift

import (
	"os"
	"path/filepath"
	"testing"

	"docrot/internal/adapter"
	"docrot/internal/lang"
	"docrot/internal/resolve"
)

func goAdapter(t *testing.T) adapter.Adapter {
	t.Helper()
	ad := adapter.NewRegistry().ForLanguage(lang.LangGo)
	if ad == nil {
		t.Fatal("no go adapter registered")
	}
	return ad
}

func pyAdapter(t *testing.T) adapter.Adapter {
	t.Helper()
	ad := adapter.NewRegistry().ForLanguage(lang.LangPython)
	if ad == nil {
		t.Fatal("no python adapter registered")
	}
	return ad
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name   string
		block  string
		source string
		py     bool
		symbol string
		class  string
		reason string
	}{
		{
			name:   "comments and layout ignored",
			block:  "func Start(addr string) error {\n    return listen(addr)\n}",
			source: "// Start boots the server.\nfunc Start(addr string) error {\n\treturn listen(addr) // begin\n}",
			symbol: "Start",
			class:  ClassIdentical,
		},
		{
			name:   "parameter added",
			block:  "func Start(addr string) error {\n\treturn listen(addr)\n}",
			source: "func Start(addr string, tls bool) error {\n\treturn listen(addr)\n}",
			symbol: "Start",
			class:  ClassMajor,
			reason: "parameter list changed",
		},
		{
			name:   "statement added",
			block:  "func Start(addr string) error {\n\treturn listen(addr)\n}",
			source: "func Start(addr string) error {\n\tif addr == \"\" {\n\t\taddr = fallback\n\t}\n\treturn listen(addr)\n}",
			symbol: "Start",
			class:  ClassMajor,
			reason: "statement count changed",
		},
		{
			name:   "identifier renamed",
			block:  "func Start(addr string) error {\n\treturn listen(addr)\n}",
			source: "func Start(addr string) error {\n\treturn serve(addr)\n}",
			symbol: "Start",
			class:  ClassMajor,
			reason: "identifiers changed",
		},
		{
			name:   "numeric literal changed",
			block:  "TIMEOUT = 30",
			source: "TIMEOUT = 60",
			py:     true,
			class:  ClassMinor,
			reason: "literal values changed",
		},
		{
			name:   "string literal changed",
			block:  `greeting = "hello"`,
			source: `greeting = "world"`,
			py:     true,
			class:  ClassMinor,
			reason: "literal values changed",
		},
		{
			name:   "punctuation only",
			block:  "result = call(a, b)",
			source: "result = call(a, b,)",
			py:     true,
			class:  ClassMinor,
			reason: "formatting tokens changed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ad := goAdapter(t)
			if tt.py {
				ad = pyAdapter(t)
			}
			class, reason := Compare([]byte(tt.block), []byte(tt.source), ad, tt.symbol)
			if class != tt.class || reason != tt.reason {
				t.Errorf("Compare() = %q, %q; want %q, %q", class, reason, tt.class, tt.reason)
			}
		})
	}
}

func TestCompareStringContentIsNotIdentifierDrift(t *testing.T) {
	// "serve" inside a string must not count as a renamed identifier
	block := `msg = "listen failed"`
	source := `msg = "serve failed"`
	class, reason := Compare([]byte(block), []byte(source), pyAdapter(t), "")
	if class != ClassMinor || reason != "literal values changed" {
		t.Errorf("Compare() = %q, %q; want minor literal change", class, reason)
	}
}

const appGo = `package app

func Start(addr string) error {
	return listen(addr)
}
`

func TestDetect(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "src", "app.go"), []byte(appGo), 0o644); err != nil {
		t.Fatal(err)
	}

	fresh := "func Start(addr string) error {\n\treturn listen(addr)\n}\n"
	stale := "func Start(addr string) error {\n\treturn serve(addr)\n}\n"

	assocs := []resolve.Association{
		{Doc: "README.md", Line: 10, Symbol: "src/app.go", File: "src/app.go",
			StartLine: 3, EndLine: 5, Text: fresh},
		{Doc: "README.md", Line: 20, Symbol: "src/app.go", File: "src/app.go",
			StartLine: 3, EndLine: 5, Text: stale},
		{Doc: "README.md", Line: 30, Symbol: "src/app.go", File: "src/app.go",
			StartLine: 100, EndLine: 120, Text: fresh},
		{Doc: "README.md", Line: 40, Symbol: "src/gone.go", File: "src/gone.go",
			StartLine: 1, EndLine: 2, Text: fresh},
	}

	findings, warnings := Detect(Options{Root: root}, assocs)

	if len(findings) != 2 {
		t.Fatalf("findings = %d, want 2: %+v", len(findings), findings)
	}
	if f := findings[0]; f.Line != 20 || f.Severity != "high" || f.Reason != "identifiers changed" {
		t.Errorf("drift finding = %+v", f)
	}
	if f := findings[1]; f.Line != 30 || f.Reason != "source region removed" {
		t.Errorf("removed region finding = %+v", f)
	}

	if len(warnings) != 1 || warnings[0].Path != "src/gone.go" {
		t.Errorf("warnings = %+v", warnings)
	}
}

func TestDetectTrimsBlockToDeclaration(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "src", "app.go"), []byte(appGo), 0o644); err != nil {
		t.Fatal(err)
	}

	// block carries an import the source region does not; the recorded
	// block span keeps the comparison to the declaration itself
	text := "import \"app/net\"\n\nfunc Start(addr string) error {\n\treturn listen(addr)\n}\n"
	assocs := []resolve.Association{
		{Doc: "README.md", Line: 5, Symbol: "Start", File: "src/app.go",
			StartLine: 3, EndLine: 5, BlockStart: 3, BlockEnd: 5, Text: text},
	}

	findings, warnings := Detect(Options{Root: root}, assocs)
	if len(warnings) != 0 {
		t.Errorf("warnings = %+v", warnings)
	}
	if len(findings) != 0 {
		t.Errorf("trimmed block should match, got %+v", findings)
	}
}
