package extract

import (
	"regexp"
	"strconv"
	"strings"

	"docrot/internal/lang"
)

// Import statement shapes per language family. The first capture group is
// the imported module as written. Python's pattern doubles for Java and
// Kotlin, which share the dotted form.
var (
	goImportPattern     = regexp.MustCompile(`^\s*import\s+(?:[\w.]+\s+)?"([^"]+)"`)
	goImportGroupStart  = regexp.MustCompile(`^\s*import\s*\(\s*$`)
	goGroupLinePattern  = regexp.MustCompile(`^\s*(?:[\w.]+\s+)?"([^"]+)"`)
	pythonFromPattern   = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\b`)
	javaStaticPattern   = regexp.MustCompile(`^\s*import\s+static\s+([\w.]+)`)
	pythonImportPattern = regexp.MustCompile(`^\s*import\s+([\w.]+)`)
	jsFromPattern       = regexp.MustCompile(`\bfrom\s+['"]([^'"]+)['"]`)
	jsRequirePattern    = regexp.MustCompile(`\brequire\(\s*['"]([^'"]+)['"]`)
	jsBareImportPattern = regexp.MustCompile(`^\s*import\s+['"]([^'"]+)['"]`)
	rustUsePattern      = regexp.MustCompile(`^\s*(?:pub\s+)?use\s+([A-Za-z_][A-Za-z0-9_:]*)`)
)

// scanBlockImports scans a code block body for import statements and adds a
// module reference per imported repository module. startLine is the document
// line of the first body line.
func scanBlockImports(doc *Document, tag, body string, startLine int) {
	for _, r := range importTokens(tag, body) {
		r.Line = startLine + r.Line - 1
		doc.Symbols = append(doc.Symbols, r)
	}
}

// importTokens returns the import references found in text, with lines
// relative to the text (1-indexed). The fence tag selects which language's
// statement shapes apply; an untagged block tries all of them.
func importTokens(tag, text string) []SymbolRef {
	l, tagged := lang.FromFenceTag(tag)
	scanAll := !tagged

	var out []SymbolRef
	seen := make(map[string]bool)
	add := func(raw string, n int) {
		raw = strings.TrimSpace(raw)
		if !keepImportToken(raw) {
			return
		}
		token := NormalizeToken(raw)
		if token == "" {
			return
		}
		key := token + "\x00" + strconv.Itoa(n)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, SymbolRef{Token: token, Raw: raw, Kind: RefImport, Line: n})
	}

	inGoGroup := false
	for i, line := range strings.Split(text, "\n") {
		n := i + 1
		if scanAll || l == lang.LangGo {
			if inGoGroup {
				if strings.HasPrefix(strings.TrimSpace(line), ")") {
					inGoGroup = false
				} else if m := goGroupLinePattern.FindStringSubmatch(line); m != nil {
					add(m[1], n)
				}
				continue
			}
			if goImportGroupStart.MatchString(line) {
				inGoGroup = true
				continue
			}
			if m := goImportPattern.FindStringSubmatch(line); m != nil {
				add(m[1], n)
				continue
			}
		}
		if scanAll || l == lang.LangPython || l == lang.LangJava || l == lang.LangKotlin {
			if m := pythonFromPattern.FindStringSubmatch(line); m != nil {
				add(m[1], n)
				continue
			}
			if m := javaStaticPattern.FindStringSubmatch(line); m != nil {
				add(m[1], n)
				continue
			}
			if m := pythonImportPattern.FindStringSubmatch(line); m != nil {
				add(m[1], n)
				continue
			}
		}
		if scanAll || l == lang.LangJavaScript || l == lang.LangTypeScript || l == lang.LangTSX {
			for _, m := range jsFromPattern.FindAllStringSubmatch(line, -1) {
				add(m[1], n)
			}
			for _, m := range jsRequirePattern.FindAllStringSubmatch(line, -1) {
				add(m[1], n)
			}
			if m := jsBareImportPattern.FindStringSubmatch(line); m != nil {
				add(m[1], n)
			}
		}
		if scanAll || l == lang.LangRust {
			if m := rustUsePattern.FindStringSubmatch(line); m != nil {
				if tok := rustImportToken(m[1]); tok != "" {
					add(tok, n)
				}
			}
		}
	}
	return out
}

// keepImportToken rejects import specifiers that cannot name repository
// modules: relative and scoped JS paths, and hosted module paths whose
// first segment is a domain (github.com/...).
func keepImportToken(tok string) bool {
	if tok == "" || strings.HasPrefix(tok, ".") || strings.HasPrefix(tok, "@") || strings.HasPrefix(tok, "~") {
		return false
	}
	if i := strings.Index(tok, "/"); i >= 0 && strings.Contains(tok[:i], ".") {
		return false
	}
	return true
}

// rustImportToken strips crate-relative prefixes and drops standard library
// roots, which can never resolve against the repository.
func rustImportToken(raw string) string {
	tok := NormalizeToken(raw)
	for _, p := range []string{"crate.", "self.", "super."} {
		for strings.HasPrefix(tok, p) {
			tok = strings.TrimPrefix(tok, p)
		}
	}
	switch strings.SplitN(tok, ".", 2)[0] {
	case "std", "core", "alloc", "crate", "self", "super":
		return ""
	}
	return tok
}
