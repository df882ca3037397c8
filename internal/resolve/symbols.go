package resolve

import (
	"sort"
	"strings"

	"docrot/internal/adapter"
	"docrot/internal/extract"
	"docrot/internal/finding"
	"docrot/internal/index"
	"docrot/internal/lang"
)

// Module roots that belong to language standard libraries. Import
// references under these never resolve against the repository and are
// skipped rather than flagged. The index always wins: a repository module
// that shadows one of these names resolves before this list is consulted.
var wellKnownRoots = map[string]bool{
	// python
	"os": true, "sys": true, "re": true, "io": true, "abc": true,
	"ast": true, "csv": true, "xml": true, "html": true, "http": true,
	"json": true, "math": true, "time": true, "uuid": true, "enum": true,
	"copy": true, "glob": true, "gzip": true, "ssl": true, "email": true,
	"base64": true, "hashlib": true, "string": true, "struct": true,
	"socket": true, "select": true, "queue": true, "heapq": true,
	"bisect": true, "array": true, "random": true, "decimal": true,
	"numbers": true, "datetime": true, "calendar": true, "zoneinfo": true,
	"typing": true, "urllib": true, "pathlib": true, "tempfile": true,
	"shutil": true, "pickle": true, "sqlite3": true, "zlib": true,
	"tarfile": true, "zipfile": true, "argparse": true, "configparser": true,
	"logging": true, "platform": true, "subprocess": true, "threading": true,
	"multiprocessing": true, "concurrent": true, "asyncio": true,
	"contextlib": true, "dataclasses": true, "functools": true,
	"itertools": true, "collections": true, "operator": true,
	"inspect": true, "importlib": true, "traceback": true, "warnings": true,
	"weakref": true, "unittest": true, "doctest": true, "pprint": true,
	"textwrap": true, "unicodedata": true, "signal": true, "errno": true,
	"ctypes": true, "statistics": true, "secrets": true, "hmac": true,
	// jvm
	"java": true, "javax": true, "jakarta": true, "kotlin": true,
	"kotlinx": true, "android": true, "androidx": true, "scala": true,
}

// Symbols resolves every symbol and module reference in the document.
// Inline-code references resolve against the symbol namespace, import
// references against modules and source paths. Ambiguity is reported, not
// guessed away.
func (r *Resolver) Symbols(doc *extract.Document) []finding.Finding {
	var findings []finding.Finding
	for _, s := range doc.Symbols {
		switch s.Kind {
		case extract.RefInlineCode:
			if f, bad := r.inlineRef(doc.Path, s); bad {
				findings = append(findings, f)
			}
		case extract.RefImport:
			if f, bad := r.importRef(doc.Path, s); bad {
				findings = append(findings, f)
			}
		}
	}
	return findings
}

func (r *Resolver) inlineRef(docPath string, s extract.SymbolRef) (finding.Finding, bool) {
	if len(r.ix.Lookup(s.Token)) > 0 {
		return finding.Finding{}, false
	}
	names := suffixNames(r.ix, s.Token, "")
	switch len(names) {
	case 1:
		return finding.Finding{}, false
	case 0:
		return finding.StaleSymbolNotFound(docPath, s.Line, s.Token), true
	default:
		return finding.StaleSymbolAmbiguous(docPath, s.Line, s.Token, names), true
	}
}

// importRef resolves a module token through the ladder exact module name,
// path form, module-prefix strip, then unique suffix. Single-segment tokens
// that stay unresolved are skipped: bare names ("os", "fs") are almost
// always external packages.
func (r *Resolver) importRef(docPath string, s extract.SymbolRef) (finding.Finding, bool) {
	token := s.Token
	if r.moduleResolves(token) {
		return finding.Finding{}, false
	}
	segs := strings.Split(token, ".")
	if len(segs) == 1 {
		return finding.Finding{}, false
	}
	if r.moduleResolves(strings.Join(segs[1:], ".")) {
		return finding.Finding{}, false
	}

	names := suffixNames(r.ix, token, adapter.KindModule)
	switch len(names) {
	case 1:
		return finding.Finding{}, false
	case 0:
		if wellKnownRoots[segs[0]] {
			return finding.Finding{}, false
		}
		return finding.StaleSymbolNotFound(docPath, s.Line, token), true
	default:
		return finding.StaleSymbolAmbiguous(docPath, s.Line, token, names), true
	}
}

// moduleResolves reports whether a dotted token names an indexed module, a
// source file, or a directory.
func (r *Resolver) moduleResolves(token string) bool {
	if token == "" {
		return false
	}
	for _, e := range r.ix.Lookup(token) {
		if e.Kind == adapter.KindModule {
			return true
		}
	}
	p := strings.ReplaceAll(token, ".", "/")
	if r.ix.HasDir(p) {
		return true
	}
	for _, ext := range sourceExtensions {
		if r.ix.HasFile(p + ext) {
			return true
		}
	}
	return false
}

var sourceExtensions = []string{
	".py", ".go", ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs",
	".rs", ".java", ".kt", ".kts",
}

// suffixNames returns the sorted distinct qualified names whose suffix is
// the token. kind narrows the namespace ("" matches every kind).
func suffixNames(ix *index.RepoIndex, token, kind string) []string {
	seen := make(map[string]bool)
	for _, e := range ix.LookupSuffix(lastSegment(token)) {
		if kind != "" && e.Kind != kind {
			continue
		}
		if name, ok := entryMatch(e, token); ok {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// entryMatch reports whether an index entry satisfies a reference token,
// and the qualified name to surface in candidate lists. Declarations are
// stored semi-qualified ("Server.start"), so module-qualified references
// ("app.server.Server.start") match through the defining file's module
// path.
func entryMatch(e index.SymbolEntry, token string) (string, bool) {
	if e.Name == token || strings.HasSuffix(e.Name, "."+token) {
		return e.Name, true
	}
	if e.Kind == adapter.KindModule {
		return "", false
	}
	full := lang.ModuleName(e.File) + "." + e.Name
	if full == token || strings.HasSuffix(full, "."+token) {
		return full, true
	}
	return "", false
}
