// Package index builds the repository snapshot that every check resolves
// against: one walk over the tree producing an immutable index of files
// and symbol definitions.
package index

import (
	"sort"
	"strings"

	"docrot/internal/lang"
)

// File kinds. Docs are extracted for references, source files are mined
// for symbols, everything else is indexed for existence only.
const (
	KindDoc    = "doc"
	KindSource = "source"
	KindOther  = "other"
)

// Symbol provenance. SCIP entries replace adapter entries for the same
// qualified name because a language indexer outranks pattern extraction.
const (
	SourceAdapter = "adapter"
	SourceSCIP    = "scip"
)

// FileEntry describes one indexed file.
type FileEntry struct {
	Path  string // repo-relative, forward slashes
	Kind  string // doc, source, or other
	Hash  string // xxhash64 of content, lowercase hex
	Lines int    // 0 for files indexed without reading
}

// SymbolEntry is one definition available as a reference target.
type SymbolEntry struct {
	Name      string // dotted qualified name ("Server.Start", "app.config")
	Kind      string // adapter kind vocabulary (module, function, type, constant)
	File      string // repo-relative defining file
	StartLine int
	EndLine   int
	Language  lang.Language
	Source    string // adapter or scip
}

// RepoIndex is the immutable result of one repository walk. All lookup
// methods are safe for concurrent readers; nothing mutates the index
// after Build returns.
type RepoIndex struct {
	// Root is the absolute scan root, used to reopen files for drift
	// comparison. It never appears in findings or reports.
	Root string

	// Files maps canonical relative paths to their entries.
	Files map[string]FileEntry

	docs     []string
	docTotal int
	dirs     map[string]bool
	symbols  []SymbolEntry
	byName   map[string][]SymbolEntry
	bySuffix map[string][]SymbolEntry
}

// HasFile reports whether the canonical relative path was indexed.
func (ix *RepoIndex) HasFile(path string) bool {
	_, ok := ix.Files[path]
	return ok
}

// File returns the entry for a canonical relative path.
func (ix *RepoIndex) File(path string) (FileEntry, bool) {
	e, ok := ix.Files[path]
	return e, ok
}

// HasDir reports whether any indexed file lives under the given relative
// directory. Links may legitimately point at directories ("see ./docs").
func (ix *RepoIndex) HasDir(path string) bool {
	return ix.dirs[strings.TrimSuffix(path, "/")]
}

// IsDoc reports whether the path was indexed as a documentation file.
func (ix *RepoIndex) IsDoc(path string) bool {
	e, ok := ix.Files[path]
	return ok && e.Kind == KindDoc
}

// Docs returns the documentation files selected for scanning, in sorted
// order and capped by the MaxDocs option. Capped-out docs remain in Files
// so links to them still resolve.
func (ix *RepoIndex) Docs() []string {
	return ix.docs
}

// DocTotal returns the number of documentation files found, before the
// MaxDocs cap.
func (ix *RepoIndex) DocTotal() int {
	return ix.docTotal
}

// FileCount returns the number of indexed files.
func (ix *RepoIndex) FileCount() int {
	return len(ix.Files)
}

// SymbolCount returns the number of indexed symbol definitions.
func (ix *RepoIndex) SymbolCount() int {
	return len(ix.symbols)
}

// Symbols returns all definitions sorted by name, file, then start line.
func (ix *RepoIndex) Symbols() []SymbolEntry {
	return ix.symbols
}

// Lookup returns every definition whose qualified name matches exactly.
// Multiple languages may define the same name; the resolver decides what
// that means.
func (ix *RepoIndex) Lookup(name string) []SymbolEntry {
	return ix.byName[name]
}

// LookupSuffix returns every definition whose trailing name segment
// matches. The resolver narrows these candidates against the full
// reference token.
func (ix *RepoIndex) LookupSuffix(segment string) []SymbolEntry {
	return ix.bySuffix[segment]
}

// finalize sorts the symbol set and builds the lookup maps. Called once
// at the end of Build.
func (ix *RepoIndex) finalize(symbols []SymbolEntry) {
	sort.Slice(symbols, func(i, j int) bool {
		if symbols[i].Name != symbols[j].Name {
			return symbols[i].Name < symbols[j].Name
		}
		if symbols[i].File != symbols[j].File {
			return symbols[i].File < symbols[j].File
		}
		return symbols[i].StartLine < symbols[j].StartLine
	})
	ix.symbols = symbols
	ix.byName = make(map[string][]SymbolEntry)
	ix.bySuffix = make(map[string][]SymbolEntry)
	for _, s := range symbols {
		ix.byName[s.Name] = append(ix.byName[s.Name], s)
		ix.bySuffix[lastSegment(s.Name)] = append(ix.bySuffix[lastSegment(s.Name)], s)
	}
}

// lastSegment returns the trailing dot-separated segment of a name.
func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// addDirs records every parent directory of a file path.
func addDirs(dirs map[string]bool, path string) {
	for {
		i := strings.LastIndexByte(path, '/')
		if i < 0 {
			return
		}
		path = path[:i]
		if dirs[path] {
			return
		}
		dirs[path] = true
	}
}
