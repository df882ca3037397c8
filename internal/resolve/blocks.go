package resolve

import (
	"path"
	"strings"

	"docrot/internal/adapter"
	"docrot/internal/extract"
	"docrot/internal/finding"
	"docrot/internal/index"
	"docrot/internal/lang"
	"docrot/internal/paths"
)

// Association binds a code block to the source region it claims to mirror.
type Association struct {
	Doc    string
	Line   int    // opening fence line in the document
	Symbol string // matched symbol name, or the hinted path
	File   string // repo-relative source file

	// Source region; StartLine 0 means the whole file.
	StartLine int
	EndLine   int

	// Region within the block body (1-indexed lines); BlockStart 0 means
	// all of it.
	BlockStart int
	BlockEnd   int

	Text string // block body
}

// Blocks associates the document's code blocks with source regions.
// Explicitly hinted blocks (fence file= attributes, front matter source)
// bind to the named file; the rest bind best effort through the first
// declaration the block defines that matches exactly one index entry.
// Blocks with no plausible match stay unassociated. The findings report
// hints naming files that no longer exist.
func (r *Resolver) Blocks(doc *extract.Document) ([]Association, []finding.Finding) {
	var assocs []Association
	var findings []finding.Finding

	for _, b := range doc.Blocks {
		hint := b.Hint
		if hint == "" {
			hint = doc.Source
		}
		if hint != "" {
			a, f := r.hintedBlock(doc.Path, b, hint)
			if f != nil {
				findings = append(findings, *f)
			}
			if a != nil {
				assocs = append(assocs, *a)
			}
			continue
		}
		if a, ok := r.matchedBlock(doc.Path, b); ok {
			assocs = append(assocs, a)
		}
	}
	return assocs, findings
}

func (r *Resolver) hintedBlock(docPath string, b extract.CodeBlock, raw string) (*Association, *finding.Finding) {
	h, ok := extract.ParseSourceHint(raw)
	if !ok {
		r.logger.Debug("unparseable source hint", "doc", docPath, "line", b.Line, "hint", raw)
		return nil, nil
	}
	target := r.resolveHintPath(docPath, h.Path)
	if target == "" {
		f := finding.BrokenLink(docPath, b.Line, h.Path, "code example source not found")
		return nil, &f
	}
	return &Association{
		Doc:       docPath,
		Line:      b.Line,
		Symbol:    h.Path,
		File:      target,
		StartLine: h.StartLine,
		EndLine:   h.EndLine,
		Text:      b.Text,
	}, nil
}

// resolveHintPath accepts hint paths written relative to the document or
// to the repository root.
func (r *Resolver) resolveHintPath(docPath, p string) string {
	if t, ok := paths.ResolveDocLink(docPath, p); ok && r.ix.HasFile(t) {
		return t
	}
	if t := path.Clean(p); !strings.HasPrefix(t, "..") && r.ix.HasFile(t) {
		return t
	}
	return ""
}

// matchedBlock tries the first few declarations a block defines against
// the index and associates on a unique match.
func (r *Resolver) matchedBlock(docPath string, b extract.CodeBlock) (Association, bool) {
	l, ok := blockLanguage(b.Tag)
	if !ok {
		return Association{}, false
	}
	ad := r.registry.ForLanguage(l)
	if ad == nil {
		return Association{}, false
	}

	tried := 0
	for _, sym := range ad.Extract([]byte(b.Text)) {
		if sym.Kind != adapter.KindFunction && sym.Kind != adapter.KindType {
			continue
		}
		tried++
		if tried > 3 {
			break
		}
		e, ok := r.uniqueEntry(sym.Name, l)
		if !ok {
			continue
		}
		return Association{
			Doc:        docPath,
			Line:       b.Line,
			Symbol:     e.Name,
			File:       e.File,
			StartLine:  e.StartLine,
			EndLine:    e.EndLine,
			BlockStart: sym.Line,
			BlockEnd:   sym.EndLine,
			Text:       b.Text,
		}, true
	}
	return Association{}, false
}

// uniqueEntry finds the single index entry a declared name points at,
// preferring definitions in the block's language and declarations over
// module entries. Anything still ambiguous is rejected rather than
// guessed.
func (r *Resolver) uniqueEntry(name string, l lang.Language) (index.SymbolEntry, bool) {
	entries := r.ix.Lookup(name)
	if len(entries) == 0 {
		for _, e := range r.ix.LookupSuffix(lastSegment(name)) {
			if _, ok := entryMatch(e, name); ok {
				entries = append(entries, e)
			}
		}
	}

	var decls []index.SymbolEntry
	for _, e := range entries {
		if e.Kind != adapter.KindModule {
			decls = append(decls, e)
		}
	}
	if len(decls) > 0 {
		entries = decls
	}
	var sameLang []index.SymbolEntry
	for _, e := range entries {
		if e.Language == l {
			sameLang = append(sameLang, e)
		}
	}
	if len(sameLang) > 0 {
		entries = sameLang
	}
	if len(entries) == 1 {
		return entries[0], true
	}
	return index.SymbolEntry{}, false
}

func blockLanguage(tag string) (lang.Language, bool) {
	if tag == "" {
		return "", false
	}
	return lang.FromFenceTag(tag)
}
