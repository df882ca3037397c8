// Package resolve checks extracted artifacts against the repository index
// and turns misses into findings. Links and anchors resolve here; external
// URLs are handed off to the liveness checker, and code blocks are bound to
// the source regions the drift detector compares.
package resolve

import (
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"

	"log/slog"

	"docrot/internal/adapter"
	"docrot/internal/extract"
	"docrot/internal/finding"
	"docrot/internal/index"
	"docrot/internal/paths"
	"docrot/internal/slogutil"
)

// Resolver resolves document artifacts against one repository index. It is
// safe for concurrent use; the anchor cache is shared across documents.
type Resolver struct {
	ix       *index.RepoIndex
	registry *adapter.Registry
	logger   *slog.Logger

	mu      sync.Mutex
	anchors map[string]map[string]bool // doc path -> anchor set, nil when unreadable
}

// New creates a Resolver over the index. The registry supplies symbol
// extraction for code block association.
func New(ix *index.RepoIndex, registry *adapter.Registry, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if registry == nil {
		registry = adapter.NewRegistry()
	}
	return &Resolver{
		ix:       ix,
		registry: registry,
		logger:   logger,
		anchors:  make(map[string]map[string]bool),
	}
}

// AddDocument registers a scanned document's anchors so links into it
// resolve without re-reading the file. Documents beyond the scan cap are
// still resolvable; their anchors load lazily on first reference.
func (r *Resolver) AddDocument(doc *extract.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anchors[doc.Path] = doc.Anchors()
}

// URLRef is one external URL occurrence, deferred to the liveness checker.
type URLRef struct {
	URL  string
	Doc  string
	Line int
}

// Links resolves every link in the document. Relative targets and anchors
// are checked against the index immediately; syntactically valid external
// URLs are returned for the liveness phase.
func (r *Resolver) Links(doc *extract.Document) ([]finding.Finding, []URLRef) {
	var findings []finding.Finding
	var urls []URLRef

	for _, l := range doc.Links {
		switch l.Kind {
		case extract.LinkExternal:
			u, err := url.Parse(l.Target)
			if err != nil || u.Host == "" {
				findings = append(findings, finding.BrokenLink(doc.Path, l.Line, l.Target, "malformed URL"))
				continue
			}
			urls = append(urls, URLRef{URL: l.Target, Doc: doc.Path, Line: l.Line})
		case extract.LinkAnchor:
			anchor := extract.NormalizeAnchor(strings.TrimPrefix(l.Target, "#"))
			if !r.hasAnchor(doc.Path, anchor) {
				findings = append(findings, finding.BrokenLink(doc.Path, l.Line, l.Target, "anchor not found"))
			}
		case extract.LinkRelative:
			if f, bad := r.relative(doc.Path, l); bad {
				findings = append(findings, f)
			}
		}
	}
	return findings, urls
}

// relative checks one relative link target. The query string is ignored,
// the fragment is validated against the target document's anchors.
func (r *Resolver) relative(docPath string, l extract.Link) (finding.Finding, bool) {
	raw := l.Target
	frag := ""
	if i := strings.Index(raw, "#"); i >= 0 {
		raw, frag = raw[:i], raw[i+1:]
	}
	if i := strings.Index(raw, "?"); i >= 0 {
		raw = raw[:i]
	}
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	if raw == "" {
		// "?v=2#usage" style self-reference
		if frag != "" && !r.hasAnchor(docPath, extract.NormalizeAnchor(frag)) {
			return finding.BrokenLink(docPath, l.Line, l.Target, "anchor not found"), true
		}
		return finding.Finding{}, false
	}

	target, ok := paths.ResolveDocLink(docPath, raw)
	if !ok {
		return finding.BrokenLink(docPath, l.Line, l.Target, "outside repository"), true
	}
	if r.ix.HasFile(target) {
		if frag != "" && r.ix.IsDoc(target) {
			if !r.hasAnchor(target, extract.NormalizeAnchor(frag)) {
				return finding.BrokenLink(docPath, l.Line, l.Target, "anchor not found"), true
			}
		}
		return finding.Finding{}, false
	}
	if r.ix.HasDir(target) {
		return finding.Finding{}, false
	}
	return finding.BrokenLink(docPath, l.Line, l.Target, ""), true
}

// Renderers dedupe repeated headings by suffixing a counter.
var dedupedAnchorPattern = regexp.MustCompile(`^(.*)-\d+$`)

func (r *Resolver) hasAnchor(docPath, anchor string) bool {
	if anchor == "" {
		return true
	}
	set := r.anchorsFor(docPath)
	if set == nil {
		// unreadable or unparseable target; never guess rot
		return true
	}
	if set[anchor] {
		return true
	}
	if m := dedupedAnchorPattern.FindStringSubmatch(anchor); m != nil && set[m[1]] {
		return true
	}
	return false
}

// anchorsFor returns the anchor set of a document, loading and caching it
// on first use for link targets outside the scanned set.
func (r *Resolver) anchorsFor(docPath string) map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.anchors[docPath]; ok {
		return set
	}

	var set map[string]bool
	data, err := os.ReadFile(paths.JoinRepoPath(r.ix.Root, docPath))
	if err != nil {
		r.logger.Debug("anchor target unreadable", "path", docPath, "error", err)
	} else {
		set = extract.Parse(docPath, data).Anchors()
	}
	r.anchors[docPath] = set
	return set
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
