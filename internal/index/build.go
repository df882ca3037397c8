package index

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"docrot/internal/adapter"
	"docrot/internal/errors"
	"docrot/internal/finding"
	"docrot/internal/lang"
	"docrot/internal/paths"
	"docrot/internal/scip"
	"docrot/internal/slogutil"
)

// DefaultMaxFileSize is the size above which files are indexed without
// reading their content.
const DefaultMaxFileSize = 10 << 20

// scipFileName is the conventional SCIP index location at the repo root.
const scipFileName = "index.scip"

// defaultSkipDirs are directory names never walked, matching what doc
// renderers and indexers conventionally exclude.
var defaultSkipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
	"dist":         true,
	"build":        true,
}

// Options configures a repository walk.
type Options struct {
	// Ignore holds doublestar glob patterns matched against canonical
	// relative paths, on top of the default skip set.
	Ignore []string

	// MaxDocs caps how many documentation files are scanned; 0 means
	// unlimited. Capped files stay indexed as link targets.
	MaxDocs int

	// Workers sizes the extraction pool; 0 means GOMAXPROCS.
	Workers int

	// MaxFileSize is the opaque-indexing threshold in bytes; 0 means
	// DefaultMaxFileSize.
	MaxFileSize int64

	// ScipPath points at a SCIP index, relative paths resolved against
	// the root. Empty auto-detects index.scip at the root.
	ScipPath string

	// Adapters supplies symbol extraction; nil uses the builtin registry.
	Adapters *adapter.Registry

	Logger *slog.Logger
}

// fileResult carries one file's contribution back to the merge step.
type fileResult struct {
	pos      int
	skip     bool
	entry    FileEntry
	symbols  []SymbolEntry
	warnings []finding.Warning
}

// symKey identifies a definition for collision and precedence checks.
// Collisions are scoped to the defining file: the same name declared in
// two files is two legitimate definitions (the resolver reports such
// references as ambiguous), while a re-declaration inside one file keeps
// only the first. Modules occupy their own namespace: a file named
// config.go and a function named config are different things.
type symKey struct {
	lang   lang.Language
	name   string
	module bool
	file   string
}

// Build walks root once and produces the scan's repository snapshot.
//
// The only fatal outcome is an unreadable root; every per-file failure
// degrades to a warning and the walk continues with partial data.
func Build(ctx context.Context, root string, opts Options) (*RepoIndex, []finding.Warning, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	registry := opts.Adapters
	if registry == nil {
		registry = adapter.NewRegistry()
	}
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, errors.New(errors.IndexFailed, "resolving scan root "+root, err)
	}
	fi, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.New(errors.RootNotFound, fmt.Sprintf("scan root %s does not exist", root), err)
		}
		return nil, nil, errors.New(errors.IndexFailed, fmt.Sprintf("cannot read scan root %s", root), err)
	}
	if !fi.IsDir() {
		return nil, nil, errors.New(errors.RootNotDirectory, fmt.Sprintf("scan root %s is not a directory", root), nil)
	}

	var warnings []finding.Warning
	ignore := make([]string, 0, len(opts.Ignore))
	for _, p := range opts.Ignore {
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			warnings = append(warnings, finding.Warnf("", "ignore pattern %q is invalid, skipping", p))
			continue
		}
		ignore = append(ignore, p)
	}

	files, walkWarnings, err := walkFiles(absRoot, ignore)
	if err != nil {
		return nil, nil, err
	}
	warnings = append(warnings, walkWarnings...)

	// Per-file extraction is embarrassingly parallel; workers share
	// nothing and the merge below is the only synchronization point.
	results := make([]fileResult, len(files))
	ch := make(chan fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rel := range files {
		i, rel := i, rel
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := processFile(absRoot, rel, maxSize, registry)
			r.pos = i
			ch <- r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, warnings, errors.New(errors.Interrupted, "indexing interrupted", err)
	}
	close(ch)
	for r := range ch {
		results[r.pos] = r
	}

	ix := &RepoIndex{
		Root:  absRoot,
		Files: make(map[string]FileEntry, len(files)),
		dirs:  make(map[string]bool),
	}

	var symbols []SymbolEntry
	defined := make(map[symKey]int)
	var docAll []string
	for _, r := range results {
		warnings = append(warnings, r.warnings...)
		if r.skip {
			continue
		}
		ix.Files[r.entry.Path] = r.entry
		addDirs(ix.dirs, r.entry.Path)
		if r.entry.Kind == KindDoc {
			docAll = append(docAll, r.entry.Path)
		}
		for _, s := range r.symbols {
			k := symKey{s.Language, s.Name, s.Kind == adapter.KindModule, s.File}
			if _, ok := defined[k]; ok {
				warnings = append(warnings, finding.Warnf(s.File,
					"duplicate symbol %q, keeping the first definition", s.Name))
				continue
			}
			defined[k] = len(symbols)
			symbols = append(symbols, s)
		}
	}

	symbols = mergeSCIP(ix, symbols, defined, absRoot, opts.ScipPath, &warnings, logger)

	ix.docTotal = len(docAll)
	if opts.MaxDocs > 0 && len(docAll) > opts.MaxDocs {
		warnings = append(warnings, finding.Warnf("",
			"document cap reached: scanning %d of %d documents", opts.MaxDocs, len(docAll)))
		docAll = docAll[:opts.MaxDocs]
	}
	ix.docs = docAll
	ix.finalize(symbols)

	logger.Debug("repository indexed",
		"files", ix.FileCount(),
		"docs", len(ix.docs),
		"symbols", ix.SymbolCount(),
		"warnings", len(warnings),
		"elapsed", time.Since(start))
	return ix, warnings, nil
}

// walkFiles collects canonical relative paths of every regular file under
// root, honoring the default skip set and ignore patterns, in sorted order.
func walkFiles(absRoot string, ignore []string) ([]string, []finding.Warning, error) {
	var files []string
	var warnings []finding.Warning
	err := filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == absRoot {
				return err
			}
			warnings = append(warnings, finding.Warnf(relOf(absRoot, p), "walk error: %v", err))
			return nil
		}
		rel := relOf(absRoot, p)
		if d.IsDir() {
			if rel == "." {
				return nil
			}
			name := d.Name()
			if defaultSkipDirs[name] || name == paths.LocalStateDir {
				return fs.SkipDir
			}
			if matchesAny(ignore, rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if matchesAny(ignore, rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, warnings, errors.New(errors.IndexFailed, "walking repository", err)
	}
	sort.Strings(files)
	return files, warnings, nil
}

// processFile indexes one file: kind, content hash, line count, and for
// source files the extracted symbols plus a synthesized module symbol so
// import-style references resolve.
func processFile(absRoot, rel string, maxSize int64, registry *adapter.Registry) fileResult {
	var res fileResult
	abs := paths.JoinRepoPath(absRoot, rel)

	kind := KindOther
	var ad adapter.Adapter
	if lang.IsDocPath(rel) {
		kind = KindDoc
	} else if a := registry.ForPath(rel); a != nil {
		kind = KindSource
		ad = a
	}

	fi, err := os.Stat(abs)
	if err != nil {
		res.skip = true
		res.warnings = append(res.warnings, finding.Warnf(rel, "cannot stat: %v", err))
		return res
	}

	// Oversize files are hashed streaming and never read whole; they stay
	// valid link targets but contribute no declaration symbols.
	if fi.Size() > maxSize {
		hash, err := hashFile(abs)
		if err != nil {
			res.skip = true
			res.warnings = append(res.warnings, finding.Warnf(rel, "cannot read: %v", err))
			return res
		}
		res.entry = FileEntry{Path: rel, Kind: kind, Hash: hash}
		if kind == KindSource {
			res.symbols = append(res.symbols, moduleSymbol(rel, ad, 1))
		}
		return res
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		res.skip = true
		res.warnings = append(res.warnings, finding.Warnf(rel, "cannot read: %v", err))
		return res
	}

	res.entry = FileEntry{
		Path:  rel,
		Kind:  kind,
		Hash:  fmt.Sprintf("%x", xxhash.Sum64(data)),
		Lines: countLines(data),
	}
	if kind != KindSource {
		return res
	}

	res.symbols = append(res.symbols, moduleSymbol(rel, ad, res.entry.Lines))
	if isBinary(data) {
		return res
	}
	for _, s := range ad.Extract(data) {
		res.symbols = append(res.symbols, SymbolEntry{
			Name:      s.Name,
			Kind:      s.Kind,
			File:      rel,
			StartLine: s.Line,
			EndLine:   s.EndLine,
			Language:  ad.Language(),
			Source:    SourceAdapter,
		})
	}
	return res
}

// mergeSCIP folds a SCIP index, when one exists, into the symbol set.
// SCIP entries replace adapter entries for the same name; symbols in
// files outside the walk (ignored or generated elsewhere) are dropped.
func mergeSCIP(ix *RepoIndex, symbols []SymbolEntry, defined map[symKey]int, absRoot, scipPath string, warnings *[]finding.Warning, logger *slog.Logger) []SymbolEntry {
	switch {
	case scipPath == "":
		scipPath = filepath.Join(absRoot, scipFileName)
	case !filepath.IsAbs(scipPath):
		scipPath = filepath.Join(absRoot, scipPath)
	}

	sx, err := scip.Load(scipPath)
	if err != nil {
		*warnings = append(*warnings, finding.Warnf("", "SCIP index ignored: %v", err))
		return symbols
	}
	if sx == nil {
		return symbols
	}

	added, replaced := 0, 0
	for _, s := range sx.Symbols {
		p := paths.NormalizePath(s.Path)
		if !ix.HasFile(p) {
			continue
		}
		l, _ := lang.FromPath(p)
		entry := SymbolEntry{
			Name:      s.Name,
			Kind:      s.Kind,
			File:      p,
			StartLine: s.Line,
			EndLine:   s.EndLine,
			Language:  l,
			Source:    SourceSCIP,
		}
		k := symKey{l, s.Name, false, p}
		prev, ok := defined[k]
		if !ok {
			defined[k] = len(symbols)
			symbols = append(symbols, entry)
			added++
			continue
		}
		if symbols[prev].Source == SourceSCIP {
			continue
		}
		// Indexers that omit enclosing ranges report single-line spans;
		// keep the adapter's wider region so drift comparison still has
		// a body to read.
		if entry.EndLine <= entry.StartLine && symbols[prev].EndLine > symbols[prev].StartLine {
			entry.EndLine = symbols[prev].EndLine
		}
		symbols[prev] = entry
		replaced++
	}
	logger.Debug("SCIP symbols merged", "tool", sx.Tool, "added", added, "replaced", replaced)
	return symbols
}

// moduleSymbol synthesizes the import-path symbol for a source file.
func moduleSymbol(rel string, ad adapter.Adapter, lines int) SymbolEntry {
	if lines < 1 {
		lines = 1
	}
	return SymbolEntry{
		Name:      lang.ModuleName(rel),
		Kind:      adapter.KindModule,
		File:      rel,
		StartLine: 1,
		EndLine:   lines,
		Language:  ad.Language(),
		Source:    SourceAdapter,
	}
}

func matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func relOf(absRoot, p string) string {
	rel, err := filepath.Rel(absRoot, p)
	if err != nil {
		return paths.NormalizePath(p)
	}
	return paths.NormalizePath(rel)
}

// hashFile hashes a file streaming, for content too large to hold.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

// isBinary sniffs for a NUL byte in the leading window, the same
// heuristic git uses.
func isBinary(data []byte) bool {
	n := len(data)
	if n > 8000 {
		n = 8000
	}
	return bytes.IndexByte(data[:n], 0) >= 0
}
