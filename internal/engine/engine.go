// Package engine orchestrates a scan end to end: index the repository,
// extract documentation artifacts, resolve them against the index, then
// run drift comparison and URL liveness before aggregating findings.
//
// The engine is category-driven and knows nothing about tiers or exit
// codes; callers enable checks by listing finding categories and decide
// what the summary means. Cancellation at any point after indexing still
// aggregates completed work instead of discarding it.
package engine

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docrot/internal/adapter"
	"docrot/internal/drift"
	"docrot/internal/extract"
	"docrot/internal/finding"
	"docrot/internal/index"
	"docrot/internal/linkcheck"
	"docrot/internal/paths"
	"docrot/internal/resolve"
	"docrot/internal/slogutil"
	"docrot/internal/storage"
)

// LinkCheckOptions tunes the URL liveness phase. Zero values take the
// linkcheck defaults; CacheTTL > 0 persists verdicts under the repo's
// state directory (or CachePath) unless a Cache is injected.
type LinkCheckOptions struct {
	Timeout      time.Duration
	TotalTimeout time.Duration
	Retries      int
	Concurrency  int
	PerHost      int
	RPS          float64
	UserAgent    string
	CacheTTL     time.Duration
	CachePath    string
	Cache        linkcheck.Store
	Client       *http.Client
}

// Options configures one scan.
type Options struct {
	// Root is the repository root to scan.
	Root string

	// Ignore holds doublestar glob patterns excluded from the walk.
	Ignore []string

	// Categories enables checks by finding category. Empty enables every
	// category except dead-url, so a default scan does no network I/O.
	Categories []string

	// MaxDocs caps how many documentation files are scanned; 0 = unlimited.
	MaxDocs int

	// Workers sizes the CPU-bound pools; 0 = GOMAXPROCS.
	Workers int

	// MaxFileSize is the per-file read cap in bytes.
	MaxFileSize int64

	// ScipPath points at a SCIP index; empty auto-detects index.scip.
	ScipPath string

	// AdaptersPath points at a TOML file with custom extraction adapters.
	// A missing file is not an error.
	AdaptersPath string

	LinkCheck LinkCheckOptions

	Logger *slog.Logger
}

// Result is the outcome of a scan. Findings are deduplicated and in
// report order; Warnings record degraded inputs and never affect the
// exit decision.
type Result struct {
	Findings []finding.Finding
	Warnings []finding.Warning
	Summary  finding.Summary
}

// docVerdict carries one document's resolution output. Slots keep doc
// order so parallel resolution stays deterministic.
type docVerdict struct {
	findings []finding.Finding
	urls     []resolve.URLRef
	assocs   []resolve.Association
}

// Scan runs the scan. The only fatal outcomes are an unreadable root and
// cancellation before the index exists; everything later degrades to
// warnings or findings.
func Scan(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	// The scan id ties log lines together; it never reaches a report.
	logger = logger.With("scan_id", uuid.NewString())

	enabled := enabledCategories(opts.Categories)
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var warnings []finding.Warning

	registry := adapter.NewRegistry()
	if opts.AdaptersPath != "" {
		p := opts.AdaptersPath
		if !filepath.IsAbs(p) {
			p = filepath.Join(opts.Root, p)
		}
		if err := registry.LoadCustom(p); err != nil {
			warnings = append(warnings, finding.Warnf(opts.AdaptersPath, "custom adapters not loaded: %v", err))
		}
	}

	ix, indexWarnings, err := index.Build(ctx, opts.Root, index.Options{
		Ignore:      opts.Ignore,
		MaxDocs:     opts.MaxDocs,
		Workers:     workers,
		MaxFileSize: opts.MaxFileSize,
		ScipPath:    opts.ScipPath,
		Adapters:    registry,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, indexWarnings...)

	docs, extractWarnings := extractDocs(ctx, ix, workers, opts.MaxFileSize)
	warnings = append(warnings, extractWarnings...)

	resolver := resolve.New(ix, registry, logger)
	scanned := 0
	for _, d := range docs {
		if d == nil {
			continue
		}
		scanned++
		resolver.AddDocument(d)
	}

	verdicts := resolveDocs(ctx, resolver, docs, enabled, workers)

	agg := finding.NewAggregator()
	var assocs []resolve.Association
	var urlRefs []resolve.URLRef
	for _, v := range verdicts {
		agg.Add(v.findings...)
		assocs = append(assocs, v.assocs...)
		urlRefs = append(urlRefs, v.urls...)
	}

	// Drift reads source files, liveness does network I/O; neither touches
	// the other's data, so the two phases overlap.
	var driftFindings, urlFindings []finding.Finding
	var driftWarnings, urlWarnings []finding.Warning

	var g errgroup.Group
	if enabled[finding.CategoryCodeDrift] && len(assocs) > 0 && ctx.Err() == nil {
		g.Go(func() error {
			driftFindings, driftWarnings = drift.Detect(drift.Options{
				Root:     ix.Root,
				Registry: registry,
				Logger:   logger,
			}, assocs)
			return nil
		})
	}
	if enabled[finding.CategoryDeadURL] && len(urlRefs) > 0 && ctx.Err() == nil {
		g.Go(func() error {
			urlFindings, urlWarnings = checkURLs(ctx, opts, urlRefs, logger)
			return nil
		})
	}
	_ = g.Wait()

	agg.Add(driftFindings...)
	agg.Add(urlFindings...)
	warnings = append(warnings, driftWarnings...)
	warnings = append(warnings, urlWarnings...)

	if err := ctx.Err(); err != nil {
		warnings = append(warnings, finding.Warnf("", "scan interrupted: %v", err))
	}

	findings := agg.Findings()
	logger.Info("scan complete",
		"docs", scanned,
		"findings", len(findings),
		"warnings", len(warnings),
		"elapsed", time.Since(start))

	return &Result{
		Findings: findings,
		Warnings: warnings,
		Summary:  finding.Summarize(findings, scanned),
	}, nil
}

// enabledCategories expands the category list into a lookup set. The
// empty default deliberately leaves out dead-url.
func enabledCategories(cats []string) map[string]bool {
	enabled := make(map[string]bool, len(cats))
	if len(cats) == 0 {
		enabled[finding.CategoryBrokenLink] = true
		enabled[finding.CategoryStaleSymbol] = true
		enabled[finding.CategoryCodeDrift] = true
		return enabled
	}
	for _, c := range cats {
		enabled[c] = true
	}
	return enabled
}

// extractDocs parses every scanned documentation file on a worker pool.
// Slot i belongs to doc i; unreadable docs leave a nil slot and a warning.
func extractDocs(ctx context.Context, ix *index.RepoIndex, workers int, maxSize int64) ([]*extract.Document, []finding.Warning) {
	if maxSize <= 0 {
		maxSize = index.DefaultMaxFileSize
	}
	relPaths := ix.Docs()
	docs := make([]*extract.Document, len(relPaths))
	warningSlots := make([]*finding.Warning, len(relPaths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rel := range relPaths {
		i, rel := i, rel
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			abs := paths.JoinRepoPath(ix.Root, rel)
			fi, err := os.Stat(abs)
			if err != nil {
				w := finding.Warnf(rel, "cannot stat: %v", err)
				warningSlots[i] = &w
				return nil
			}
			if fi.Size() > maxSize {
				w := finding.Warnf(rel, "document exceeds size cap, skipped")
				warningSlots[i] = &w
				return nil
			}
			data, err := os.ReadFile(abs)
			if err != nil {
				w := finding.Warnf(rel, "cannot read: %v", err)
				warningSlots[i] = &w
				return nil
			}
			docs[i] = extract.Parse(rel, data)
			return nil
		})
	}
	_ = g.Wait()

	var warnings []finding.Warning
	for _, w := range warningSlots {
		if w != nil {
			warnings = append(warnings, *w)
		}
	}
	return docs, warnings
}

// resolveDocs runs link, symbol, and block resolution per document in
// parallel. Block resolution runs when either code-drift (associations)
// or broken-link (bad source hints) wants its output.
func resolveDocs(ctx context.Context, resolver *resolve.Resolver, docs []*extract.Document, enabled map[string]bool, workers int) []docVerdict {
	verdicts := make([]docVerdict, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, d := range docs {
		if d == nil {
			continue
		}
		i, d := i, d
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			v := &verdicts[i]
			if enabled[finding.CategoryBrokenLink] || enabled[finding.CategoryDeadURL] {
				linkFindings, urls := resolver.Links(d)
				if enabled[finding.CategoryBrokenLink] {
					v.findings = append(v.findings, linkFindings...)
				}
				if enabled[finding.CategoryDeadURL] {
					v.urls = urls
				}
			}
			if enabled[finding.CategoryStaleSymbol] {
				v.findings = append(v.findings, resolver.Symbols(d)...)
			}
			if enabled[finding.CategoryCodeDrift] || enabled[finding.CategoryBrokenLink] {
				assocs, blockFindings := resolver.Blocks(d)
				if enabled[finding.CategoryBrokenLink] {
					v.findings = append(v.findings, blockFindings...)
				}
				if enabled[finding.CategoryCodeDrift] {
					v.assocs = assocs
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return verdicts
}

// checkURLs opens the verdict cache when configured, runs the liveness
// pass, and converts dead verdicts back into per-occurrence findings.
func checkURLs(ctx context.Context, opts Options, refs []resolve.URLRef, logger *slog.Logger) ([]finding.Finding, []finding.Warning) {
	var warnings []finding.Warning

	lc := opts.LinkCheck
	cache := lc.Cache
	if cache == nil && lc.CacheTTL > 0 {
		var uc *storage.URLCache
		var err error
		if lc.CachePath != "" {
			uc, err = storage.OpenURLCacheAt(lc.CachePath, lc.CacheTTL, logger)
		} else {
			uc, err = storage.OpenURLCache(opts.Root, lc.CacheTTL, logger)
		}
		if err != nil {
			warnings = append(warnings, finding.Warnf("", "url cache unavailable: %v", err))
		} else {
			defer func() { _ = uc.Close() }()
			cache = uc
		}
	}

	checker := linkcheck.New(linkcheck.Options{
		Timeout:      lc.Timeout,
		TotalTimeout: lc.TotalTimeout,
		Retries:      lc.Retries,
		Concurrency:  lc.Concurrency,
		PerHost:      lc.PerHost,
		RPS:          lc.RPS,
		UserAgent:    lc.UserAgent,
		Cache:        cache,
		Client:       lc.Client,
		Logger:       logger,
	})

	urls := make([]string, 0, len(refs))
	for _, ref := range refs {
		urls = append(urls, ref.URL)
	}
	verdicts := checker.Check(ctx, urls)

	var findings []finding.Finding
	for _, ref := range refs {
		v, ok := verdicts[ref.URL]
		if !ok || v.Live {
			continue
		}
		findings = append(findings, finding.DeadURL(ref.Doc, ref.Line, ref.URL, v.Reason, v.Definitive))
	}
	return findings, warnings
}
