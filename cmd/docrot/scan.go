package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/spf13/cobra"

	"docrot/internal/config"
	"docrot/internal/engine"
	"docrot/internal/errors"
	"docrot/internal/report"
)

var (
	scanFormat      string
	scanOutput      string
	scanCheckURLs   bool
	scanMaxDocs     int
	scanCategories  []string
	scanIgnore      []string
	scanWorkers     int
	scanScipPath    string
	scanAdapters    string
	scanTimeoutMs   int
	scanRetries     int
	scanConcurrency int
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a repository for documentation rot",
	Long: `Scan indexes the repository, extracts links, symbol references, and code
examples from its documentation, and reports everything that no longer
matches the code.

Exits 1 when rot is found, 0 when clean, and 2 on failure.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	f := scanCmd.Flags()
	f.StringVarP(&scanFormat, "format", "f", "", "Report format: text, json, or sarif")
	f.StringVarP(&scanOutput, "output", "o", "", "Report destination (default stdout; .gz/.zst compress)")
	f.BoolVar(&scanCheckURLs, "check-urls", false, "Check external URLs for liveness")
	f.IntVar(&scanMaxDocs, "max-docs", 50, "Maximum documentation files to scan (0 = unlimited)")
	f.StringSliceVar(&scanCategories, "categories", nil, "Finding categories to check")
	f.StringSliceVar(&scanIgnore, "ignore", nil, "Glob patterns to exclude from the scan")
	f.IntVar(&scanWorkers, "workers", 0, "Worker pool size (0 = all CPUs)")
	f.StringVar(&scanScipPath, "scip", "", "Path to a SCIP index (default: auto-detect index.scip)")
	f.StringVar(&scanAdapters, "adapters", "", "Path to a custom adapter definition file")
	f.IntVar(&scanTimeoutMs, "timeout", 0, "Per-request URL check timeout in milliseconds")
	f.IntVar(&scanRetries, "retries", 0, "Transient URL check retries")
	f.IntVar(&scanConcurrency, "concurrency", 0, "URL check worker count")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return err
	}
	applyScanFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return errors.New(errors.ConfigInvalid, "invalid configuration", err)
	}

	logger, closer, err := buildLogger(cfg)
	if err != nil {
		return errors.New(errors.ConfigInvalid, "cannot open log file", err)
	}
	defer func() { _ = closer.Close() }()

	// An interrupt cancels the scan; completed findings still report.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := engine.Scan(ctx, engineOptions(root, cfg, logger))
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		if w.Path != "" {
			logger.Warn(w.Message, "path", w.Path)
		} else {
			logger.Warn(w.Message)
		}
	}

	data, err := report.Render(&report.Report{
		Findings: result.Findings,
		Warnings: result.Warnings,
		Summary:  result.Summary,
	}, cfg.Output.Format)
	if err != nil {
		return err
	}
	if err := report.Write(cfg.Output.Path, data); err != nil {
		return err
	}

	if result.Summary.Total > 0 {
		exitCode = exitRot
	}
	return nil
}

// applyScanFlags lays explicit flags over the loaded configuration,
// completing the flag > env > file > default precedence.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Output.Format = scanFormat
	}
	if flags.Changed("output") {
		cfg.Output.Path = scanOutput
	}
	if flags.Changed("max-docs") {
		cfg.Scan.MaxDocs = scanMaxDocs
	}
	if flags.Changed("categories") {
		cfg.Scan.Categories = scanCategories
	}
	if flags.Changed("workers") {
		cfg.Scan.Workers = scanWorkers
	}
	if flags.Changed("scip") {
		cfg.Index.ScipPath = scanScipPath
	}
	if flags.Changed("adapters") {
		cfg.Index.AdaptersPath = scanAdapters
	}
	if flags.Changed("timeout") {
		cfg.LinkCheck.TimeoutMs = scanTimeoutMs
	}
	if flags.Changed("retries") {
		cfg.LinkCheck.Retries = scanRetries
	}
	if flags.Changed("concurrency") {
		cfg.LinkCheck.MaxConcurrent = scanConcurrency
	}
	if len(scanIgnore) > 0 {
		cfg.Scan.Ignore = append(cfg.Scan.Ignore, scanIgnore...)
	}
	if scanCheckURLs && !hasCategory(cfg.Scan.Categories, config.CategoryDeadURL) {
		cfg.Scan.Categories = append(cfg.Scan.Categories, config.CategoryDeadURL)
	}
}

func engineOptions(root string, cfg *config.Config, logger *slog.Logger) engine.Options {
	return engine.Options{
		Root:         root,
		Ignore:       cfg.Scan.Ignore,
		Categories:   cfg.Scan.Categories,
		MaxDocs:      cfg.Scan.MaxDocs,
		Workers:      cfg.Scan.Workers,
		MaxFileSize:  cfg.Scan.MaxFileSizeBytes,
		ScipPath:     cfg.Index.ScipPath,
		AdaptersPath: cfg.Index.AdaptersPath,
		LinkCheck: engine.LinkCheckOptions{
			Timeout:      time.Duration(cfg.LinkCheck.TimeoutMs) * time.Millisecond,
			TotalTimeout: time.Duration(cfg.LinkCheck.TotalTimeoutMs) * time.Millisecond,
			Retries:      cfg.LinkCheck.Retries,
			Concurrency:  cfg.LinkCheck.MaxConcurrent,
			PerHost:      cfg.LinkCheck.PerHost,
			RPS:          cfg.LinkCheck.RequestsPerSecond,
			UserAgent:    cfg.LinkCheck.UserAgent,
			CacheTTL:     time.Duration(cfg.LinkCheck.CacheTTLHours) * time.Hour,
			CachePath:    cfg.LinkCheck.CachePath,
		},
		Logger: logger,
	}
}

func hasCategory(cats []string, want string) bool {
	for _, c := range cats {
		if c == want {
			return true
		}
	}
	return false
}
