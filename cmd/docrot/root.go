package main

import (
	"io"
	"os"

	"log/slog"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"docrot/internal/config"
	"docrot/internal/slogutil"
	"docrot/internal/version"
)

var (
	verbosity int
	quietFlag bool
	noColor   bool
	logFile   string
)

var rootCmd = &cobra.Command{
	Use:   "docrot",
	Short: "docrot - Documentation rot detector",
	Long: `docrot scans a repository for documentation that no longer matches the
code: broken relative links and anchors, references to renamed or deleted
symbols, code examples that drifted from their source, and dead external
URLs.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("docrot version {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	pf.BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all log output")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored log output")
	pf.StringVar(&logFile, "log-file", "", "Also write debug logs to this file")
}

// buildLogger assembles the run logger on stderr, so reports on stdout
// stay clean for piping. Verbosity flags outrank the config file level.
func buildLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	level := slogutil.LevelFromVerbosity(verbosity, quietFlag)
	if verbosity == 0 && !quietFlag && cfg.Logging.Level != "" {
		level = slogutil.LevelFromString(cfg.Logging.Level)
	}

	path := logFile
	if path == "" {
		path = cfg.Logging.File
	}

	return slogutil.Build(os.Stderr, slogutil.Options{
		Level:      level,
		Color:      !noColor && isatty.IsTerminal(os.Stderr.Fd()),
		FilePath:   path,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
	})
}
