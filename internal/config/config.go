// Package config loads and validates scan configuration.
//
// Configuration lives in .docrot.yaml at the repository root. Every value
// has a working default; the file and DOCROT_* environment variables are
// optional. CLI flags are bound on top by the command layer, giving the
// precedence: flag > env > file > default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"docrot/internal/errors"
	"docrot/internal/finding"
)

// ConfigFileName is the config file viper looks for at the repo root
// (resolved as .docrot.yaml).
const ConfigFileName = ".docrot"

// Config represents the complete docrot configuration (v1 schema)
type Config struct {
	Version int `json:"version" yaml:"version" mapstructure:"version"`

	Scan      ScanConfig      `json:"scan" yaml:"scan" mapstructure:"scan"`
	Index     IndexConfig     `json:"index" yaml:"index" mapstructure:"index"`
	LinkCheck LinkCheckConfig `json:"linkCheck" yaml:"linkCheck" mapstructure:"linkCheck"`
	Output    OutputConfig    `json:"output" yaml:"output" mapstructure:"output"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// ScanConfig controls which files are scanned and how
type ScanConfig struct {
	Ignore           []string `json:"ignore" yaml:"ignore" mapstructure:"ignore"`
	Categories       []string `json:"categories" yaml:"categories" mapstructure:"categories"`
	MaxDocs          int      `json:"maxDocs" yaml:"maxDocs" mapstructure:"maxDocs"`
	Workers          int      `json:"workers" yaml:"workers" mapstructure:"workers"`
	MaxFileSizeBytes int64    `json:"maxFileSizeBytes" yaml:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
}

// IndexConfig controls symbol index sources
type IndexConfig struct {
	// ScipPath points at a SCIP index consumed for precise symbols.
	// Empty means auto-detect index.scip at the repo root.
	ScipPath string `json:"scipPath" yaml:"scipPath" mapstructure:"scipPath"`
	// AdaptersPath points at a TOML file with custom extraction patterns.
	AdaptersPath string `json:"adaptersPath" yaml:"adaptersPath" mapstructure:"adaptersPath"`
}

// LinkCheckConfig controls external URL liveness checking
type LinkCheckConfig struct {
	TimeoutMs         int     `json:"timeoutMs" yaml:"timeoutMs" mapstructure:"timeoutMs"`
	TotalTimeoutMs    int     `json:"totalTimeoutMs" yaml:"totalTimeoutMs" mapstructure:"totalTimeoutMs"`
	MaxConcurrent     int     `json:"maxConcurrent" yaml:"maxConcurrent" mapstructure:"maxConcurrent"`
	PerHost           int     `json:"perHost" yaml:"perHost" mapstructure:"perHost"`
	RequestsPerSecond float64 `json:"requestsPerSecond" yaml:"requestsPerSecond" mapstructure:"requestsPerSecond"`
	Retries           int     `json:"retries" yaml:"retries" mapstructure:"retries"`
	CacheTTLHours     int     `json:"cacheTtlHours" yaml:"cacheTtlHours" mapstructure:"cacheTtlHours"`
	// CachePath overrides the verdict cache location; empty means
	// <root>/.docrot/cache.db.
	CachePath string `json:"cachePath" yaml:"cachePath" mapstructure:"cachePath"`
	UserAgent string `json:"userAgent" yaml:"userAgent" mapstructure:"userAgent"`
}

// OutputConfig controls the report destination
type OutputConfig struct {
	Format string `json:"format" yaml:"format" mapstructure:"format"`
	Path   string `json:"path" yaml:"path" mapstructure:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level" mapstructure:"level"`
	File       string `json:"file" yaml:"file" mapstructure:"file"`
	MaxSize    string `json:"maxSize" yaml:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" yaml:"maxBackups" mapstructure:"maxBackups"`
}

// Category slugs, mirrored from the finding vocabulary so config callers
// need not import it.
const (
	CategoryBrokenLink  = finding.CategoryBrokenLink
	CategoryStaleSymbol = finding.CategoryStaleSymbol
	CategoryCodeDrift   = finding.CategoryCodeDrift
	CategoryDeadURL     = finding.CategoryDeadURL
)

// AllCategories returns the category slugs in canonical order
func AllCategories() []string {
	return finding.Categories()
}

// ValidFormats lists the supported report formats
var ValidFormats = []string{"text", "json", "sarif"}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Scan: ScanConfig{
			Ignore:           []string{},
			Categories:       []string{CategoryBrokenLink, CategoryStaleSymbol, CategoryCodeDrift},
			MaxDocs:          50,
			Workers:          0, // 0 = GOMAXPROCS
			MaxFileSizeBytes: 10 * 1024 * 1024,
		},
		Index: IndexConfig{
			ScipPath:     "",
			AdaptersPath: ".docrot/adapters.toml",
		},
		LinkCheck: LinkCheckConfig{
			TimeoutMs:         5000,
			TotalTimeoutMs:    60000,
			MaxConcurrent:     8,
			PerHost:           2,
			RequestsPerSecond: 4,
			Retries:           2,
			CacheTTLHours:     24,
			CachePath:         "",
			UserAgent:         "",
		},
		Output: OutputConfig{
			Format: "text",
			Path:   "",
		},
		Logging: LoggingConfig{
			Level:      "",
			File:       "",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from .docrot.yaml at the repo root,
// falling back to defaults when no file exists. DOCROT_* environment
// variables override file values (DOCROT_SCAN_MAXDOCS=10).
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Configure viper
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(repoRoot)

	v.SetEnvPrefix("DOCROT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file; absence is not an error
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.New(errors.ConfigInvalid, "cannot read config file", err)
		}
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "cannot parse config", err)
	}

	return &cfg, nil
}

// setDefaults registers every default so env overrides work without a file
func setDefaults(v *viper.Viper) {
	def := DefaultConfig()

	v.SetDefault("version", def.Version)
	v.SetDefault("scan.ignore", def.Scan.Ignore)
	v.SetDefault("scan.categories", def.Scan.Categories)
	v.SetDefault("scan.maxDocs", def.Scan.MaxDocs)
	v.SetDefault("scan.workers", def.Scan.Workers)
	v.SetDefault("scan.maxFileSizeBytes", def.Scan.MaxFileSizeBytes)
	v.SetDefault("index.scipPath", def.Index.ScipPath)
	v.SetDefault("index.adaptersPath", def.Index.AdaptersPath)
	v.SetDefault("linkCheck.timeoutMs", def.LinkCheck.TimeoutMs)
	v.SetDefault("linkCheck.totalTimeoutMs", def.LinkCheck.TotalTimeoutMs)
	v.SetDefault("linkCheck.maxConcurrent", def.LinkCheck.MaxConcurrent)
	v.SetDefault("linkCheck.perHost", def.LinkCheck.PerHost)
	v.SetDefault("linkCheck.requestsPerSecond", def.LinkCheck.RequestsPerSecond)
	v.SetDefault("linkCheck.retries", def.LinkCheck.Retries)
	v.SetDefault("linkCheck.cacheTtlHours", def.LinkCheck.CacheTTLHours)
	v.SetDefault("linkCheck.cachePath", def.LinkCheck.CachePath)
	v.SetDefault("linkCheck.userAgent", def.LinkCheck.UserAgent)
	v.SetDefault("output.format", def.Output.Format)
	v.SetDefault("output.path", def.Output.Path)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.file", def.Logging.File)
	v.SetDefault("logging.maxSize", def.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", def.Logging.MaxBackups)
}

// Save writes the configuration to .docrot.yaml
func (c *Config) Save(repoRoot string) error {
	configPath := filepath.Join(repoRoot, ConfigFileName+".yaml")

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}

	for _, cat := range c.Scan.Categories {
		if !validCategory(cat) {
			return &ConfigError{Field: "scan.categories", Message: fmt.Sprintf("unknown category %q", cat)}
		}
	}

	if c.Scan.MaxDocs < 0 {
		return &ConfigError{Field: "scan.maxDocs", Message: "must be >= 0 (0 = unlimited)"}
	}
	if c.Scan.Workers < 0 {
		return &ConfigError{Field: "scan.workers", Message: "must be >= 0 (0 = all CPUs)"}
	}

	if !validFormat(c.Output.Format) {
		return &ConfigError{Field: "output.format", Message: fmt.Sprintf("unknown format %q", c.Output.Format)}
	}

	if c.LinkCheck.TimeoutMs <= 0 {
		return &ConfigError{Field: "linkCheck.timeoutMs", Message: "must be > 0"}
	}
	if c.LinkCheck.MaxConcurrent <= 0 {
		return &ConfigError{Field: "linkCheck.maxConcurrent", Message: "must be > 0"}
	}
	if c.LinkCheck.PerHost <= 0 {
		return &ConfigError{Field: "linkCheck.perHost", Message: "must be > 0"}
	}
	if c.LinkCheck.Retries < 0 {
		return &ConfigError{Field: "linkCheck.retries", Message: "must be >= 0"}
	}

	return nil
}

func validCategory(cat string) bool {
	for _, c := range AllCategories() {
		if c == cat {
			return true
		}
	}
	return false
}

func validFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
