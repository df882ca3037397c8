// Package storage persists URL liveness verdicts between scans.
//
// The cache is a single SQLite table under .docrot/ at the repository
// root. It is strictly an accelerator: any storage error degrades to a
// log line and a cache miss, never a failed scan.
package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"log/slog"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"docrot/internal/errors"
	"docrot/internal/linkcheck"
	"docrot/internal/paths"
	"docrot/internal/slogutil"
)

const schema = `
CREATE TABLE IF NOT EXISTS url_cache (
	url        TEXT PRIMARY KEY,
	live       INTEGER NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	definitive INTEGER NOT NULL,
	checked_at TEXT NOT NULL
);
`

// URLCache is a TTL-bounded verdict store backed by SQLite. It
// implements linkcheck.Store.
type URLCache struct {
	conn   *sql.DB
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

var _ linkcheck.Store = (*URLCache)(nil)

// OpenURLCache opens or creates the cache database under
// repoRoot/.docrot/. Entries older than ttl read as misses; ttl <= 0
// disables expiry.
func OpenURLCache(repoRoot string, ttl time.Duration, logger *slog.Logger) (*URLCache, error) {
	if _, err := paths.EnsureLocalStateDir(repoRoot); err != nil {
		return nil, errors.New(errors.CacheUnavailable, "cannot create cache directory", err)
	}
	return OpenURLCacheAt(paths.GetCacheDatabasePath(repoRoot), ttl, logger)
}

// OpenURLCacheAt opens the cache database at an explicit path, creating
// parent directories as needed.
func OpenURLCacheAt(dbPath string, ttl time.Duration, logger *slog.Logger) (*URLCache, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.New(errors.CacheUnavailable, "cannot create cache directory", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.New(errors.CacheUnavailable, "cannot open cache database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, errors.New(errors.CacheUnavailable, "cannot configure cache database", err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, errors.New(errors.CacheUnavailable, "cannot initialize cache schema", err)
	}

	return &URLCache{conn: conn, ttl: ttl, logger: logger, now: time.Now}, nil
}

// Get returns the cached verdict for url. Expired entries are deleted
// and read as misses, as are storage errors.
func (c *URLCache) Get(url string) (linkcheck.Verdict, bool) {
	var live, definitive int
	var reason, checkedAt string

	err := c.conn.QueryRow(`
		SELECT live, reason, definitive, checked_at
		FROM url_cache
		WHERE url = ?
	`, url).Scan(&live, &reason, &definitive, &checkedAt)

	if err == sql.ErrNoRows {
		return linkcheck.Verdict{}, false
	}
	if err != nil {
		c.logger.Warn("url cache read failed", "url", url, "error", err)
		return linkcheck.Verdict{}, false
	}

	checked, err := time.Parse(time.RFC3339, checkedAt)
	if err != nil {
		c.logger.Warn("url cache entry has invalid timestamp", "url", url, "error", err)
		return linkcheck.Verdict{}, false
	}
	if c.expired(checked) {
		if _, err := c.conn.Exec("DELETE FROM url_cache WHERE url = ?", url); err != nil {
			c.logger.Warn("url cache expiry delete failed", "url", url, "error", err)
		}
		return linkcheck.Verdict{}, false
	}

	return linkcheck.Verdict{
		URL:        url,
		Live:       live != 0,
		Reason:     reason,
		Definitive: definitive != 0,
	}, true
}

// Put stores a verdict, replacing any previous entry for the URL.
func (c *URLCache) Put(v linkcheck.Verdict) {
	_, err := c.conn.Exec(`
		INSERT OR REPLACE INTO url_cache (url, live, reason, definitive, checked_at)
		VALUES (?, ?, ?, ?, ?)
	`, v.URL, boolInt(v.Live), v.Reason, boolInt(v.Definitive), c.now().UTC().Format(time.RFC3339))
	if err != nil {
		c.logger.Warn("url cache write failed", "url", v.URL, "error", err)
	}
}

// Prune deletes every expired entry.
func (c *URLCache) Prune() error {
	if c.ttl <= 0 {
		return nil
	}
	cutoff := c.now().UTC().Add(-c.ttl).Format(time.RFC3339)
	_, err := c.conn.Exec("DELETE FROM url_cache WHERE checked_at < ?", cutoff)
	if err != nil {
		return errors.New(errors.CacheUnavailable, "cannot prune url cache", err)
	}
	return nil
}

// Close closes the database connection.
func (c *URLCache) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *URLCache) expired(checked time.Time) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().Sub(checked) > c.ttl
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
