// Package linkcheck verifies that external URLs referenced by docs are
// still alive. Checks run through a bounded worker pool with per-host
// concurrency and rate limits so a scan never hammers one origin. An HTTP
// error status is a definitive verdict; transport failures retry with
// backoff and stay tentative.
package linkcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"docrot/internal/slogutil"
	"docrot/internal/version"
)

// Verdict is the liveness result for one URL.
type Verdict struct {
	URL        string
	Live       bool
	Reason     string // "404", "unreachable after 3 attempts", "timed out"
	Definitive bool   // an HTTP status, as opposed to a transport failure
	FromCache  bool
}

// Store persists verdicts across scans. Implementations own the TTL
// policy; Get returning false means check again.
type Store interface {
	Get(url string) (Verdict, bool)
	Put(v Verdict)
}

// Options configures a Checker. Zero values fall back to defaults sized
// for CI use.
type Options struct {
	Timeout      time.Duration // per request
	TotalTimeout time.Duration // whole pass
	Retries      int           // transient retries after the first attempt
	Concurrency  int           // pool size across hosts
	PerHost      int           // concurrent requests per host
	RPS          float64       // request rate per host
	UserAgent    string
	RetryDelays  []time.Duration // overrides the default backoff
	Cache        Store           // optional persistent cache
	Client       *http.Client    // optional transport override
	Logger       *slog.Logger
}

// DefaultRetryDelays returns the backoff delays between transient
// attempts: 500ms, 1s, 2s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}
}

// Checker runs liveness checks. Safe for concurrent use.
type Checker struct {
	opts   Options
	client *http.Client
	logger *slog.Logger

	mu       sync.Mutex
	slots    map[string]chan struct{}
	limiters map[string]*rate.Limiter
}

// New creates a Checker.
func New(opts Options) *Checker {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.TotalTimeout <= 0 {
		opts.TotalTimeout = 60 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.PerHost <= 0 {
		opts.PerHost = 2
	}
	if opts.RPS <= 0 {
		opts.RPS = 4
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "docrot/" + version.Version
	}
	if len(opts.RetryDelays) == 0 {
		opts.RetryDelays = DefaultRetryDelays()
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Checker{
		opts:     opts,
		client:   client,
		logger:   logger,
		slots:    make(map[string]chan struct{}),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Check verifies each distinct URL once and returns verdicts keyed by URL.
// When the pass deadline expires, outstanding URLs report timed out
// instead of being dropped.
func (c *Checker) Check(ctx context.Context, urls []string) map[string]Verdict {
	unique := dedupe(urls)
	if len(unique) == 0 {
		return map[string]Verdict{}
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.TotalTimeout)
	defer cancel()

	results := make([]Verdict, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, u := range unique {
		i, u := i, u
		g.Go(func() error {
			results[i] = c.checkOne(gctx, u)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Verdict, len(unique))
	for i, u := range unique {
		out[u] = results[i]
	}
	return out
}

func (c *Checker) checkOne(ctx context.Context, rawURL string) Verdict {
	if c.opts.Cache != nil {
		if v, ok := c.opts.Cache.Get(rawURL); ok {
			v.FromCache = true
			return v
		}
	}
	v := c.fetch(ctx, rawURL)
	// Transient failures are never cached; the next scan should look again.
	if c.opts.Cache != nil && !v.FromCache && (v.Live || v.Definitive) {
		c.opts.Cache.Put(v)
	}
	return v
}

// fetch runs the attempt loop for one URL. Status verdicts return
// immediately; transport errors back off and retry.
func (c *Checker) fetch(ctx context.Context, rawURL string) Verdict {
	host := hostOf(rawURL)
	attempts := c.opts.Retries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		if err := c.acquire(ctx, host); err != nil {
			return timedOut(rawURL)
		}
		status, err := c.request(ctx, rawURL)
		c.release(host)

		if err == nil {
			if status < 400 {
				return Verdict{URL: rawURL, Live: true, Definitive: true}
			}
			return Verdict{URL: rawURL, Reason: strconv.Itoa(status), Definitive: true}
		}
		if ctx.Err() != nil {
			return timedOut(rawURL)
		}
		if attempt >= attempts-1 {
			break
		}
		c.logger.Debug("retrying url", "url", rawURL, "attempt", attempt+2, "error", err)
		select {
		case <-ctx.Done():
			return timedOut(rawURL)
		case <-time.After(c.delay(attempt)):
		}
	}
	return Verdict{URL: rawURL, Reason: fmt.Sprintf("unreachable after %d attempts", attempts)}
}

// request issues a HEAD, falling back to GET for origins that reject it.
func (c *Checker) request(ctx context.Context, rawURL string) (int, error) {
	status, err := c.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return 0, err
	}
	if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
		return c.do(ctx, http.MethodGet, rawURL)
	}
	return status, nil
}

func (c *Checker) do(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if method == http.MethodGet {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	}
	return resp.StatusCode, nil
}

// acquire takes a per-host slot, then waits out the host's rate limiter.
// Hosts get a burst of 1 so request spacing is enforced from the first
// pair onward.
func (c *Checker) acquire(ctx context.Context, host string) error {
	c.mu.Lock()
	slot, ok := c.slots[host]
	if !ok {
		slot = make(chan struct{}, c.opts.PerHost)
		c.slots[host] = slot
	}
	lim, ok := c.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(c.opts.RPS), 1)
		c.limiters[host] = lim
	}
	c.mu.Unlock()

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := lim.Wait(ctx); err != nil {
		<-slot
		return err
	}
	return nil
}

func (c *Checker) release(host string) {
	c.mu.Lock()
	slot := c.slots[host]
	c.mu.Unlock()
	<-slot
}

func (c *Checker) delay(attempt int) time.Duration {
	if attempt < len(c.opts.RetryDelays) {
		return c.opts.RetryDelays[attempt]
	}
	return c.opts.RetryDelays[len(c.opts.RetryDelays)-1]
}

func timedOut(rawURL string) Verdict {
	return Verdict{URL: rawURL, Reason: "timed out"}
}

func hostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return rawURL
}

func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	var out []string
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
