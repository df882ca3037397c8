package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docrot/internal/errors"
	"docrot/internal/finding"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// rotRepo builds a repository with one rot instance per offline category:
// a broken relative link, a stale symbol reference, and a code example
// whose string literal no longer matches the source.
func rotRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "README.md",
		"# App\n\nSee the [guide](docs/guide.md) and the [missing page](docs/missing.md).\n")
	writeFile(t, root, "docs/guide.md",
		"# Guide\n\nCall `app.helpers.greet` or `app.helpers.gone` today.\n\n"+
			"```python file=../src/app/helpers.py#L1-L2\n"+
			"def greet(name):\n"+
			"    return \"Hello\"\n"+
			"```\n")
	writeFile(t, root, "src/app/helpers.py",
		"def greet(name):\n"+
			"    return \"Hi\"\n")
	return root
}

func TestScanFindsRot(t *testing.T) {
	root := rotRepo(t)

	result, err := Scan(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(result.Findings) != 3 {
		t.Fatalf("got %d findings, want 3: %+v", len(result.Findings), result.Findings)
	}

	link := result.Findings[0]
	if link.Category != finding.CategoryBrokenLink || link.File != "README.md" || link.Line != 3 {
		t.Errorf("findings[0] = %+v, want broken-link README.md:3", link)
	}
	if link.Target != "docs/missing.md" {
		t.Errorf("broken-link target = %q, want docs/missing.md", link.Target)
	}

	symbol := result.Findings[1]
	if symbol.Category != finding.CategoryStaleSymbol || symbol.File != "docs/guide.md" || symbol.Line != 3 {
		t.Errorf("findings[1] = %+v, want stale-symbol docs/guide.md:3", symbol)
	}
	if symbol.Target != "app.helpers.gone" {
		t.Errorf("stale-symbol target = %q, want app.helpers.gone", symbol.Target)
	}

	drifted := result.Findings[2]
	if drifted.Category != finding.CategoryCodeDrift || drifted.File != "docs/guide.md" || drifted.Line != 5 {
		t.Errorf("findings[2] = %+v, want code-drift docs/guide.md:5", drifted)
	}
	if drifted.Reason != "literal values changed" {
		t.Errorf("code-drift reason = %q, want literal values changed", drifted.Reason)
	}

	s := result.Summary
	if s.DocsScanned != 2 || s.Total != 3 {
		t.Errorf("summary = %+v, want 2 docs and 3 findings", s)
	}
	if s.ByCategory[finding.CategoryBrokenLink] != 1 || s.ByCategory[finding.CategoryCodeDrift] != 1 {
		t.Errorf("by_category = %v", s.ByCategory)
	}
}

func TestScanCleanRepo(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "# App\n\nRead the [guide](docs/guide.md).\n")
	writeFile(t, root, "docs/guide.md", "# Guide\n\nAll good here.\n")

	result, err := Scan(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(result.Findings) != 0 {
		t.Errorf("clean repo produced findings: %+v", result.Findings)
	}
	if result.Summary.DocsScanned != 2 {
		t.Errorf("docs scanned = %d, want 2", result.Summary.DocsScanned)
	}
}

func TestScanCategoryGate(t *testing.T) {
	root := rotRepo(t)

	result, err := Scan(context.Background(), Options{
		Root:       root,
		Categories: []string{finding.CategoryBrokenLink},
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(result.Findings) != 1 {
		t.Fatalf("got %d findings, want 1: %+v", len(result.Findings), result.Findings)
	}
	if result.Findings[0].Category != finding.CategoryBrokenLink {
		t.Errorf("category = %q, want broken-link", result.Findings[0].Category)
	}
}

func urlRepo(t *testing.T, url string) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "README.md",
		fmt.Sprintf("# App\n\nService [status](%s/missing).\n", url))
	return root
}

func TestScanDeadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	root := urlRepo(t, srv.URL)
	result, err := Scan(context.Background(), Options{
		Root:       root,
		Categories: []string{finding.CategoryDeadURL},
		LinkCheck: LinkCheckOptions{
			TotalTimeout: 5 * time.Second,
			Concurrency:  4,
			PerHost:      4,
			RPS:          1000,
		},
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(result.Findings) != 1 {
		t.Fatalf("got %d findings, want 1: %+v", len(result.Findings), result.Findings)
	}
	f := result.Findings[0]
	if f.Category != finding.CategoryDeadURL || f.File != "README.md" || f.Line != 3 {
		t.Errorf("finding = %+v, want dead-url README.md:3", f)
	}
	if f.Reason != "404" {
		t.Errorf("reason = %q, want 404", f.Reason)
	}
}

func TestScanSkipsNetworkByDefault(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	root := urlRepo(t, srv.URL)
	result, err := Scan(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(result.Findings) != 0 {
		t.Errorf("default scan produced findings: %+v", result.Findings)
	}
	if hits != 0 {
		t.Errorf("default scan hit the network %d times", hits)
	}
}

func TestScanMissingRoot(t *testing.T) {
	_, err := Scan(context.Background(), Options{Root: filepath.Join(t.TempDir(), "nope")})
	if err == nil {
		t.Fatalf("Scan() of missing root did not fail")
	}
	if errors.CodeOf(err) != errors.RootNotFound {
		t.Errorf("error code = %v, want ROOT_NOT_FOUND", errors.CodeOf(err))
	}
}

func TestScanCanceled(t *testing.T) {
	root := rotRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Scan(ctx, Options{Root: root})
	if err == nil {
		t.Fatalf("Scan() with canceled context did not fail")
	}
	if errors.CodeOf(err) != errors.Interrupted {
		t.Errorf("error code = %v, want INTERRUPTED", errors.CodeOf(err))
	}
}

func TestScanInterruptedAggregatesPartial(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	root := t.TempDir()
	writeFile(t, root, "README.md", fmt.Sprintf(
		"# App\n\nSee the [missing page](docs/missing.md).\n\nService [status](%s/slow).\n", srv.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	result, err := Scan(ctx, Options{
		Root:       root,
		Categories: []string{finding.CategoryBrokenLink, finding.CategoryDeadURL},
		LinkCheck: LinkCheckOptions{
			TotalTimeout: 5 * time.Second,
			Concurrency:  4,
			PerHost:      4,
			RPS:          1000,
		},
	})
	if err != nil {
		t.Fatalf("Scan() error = %v, want partial result", err)
	}

	if len(result.Findings) != 2 {
		t.Fatalf("got %d findings, want 2: %+v", len(result.Findings), result.Findings)
	}
	if result.Findings[0].Category != finding.CategoryBrokenLink {
		t.Errorf("findings[0] = %+v, want broken-link", result.Findings[0])
	}
	stalled := result.Findings[1]
	if stalled.Category != finding.CategoryDeadURL || stalled.Reason != "timed out" {
		t.Errorf("findings[1] = %+v, want dead-url timed out", stalled)
	}

	interrupted := false
	for _, w := range result.Warnings {
		if strings.Contains(w.Message, "scan interrupted") {
			interrupted = true
		}
	}
	if !interrupted {
		t.Errorf("warnings lack the interruption notice: %+v", result.Warnings)
	}
}
