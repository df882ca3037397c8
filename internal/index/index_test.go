package index

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"docrot/internal/adapter"
	"docrot/internal/errors"
	"docrot/internal/finding"
	"docrot/internal/lang"
)

func writeFile(t *testing.T, root, rel string, content []byte) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

func hasWarning(warnings []finding.Warning, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w.Message, substr) {
			return true
		}
	}
	return false
}

const serverGo = `package app

type Server struct {
	Addr string
}

func NewServer() *Server {
	return &Server{}
}
`

func TestBuild(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", []byte("# App\n\nSee docs."))
	writeFile(t, root, "docs/guide.md", []byte("# Guide\n"))
	writeFile(t, root, "internal/app/server.go", []byte(serverGo))
	writeFile(t, root, "Makefile", []byte("all:\n\ttrue\n"))

	ix, warnings, err := Build(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %+v", warnings)
	}
	if ix.FileCount() != 4 {
		t.Errorf("FileCount() = %d, want 4", ix.FileCount())
	}

	kinds := map[string]string{
		"README.md":              KindDoc,
		"docs/guide.md":          KindDoc,
		"internal/app/server.go": KindSource,
		"Makefile":               KindOther,
	}
	hexHash := regexp.MustCompile(`^[0-9a-f]{1,16}$`)
	for path, want := range kinds {
		e, ok := ix.File(path)
		if !ok {
			t.Errorf("File(%q) not indexed", path)
			continue
		}
		if e.Kind != want {
			t.Errorf("File(%q).Kind = %q, want %q", path, e.Kind, want)
		}
		if !hexHash.MatchString(e.Hash) {
			t.Errorf("File(%q).Hash = %q, not xxhash hex", path, e.Hash)
		}
	}

	if got, want := fileLines(t, ix, "README.md"), 3; got != want {
		t.Errorf("README.md lines = %d, want %d", got, want)
	}

	docs := ix.Docs()
	if len(docs) != 2 || docs[0] != "README.md" || docs[1] != "docs/guide.md" {
		t.Errorf("Docs() = %v, want [README.md docs/guide.md]", docs)
	}

	for _, dir := range []string{"docs", "internal", "internal/app"} {
		if !ix.HasDir(dir) {
			t.Errorf("HasDir(%q) = false, want true", dir)
		}
	}
	if ix.HasDir("missing") {
		t.Error("HasDir(missing) = true")
	}

	server := ix.Lookup("Server")
	if len(server) != 1 {
		t.Fatalf("Lookup(Server) returned %d entries, want 1", len(server))
	}
	got := server[0]
	want := SymbolEntry{
		Name: "Server", Kind: adapter.KindType, File: "internal/app/server.go",
		StartLine: 3, EndLine: 5, Language: lang.LangGo, Source: SourceAdapter,
	}
	if got != want {
		t.Errorf("Lookup(Server)[0] = %+v, want %+v", got, want)
	}

	if mod := ix.Lookup("internal.app.server"); len(mod) != 1 || mod[0].Kind != adapter.KindModule {
		t.Errorf("module symbol lookup = %+v", mod)
	}
	if suffix := ix.LookupSuffix("Server"); len(suffix) != 1 || suffix[0].Name != "Server" {
		t.Errorf("LookupSuffix(Server) = %+v", suffix)
	}
}

func fileLines(t *testing.T, ix *RepoIndex, path string) int {
	t.Helper()
	e, ok := ix.File(path)
	if !ok {
		t.Fatalf("File(%q) not indexed", path)
	}
	return e.Lines
}

func TestBuild_RootErrors(t *testing.T) {
	t.Run("missing root", func(t *testing.T) {
		_, _, err := Build(context.Background(), filepath.Join(t.TempDir(), "nope"), Options{})
		if code := errors.CodeOf(err); code != errors.RootNotFound {
			t.Errorf("error code = %q, want %q (err: %v)", code, errors.RootNotFound, err)
		}
	})
	t.Run("root is a file", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "file.txt", []byte("x"))
		_, _, err := Build(context.Background(), filepath.Join(root, "file.txt"), Options{})
		if code := errors.CodeOf(err); code != errors.RootNotDirectory {
			t.Errorf("error code = %q, want %q (err: %v)", code, errors.RootNotDirectory, err)
		}
	})
}

func TestBuild_SkipsAndIgnores(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.md", []byte("# Keep\n"))
	writeFile(t, root, ".git/config", []byte("[core]\n"))
	writeFile(t, root, "node_modules/pkg/index.js", []byte("module.exports = 1\n"))
	writeFile(t, root, ".docrot/cache.db", []byte("x"))
	writeFile(t, root, "docs/skipme.md", []byte("# Skip\n"))
	writeFile(t, root, "top.log", []byte("log\n"))
	writeFile(t, root, "sub/deep.log", []byte("log\n"))

	ix, warnings, err := Build(context.Background(), root, Options{
		Ignore: []string{"docs/**", "**/*.log", "["},
	})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !hasWarning(warnings, "invalid") {
		t.Errorf("no warning for invalid ignore pattern, got %+v", warnings)
	}
	if ix.FileCount() != 1 {
		t.Errorf("FileCount() = %d, want 1", ix.FileCount())
	}
	if !ix.HasFile("keep.md") {
		t.Error("keep.md not indexed")
	}
	for _, path := range []string{
		".git/config", "node_modules/pkg/index.js", ".docrot/cache.db",
		"docs/skipme.md", "top.log", "sub/deep.log",
	} {
		if ix.HasFile(path) {
			t.Errorf("%s indexed despite skip rules", path)
		}
	}
}

func TestBuild_MaxDocs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", []byte("# A\n"))
	writeFile(t, root, "b.md", []byte("# B\n"))
	writeFile(t, root, "c.md", []byte("# C\n"))

	ix, warnings, err := Build(context.Background(), root, Options{MaxDocs: 2})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	docs := ix.Docs()
	if len(docs) != 2 || docs[0] != "a.md" || docs[1] != "b.md" {
		t.Errorf("Docs() = %v, want [a.md b.md]", docs)
	}
	if ix.DocTotal() != 3 {
		t.Errorf("DocTotal() = %d, want 3", ix.DocTotal())
	}
	// Capped docs stay link-resolvable.
	if !ix.HasFile("c.md") {
		t.Error("c.md dropped from the index entirely")
	}
	if !hasWarning(warnings, "document cap") {
		t.Errorf("no cap warning, got %+v", warnings)
	}
}

func TestBuild_BinarySource(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "raw.go", append([]byte("package raw\nvar blob = "), 0x00, 0x01, '\n'))

	ix, _, err := Build(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	// Module symbol survives, declaration extraction does not.
	if mod := ix.Lookup("raw"); len(mod) != 1 || mod[0].Kind != adapter.KindModule {
		t.Errorf("Lookup(raw) = %+v, want one module symbol", mod)
	}
	if got := ix.Lookup("blob"); len(got) != 0 {
		t.Errorf("extracted symbols from binary file: %+v", got)
	}
}

func TestBuild_OversizeFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.md", []byte(strings.Repeat("word ", 100)))
	writeFile(t, root, "small.md", []byte("# Small\n"))

	ix, _, err := Build(context.Background(), root, Options{MaxFileSize: 16})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	e, ok := ix.File("big.md")
	if !ok {
		t.Fatal("big.md not indexed")
	}
	if e.Kind != KindDoc {
		t.Errorf("big.md kind = %q, want %q", e.Kind, KindDoc)
	}
	if e.Hash == "" {
		t.Error("big.md has no hash")
	}
	if e.Lines != 0 {
		t.Errorf("big.md lines = %d, want 0 (not read)", e.Lines)
	}
}

func TestBuild_DuplicateSymbols(t *testing.T) {
	root := t.TempDir()
	// The same name in two files is two legitimate definitions; both stay
	// so a bare reference can be reported as ambiguous instead of silently
	// bound to whichever file the walk visited first.
	writeFile(t, root, "a.go", []byte("package p\n\nfunc Same() {\n}\n"))
	writeFile(t, root, "b.go", []byte("package p\n\nfunc Same() {\n}\n"))
	// A re-declaration inside one file keeps the first occurrence only.
	writeFile(t, root, "dup.py", []byte("def helper():\n    return 1\n\ndef helper():\n    return 2\n"))

	ix, warnings, err := Build(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	same := ix.Lookup("Same")
	if len(same) != 2 {
		t.Fatalf("Lookup(Same) returned %d entries, want 2: %+v", len(same), same)
	}
	if same[0].File != "a.go" || same[1].File != "b.go" {
		t.Errorf("Lookup(Same) files = %s, %s; want a.go, b.go", same[0].File, same[1].File)
	}
	helper := ix.Lookup("helper")
	if len(helper) != 1 {
		t.Fatalf("Lookup(helper) returned %d entries, want 1: %+v", len(helper), helper)
	}
	if helper[0].StartLine != 1 {
		t.Errorf("kept helper at line %d, want 1 (first wins)", helper[0].StartLine)
	}
	if !hasWarning(warnings, "duplicate symbol") {
		t.Errorf("no duplicate warning, got %+v", warnings)
	}
}

func TestBuild_ModuleAndFunctionShareName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.go", []byte("package p\n\nvar Default = 1\n"))
	writeFile(t, root, "app.go", []byte("package p\n\nfunc config() {\n}\n"))

	ix, warnings, err := Build(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	// The config.go module and the config function occupy different
	// namespaces and must coexist without a collision warning.
	got := ix.Lookup("config")
	if len(got) != 2 {
		t.Fatalf("Lookup(config) returned %d entries, want 2: %+v", len(got), got)
	}
	if hasWarning(warnings, "duplicate symbol") {
		t.Errorf("module/function name overlap warned: %+v", warnings)
	}
}

func TestBuild_SCIPMerge(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.go", []byte("package main\n\nfunc Run() {\n}\n"))

	const prefix = "scip-go gomod example.com/app v1.0.0 "
	idx := &scippb.Index{
		Metadata: &scippb.Metadata{ToolInfo: &scippb.ToolInfo{Name: "scip-go"}},
		Documents: []*scippb.Document{
			{
				RelativePath: "app.go",
				Occurrences: []*scippb.Occurrence{
					{
						Symbol:      prefix + "`main`/Run().",
						SymbolRoles: int32(scippb.SymbolRole_Definition),
						Range:       []int32{2, 5, 8},
					},
					{
						Symbol:      prefix + "`main`/Hidden#",
						SymbolRoles: int32(scippb.SymbolRole_Definition),
						Range:       []int32{9, 5, 11},
					},
				},
			},
			{
				// File outside the walk: its symbols are dropped.
				RelativePath: "gone.go",
				Occurrences: []*scippb.Occurrence{
					{
						Symbol:      prefix + "`main`/Ghost().",
						SymbolRoles: int32(scippb.SymbolRole_Definition),
						Range:       []int32{0, 5, 10},
					},
				},
			},
		},
	}
	data, err := proto.Marshal(idx)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, root, "index.scip", data)

	ix, _, err := Build(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	run := ix.Lookup("Run")
	if len(run) != 1 {
		t.Fatalf("Lookup(Run) returned %d entries, want 1", len(run))
	}
	if run[0].Source != SourceSCIP {
		t.Errorf("Run source = %q, want %q", run[0].Source, SourceSCIP)
	}
	// Single-line SCIP span keeps the adapter's wider drift region.
	if run[0].StartLine != 3 || run[0].EndLine != 4 {
		t.Errorf("Run span = %d-%d, want 3-4", run[0].StartLine, run[0].EndLine)
	}
	if hidden := ix.Lookup("Hidden"); len(hidden) != 1 || hidden[0].Source != SourceSCIP {
		t.Errorf("Lookup(Hidden) = %+v, want one scip entry", hidden)
	}
	if ghost := ix.Lookup("Ghost"); len(ghost) != 0 {
		t.Errorf("symbol from unindexed file kept: %+v", ghost)
	}
}

func TestBuild_InvalidSCIPWarns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", []byte("# A\n"))
	writeFile(t, root, "index.scip", []byte("not a scip index"))

	ix, warnings, err := Build(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !hasWarning(warnings, "SCIP index ignored") {
		t.Errorf("no SCIP warning, got %+v", warnings)
	}
	if !ix.HasFile("a.md") {
		t.Error("scan did not continue past invalid SCIP input")
	}
}

func TestBuild_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", []byte("# A\n"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Build(ctx, root, Options{})
	if code := errors.CodeOf(err); code != errors.Interrupted {
		t.Errorf("error code = %q, want %q (err: %v)", code, errors.Interrupted, err)
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{"empty", "", 0},
		{"single line no newline", "hello", 1},
		{"single line with newline", "hello\n", 1},
		{"two lines", "a\nb\n", 2},
		{"trailing content", "a\nb", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countLines([]byte(tt.data)); got != tt.want {
				t.Errorf("countLines(%q) = %d, want %d", tt.data, got, tt.want)
			}
		})
	}
}
