package extract

import (
	"strings"
	"testing"
)

func findLink(t *testing.T, doc *Document, target string) Link {
	t.Helper()
	for _, l := range doc.Links {
		if l.Target == target {
			return l
		}
	}
	t.Fatalf("link %q not extracted; have %+v", target, doc.Links)
	return Link{}
}

func findSymbol(t *testing.T, doc *Document, token string) SymbolRef {
	t.Helper()
	for _, s := range doc.Symbols {
		if s.Token == token {
			return s
		}
	}
	t.Fatalf("symbol %q not extracted; have %+v", token, doc.Symbols)
	return SymbolRef{}
}

func findHeading(t *testing.T, doc *Document, anchor string) Heading {
	t.Helper()
	for _, h := range doc.Headings {
		if h.Anchor == anchor {
			return h
		}
	}
	t.Fatalf("heading anchor %q not extracted; have %+v", anchor, doc.Headings)
	return Heading{}
}

const guideMD = `---
title: User Guide
source: internal/app/server.go
---
# Getting Started

See [setup](docs/setup.md#install) and [API](/api.md).
Call ` + "`Server.Start`" + ` after ` + "`utils/helpers.format_name`" + `.

![diagram](img/arch.png)

Visit <https://example.com/docs>.

` + "```go file=internal/app/server.go#L10-L24\n" + `import "app/config"

func main() {}
` + "```\n" + `
## Advanced Usage {#advanced}

Contact <mailto:team@example.com>.
`

func TestParseMarkdown(t *testing.T) {
	doc := Parse("docs/guide.md", []byte(guideMD))

	if doc.Format != FormatMarkdown {
		t.Errorf("Format = %q, want %q", doc.Format, FormatMarkdown)
	}
	if doc.Title != "User Guide" {
		t.Errorf("Title = %q, want %q", doc.Title, "User Guide")
	}
	if doc.Source != "internal/app/server.go" {
		t.Errorf("Source = %q, want %q", doc.Source, "internal/app/server.go")
	}

	start := findHeading(t, doc, "getting-started")
	if start.Level != 1 || start.Line != 5 {
		t.Errorf("getting-started heading = %+v, want level 1 line 5", start)
	}
	adv := findHeading(t, doc, "advanced")
	if adv.Text != "Advanced Usage" || adv.Line != 20 {
		t.Errorf("explicit anchor heading = %+v", adv)
	}

	setup := findLink(t, doc, "docs/setup.md#install")
	if setup.Kind != LinkRelative || setup.Line != 7 {
		t.Errorf("setup link = %+v, want relative at line 7", setup)
	}
	if api := findLink(t, doc, "/api.md"); api.Line != 7 {
		t.Errorf("root-relative link line = %d, want 7", api.Line)
	}
	if img := findLink(t, doc, "img/arch.png"); img.Kind != LinkRelative || img.Line != 10 {
		t.Errorf("image link = %+v", img)
	}
	ext := findLink(t, doc, "https://example.com/docs")
	if ext.Kind != LinkExternal || ext.Line != 12 {
		t.Errorf("autolink = %+v, want external at line 12", ext)
	}
	for _, l := range doc.Links {
		if strings.HasPrefix(l.Target, "mailto:") {
			t.Errorf("mailto link should be skipped, got %+v", l)
		}
	}

	srv := findSymbol(t, doc, "Server.Start")
	if srv.Kind != RefInlineCode || srv.Line != 8 {
		t.Errorf("Server.Start ref = %+v, want inline-code at line 8", srv)
	}
	helper := findSymbol(t, doc, "utils.helpers.format_name")
	if helper.Raw != "utils/helpers.format_name" {
		t.Errorf("slash token raw = %q", helper.Raw)
	}
	imp := findSymbol(t, doc, "app.config")
	if imp.Kind != RefImport || imp.Line != 15 {
		t.Errorf("import ref = %+v, want import at line 15", imp)
	}

	if len(doc.Blocks) != 1 {
		t.Fatalf("Blocks = %+v, want one", doc.Blocks)
	}
	b := doc.Blocks[0]
	if b.Tag != "go" || b.Hint != "internal/app/server.go#L10-L24" || b.Line != 14 {
		t.Errorf("block = tag %q hint %q line %d", b.Tag, b.Hint, b.Line)
	}
	if !strings.Contains(b.Text, "func main()") {
		t.Errorf("block text = %q", b.Text)
	}
}

func TestParseMarkdownTitleFromHeading(t *testing.T) {
	doc := Parse("README.md", []byte("# My Project\n\nIntro.\n"))
	if doc.Title != "My Project" {
		t.Errorf("Title = %q, want heading text", doc.Title)
	}
}

func TestParseMarkdownFilePathSpansSkipped(t *testing.T) {
	doc := Parse("README.md", []byte("Edit `docs/guide.md` and `config.yaml` first.\n"))
	if len(doc.Symbols) != 0 {
		t.Errorf("file path spans produced symbols: %+v", doc.Symbols)
	}
}

const guideRST = `Guide
=====

See ` + "`setup <docs/setup.md>`_" + ` for install.
Use ` + "``utils.helpers.format_name``" + ` here.

.. code-block:: python

   from utils.helpers import format_name

   print(format_name("x"))

.. image:: img/arch.png
.. _api: https://example.com/api
`

func TestParseRST(t *testing.T) {
	doc := Parse("docs/guide.rst", []byte(guideRST))

	if doc.Format != FormatRST {
		t.Errorf("Format = %q", doc.Format)
	}
	h := findHeading(t, doc, "guide")
	if h.Level != 1 || h.Line != 1 {
		t.Errorf("heading = %+v, want level 1 line 1", h)
	}

	if l := findLink(t, doc, "docs/setup.md"); l.Kind != LinkRelative || l.Line != 4 {
		t.Errorf("hyperlink = %+v", l)
	}
	if l := findLink(t, doc, "img/arch.png"); l.Line != 13 {
		t.Errorf("image link = %+v", l)
	}
	if l := findLink(t, doc, "https://example.com/api"); l.Kind != LinkExternal || l.Line != 14 {
		t.Errorf("target link = %+v", l)
	}

	if s := findSymbol(t, doc, "utils.helpers.format_name"); s.Kind != RefInlineCode || s.Line != 5 {
		t.Errorf("literal ref = %+v", s)
	}
	if s := findSymbol(t, doc, "utils.helpers"); s.Kind != RefImport || s.Line != 9 {
		t.Errorf("import ref = %+v, want import at line 9", s)
	}

	if len(doc.Blocks) != 1 {
		t.Fatalf("Blocks = %+v, want one", doc.Blocks)
	}
	b := doc.Blocks[0]
	if b.Tag != "python" || b.Line != 7 {
		t.Errorf("block = tag %q line %d", b.Tag, b.Line)
	}
	if !strings.Contains(b.Text, `print(format_name("x"))`) {
		t.Errorf("block text = %q", b.Text)
	}
	if strings.Contains(b.Text, "   from") {
		t.Errorf("block text not dedented: %q", b.Text)
	}
}

const guideADoc = `= Guide

See link:docs/setup.md[setup] and https://example.com/api[the API].

[source,go]
----
import "app/config"
----

include::partials/intro.adoc[]

== Usage
`

func TestParseAsciiDoc(t *testing.T) {
	doc := Parse("docs/guide.adoc", []byte(guideADoc))

	if doc.Format != FormatAsciiDoc {
		t.Errorf("Format = %q", doc.Format)
	}
	if h := findHeading(t, doc, "guide"); h.Level != 1 || h.Line != 1 {
		t.Errorf("title heading = %+v", h)
	}
	if h := findHeading(t, doc, "usage"); h.Level != 2 || h.Line != 12 {
		t.Errorf("section heading = %+v", h)
	}

	if l := findLink(t, doc, "docs/setup.md"); l.Line != 3 {
		t.Errorf("link macro = %+v", l)
	}
	if l := findLink(t, doc, "https://example.com/api"); l.Kind != LinkExternal {
		t.Errorf("bare url = %+v", l)
	}
	if l := findLink(t, doc, "partials/intro.adoc"); l.Line != 10 {
		t.Errorf("include macro = %+v", l)
	}

	if len(doc.Blocks) != 1 {
		t.Fatalf("Blocks = %+v, want one", doc.Blocks)
	}
	if b := doc.Blocks[0]; b.Tag != "go" || b.Line != 6 {
		t.Errorf("listing block = tag %q line %d", b.Tag, b.Line)
	}
	if s := findSymbol(t, doc, "app.config"); s.Kind != RefImport || s.Line != 7 {
		t.Errorf("import ref = %+v", s)
	}
}

const guideHTML = `<html>
<body>
<h1 id="intro">Introduction</h1>
<p>See <a href="docs/setup.md">setup</a>.</p>
<p>Run <code>Server.Start</code> now.</p>
<pre><code class="language-python">from utils.helpers import format_name
</code></pre>
</body>
</html>
`

func TestParseHTML(t *testing.T) {
	doc := Parse("site/index.html", []byte(guideHTML))

	if doc.Format != FormatHTML {
		t.Errorf("Format = %q", doc.Format)
	}
	h := findHeading(t, doc, "intro")
	if h.Text != "Introduction" || h.Level != 1 || h.Line != 3 {
		t.Errorf("heading = %+v", h)
	}
	if l := findLink(t, doc, "docs/setup.md"); l.Line != 4 {
		t.Errorf("anchor link = %+v", l)
	}
	if s := findSymbol(t, doc, "Server.Start"); s.Kind != RefInlineCode || s.Line != 5 {
		t.Errorf("inline code ref = %+v", s)
	}
	if s := findSymbol(t, doc, "utils.helpers"); s.Kind != RefImport || s.Line != 6 {
		t.Errorf("import ref = %+v", s)
	}
	if len(doc.Blocks) != 1 || doc.Blocks[0].Tag != "python" {
		t.Errorf("Blocks = %+v", doc.Blocks)
	}
}

func TestParseSourceHint(t *testing.T) {
	tests := []struct {
		in   string
		want SourceHint
		ok   bool
	}{
		{"internal/app.go#L10-L24", SourceHint{"internal/app.go", 10, 24}, true},
		{"internal/app.go#L10-24", SourceHint{"internal/app.go", 10, 24}, true},
		{"internal/app.go#L10", SourceHint{"internal/app.go", 10, 10}, true},
		{"internal/app.go", SourceHint{Path: "internal/app.go"}, true},
		{`"quoted.go#L3-L9"`, SourceHint{"quoted.go", 3, 9}, true},
		{"x.go#L9-L3", SourceHint{}, false},
		{"x.go#section", SourceHint{}, false},
		{"#L3", SourceHint{}, false},
		{"", SourceHint{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseSourceHint(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseSourceHint(%q) = %+v, %v; want %+v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalizeToken(t *testing.T) {
	tests := []struct{ in, want string }{
		{"crate::parser::Config", "crate.parser.Config"},
		{"Class#method", "Class.method"},
		{"Class->method", "Class.method"},
		{"pkg/sub.Func", "pkg.sub.Func"},
		{"`Server.Start`", "Server.Start"},
		{".trimmed.", "trimmed"},
	}
	for _, tt := range tests {
		if got := NormalizeToken(tt.in); got != tt.want {
			t.Errorf("NormalizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeAnchor(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Getting Started", "getting-started"},
		{"API & CLI Tools", "api--cli-tools"},
		{"Config.Load()", "configload"},
		{"  Spaces  ", "spaces"},
		{"snake_case_heading", "snake_case_heading"},
	}
	for _, tt := range tests {
		if got := NormalizeAnchor(tt.in); got != tt.want {
			t.Errorf("NormalizeAnchor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestImportTokens(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		text string
		want []string
	}{
		{"go single", "go", `import "app/config"`, []string{"app.config"}},
		{"go group", "go", "import (\n\t\"app/config\"\n\tlog \"app/logging\"\n)", []string{"app.config", "app.logging"}},
		{"go hosted skipped", "go", `import "github.com/spf13/cobra"`, nil},
		{"python from", "python", "from utils.helpers import format_name", []string{"utils.helpers"}},
		{"python import", "python", "import utils.helpers", []string{"utils.helpers"}},
		{"js require", "js", `const cfg = require("app/config")`, []string{"app.config"}},
		{"js relative skipped", "js", `import x from "./local"`, nil},
		{"js scoped skipped", "js", `import x from "@scope/pkg"`, nil},
		{"rust use", "rust", "use crate::parser::config;", []string{"parser.config"}},
		{"rust std skipped", "rust", "use std::fmt;", nil},
		{"untagged tries all", "", `import "app/config"`, []string{"app.config"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs := importTokens(tt.tag, tt.text)
			var got []string
			for _, r := range refs {
				got = append(got, r.Token)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("importTokens = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseMalformedInputDegrades(t *testing.T) {
	inputs := map[string][]byte{
		"bad.md":   []byte("---\ntitle: [unclosed\n---\n# Still Here\n"),
		"bad.rst":  []byte("Title\n==\n\n.. code-block:: python\n"),
		"bad.html": []byte("<h1>Open heading<p><a href="),
		"bad.adoc": []byte("[source,go]\n----\nnever closed"),
	}
	for path, src := range inputs {
		doc := Parse(path, src)
		if doc == nil {
			t.Errorf("Parse(%q) returned nil", path)
		}
	}
}
