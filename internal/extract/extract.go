// Package extract parses documentation files into the artifacts a scan
// checks: relative links, heading anchors, symbol references, and code
// blocks. Four formats are recognized (Markdown, reStructuredText,
// AsciiDoc, HTML); extraction is best effort and never fails on
// malformed input.
package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Document formats.
const (
	FormatMarkdown = "markdown"
	FormatRST      = "rst"
	FormatAsciiDoc = "asciidoc"
	FormatHTML     = "html"
)

// Link kinds. Skip-class targets (mailto:, data:, unsupported schemes)
// are dropped at extraction time and never reach the resolver.
const (
	LinkRelative = "relative"
	LinkAnchor   = "anchor"
	LinkExternal = "external"
	linkSkip     = "skip"
)

// Symbol reference origins. Inline-code references come from backtick
// spans in prose; import references come from import statements inside
// code blocks and name modules rather than symbols.
const (
	RefInlineCode = "inline-code"
	RefImport     = "import"
)

// Document holds everything extracted from one documentation file.
type Document struct {
	Path   string // repo-relative, forward slashes
	Format string
	Title  string // front matter title, else first top-level heading
	Source string // front matter default source hint for code blocks

	Headings []Heading
	Links    []Link
	Symbols  []SymbolRef
	Blocks   []CodeBlock
}

// Heading is a section heading with its normalized anchor.
type Heading struct {
	Text   string
	Anchor string
	Level  int
	Line   int
}

// Link is a link target as written in the document.
type Link struct {
	Target string
	Kind   string // relative, anchor, or external
	Line   int
}

// SymbolRef is a mention of a code symbol or module in the document.
type SymbolRef struct {
	Token string // normalized dotted form ("utils.helpers.format_name")
	Raw   string // as written ("utils/helpers.format_name")
	Kind  string // inline-code or import
	Line  int
}

// CodeBlock is a fenced or indented code example.
type CodeBlock struct {
	Tag  string // fence language tag, lowercased; "" when untagged
	Hint string // raw file= attribute value ("x.go#L3-L9"); "" when absent
	Text string // block body
	Line int    // line of the opening fence
}

// SourceHint names the source region a code block claims to mirror.
// A zero StartLine means the whole file.
type SourceHint struct {
	Path      string
	StartLine int
	EndLine   int
}

// Parse extracts the checkable artifacts from one documentation file.
// Malformed input degrades to whatever artifacts were recognized.
func Parse(path string, src []byte) *Document {
	doc := &Document{Path: path, Format: formatFor(path)}
	switch doc.Format {
	case FormatRST:
		parseRST(doc, src)
	case FormatAsciiDoc:
		parseAsciiDoc(doc, src)
	case FormatHTML:
		parseHTML(doc, src)
	default:
		parseMarkdown(doc, src)
	}
	if doc.Title == "" {
		for _, h := range doc.Headings {
			if h.Level == 1 && h.Text != "" {
				doc.Title = h.Text
				break
			}
		}
	}
	return doc
}

func formatFor(path string) string {
	switch {
	case strings.HasSuffix(path, ".rst"):
		return FormatRST
	case strings.HasSuffix(path, ".adoc"), strings.HasSuffix(path, ".asciidoc"):
		return FormatAsciiDoc
	case strings.HasSuffix(path, ".html"), strings.HasSuffix(path, ".htm"):
		return FormatHTML
	default:
		return FormatMarkdown
	}
}

// Anchors returns the normalized anchor set for the document's headings.
func (d *Document) Anchors() map[string]bool {
	anchors := make(map[string]bool, len(d.Headings))
	for _, h := range d.Headings {
		if h.Anchor != "" {
			anchors[h.Anchor] = true
		}
	}
	return anchors
}

func (d *Document) addLink(target string, line int) {
	target = strings.TrimSpace(target)
	kind := classifyLink(target)
	if kind == linkSkip {
		return
	}
	d.Links = append(d.Links, Link{Target: target, Kind: kind, Line: line})
}

func (d *Document) addHeading(text, anchor string, level, line int) {
	if anchor == "" {
		anchor = NormalizeAnchor(text)
	}
	d.Headings = append(d.Headings, Heading{Text: strings.TrimSpace(text), Anchor: anchor, Level: level, Line: line})
}

func (d *Document) addSymbol(raw, kind string, line int) {
	token := NormalizeToken(raw)
	if token == "" {
		return
	}
	d.Symbols = append(d.Symbols, SymbolRef{Token: token, Raw: raw, Kind: kind, Line: line})
}

func (d *Document) addBlock(b CodeBlock) {
	if strings.TrimSpace(b.Text) == "" {
		return
	}
	d.Blocks = append(d.Blocks, b)
}

func classifyLink(target string) string {
	switch {
	case target == "":
		return linkSkip
	case strings.HasPrefix(target, "#"):
		return LinkAnchor
	case strings.HasPrefix(target, "http://"), strings.HasPrefix(target, "https://"):
		return LinkExternal
	case strings.Contains(target, "://"),
		strings.HasPrefix(target, "mailto:"),
		strings.HasPrefix(target, "tel:"),
		strings.HasPrefix(target, "data:"),
		strings.HasPrefix(target, "javascript:"):
		return linkSkip
	default:
		return LinkRelative
	}
}

// NormalizeAnchor converts heading text to the anchor slug doc renderers
// generate: lowercase, punctuation stripped, spaces collapsed to hyphens.
func NormalizeAnchor(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		switch {
		case r == ' ' || r == '\t':
			b.WriteByte('-')
		case r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeToken rewrites the delimiters of a symbol or module mention to
// dots: Rust crate::mod::Type, JS Class#method, PHP Class->method, and Go
// pkg/sub.Func all normalize to the dotted form the index stores.
func NormalizeToken(raw string) string {
	s := strings.Trim(raw, "`")
	s = strings.ReplaceAll(s, "::", ".")
	s = strings.ReplaceAll(s, "#", ".")
	s = strings.ReplaceAll(s, "->", ".")
	s = strings.ReplaceAll(s, "/", ".")
	return strings.Trim(s, ".")
}

var (
	// Qualified symbol mention inside a code span. At least one delimiter
	// is required so single words ("config", "true") never count.
	qualifiedSpanPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*(?:(?:::|->|[.#/])[A-Za-z_][A-Za-z0-9_]*)+`)

	// Mentions that end in a file extension are paths, not symbols.
	fileExtPattern = regexp.MustCompile(`\.(go|js|ts|tsx|jsx|py|rs|java|kt|rb|c|cpp|h|hpp|cs|swift|md|json|yaml|yml|toml|xml|html|css|scss|sql|sh|bash|zsh|scip|lock|sum|mod)$`)

	hintRangePattern = regexp.MustCompile(`^L(\d+)(?:-L?(\d+))?$`)
)

// spanRefs extracts symbol references from one inline code span. Spans
// holding an import statement yield module references; anything else is
// scanned for qualified tokens.
func spanRefs(doc *Document, text string, line int) {
	if refs := importTokens("", text); len(refs) > 0 {
		for _, r := range refs {
			r.Line = line
			doc.Symbols = append(doc.Symbols, r)
		}
		return
	}
	for _, m := range qualifiedSpanPattern.FindAllString(text, -1) {
		if fileExtPattern.MatchString(m) {
			continue
		}
		doc.addSymbol(m, RefInlineCode, line)
	}
}

// ParseSourceHint parses "path#L3-L9" hint values from fence attributes
// and front matter. The line range is optional.
func ParseSourceHint(s string) (SourceHint, bool) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"'`))
	if s == "" {
		return SourceHint{}, false
	}
	hint := SourceHint{Path: s}
	if i := strings.Index(s, "#"); i >= 0 {
		m := hintRangePattern.FindStringSubmatch(s[i+1:])
		if m == nil {
			return SourceHint{}, false
		}
		hint.Path = s[:i]
		hint.StartLine, _ = strconv.Atoi(m[1])
		hint.EndLine = hint.StartLine
		if m[2] != "" {
			hint.EndLine, _ = strconv.Atoi(m[2])
		}
	}
	if hint.Path == "" || hint.EndLine < hint.StartLine {
		return SourceHint{}, false
	}
	hint.Path = strings.ReplaceAll(hint.Path, "\\", "/")
	return hint, true
}

// lineIndex maps byte offsets to 1-indexed line numbers.
type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	idx := lineIndex{0}
	for i, b := range src {
		if b == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (li lineIndex) lineAt(offset int) int {
	return sort.Search(len(li), func(i int) bool { return li[i] > offset })
}

func splitLines(src []byte) []string {
	s := strings.ReplaceAll(string(src), "\r\n", "\n")
	return strings.Split(s, "\n")
}
