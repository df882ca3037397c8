package extract

import (
	"regexp"
	"strings"
)

var (
	adocHeadingPattern    = regexp.MustCompile(`^(=+)\s+(\S.*)$`)
	adocAnchorPattern     = regexp.MustCompile(`^\[\[([\w.-]+)\]\]$`)
	adocSourceAttrPattern = regexp.MustCompile(`^\[\s*source\s*((?:,[^\]]*)?)\]$`)
	adocMacroLinkPattern  = regexp.MustCompile(`\b(?:link|xref):([^\[\s]+)\[`)
	adocBlockMacroPattern = regexp.MustCompile(`^(?:image|include)::([^\[\s]+)\[`)
	adocListingDelim      = regexp.MustCompile(`^-{4,}\s*$`)
	adocFenceDelim        = regexp.MustCompile("^`{3,}([A-Za-z0-9+-]*)\\s*$")
	adocInlineCodePattern = regexp.MustCompile("`([^`]+)`")
)

// parseAsciiDoc extracts artifacts from AsciiDoc input. Listing blocks
// carry their language through the preceding [source,lang] attribute line;
// markdown-style fences work as well since asciidoctor accepts them.
func parseAsciiDoc(doc *Document, src []byte) {
	lines := splitLines(src)

	pendingTag, pendingHint := "", ""
	pendingAttr := false
	inBlock := false
	blockFence := false // closed by ``` rather than ----
	blockLine := 0
	blockTag, blockHint := "", ""
	var body []string

	closeBlock := func() {
		text := strings.Join(body, "\n")
		doc.addBlock(CodeBlock{Tag: blockTag, Hint: blockHint, Text: text, Line: blockLine})
		if text != "" {
			scanBlockImports(doc, blockTag, text, blockLine+1)
		}
		inBlock = false
		body = nil
	}

	for i, line := range lines {
		n := i + 1

		if inBlock {
			if (!blockFence && adocListingDelim.MatchString(line)) ||
				(blockFence && adocFenceDelim.MatchString(line)) {
				closeBlock()
				continue
			}
			body = append(body, line)
			continue
		}

		if m := adocSourceAttrPattern.FindStringSubmatch(line); m != nil {
			pendingTag, pendingHint = parseAdocSourceAttr(m[1])
			pendingAttr = true
			continue
		}
		if adocListingDelim.MatchString(line) {
			inBlock, blockFence, blockLine = true, false, n
			blockTag, blockHint = pendingTag, pendingHint
			pendingTag, pendingHint, pendingAttr = "", "", false
			continue
		}
		if m := adocFenceDelim.FindStringSubmatch(line); m != nil {
			inBlock, blockFence, blockLine = true, true, n
			blockTag, blockHint = strings.ToLower(m[1]), pendingHint
			if blockTag == "" {
				blockTag = pendingTag
			}
			pendingTag, pendingHint, pendingAttr = "", "", false
			continue
		}
		// an attribute only survives blank and title lines up to its block
		if pendingAttr && strings.TrimSpace(line) != "" && !strings.HasPrefix(line, ".") {
			pendingTag, pendingHint, pendingAttr = "", "", false
		}

		if m := adocHeadingPattern.FindStringSubmatch(line); m != nil {
			doc.addHeading(m[2], "", len(m[1]), n)
			continue
		}
		if m := adocAnchorPattern.FindStringSubmatch(line); m != nil {
			doc.Headings = append(doc.Headings, Heading{Anchor: m[1], Line: n})
			continue
		}
		if m := adocBlockMacroPattern.FindStringSubmatch(line); m != nil {
			doc.addLink(m[1], n)
			continue
		}

		adocProseLine(doc, line, n)
	}
	if inBlock {
		closeBlock()
	}
}

func adocProseLine(doc *Document, line string, n int) {
	for _, m := range adocInlineCodePattern.FindAllStringSubmatch(line, -1) {
		spanRefs(doc, m[1], n)
	}
	masked := adocInlineCodePattern.ReplaceAllString(line, "")

	seen := make(map[string]bool)
	for _, m := range adocMacroLinkPattern.FindAllStringSubmatch(masked, -1) {
		target := strings.TrimSpace(m[1])
		if !seen[target] {
			seen[target] = true
			doc.addLink(target, n)
		}
	}
	masked = adocMacroLinkPattern.ReplaceAllString(masked, "")

	for _, m := range bareURLPattern.FindAllString(masked, -1) {
		target := strings.TrimRight(m, ".,;:!?")
		if !seen[target] {
			seen[target] = true
			doc.addLink(target, n)
		}
	}
}

// parseAdocSourceAttr pulls the language and file= hint out of the rest of
// a [source,...] attribute line, e.g. ",go,file=internal/server.go#L5-L9".
func parseAdocSourceAttr(rest string) (tag, hint string) {
	for _, part := range strings.Split(rest, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "file=") {
			hint = strings.TrimPrefix(part, "file=")
			continue
		}
		if tag == "" && !strings.Contains(part, "=") {
			tag = strings.ToLower(part)
		}
	}
	return tag, hint
}
