package extract

import (
	"regexp"
	"strings"
)

var (
	rstDirectivePattern = regexp.MustCompile(`^\s*\.\.\s+([a-z-]+)::\s*(.*)$`)
	rstTargetPattern    = regexp.MustCompile(`^\s*\.\.\s+_[^:]+:\s+(\S+)\s*$`)
	rstHyperlinkPattern = regexp.MustCompile("`[^`<]*<([^>]+)>`__?")
	rstLiteralPattern   = regexp.MustCompile("``([^`]+)``")
	rstOptionPattern    = regexp.MustCompile(`^\s+:[\w-]+:`)

	bareURLPattern = regexp.MustCompile(`https?://[^\s<>\[\]()'"]+`)

	rstUnderlineChars = "=-~^\"'#*+:.`"
)

// parseRST extracts artifacts from reStructuredText. The parse is line
// based: section underlines, directives with indented bodies, inline
// literals, and hyperlink references cover what documentation actually
// uses.
func parseRST(doc *Document, src []byte) {
	lines := splitLines(src)
	levels := make(map[byte]int)

	i := 0
	for i < len(lines) {
		line := lines[i]
		n := i + 1

		if m := rstDirectivePattern.FindStringSubmatch(line); m != nil {
			name, arg := m[1], strings.TrimSpace(m[2])
			switch name {
			case "code", "code-block", "sourcecode":
				body, bodyStart, next := rstIndentedBody(lines, i+1)
				tag := strings.ToLower(arg)
				doc.addBlock(CodeBlock{Tag: tag, Text: body, Line: n})
				if body != "" {
					scanBlockImports(doc, tag, body, bodyStart)
				}
				i = next
				continue
			case "image", "figure", "include", "literalinclude":
				if arg != "" {
					doc.addLink(arg, n)
				}
			}
			i++
			continue
		}

		if m := rstTargetPattern.FindStringSubmatch(line); m != nil {
			doc.addLink(m[1], n)
			i++
			continue
		}

		if i+1 < len(lines) && isRSTUnderline(lines[i+1], line) {
			c := strings.TrimRight(lines[i+1], " \t")[0]
			if _, ok := levels[c]; !ok {
				levels[c] = len(levels) + 1
			}
			doc.addHeading(line, "", levels[c], n)
			i += 2
			continue
		}

		rstProseLine(doc, line, n)
		i++
	}
}

// rstProseLine scans one prose line for inline literals, hyperlink targets,
// and bare URLs. Literal spans are masked before link scanning so code
// fragments never register as links.
func rstProseLine(doc *Document, line string, n int) {
	for _, m := range rstLiteralPattern.FindAllStringSubmatch(line, -1) {
		spanRefs(doc, m[1], n)
	}
	masked := rstLiteralPattern.ReplaceAllString(line, "")

	seen := make(map[string]bool)
	for _, m := range rstHyperlinkPattern.FindAllStringSubmatch(masked, -1) {
		target := strings.TrimSpace(m[1])
		if !seen[target] {
			seen[target] = true
			doc.addLink(target, n)
		}
	}
	masked = rstHyperlinkPattern.ReplaceAllString(masked, "")

	for _, m := range bareURLPattern.FindAllString(masked, -1) {
		target := strings.TrimRight(m, ".,;:!?")
		if !seen[target] {
			seen[target] = true
			doc.addLink(target, n)
		}
	}
}

// rstIndentedBody collects the indented body that follows a directive,
// skipping option lines. It returns the dedented body, the 1-indexed line
// of its first line, and the index scanning should resume at.
func rstIndentedBody(lines []string, start int) (string, int, int) {
	j := start
	for j < len(lines) {
		if strings.TrimSpace(lines[j]) == "" || rstOptionPattern.MatchString(lines[j]) {
			j++
			continue
		}
		break
	}
	if j >= len(lines) || indentOf(lines[j]) == 0 {
		return "", 0, j
	}

	indent := indentOf(lines[j])
	bodyStart := j + 1
	var body []string
	end := j
	for end < len(lines) {
		if strings.TrimSpace(lines[end]) == "" {
			body = append(body, "")
			end++
			continue
		}
		if indentOf(lines[end]) < indent {
			break
		}
		body = append(body, dedent(lines[end], indent))
		end++
	}
	for len(body) > 0 && body[len(body)-1] == "" {
		body = body[:len(body)-1]
	}
	return strings.Join(body, "\n"), bodyStart, end
}

func isRSTUnderline(under, text string) bool {
	u := strings.TrimRight(under, " \t")
	t := strings.TrimRight(text, " \t")
	if len(u) < 2 || t == "" || len(u) < len(t) {
		return false
	}
	if strings.HasPrefix(text, " ") || strings.HasPrefix(text, "\t") {
		return false
	}
	c := u[0]
	if !strings.ContainsRune(rstUnderlineChars, rune(c)) {
		return false
	}
	for k := 0; k < len(u); k++ {
		if u[k] != c {
			return false
		}
	}
	return true
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

func dedent(line string, indent int) string {
	if len(line) <= indent {
		return strings.TrimLeft(line, " \t")
	}
	return line[indent:]
}
