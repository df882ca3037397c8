package adapter

import (
	"regexp"
	"strings"
)

// tokenPattern splits code into identifiers, numbers, and single
// punctuation characters. Whitespace never produces a token.
var tokenPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*|\d+(?:\.\d+)?|[^\sA-Za-z0-9_]`)

// tokenize normalizes source text into a comparable token stream.
// Comments and whitespace are discarded so formatting-only edits
// produce identical streams.
func tokenize(content []byte, lineComment string, blockComments, tripleQuote bool) []string {
	cleaned := stripComments(string(content), lineComment, blockComments, tripleQuote)
	return tokenPattern.FindAllString(cleaned, -1)
}

// stripComments removes line comments, /* */ blocks, and python
// triple-quoted strings in a single string-aware pass. Comment markers
// inside string literals are left alone.
func stripComments(src, lineComment string, blockComments, tripleQuote bool) string {
	var b strings.Builder
	b.Grow(len(src))
	n := len(src)
	i := 0
	for i < n {
		if lineComment != "" && strings.HasPrefix(src[i:], lineComment) {
			for i < n && src[i] != '\n' {
				i++
			}
			continue
		}
		if blockComments && strings.HasPrefix(src[i:], "/*") {
			b.WriteByte(' ')
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				break
			}
			i += 2 + end + 2
			continue
		}
		if tripleQuote && i+3 <= n && (src[i:i+3] == `"""` || src[i:i+3] == "'''") {
			b.WriteByte(' ')
			end := strings.Index(src[i+3:], src[i:i+3])
			if end < 0 {
				break
			}
			i += 3 + end + 3
			continue
		}
		c := src[i]
		if c == '"' || c == '\'' || c == '`' {
			b.WriteByte(c)
			i++
			for i < n {
				if src[i] == '\\' && c != '`' && i+1 < n {
					b.WriteByte(src[i])
					b.WriteByte(src[i+1])
					i += 2
					continue
				}
				b.WriteByte(src[i])
				if src[i] == c {
					i++
					break
				}
				// Unterminated literal: stop at end of line so a stray
				// quote cannot swallow the rest of the file.
				if src[i] == '\n' && c != '`' {
					i++
					break
				}
				i++
			}
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

// stripLineComment cuts a single line at the comment marker, ignoring
// markers inside string literals.
func stripLineComment(line, marker string) string {
	if marker == "" || !strings.Contains(line, marker) {
		return line
	}
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			if c == '\\' && quote != '`' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '"' || c == '\'' || c == '`' {
			quote = c
			continue
		}
		if strings.HasPrefix(line[i:], marker) {
			return line[:i]
		}
	}
	return line
}
