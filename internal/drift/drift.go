// Package drift compares documentation code blocks against the source
// regions they mirror. The comparison is token based: comments, whitespace,
// and layout never count as drift; changed signatures, structure, and
// identifiers rank major, changed literals and stray punctuation minor.
package drift

import (
	"os"
	"strings"

	"log/slog"

	"docrot/internal/adapter"
	"docrot/internal/finding"
	"docrot/internal/paths"
	"docrot/internal/resolve"
	"docrot/internal/slogutil"
)

// Drift classes.
const (
	ClassIdentical = "identical"
	ClassMinor     = "minor"
	ClassMajor     = "major"
)

// Options configures a drift pass.
type Options struct {
	Root     string // absolute repository root
	Registry *adapter.Registry
	Logger   *slog.Logger
}

// Detect compares each associated block with its source region and reports
// the ones that drifted. Source files are read once and shared across
// associations; unreadable files degrade to warnings.
func Detect(opts Options, assocs []resolve.Association) ([]finding.Finding, []finding.Warning) {
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	registry := opts.Registry
	if registry == nil {
		registry = adapter.NewRegistry()
	}

	var findings []finding.Finding
	var warnings []finding.Warning
	cache := make(map[string][]string)

	for _, a := range assocs {
		ad := registry.ForPath(a.File)
		if ad == nil {
			logger.Debug("no adapter for drift target", "file", a.File)
			continue
		}

		srcLines, ok := cache[a.File]
		if !ok {
			data, err := os.ReadFile(paths.JoinRepoPath(opts.Root, a.File))
			if err != nil {
				warnings = append(warnings, finding.Warnf(a.File, "cannot read for drift check: %v", err))
				cache[a.File] = nil
				continue
			}
			srcLines = strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
			cache[a.File] = srcLines
		}
		if srcLines == nil {
			continue
		}

		region, ok := sourceRegion(srcLines, a.StartLine, a.EndLine)
		if !ok {
			findings = append(findings, finding.CodeDrift(a.Doc, a.Line, a.Symbol, ClassMajor, "source region removed"))
			continue
		}

		class, reason := Compare([]byte(blockRegion(a)), []byte(region), ad, lastSegment(a.Symbol))
		if class != ClassIdentical {
			findings = append(findings, finding.CodeDrift(a.Doc, a.Line, a.Symbol, class, reason))
		}
	}
	return findings, warnings
}

// Compare classifies the divergence between a documented block and its
// source text. symbol, when it appears in both token streams, anchors the
// signature comparison.
func Compare(block, source []byte, ad adapter.Adapter, symbol string) (class, reason string) {
	bt := ad.Tokenize(block)
	st := ad.Tokenize(source)
	if equalTokens(bt, st) {
		return ClassIdentical, ""
	}

	bc := collapseStrings(bt)
	sc := collapseStrings(st)

	if symbol != "" {
		bsig, bok := signatureTokens(bc, symbol)
		ssig, sok := signatureTokens(sc, symbol)
		if bok && sok && !equalTokens(bsig, ssig) {
			return ClassMajor, "parameter list changed"
		}
	}
	if statementCount(bc) != statementCount(sc) {
		return ClassMajor, "statement count changed"
	}
	if !equalMultiset(identifierCounts(bc), identifierCounts(sc)) {
		return ClassMajor, "identifiers changed"
	}
	if !equalMultiset(literalCounts(bc), literalCounts(sc)) {
		return ClassMinor, "literal values changed"
	}
	return ClassMinor, "formatting tokens changed"
}

// sourceRegion slices the claimed region out of the file. start 0 means
// the whole file; a start past the end means the region is gone.
func sourceRegion(lines []string, start, end int) (string, bool) {
	if start <= 0 {
		return strings.Join(lines, "\n"), true
	}
	if start > len(lines) {
		return "", false
	}
	if end <= 0 || end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start-1:end], "\n"), true
}

// blockRegion trims the block body to the declaration span the
// association matched, when one was recorded.
func blockRegion(a resolve.Association) string {
	if a.BlockStart <= 0 {
		return a.Text
	}
	lines := strings.Split(a.Text, "\n")
	if a.BlockStart > len(lines) {
		return a.Text
	}
	end := a.BlockEnd
	if end <= 0 || end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[a.BlockStart-1:end], "\n")
}

// collapseStrings folds the tokens between matching quote tokens into one
// literal token so string contents cannot register as identifier drift.
// Escape tokens keep their following token inside the literal.
func collapseStrings(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t != `"` && t != "'" && t != "`" {
			out = append(out, t)
			continue
		}
		var lit strings.Builder
		closed := false
		j := i + 1
		for j < len(tokens) {
			if tokens[j] == `\` && j+1 < len(tokens) {
				lit.WriteString(tokens[j])
				lit.WriteString(tokens[j+1])
				j += 2
				continue
			}
			if tokens[j] == t {
				closed = true
				break
			}
			lit.WriteString(tokens[j])
			j++
		}
		if !closed {
			out = append(out, t)
			continue
		}
		out = append(out, t+lit.String()+t)
		i = j
	}
	return out
}

// signatureTokens returns the token run from the symbol name through its
// balanced parameter list.
func signatureTokens(tokens []string, symbol string) ([]string, bool) {
	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i] != symbol || tokens[i+1] != "(" {
			continue
		}
		depth := 0
		for j := i + 1; j < len(tokens); j++ {
			switch tokens[j] {
			case "(":
				depth++
			case ")":
				depth--
			}
			if depth == 0 {
				return tokens[i : j+1], true
			}
		}
		return nil, false
	}
	return nil, false
}

// statementCount approximates statement structure from delimiter tokens.
// Brace languages count ";" and "{"; indentation languages fall back to
// block-opening ":" tokens.
func statementCount(tokens []string) int {
	braces, colons := 0, 0
	for _, t := range tokens {
		switch t {
		case ";", "{":
			braces++
		case ":":
			colons++
		}
	}
	if braces == 0 {
		return colons
	}
	return braces
}

func identifierCounts(tokens []string) map[string]int {
	m := make(map[string]int)
	for _, t := range tokens {
		if isIdentifier(t) {
			m[t]++
		}
	}
	return m
}

func literalCounts(tokens []string) map[string]int {
	m := make(map[string]int)
	for _, t := range tokens {
		if t == "" {
			continue
		}
		c := t[0]
		if c >= '0' && c <= '9' || c == '"' || c == '\'' || c == '`' {
			m[t]++
		}
	}
	return m
}

func isIdentifier(t string) bool {
	if t == "" {
		return false
	}
	for i := 0; i < len(t); i++ {
		c := t[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalMultiset(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
