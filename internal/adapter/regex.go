package adapter

import (
	"regexp"
	"strings"

	"docrot/internal/lang"
)

// rules drives the shared line scanner for one language.
type rules struct {
	function *regexp.Regexp // top-level function; capture 1 = name
	method   *regexp.Regexp // function inside a type context; capture 1 = name
	typeDecl *regexp.Regexp // type declaration; capture 1 = name; opens a context
	context  *regexp.Regexp // opens a type context without emitting (rust impl)
	constant *regexp.Regexp // capture 1 = name
	receiver *regexp.Regexp // go methods; capture 1 = receiver type, 2 = name
	group    *regexp.Regexp // go const/var group opener; members scanned until ")"

	skipNames   map[string]bool // pseudo-matches to discard (if, for, ...)
	lineComment string
	tripleQuote bool // python: strip """ and ''' blocks before tokenizing
	indentStyle bool // python: blocks by indentation instead of braces
}

// regexAdapter is the built-in line-scanning adapter for one language.
type regexAdapter struct {
	language lang.Language
	rules    rules
}

func (a *regexAdapter) Language() lang.Language { return a.language }

func (a *regexAdapter) Extract(content []byte) []Symbol {
	lines := strings.Split(string(content), "\n")
	if a.rules.indentStyle {
		return a.extractIndent(lines)
	}
	return a.extractBraced(lines)
}

func (a *regexAdapter) Tokenize(content []byte) []string {
	return tokenize(content, a.rules.lineComment, !a.rules.tripleQuote, a.rules.tripleQuote)
}

type typeContext struct {
	name  string
	depth int
}

// extractBraced scans brace-delimited languages, tracking one level of
// type context so methods get qualified names.
func (a *regexAdapter) extractBraced(lines []string) []Symbol {
	var symbols []Symbol
	depth := 0
	var ctx *typeContext
	inGroup := false
	groupParens := 0

	for i, raw := range lines {
		code := stripLineComment(raw, a.rules.lineComment)
		lineNo := i + 1
		matched := false

		if inGroup {
			trimmed := strings.TrimSpace(code)
			if groupParens == 0 && strings.HasPrefix(trimmed, ")") {
				inGroup = false
				continue
			}
			if groupParens == 0 {
				if m := groupMemberPattern.FindStringSubmatch(code); m != nil && m[1] != "_" {
					symbols = append(symbols, Symbol{Name: m[1], Kind: KindConstant, Line: lineNo, EndLine: lineNo})
				}
			}
			groupParens += strings.Count(code, "(") - strings.Count(code, ")")
			if groupParens < 0 {
				groupParens = 0
			}
			continue
		}
		if depth == 0 && a.rules.group != nil && a.rules.group.MatchString(code) {
			inGroup = true
			groupParens = 0
			continue
		}

		if a.rules.receiver != nil && depth == 0 {
			if m := a.rules.receiver.FindStringSubmatch(code); m != nil {
				symbols = append(symbols, Symbol{
					Name:    m[1] + "." + m[2],
					Kind:    KindFunction,
					Line:    lineNo,
					EndLine: braceBlockEnd(lines, i),
				})
				matched = true
			}
		}
		if !matched && depth == 0 && a.rules.function != nil {
			if name := matchName(a.rules.function, code, a.rules.skipNames); name != "" {
				symbols = append(symbols, Symbol{
					Name:    name,
					Kind:    KindFunction,
					Line:    lineNo,
					EndLine: braceBlockEnd(lines, i),
				})
				matched = true
			}
		}
		if !matched && depth == 0 && a.rules.typeDecl != nil {
			if name := matchName(a.rules.typeDecl, code, a.rules.skipNames); name != "" {
				symbols = append(symbols, Symbol{
					Name:    name,
					Kind:    KindType,
					Line:    lineNo,
					EndLine: braceBlockEnd(lines, i),
				})
				ctx = &typeContext{name: name, depth: depth}
				matched = true
			}
		}
		if !matched && depth == 0 && a.rules.context != nil {
			if name := matchName(a.rules.context, code, nil); name != "" {
				ctx = &typeContext{name: name, depth: depth}
				matched = true
			}
		}
		if !matched && ctx != nil && depth == ctx.depth+1 && a.rules.method != nil {
			if name := matchName(a.rules.method, code, a.rules.skipNames); name != "" {
				symbols = append(symbols, Symbol{
					Name:    ctx.name + "." + name,
					Kind:    KindFunction,
					Line:    lineNo,
					EndLine: braceBlockEnd(lines, i),
				})
				matched = true
			}
		}
		if !matched && a.rules.constant != nil && (depth == 0 || (ctx != nil && depth == ctx.depth+1)) {
			if name := matchName(a.rules.constant, code, a.rules.skipNames); name != "" {
				if ctx != nil && depth == ctx.depth+1 {
					name = ctx.name + "." + name
				}
				symbols = append(symbols, Symbol{Name: name, Kind: KindConstant, Line: lineNo, EndLine: lineNo})
			}
		}

		depth += strings.Count(code, "{") - strings.Count(code, "}")
		if depth < 0 {
			depth = 0
		}
		if ctx != nil && depth <= ctx.depth {
			ctx = nil
		}
	}

	return symbols
}

// extractIndent scans indentation-delimited languages (python).
func (a *regexAdapter) extractIndent(lines []string) []Symbol {
	var symbols []Symbol
	var ctx *typeContext // depth carries the class line's indent

	for i, raw := range lines {
		code := stripLineComment(raw, a.rules.lineComment)
		if strings.TrimSpace(code) == "" {
			continue
		}
		indent := indentWidth(code)
		lineNo := i + 1

		if ctx != nil && indent <= ctx.depth {
			ctx = nil
		}

		if a.rules.typeDecl != nil && indent == 0 {
			if m := a.rules.typeDecl.FindStringSubmatch(code); m != nil {
				symbols = append(symbols, Symbol{
					Name:    m[1],
					Kind:    KindType,
					Line:    lineNo,
					EndLine: indentBlockEnd(lines, i),
				})
				ctx = &typeContext{name: m[1], depth: indent}
				continue
			}
		}
		if a.rules.function != nil {
			if m := a.rules.function.FindStringSubmatch(code); m != nil {
				switch {
				case ctx != nil && indent > ctx.depth:
					symbols = append(symbols, Symbol{
						Name:    ctx.name + "." + m[1],
						Kind:    KindFunction,
						Line:    lineNo,
						EndLine: indentBlockEnd(lines, i),
					})
				case indent == 0:
					symbols = append(symbols, Symbol{
						Name:    m[1],
						Kind:    KindFunction,
						Line:    lineNo,
						EndLine: indentBlockEnd(lines, i),
					})
				}
				continue
			}
		}
		if a.rules.constant != nil {
			if m := a.rules.constant.FindStringSubmatch(strings.TrimLeft(code, " \t")); m != nil {
				name := m[1]
				switch {
				case ctx != nil && indent > ctx.depth:
					name = ctx.name + "." + name
				case indent > 0:
					continue
				}
				symbols = append(symbols, Symbol{Name: name, Kind: KindConstant, Line: lineNo, EndLine: lineNo})
			}
		}
	}

	return symbols
}

// braceBlockEnd returns the 1-indexed line where the block opened at
// declIdx closes. Declarations without a block report their own line.
// Braces are walked per character so a block that opens and closes on
// the declaration line still counts as opened.
func braceBlockEnd(lines []string, declIdx int) int {
	depth := 0
	opened := false
	for j := declIdx; j < len(lines); j++ {
		for _, c := range lines[j] {
			switch c {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
			}
		}
		if opened && depth <= 0 {
			return j + 1
		}
		// No block started within two lines: declaration-only form
		if !opened && j > declIdx+1 {
			break
		}
	}
	return declIdx + 1
}

// indentBlockEnd returns the 1-indexed last line of the indented block
// starting at declIdx.
func indentBlockEnd(lines []string, declIdx int) int {
	declIndent := indentWidth(lines[declIdx])
	last := declIdx
	for j := declIdx + 1; j < len(lines); j++ {
		if strings.TrimSpace(lines[j]) == "" {
			continue
		}
		if indentWidth(lines[j]) <= declIndent {
			break
		}
		last = j
	}
	return last + 1
}

// indentWidth counts leading whitespace, tabs as width 4.
func indentWidth(line string) int {
	width := 0
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += 4
		default:
			return width
		}
	}
	return width
}

// matchName applies re to code and returns the first non-empty capture
// group, or "" when there is no match or the name is in skip. Rules with
// alternations put the name in different groups per branch.
func matchName(re *regexp.Regexp, code string, skip map[string]bool) string {
	m := re.FindStringSubmatch(code)
	if m == nil {
		return ""
	}
	for _, g := range m[1:] {
		if g == "" {
			continue
		}
		if skip[g] {
			return ""
		}
		return g
	}
	return ""
}

var controlFlowNames = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "switch": true,
	"catch": true, "return": true, "do": true, "try": true, "new": true,
	"typeof": true, "await": true, "yield": true, "match": true, "when": true,
}

// groupMemberPattern matches one declaration inside a const/var group:
// a name, optional extra names, an optional type, then "=" or end of
// line. Continuation lines of multi-line values do not fit this shape.
var groupMemberPattern = regexp.MustCompile(`^\s*([A-Za-z_]\w*)(?:\s*,\s*[A-Za-z_]\w*)*(?:\s+[\w.*\[\]{}]+)?\s*(?:=|$)`)

func builtinAdapters() []Adapter {
	return []Adapter{
		&regexAdapter{language: lang.LangGo, rules: rules{
			function:    regexp.MustCompile(`^func\s+([A-Za-z_]\w*)\s*\(`),
			receiver:    regexp.MustCompile(`^func\s+\(\s*[A-Za-z_]\w*\s+\*?([A-Za-z_]\w*)(?:\[[^\]]*\])?\s*\)\s+([A-Za-z_]\w*)\s*\(`),
			typeDecl:    regexp.MustCompile(`^type\s+([A-Za-z_]\w*)`),
			constant:    regexp.MustCompile(`^(?:const|var)\s+([A-Za-z_]\w*)`),
			group:       regexp.MustCompile(`^(?:const|var)\s*\(\s*$`),
			lineComment: "//",
		}},
		&regexAdapter{language: lang.LangPython, rules: rules{
			function:    regexp.MustCompile(`^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)`),
			typeDecl:    regexp.MustCompile(`^class\s+([A-Za-z_]\w*)`),
			constant:    regexp.MustCompile(`^([A-Z][A-Z0-9_]*)\s*=`),
			lineComment: "#",
			tripleQuote: true,
			indentStyle: true,
		}},
		&regexAdapter{language: lang.LangJavaScript, rules: jsRules(false)},
		&regexAdapter{language: lang.LangTypeScript, rules: jsRules(true)},
		&regexAdapter{language: lang.LangTSX, rules: jsRules(true)},
		&regexAdapter{language: lang.LangRust, rules: rules{
			function:    regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?(?:unsafe\s+)?fn\s+([A-Za-z_]\w*)`),
			method:      regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?(?:unsafe\s+)?fn\s+([A-Za-z_]\w*)`),
			typeDecl:    regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait|union)\s+([A-Za-z_]\w*)`),
			context:     regexp.MustCompile(`^\s*impl(?:<[^>]*>)?\s+(?:[\w:<>,\s]+\s+for\s+)?([A-Za-z_]\w*)`),
			constant:    regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:const|static)\s+([A-Za-z_]\w*)`),
			lineComment: "//",
		}},
		&regexAdapter{language: lang.LangJava, rules: rules{
			typeDecl:    regexp.MustCompile(`^\s*(?:(?:public|private|protected|abstract|final|static|sealed)\s+)*(?:class|interface|enum|record)\s+([A-Za-z_]\w*)`),
			method:      regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|final|abstract|synchronized|native|default)\s+)+[\w<>\[\],.?\s]*?([A-Za-z_]\w*)\s*\([^)]*\)\s*(?:\{|throws)`),
			constant:    regexp.MustCompile(`^\s*(?:(?:public|private|protected)\s+)?(?:static\s+final|final\s+static)\s+[\w<>\[\]]+\s+([A-Z][A-Z0-9_]*)\s*=`),
			skipNames:   controlFlowNames,
			lineComment: "//",
		}},
		&regexAdapter{language: lang.LangKotlin, rules: rules{
			function:    regexp.MustCompile(`^\s*(?:(?:public|private|internal|protected|open|override|suspend|inline|operator|infix|tailrec)\s+)*fun\s+(?:<[^>]*>\s+)?([A-Za-z_]\w*)`),
			method:      regexp.MustCompile(`^\s*(?:(?:public|private|internal|protected|open|override|suspend|inline|operator|infix|tailrec)\s+)*fun\s+(?:<[^>]*>\s+)?([A-Za-z_]\w*)`),
			typeDecl:    regexp.MustCompile(`^\s*(?:(?:public|private|internal|abstract|open|sealed|data|enum|annotation|inner)\s+)*(?:class|interface|object)\s+([A-Za-z_]\w*)`),
			constant:    regexp.MustCompile(`^\s*(?:const\s+)?val\s+([A-Z][A-Z0-9_]*)`),
			skipNames:   controlFlowNames,
			lineComment: "//",
		}},
	}
}

func jsRules(typescript bool) rules {
	r := rules{
		function:    regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)`),
		method:      regexp.MustCompile(`^\s*(?:static\s+)?(?:async\s+)?(?:get\s+|set\s+)?([A-Za-z_$][\w$]*)\s*(?:<[^>]*>)?\s*\([^)]*\)\s*(?::[^{;]*)?\{`),
		typeDecl:    regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`),
		constant:    regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=`),
		skipNames:   controlFlowNames,
		lineComment: "//",
	}
	if typescript {
		r.typeDecl = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:declare\s+)?(?:abstract\s+)?(?:class|interface|enum)\s+([A-Za-z_$][\w$]*)|^\s*(?:export\s+)?type\s+([A-Za-z_$][\w$]*)\s*=`)
	}
	return r
}
