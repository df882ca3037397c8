package adapter

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"docrot/internal/lang"
)

// customFile is the on-disk format for user-defined adapters:
//
//	[adapters.terraform]
//	extensions = [".tf", ".tfvars"]
//	line_comment = "#"
//
//	[[adapters.terraform.patterns]]
//	kind = "type"
//	regex = '^resource\s+"[^"]+"\s+"([^"]+)"'
type customFile struct {
	Adapters map[string]customDef `toml:"adapters"`
}

type customDef struct {
	Extensions  []string        `toml:"extensions"`
	LineComment string          `toml:"line_comment"`
	Patterns    []customPattern `toml:"patterns"`
}

type customPattern struct {
	Kind  string `toml:"kind"`
	Regex string `toml:"regex"`
}

// LoadCustom registers adapters defined in a TOML file. Custom
// extensions take precedence over built-ins for lookup by path. A
// missing file is not an error.
func (r *Registry) LoadCustom(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read adapter config: %w", err)
	}

	var file customFile
	if _, err := toml.Decode(string(data), &file); err != nil {
		return fmt.Errorf("parse adapter config: %w", err)
	}

	names := make([]string, 0, len(file.Adapters))
	for name := range file.Adapters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		a, err := newCustomAdapter(name, file.Adapters[name])
		if err != nil {
			return err
		}
		r.byLang[a.Language()] = a
		for _, ext := range file.Adapters[name].Extensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			r.byExt[ext] = a
		}
	}
	return nil
}

// customAdapter matches one pattern list against each line. The first
// pattern that hits a line names the symbol via its capture group.
type customAdapter struct {
	language    lang.Language
	lineComment string
	patterns    []customRule
}

type customRule struct {
	kind string
	re   *regexp.Regexp
}

func newCustomAdapter(name string, def customDef) (*customAdapter, error) {
	if len(def.Extensions) == 0 {
		return nil, fmt.Errorf("adapter %q: extensions are required", name)
	}
	if len(def.Patterns) == 0 {
		return nil, fmt.Errorf("adapter %q: at least one pattern is required", name)
	}
	a := &customAdapter{
		language:    lang.Language(name),
		lineComment: def.LineComment,
	}
	for i, p := range def.Patterns {
		switch p.Kind {
		case KindModule, KindFunction, KindType, KindConstant:
		default:
			return nil, fmt.Errorf("adapter %q: pattern %d: unknown kind %q", name, i, p.Kind)
		}
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("adapter %q: pattern %d: %w", name, i, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("adapter %q: pattern %d: regex needs a capture group for the name", name, i)
		}
		a.patterns = append(a.patterns, customRule{kind: p.Kind, re: re})
	}
	return a, nil
}

func (a *customAdapter) Language() lang.Language { return a.language }

func (a *customAdapter) Extract(content []byte) []Symbol {
	var symbols []Symbol
	for i, line := range strings.Split(string(content), "\n") {
		code := stripLineComment(line, a.lineComment)
		for _, rule := range a.patterns {
			name := matchName(rule.re, code, nil)
			if name == "" {
				continue
			}
			symbols = append(symbols, Symbol{Name: name, Kind: rule.kind, Line: i + 1, EndLine: i + 1})
			break
		}
	}
	return symbols
}

func (a *customAdapter) Tokenize(content []byte) []string {
	return tokenize(content, a.lineComment, false, false)
}
