// Package adapter extracts declarations from source files.
//
// A built-in regex adapter covers each supported language. When the binary
// is built with cgo, tree-sitter parsers take over extraction for higher
// fidelity; tokenization stays regex-based so drift classification does not
// depend on how the binary was built. Custom adapters for additional file
// extensions can be loaded from a TOML file.
package adapter

import (
	"path/filepath"
	"strings"

	"docrot/internal/lang"
)

// Symbol kinds.
const (
	KindModule   = "module"
	KindFunction = "function"
	KindType     = "type"
	KindConstant = "constant"
)

// Symbol is one extracted declaration. Names are qualified with their
// container where one exists ("Config.Load", "Parser.parse").
type Symbol struct {
	Name    string
	Kind    string
	Line    int // 1-indexed start of the declaration
	EndLine int // 1-indexed last line of the body; == Line for one-liners
}

// Adapter extracts declarations from one language's source.
type Adapter interface {
	Language() lang.Language
	Extract(content []byte) []Symbol
	Tokenize(content []byte) []string
}

// Registry maps files to their adapters.
type Registry struct {
	byLang map[lang.Language]Adapter
	byExt  map[string]Adapter // custom adapters, keyed by lowercase extension
}

// NewRegistry returns a registry with all built-in adapters registered.
// Tree-sitter extraction wraps the built-ins when available.
func NewRegistry() *Registry {
	r := &Registry{
		byLang: make(map[lang.Language]Adapter),
		byExt:  make(map[string]Adapter),
	}

	for _, a := range builtinAdapters() {
		r.byLang[a.Language()] = a
	}

	if treeSitterAvailable() {
		for l, a := range r.byLang {
			r.byLang[l] = newTreeSitterAdapter(l, a)
		}
	}

	return r
}

// ForPath returns the adapter responsible for a file path, or nil when no
// adapter covers its extension. Custom adapters take precedence over
// built-ins for their registered extensions.
func (r *Registry) ForPath(path string) Adapter {
	ext := strings.ToLower(filepath.Ext(path))
	if a, ok := r.byExt[ext]; ok {
		return a
	}
	l, ok := lang.FromExtension(ext)
	if !ok {
		return nil
	}
	return r.byLang[l]
}

// ForLanguage returns the adapter for a language, or nil when none is
// registered.
func (r *Registry) ForLanguage(l lang.Language) Adapter {
	return r.byLang[l]
}
