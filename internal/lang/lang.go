// Package lang classifies repository files by language and role.
package lang

import (
	"path/filepath"
	"strings"
)

// Language represents a supported programming language.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
)

// FromExtension returns the Language for a file extension.
func FromExtension(ext string) (Language, bool) {
	switch strings.ToLower(ext) {
	case ".go":
		return LangGo, true
	case ".js", ".mjs", ".cjs":
		return LangJavaScript, true
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".jsx":
		return LangJavaScript, true // JSX uses JS parser
	case ".py", ".pyw":
		return LangPython, true
	case ".rs":
		return LangRust, true
	case ".java":
		return LangJava, true
	case ".kt", ".kts":
		return LangKotlin, true
	default:
		return "", false
	}
}

// FromPath returns the Language for a file path.
func FromPath(path string) (Language, bool) {
	return FromExtension(filepath.Ext(path))
}

// FromFenceTag maps a fenced-code-block info tag to a Language.
// Tags cover the common aliases doc authors use (golang, py, rs, ...).
func FromFenceTag(tag string) (Language, bool) {
	switch strings.ToLower(tag) {
	case "go", "golang":
		return LangGo, true
	case "js", "javascript", "jsx", "node":
		return LangJavaScript, true
	case "ts", "typescript":
		return LangTypeScript, true
	case "tsx":
		return LangTSX, true
	case "py", "python", "python3":
		return LangPython, true
	case "rs", "rust":
		return LangRust, true
	case "java":
		return LangJava, true
	case "kt", "kotlin":
		return LangKotlin, true
	default:
		return "", false
	}
}

// IsDocPath reports whether the path is a documentation file.
func IsDocPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".rst", ".adoc", ".asciidoc", ".html", ".htm":
		return true
	default:
		return false
	}
}

// IsSourcePath reports whether the path is a recognized source file.
func IsSourcePath(path string) bool {
	_, ok := FromPath(path)
	return ok
}

// ModuleName derives the dotted module name for a source file path, in the
// convention import statements use: "src/pkg/util.py" becomes
// "src.pkg.util" (and resolvers also try the suffix "pkg.util", "util").
func ModuleName(path string) string {
	ext := filepath.Ext(path)
	trimmed := strings.TrimSuffix(path, ext)
	trimmed = strings.TrimSuffix(trimmed, "/__init__")
	trimmed = strings.TrimSuffix(trimmed, "/index")
	return strings.ReplaceAll(trimmed, "/", ".")
}
