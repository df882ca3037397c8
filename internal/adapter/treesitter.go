//go:build cgo

package adapter

import (
	"context"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"docrot/internal/lang"
)

func treeSitterAvailable() bool { return true }

// newTreeSitterAdapter upgrades a built-in adapter to AST-backed
// extraction. Tokenize stays with the fallback so drift classification
// does not depend on how the binary was built.
func newTreeSitterAdapter(language lang.Language, fallback Adapter) Adapter {
	if sitterLanguage(language) == nil {
		return fallback
	}
	return &treeSitterAdapter{language: language, fallback: fallback}
}

type treeSitterAdapter struct {
	language lang.Language
	fallback Adapter
}

func (a *treeSitterAdapter) Language() lang.Language { return a.language }

func (a *treeSitterAdapter) Tokenize(content []byte) []string {
	return a.fallback.Tokenize(content)
}

func (a *treeSitterAdapter) Extract(content []byte) []Symbol {
	// Parsers are not safe for concurrent use and extraction runs on a
	// worker pool, so each call gets its own.
	parser := sitter.NewParser()
	parser.SetLanguage(sitterLanguage(a.language))
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil || tree == nil {
		return a.fallback.Extract(content)
	}
	root := tree.RootNode()
	if root == nil {
		return a.fallback.Extract(content)
	}

	w := &astWalker{
		language: a.language,
		source:   content,
		nodes:    nodeTypesFor(a.language),
	}
	w.walk(root, "")
	symbols := w.symbols

	// The grammar walk covers functions and types; constants still come
	// from the line scanner so both builds report the same names.
	for _, s := range a.fallback.Extract(content) {
		if s.Kind == KindConstant {
			symbols = append(symbols, s)
		}
	}
	sort.Slice(symbols, func(i, j int) bool {
		if symbols[i].Line != symbols[j].Line {
			return symbols[i].Line < symbols[j].Line
		}
		return symbols[i].Name < symbols[j].Name
	})
	return symbols
}

func sitterLanguage(l lang.Language) *sitter.Language {
	switch l {
	case lang.LangGo:
		return golang.GetLanguage()
	case lang.LangJavaScript:
		return javascript.GetLanguage()
	case lang.LangTypeScript:
		return typescript.GetLanguage()
	case lang.LangTSX:
		return tsx.GetLanguage()
	case lang.LangPython:
		return python.GetLanguage()
	case lang.LangRust:
		return rust.GetLanguage()
	case lang.LangJava:
		return java.GetLanguage()
	case lang.LangKotlin:
		return kotlin.GetLanguage()
	default:
		return nil
	}
}

// nodeTypes lists the grammar node types the walker reacts to.
type nodeTypes struct {
	functions  map[string]bool
	types      map[string]bool
	containers map[string]bool // qualify members without emitting (rust impl)
}

func nodeTypesFor(l lang.Language) nodeTypes {
	set := func(names ...string) map[string]bool {
		m := make(map[string]bool, len(names))
		for _, n := range names {
			m[n] = true
		}
		return m
	}
	switch l {
	case lang.LangGo:
		return nodeTypes{
			functions: set("function_declaration", "method_declaration"),
			types:     set("type_declaration"),
		}
	case lang.LangJavaScript:
		return nodeTypes{
			functions: set("function_declaration", "generator_function_declaration", "method_definition"),
			types:     set("class_declaration"),
		}
	case lang.LangTypeScript, lang.LangTSX:
		return nodeTypes{
			functions: set("function_declaration", "generator_function_declaration", "method_definition"),
			types: set("class_declaration", "abstract_class_declaration",
				"interface_declaration", "enum_declaration", "type_alias_declaration"),
		}
	case lang.LangPython:
		return nodeTypes{
			functions: set("function_definition"),
			types:     set("class_definition"),
		}
	case lang.LangRust:
		return nodeTypes{
			functions:  set("function_item"),
			types:      set("struct_item", "enum_item", "trait_item", "union_item"),
			containers: set("impl_item"),
		}
	case lang.LangJava:
		return nodeTypes{
			functions: set("method_declaration", "constructor_declaration"),
			types:     set("class_declaration", "interface_declaration", "enum_declaration", "record_declaration"),
		}
	case lang.LangKotlin:
		return nodeTypes{
			functions: set("function_declaration"),
			types:     set("class_declaration", "interface_declaration", "object_declaration"),
		}
	default:
		return nodeTypes{}
	}
}

type astWalker struct {
	language lang.Language
	source   []byte
	nodes    nodeTypes
	symbols  []Symbol
}

func (w *astWalker) walk(node *sitter.Node, container string) {
	if node == nil {
		return
	}
	nodeType := node.Type()
	switch {
	case w.nodes.types[nodeType]:
		w.walkType(node, container)
	case w.nodes.containers[nodeType]:
		name := ""
		if t := node.ChildByFieldName("type"); t != nil {
			name = firstTypeIdentifier(t, w.source)
		}
		w.walkChildren(node, name)
	case w.nodes.functions[nodeType]:
		w.emitFunction(node, container)
	default:
		w.walkChildren(node, container)
	}
}

func (w *astWalker) walkChildren(node *sitter.Node, container string) {
	for i := uint32(0); i < node.ChildCount(); i++ {
		w.walk(node.Child(int(i)), container)
	}
}

// walkType emits a type symbol and descends with it as the container so
// members get qualified names. Go type declarations can hold several
// specs and their methods live at top level instead.
func (w *astWalker) walkType(node *sitter.Node, container string) {
	if w.language == lang.LangGo {
		for i := uint32(0); i < node.ChildCount(); i++ {
			child := node.Child(int(i))
			if child == nil || child.Type() != "type_spec" {
				continue
			}
			if name := w.nodeName(child); name != "" {
				w.symbols = append(w.symbols, Symbol{
					Name:    name,
					Kind:    KindType,
					Line:    int(child.StartPoint().Row) + 1,
					EndLine: int(child.EndPoint().Row) + 1,
				})
			}
		}
		return
	}

	name := w.nodeName(node)
	if name == "" {
		w.walkChildren(node, container)
		return
	}
	if container != "" {
		name = container + "." + name
	}
	w.symbols = append(w.symbols, Symbol{
		Name:    name,
		Kind:    KindType,
		Line:    int(node.StartPoint().Row) + 1,
		EndLine: int(node.EndPoint().Row) + 1,
	})
	w.walkChildren(node, name)
}

// emitFunction records a function or method. Bodies are not descended
// into, matching what the line scanners report.
func (w *astWalker) emitFunction(node *sitter.Node, container string) {
	name := w.nodeName(node)
	if name == "" || controlFlowNames[name] {
		return
	}
	if w.language == lang.LangGo && node.Type() == "method_declaration" {
		if recv := firstTypeIdentifier(node.ChildByFieldName("receiver"), w.source); recv != "" {
			container = recv
		}
	}
	if container != "" {
		name = container + "." + name
	}
	w.symbols = append(w.symbols, Symbol{
		Name:    name,
		Kind:    KindFunction,
		Line:    int(node.StartPoint().Row) + 1,
		EndLine: int(node.EndPoint().Row) + 1,
	})
}

func (w *astWalker) nodeName(node *sitter.Node) string {
	if n := node.ChildByFieldName("name"); n != nil {
		return w.text(n)
	}
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child == nil {
			continue
		}
		switch child.Type() {
		case "identifier", "simple_identifier", "type_identifier":
			return w.text(child)
		}
	}
	return ""
}

func (w *astWalker) text(node *sitter.Node) string {
	return string(w.source[node.StartByte():node.EndByte()])
}

func firstTypeIdentifier(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	if node.Type() == "type_identifier" {
		return string(source[node.StartByte():node.EndByte()])
	}
	for i := uint32(0); i < node.ChildCount(); i++ {
		if name := firstTypeIdentifier(node.Child(int(i)), source); name != "" {
			return name
		}
	}
	return ""
}
