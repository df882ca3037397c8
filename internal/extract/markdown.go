package extract

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// parseMarkdown extracts artifacts from CommonMark input via the goldmark
// AST. Front matter is split off first so reported lines match the file as
// written.
func parseMarkdown(doc *Document, src []byte) {
	body, fm, skipped := splitFrontMatter(src)
	doc.Title = fm.Title
	doc.Source = fm.Source

	md := goldmark.New(goldmark.WithParserOptions(parser.WithHeadingAttribute()))
	root := md.Parser().Parse(text.NewReader(body))

	w := &mdWalker{doc: doc, src: body, lines: newLineIndex(body), offset: skipped}
	_ = ast.Walk(root, w.visit)
}

type mdWalker struct {
	doc    *Document
	src    []byte
	lines  lineIndex
	offset int // lines occupied by stripped front matter
}

func (w *mdWalker) visit(n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	switch v := n.(type) {
	case *ast.Heading:
		w.heading(v)
	case *ast.Link:
		w.doc.addLink(string(v.Destination), w.nodeLine(v))
	case *ast.Image:
		w.doc.addLink(string(v.Destination), w.nodeLine(v))
	case *ast.AutoLink:
		w.doc.addLink(string(v.URL(w.src)), w.autoLinkLine(v))
	case *ast.FencedCodeBlock:
		w.fenced(v)
		return ast.WalkSkipChildren, nil
	case *ast.CodeBlock:
		w.indented(v)
		return ast.WalkSkipChildren, nil
	case *ast.CodeSpan:
		spanRefs(w.doc, textOf(v, w.src), w.nodeLine(v))
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (w *mdWalker) heading(v *ast.Heading) {
	line := 0
	if v.Lines().Len() > 0 {
		line = w.lineAt(v.Lines().At(0).Start)
	} else {
		line = w.nodeLine(v)
	}
	anchor := ""
	if id, ok := v.AttributeString("id"); ok {
		switch val := id.(type) {
		case []byte:
			anchor = string(val)
		case string:
			anchor = val
		}
	}
	w.doc.addHeading(textOf(v, w.src), anchor, v.Level, line)
}

func (w *mdWalker) fenced(v *ast.FencedCodeBlock) {
	info := ""
	line := 0
	if v.Info != nil {
		info = string(v.Info.Segment.Value(w.src))
		line = w.lineAt(v.Info.Segment.Start)
	}
	bodyLine := 0
	if v.Lines().Len() > 0 {
		bodyLine = w.lineAt(v.Lines().At(0).Start)
	}
	if line == 0 {
		if bodyLine == 0 {
			return
		}
		line = bodyLine - 1
	}

	tag, hint := parseFenceInfo(info)
	body := w.blockText(v)
	w.doc.addBlock(CodeBlock{Tag: tag, Hint: hint, Text: body, Line: line})
	if bodyLine > 0 {
		scanBlockImports(w.doc, tag, body, bodyLine)
	}
}

func (w *mdWalker) indented(v *ast.CodeBlock) {
	if v.Lines().Len() == 0 {
		return
	}
	line := w.lineAt(v.Lines().At(0).Start)
	body := w.blockText(v)
	w.doc.addBlock(CodeBlock{Text: body, Line: line})
	scanBlockImports(w.doc, "", body, line)
}

func (w *mdWalker) blockText(v ast.Node) string {
	var b bytes.Buffer
	for i := 0; i < v.Lines().Len(); i++ {
		b.Write(v.Lines().At(i).Value(w.src))
	}
	return b.String()
}

func (w *mdWalker) lineAt(offset int) int {
	return w.lines.lineAt(offset) + w.offset
}

// nodeLine finds the document line of an inline node through its first text
// segment, falling back to the enclosing block.
func (w *mdWalker) nodeLine(n ast.Node) int {
	line := 0
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok && t.Segment.Len() > 0 {
			line = w.lineAt(t.Segment.Start)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if line > 0 {
		return line
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Type() == ast.TypeBlock && p.Lines().Len() > 0 {
			return w.lineAt(p.Lines().At(0).Start)
		}
	}
	return 1
}

// autoLinkLine locates a bare URL by searching the enclosing block's
// segments, since autolink nodes carry no segment of their own.
func (w *mdWalker) autoLinkLine(v *ast.AutoLink) int {
	url := v.URL(w.src)
	for p := ast.Node(v).Parent(); p != nil; p = p.Parent() {
		if p.Type() != ast.TypeBlock || p.Lines().Len() == 0 {
			continue
		}
		for i := 0; i < p.Lines().Len(); i++ {
			seg := p.Lines().At(i)
			if idx := bytes.Index(seg.Value(w.src), url); idx >= 0 {
				return w.lineAt(seg.Start + idx)
			}
		}
		break
	}
	return w.nodeLine(v)
}

// textOf collects the plain text of a node's descendants.
func textOf(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// parseFenceInfo splits a fence info string into the language tag and the
// file= source hint, e.g. "go file=internal/server.go#L10-L24".
func parseFenceInfo(info string) (tag, hint string) {
	for i, f := range strings.Fields(info) {
		if strings.HasPrefix(f, "file=") {
			hint = strings.TrimPrefix(f, "file=")
			continue
		}
		if i == 0 && !strings.Contains(f, "=") {
			tag = strings.ToLower(strings.TrimLeft(f, "{."))
			tag = strings.TrimRight(tag, "}")
		}
	}
	return tag, hint
}
