package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// parseHTML extracts artifacts from rendered HTML docs. The tokenizer is
// used instead of the tree parser because token order lets line numbers be
// tracked from the raw bytes.
func parseHTML(doc *Document, src []byte) {
	z := html.NewTokenizer(bytes.NewReader(src))
	line := 1

	headingTag := ""
	headingLine := 0
	headingAnchor := ""
	var headingBuf strings.Builder

	inPre := false
	preLine := 0
	preTag := ""
	var preBuf strings.Builder

	inCode := false
	codeLine := 0
	var codeBuf strings.Builder

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tokLine := line
		line += bytes.Count(z.Raw(), []byte("\n"))

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			t := z.Token()
			switch t.Data {
			case "a":
				if href := attrVal(t, "href"); href != "" {
					doc.addLink(href, tokLine)
				}
			case "img":
				if s := attrVal(t, "src"); s != "" {
					doc.addLink(s, tokLine)
				}
			case "h1", "h2", "h3", "h4", "h5", "h6":
				headingTag = t.Data
				headingLine = tokLine
				headingAnchor = attrVal(t, "id")
				headingBuf.Reset()
			case "pre":
				inPre = true
				preLine = tokLine
				preTag = langClass(attrVal(t, "class"))
				preBuf.Reset()
			case "code":
				if inPre {
					if preTag == "" {
						preTag = langClass(attrVal(t, "class"))
					}
				} else {
					inCode = true
					codeLine = tokLine
					codeBuf.Reset()
				}
			}
		case html.EndTagToken:
			t := z.Token()
			switch t.Data {
			case headingTag:
				if headingTag != "" {
					level := int(headingTag[1] - '0')
					doc.addHeading(headingBuf.String(), headingAnchor, level, headingLine)
					headingTag = ""
				}
			case "pre":
				if inPre {
					body := preBuf.String()
					doc.addBlock(CodeBlock{Tag: preTag, Text: body, Line: preLine})
					if body != "" {
						scanBlockImports(doc, preTag, body, preLine)
					}
					inPre = false
				}
			case "code":
				if inCode {
					spanRefs(doc, codeBuf.String(), codeLine)
					inCode = false
				}
			}
		case html.TextToken:
			text := string(z.Text())
			switch {
			case inPre:
				preBuf.WriteString(text)
			case inCode:
				codeBuf.WriteString(text)
			case headingTag != "":
				headingBuf.WriteString(text)
			}
		}
	}
}

func attrVal(t html.Token, name string) string {
	for _, a := range t.Attr {
		if a.Key == name {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// langClass maps class="language-go" (and the highlight-go variant) to the
// fence tag vocabulary.
func langClass(class string) string {
	for _, c := range strings.Fields(class) {
		for _, prefix := range []string{"language-", "lang-", "highlight-"} {
			if strings.HasPrefix(c, prefix) {
				return strings.ToLower(strings.TrimPrefix(c, prefix))
			}
		}
	}
	return ""
}
