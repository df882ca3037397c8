package adapter

import (
	"strings"
	"testing"

	"docrot/internal/lang"
)

func joinTokens(tokens []string) string {
	return strings.Join(tokens, " ")
}

func TestTokenize_CommentInvariance(t *testing.T) {
	a := builtinFor(t, lang.LangGo)

	base := a.Tokenize([]byte("func Add(a, b int) int {\n\treturn a + b\n}\n"))
	if len(base) == 0 {
		t.Fatal("no tokens extracted")
	}

	variants := map[string]string{
		"line comment":  "// Add sums two ints.\nfunc Add(a, b int) int {\n\treturn a + b // sum\n}\n",
		"block comment": "/* header */\nfunc Add(a, b int) int {\n\treturn a + b\n}\n",
		"reformatted":   "func Add(a, b int) int { return a + b }",
	}
	for name, src := range variants {
		got := a.Tokenize([]byte(src))
		if joinTokens(got) != joinTokens(base) {
			t.Errorf("%s: tokens = %v, want %v", name, got, base)
		}
	}
}

func TestTokenize_CommentMarkerInString(t *testing.T) {
	a := builtinFor(t, lang.LangGo)

	tokens := a.Tokenize([]byte(`url := "http://example.com"`))
	joined := joinTokens(tokens)
	if !strings.Contains(joined, "example") {
		t.Errorf("string content dropped: %v", tokens)
	}

	tokens = a.Tokenize([]byte("x := 1 // trailing note"))
	if strings.Contains(joinTokens(tokens), "trailing") {
		t.Errorf("comment text kept: %v", tokens)
	}
}

func TestTokenize_PythonDocstrings(t *testing.T) {
	a := builtinFor(t, lang.LangPython)

	src := "def f():\n    \"\"\"Docstring with // markers.\"\"\"\n    return 1  # note\n"
	tokens := a.Tokenize([]byte(src))
	joined := joinTokens(tokens)
	if strings.Contains(joined, "Docstring") {
		t.Errorf("docstring kept: %v", tokens)
	}
	if strings.Contains(joined, "note") {
		t.Errorf("comment kept: %v", tokens)
	}
	if !strings.Contains(joined, "return") {
		t.Errorf("code dropped: %v", tokens)
	}
}

func TestTokenize_NumbersAndPunctuation(t *testing.T) {
	a := builtinFor(t, lang.LangGo)

	tokens := a.Tokenize([]byte("x := 3.14 * radius"))
	joined := joinTokens(tokens)
	for _, want := range []string{"x", "3.14", "radius", "*"} {
		if !strings.Contains(joined, want) {
			t.Errorf("token %q missing from %v", want, tokens)
		}
	}
}

func TestStripLineComment(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		marker string
		want   string
	}{
		{"plain comment", "x := 1 // note", "//", "x := 1 "},
		{"marker in string", `s := "http://example.com"`, "//", `s := "http://example.com"`},
		{"marker after string", `s := "a" // note`, "//", `s := "a" `},
		{"no marker", "x := 1", "//", "x := 1"},
		{"hash", "x = 1  # note", "#", "x = 1  "},
		{"hash in string", `url = "x#y"`, "#", `url = "x#y"`},
		{"escaped quote", `s := "a\"b // c"`, "//", `s := "a\"b // c"`},
		{"empty marker", "x // y", "", "x // y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripLineComment(tt.line, tt.marker); got != tt.want {
				t.Errorf("stripLineComment(%q, %q) = %q, want %q", tt.line, tt.marker, got, tt.want)
			}
		})
	}
}
