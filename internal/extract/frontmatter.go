package extract

import (
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// frontMatter is the subset of document metadata the scanner cares about.
// Source gives the default source hint for the document's code blocks.
type frontMatter struct {
	Title  string `yaml:"title" toml:"title"`
	Source string `yaml:"source" toml:"source"`
}

// splitFrontMatter strips a leading YAML (---) or TOML (+++) front matter
// block. It returns the remaining body, the parsed metadata, and the number
// of lines the block occupied so extraction can keep document line numbers
// accurate. Unparseable metadata is still stripped, just ignored.
func splitFrontMatter(src []byte) ([]byte, frontMatter, int) {
	var fm frontMatter

	lines := strings.SplitAfter(string(src), "\n")
	if len(lines) < 2 {
		return src, fm, 0
	}
	delim := strings.TrimRight(lines[0], "\r\n")
	if delim != "---" && delim != "+++" {
		return src, fm, 0
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r\n") == delim {
			end = i
			break
		}
	}
	if end < 0 {
		return src, fm, 0
	}

	meta := []byte(strings.Join(lines[1:end], ""))
	if delim == "---" {
		_ = yaml.Unmarshal(meta, &fm)
	} else {
		_ = toml.Unmarshal(meta, &fm)
	}

	body := []byte(strings.Join(lines[end+1:], ""))
	return body, fm, end + 1
}
