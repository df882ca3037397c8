// Package scip loads symbol definitions from SCIP indexes emitted by
// language indexers (scip-go, scip-typescript, rust-analyzer adapters, ...).
//
// SCIP symbols are precise where regex extraction is approximate, so the
// repository indexer lets them take precedence over adapter results for
// the same qualified name.
package scip

import (
	"os"
	"strings"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"docrot/internal/adapter"
	"docrot/internal/errors"
)

// Symbol is one definition lifted out of a SCIP document.
type Symbol struct {
	Name    string // dotted qualified name
	Kind    string // adapter kind vocabulary
	Path    string // repo-relative file, forward slashes
	Line    int    // 1-indexed definition start line
	EndLine int    // 1-indexed definition end line
}

// Index is the flattened result of loading one SCIP file.
type Index struct {
	Tool    string
	Symbols []Symbol
}

// Load reads a SCIP index from path. A missing file returns (nil, nil):
// SCIP input is optional. An unreadable or undecodable file returns a
// SCIP_INVALID error, which callers downgrade to a warning.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New(errors.ScipInvalid, "reading SCIP index "+path, err)
	}

	var raw scippb.Index
	if err := proto.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(errors.ScipInvalid, "decoding SCIP index "+path, err)
	}

	out := &Index{}
	if info := raw.GetMetadata().GetToolInfo(); info != nil {
		out.Tool = info.GetName()
	}

	// One symbol per (document, name): indexers may record several
	// definition occurrences for the same declaration.
	seen := make(map[string]bool)
	for _, doc := range raw.GetDocuments() {
		docPath := strings.TrimPrefix(doc.GetRelativePath(), "./")
		for _, occ := range doc.GetOccurrences() {
			if occ.GetSymbolRoles()&int32(scippb.SymbolRole_Definition) == 0 {
				continue
			}
			if strings.HasPrefix(occ.GetSymbol(), "local ") {
				continue
			}
			name, kind := symbolName(occ.GetSymbol())
			if name == "" {
				continue
			}
			key := docPath + "\x00" + name
			if seen[key] {
				continue
			}
			seen[key] = true

			// The occurrence range covers the name token; the enclosing
			// range, when the indexer records one, covers the whole
			// definition body and gives drift comparison a real region.
			start, end := lineSpan(occ.GetRange())
			if er := occ.GetEnclosingRange(); len(er) > 0 {
				start, end = lineSpan(er)
			}
			out.Symbols = append(out.Symbols, Symbol{
				Name:    name,
				Kind:    kind,
				Path:    docPath,
				Line:    start,
				EndLine: end,
			})
		}
	}
	return out, nil
}

// symbolName flattens a SCIP symbol string into the dotted qualified name
// used across the index, plus its kind. Package and namespace descriptors
// are dropped: documentation refers to "Server.Start", not the full
// scheme/package/version coordinate.
func symbolName(raw string) (string, string) {
	sym, err := scippb.ParseSymbol(raw)
	if err != nil {
		return "", ""
	}

	var parts []string
	kind := adapter.KindType
	for _, d := range sym.GetDescriptors() {
		switch d.GetSuffix() {
		case scippb.Descriptor_Type:
			parts = append(parts, d.GetName())
			kind = adapter.KindType
		case scippb.Descriptor_Term:
			parts = append(parts, d.GetName())
			kind = adapter.KindConstant
		case scippb.Descriptor_Method, scippb.Descriptor_Macro:
			parts = append(parts, d.GetName())
			kind = adapter.KindFunction
		}
	}
	return strings.Join(parts, "."), kind
}

// lineSpan converts a SCIP range ([startLine, startChar, endChar] or
// [startLine, startChar, endLine, endChar], zero-indexed) to a 1-indexed
// line span.
func lineSpan(r []int32) (start, end int) {
	if len(r) == 0 {
		return 1, 1
	}
	start = int(r[0]) + 1
	end = start
	if len(r) >= 4 {
		end = int(r[2]) + 1
	}
	if end < start {
		end = start
	}
	return start, end
}
