package report

import (
	"fmt"
	"strings"

	"docrot/internal/finding"
)

var categoryIcons = map[string]string{
	finding.CategoryBrokenLink:  "\U0001f517",       // 🔗
	finding.CategoryStaleSymbol: "\U0001f3f7️", // 🏷️
	finding.CategoryCodeDrift:   "\U0001f4dd",       // 📝
	finding.CategoryDeadURL:     "\U0001f310",       // 🌐
}

const fallbackIcon = "⚠️" // ⚠️

// renderText produces the human report: a tooth-and-rot themed header,
// one icon-tagged line per finding, and an upsell footer.
func renderText(r *Report) []byte {
	var b strings.Builder

	if len(r.Findings) == 0 {
		fmt.Fprintf(&b, "✅ Scanned %d docs — no rot detected!\n", r.Summary.DocsScanned)
		return []byte(b.String())
	}

	rule := strings.Repeat("─", 50)
	fmt.Fprintf(&b, "\n\U0001f9b7 DocRot Report — %d issues in %d docs\n", len(r.Findings), r.Summary.DocsScanned)
	b.WriteString(rule + "\n")
	for _, f := range r.Findings {
		icon := categoryIcons[f.Category]
		if icon == "" {
			icon = fallbackIcon
		}
		fmt.Fprintf(&b, "  %s  %s:%d  [%s] %s\n", icon, f.File, f.Line, f.Category, f.Message)
	}
	b.WriteString(rule + "\n")
	b.WriteString("\U0001f4a1 Upgrade for cross-repo scanning: https://docrot.dev\n")

	return []byte(b.String())
}
