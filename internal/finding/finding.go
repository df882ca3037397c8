// Package finding defines the rot vocabulary that crosses into reports:
// finding categories, severities, fingerprints, and the aggregation step
// that makes scan output deterministic.
package finding

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Finding categories. Every verdict that reaches a report carries exactly
// one of these slugs.
const (
	CategoryBrokenLink  = "broken-link"
	CategoryStaleSymbol = "stale-symbol"
	CategoryCodeDrift   = "code-drift"
	CategoryDeadURL     = "dead-url"
)

// Severity levels, ordered high to low.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Categories returns the category slugs in canonical order.
func Categories() []string {
	return []string{CategoryBrokenLink, CategoryStaleSymbol, CategoryCodeDrift, CategoryDeadURL}
}

// Severities returns the severity levels ordered high to low.
func Severities() []string {
	return []string{SeverityHigh, SeverityMedium, SeverityLow}
}

// Finding is one reported instance of documentation diverging from the
// repository. File and Line locate the documentation side, Target names
// the repository side (path, symbol, or URL).
type Finding struct {
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	File        string `json:"file"`
	Line        int    `json:"line"`
	Message     string `json:"message"`
	Reason      string `json:"reason,omitempty"`
	Target      string `json:"target,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

// BrokenLink reports a relative link or anchor that no longer resolves.
// Reason distinguishes a missing target ("") from "anchor not found" and
// "malformed URL".
func BrokenLink(file string, line int, target, reason string) Finding {
	msg := fmt.Sprintf("broken link: %s", target)
	if reason != "" {
		msg += " (" + reason + ")"
	}
	return newFinding(CategoryBrokenLink, SeverityMedium, file, line, msg, reason, target)
}

// StaleSymbolNotFound reports a symbol reference with zero matches in the
// repository index.
func StaleSymbolNotFound(file string, line int, token string) Finding {
	msg := fmt.Sprintf("symbol not found: %s", token)
	return newFinding(CategoryStaleSymbol, SeverityMedium, file, line, msg, "not found", token)
}

// StaleSymbolAmbiguous reports a symbol reference that suffix-matches more
// than one definition. Candidates are listed instead of guessed between;
// the lower severity reflects that the symbol may well still exist.
func StaleSymbolAmbiguous(file string, line int, token string, candidates []string) Finding {
	msg := fmt.Sprintf("ambiguous symbol: %s matches %s", token, strings.Join(candidates, ", "))
	return newFinding(CategoryStaleSymbol, SeverityLow, file, line, msg, "ambiguous", token)
}

// CodeDrift reports a code block whose token stream no longer matches its
// source region. Major drift (identifier or structure deltas) ranks high,
// minor drift (literal values only) ranks low. Reason names the delta.
func CodeDrift(file string, line int, symbol, class, reason string) Finding {
	severity := SeverityLow
	if class == "major" {
		severity = SeverityHigh
	}
	msg := fmt.Sprintf("code block for %s drifted (%s): %s", symbol, class, reason)
	return newFinding(CategoryCodeDrift, severity, file, line, msg, reason, symbol)
}

// DeadURL reports an external URL that failed its liveness check.
// Definitive failures (an HTTP error status) rank above retry exhaustion
// and timeouts, which may clear up on the next scan.
func DeadURL(file string, line int, url, reason string, definitive bool) Finding {
	severity := SeverityLow
	if definitive {
		severity = SeverityMedium
	}
	msg := fmt.Sprintf("dead URL: %s (%s)", url, reason)
	return newFinding(CategoryDeadURL, severity, file, line, msg, reason, url)
}

func newFinding(category, severity, file string, line int, message, reason, target string) Finding {
	return Finding{
		Category:    category,
		Severity:    severity,
		File:        file,
		Line:        line,
		Message:     message,
		Reason:      reason,
		Target:      target,
		Fingerprint: fingerprint(category, file, line, target),
	}
}

// fingerprint hashes category, location, and target into a short stable id
// used for deduplication within a scan and suppression across runs. It must
// stay free of timestamps and absolute paths so repeated scans of an
// unchanged repository agree byte for byte.
func fingerprint(category, file string, line int, target string) string {
	sum := sha256.Sum256([]byte(category + "|" + file + "|" + strconv.Itoa(line) + "|" + target))
	return hex.EncodeToString(sum[:8])
}
