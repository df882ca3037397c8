//go:build !cgo

package adapter

import "docrot/internal/lang"

// Tree-sitter needs cgo. Without it the built-in line scanners serve
// extraction directly.
func treeSitterAvailable() bool { return false }

func newTreeSitterAdapter(_ lang.Language, fallback Adapter) Adapter {
	return fallback
}
