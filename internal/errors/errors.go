// Package errors defines stable error codes for scan failure modes.
//
// Fatal codes abort the scan and map to exit code 2; everything else
// degrades to a warning on the scan result.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// RootNotFound indicates the scan root does not exist
	RootNotFound ErrorCode = "ROOT_NOT_FOUND"
	// RootNotDirectory indicates the scan root is not a directory
	RootNotDirectory ErrorCode = "ROOT_NOT_DIRECTORY"
	// ConfigInvalid indicates a malformed config file or flag value
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// IndexFailed indicates the repository walk could not complete
	IndexFailed ErrorCode = "INDEX_FAILED"
	// ExtractFailed indicates a document could not be parsed
	ExtractFailed ErrorCode = "EXTRACT_FAILED"
	// ScipInvalid indicates a SCIP index could not be decoded
	ScipInvalid ErrorCode = "SCIP_INVALID"
	// CacheUnavailable indicates the URL verdict cache could not be opened
	CacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"
	// OutputFailed indicates the report could not be written
	OutputFailed ErrorCode = "OUTPUT_FAILED"
	// Interrupted indicates the scan was canceled before completion
	Interrupted ErrorCode = "INTERRUPTED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// ScanError represents a scan failure with a stable code and message
type ScanError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	cause   error     // Underlying error (not exported to JSON)
}

// New creates a new ScanError
func New(code ErrorCode, message string, cause error) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *ScanError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ScanError) Unwrap() error {
	return e.cause
}

// CodeOf extracts the error code from err, returning InternalError for
// errors that do not carry one.
func CodeOf(err error) ErrorCode {
	var se *ScanError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return InternalError
}

// IsFatal reports whether the error aborts the scan rather than degrading
// to a warning.
func IsFatal(err error) bool {
	switch CodeOf(err) {
	case RootNotFound, RootNotDirectory, ConfigInvalid, IndexFailed, OutputFailed:
		return true
	}
	return false
}

// Hints maps error codes to operator guidance printed with fatal errors
var Hints = map[ErrorCode]string{
	RootNotFound:     "check that the path exists and is readable",
	RootNotDirectory: "pass a repository root directory, not a file",
	ConfigInvalid:    "validate .docrot.yaml against the documented keys",
	ScipInvalid:      "regenerate index.scip with your language indexer",
	CacheUnavailable: "delete .docrot/cache.db to rebuild the cache",
	OutputFailed:     "check that the output directory exists and is writable",
}

// HintFor returns operator guidance for an error code, or "" when none exists
func HintFor(code ErrorCode) string {
	return Hints[code]
}
