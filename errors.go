package adoc

import (
	"errors"
	"fmt"
)

// Sentinel errors for library operations.
var (
	ErrReadSource      = errors.New("failed to read source")
	ErrInvalidSafeMode = errors.New("invalid safe mode")
	ErrInvalidDoctype  = errors.New("invalid doctype")
	ErrUnknownBackend  = errors.New("unknown backend")
	ErrConversion      = errors.New("conversion failed")

	// Parse errors abort the document being loaded.
	ErrUnterminatedBlock    = errors.New("unterminated delimited block")
	ErrInvalidAttributeList = errors.New("invalid attribute list")

	// Resource errors.
	ErrIncludeNotFound    = errors.New("include file not found")
	ErrIncludeDepth       = errors.New("maximum include depth exceeded")
	ErrAttributeMissing   = errors.New("attribute reference missing")
	ErrUnsupportedURIRead = errors.New("remote read failed")

	// Security errors are never downgraded to warnings.
	ErrSecurity = errors.New("access denied by safe mode")

	// Extension errors wrap whatever a processor returned.
	ErrExtension = errors.New("extension failed")
)

// ParseError reports a fatal error tied to a location in the source.
type ParseError struct {
	Location SourceLocation
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: line %d: %v", e.Location.Path, e.Location.LineNumber, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(loc SourceLocation, err error) error {
	return &ParseError{Location: loc, Err: err}
}
