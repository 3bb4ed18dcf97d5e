package errors

import (
	"fmt"
	"strings"
)

// ParseError wraps a specific error with context about where it occurred.
type ParseError struct {
	Line   int
	Record []string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %v (record: %v)", e.Line, e.Err, e.Record)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DuplicateIdentifierError reports a roster add with an identifier that
// already exists. The roster is left unchanged.
type DuplicateIdentifierError struct {
	ID string
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("duplicate identifier: %q", e.ID)
}

func (e *DuplicateIdentifierError) Unwrap() error {
	return ErrDuplicateIdentifier
}

// UnknownIdentifierError reports a roster remove naming representatives
// that do not exist. Missing lists every name that was not found; the
// whole removal is rejected.
type UnknownIdentifierError struct {
	Missing []string
}

func (e *UnknownIdentifierError) Error() string {
	return fmt.Sprintf("unknown identifier(s): %s", strings.Join(e.Missing, ", "))
}

func (e *UnknownIdentifierError) Unwrap() error {
	return ErrUnknownIdentifier
}

// Define specific error types for better error handling
var (
	ErrInvalidFieldCount   = fmt.Errorf("invalid field count")
	ErrInvalidCoordinate   = fmt.Errorf("invalid coordinate")
	ErrUnknownWindow       = fmt.Errorf("unknown time window")
	ErrEmptyRecord         = fmt.Errorf("empty record")
	ErrDuplicateIdentifier = fmt.Errorf("duplicate identifier")
	ErrUnknownIdentifier   = fmt.Errorf("unknown identifier")
	ErrOracleUnavailable   = fmt.Errorf("oracle unavailable")
	ErrInvalidTransition   = fmt.Errorf("invalid state transition")
)
