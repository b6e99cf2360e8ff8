package diagnostic

import (
	"errors"
	"fmt"
	"strings"
)

// Diagnostics holds the problems found by one validation pass.
type Diagnostics struct {
	Errors []Diagnostic
}

// Diagnostic is a single problem.
type Diagnostic struct {
	// Code is a stable snake_case identifier of the kind of problem.
	Code string
	// Message is the human-readable description.
	Message string
	// Record names the record type this relates to (if any).
	Record string
	// Field names the field this relates to (if any).
	Field string
}

// AddError records a problem.
func (d *Diagnostics) AddError(code, message, record, field string) {
	d.Errors = append(d.Errors, Diagnostic{
		Code:    code,
		Message: message,
		Record:  record,
		Field:   field,
	})
}

// AddErrorf records a problem with a formatted message.
func (d *Diagnostics) AddErrorf(code, record, field, format string, args ...any) {
	d.AddError(code, fmt.Sprintf(format, args...), record, field)
}

// HasCode reports whether a problem with the given code was recorded.
func (d *Diagnostics) HasCode(code string) bool {
	for _, e := range d.Errors {
		if e.Code == code {
			return true
		}
	}

	return false
}

// IsValid returns true if nothing was recorded.
func (d *Diagnostics) IsValid() bool {
	return len(d.Errors) == 0
}

// Error returns one error listing every problem, or nil if valid.
func (d *Diagnostics) Error() error {
	if d.IsValid() {
		return nil
	}

	parts := make([]string, 0, len(d.Errors))
	for _, e := range d.Errors {
		parts = append(parts, e.String())
	}

	return &Error{Diagnostics: *d, msg: strings.Join(parts, "; ")}
}

// Error is the error value produced by Diagnostics.Error. It keeps the
// individual diagnostics reachable through errors.As.
type Error struct {
	Diagnostics Diagnostics
	msg         string
}

func (e *Error) Error() string { return e.msg }

// Codes returns the codes of all problems held by err, if err wraps an *Error.
func Codes(err error) []string {
	var derr *Error
	if !errors.As(err, &derr) {
		return nil
	}

	codes := make([]string, 0, len(derr.Diagnostics.Errors))
	for _, e := range derr.Diagnostics.Errors {
		codes = append(codes, e.Code)
	}

	return codes
}

// String renders the diagnostic as "[Record] field: [code] message".
func (d Diagnostic) String() string {
	var prefix []string
	if d.Record != "" {
		prefix = append(prefix, "["+d.Record+"]")
	}

	if d.Field != "" {
		prefix = append(prefix, d.Field)
	}

	msg := d.Message
	if d.Code != "" {
		msg = fmt.Sprintf("[%s] %s", d.Code, msg)
	}

	if len(prefix) > 0 {
		return strings.Join(prefix, " ") + ": " + msg
	}

	return msg
}
