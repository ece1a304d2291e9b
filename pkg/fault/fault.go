// Package fault defines the error taxonomy shared by the storykitt core.
// All core operations fail without committing partial mutations; callers
// branch on these types with the Is* helpers.
package fault

import (
	"errors"
	"fmt"
)

// NotFoundError reports a referenced node, branch, bank or element id
// that does not exist.
type NotFoundError struct {
	Kind string // "node", "branch", "bank", "element", "hint"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NotFound constructs a NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// SizeLimitError reports a memory bank write that exceeds the configured cap.
type SizeLimitError struct {
	Size int
	Max  int
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("serialized size %d exceeds limit %d", e.Size, e.Max)
}

// SizeLimit constructs a SizeLimitError.
func SizeLimit(size, max int) error {
	return &SizeLimitError{Size: size, Max: max}
}

// ValidationError reports a malformed value supplied to a merge or update.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid constructs a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsSizeLimit reports whether err is a SizeLimitError.
func IsSizeLimit(err error) bool {
	var e *SizeLimitError
	return errors.As(err, &e)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}
