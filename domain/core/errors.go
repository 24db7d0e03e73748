package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Schema errors - structural problems in an input table, always fatal
	// for that table.
	ErrMissingColumns   = errors.New("required columns missing")
	ErrValidationFailed = errors.New("table validation failed")

	// Adjustment errors
	ErrNoNullData = errors.New("no null data: zero random result tables supplied")

	// Storage errors
	ErrRunNotFound = errors.New("adjustment run not found")
)

// NewMissingColumnsError reports every absent required column at once.
func NewMissingColumnsError(missing []string) error {
	return fmt.Errorf("%w: %v", ErrMissingColumns, missing)
}

// NewValidationError attaches the violation count to the sentinel so callers
// can branch on errors.Is while still seeing the scale of the failure.
func NewValidationError(violations int) error {
	return fmt.Errorf("%w: %d violation(s)", ErrValidationFailed, violations)
}

// IsSchemaError reports whether err is any structural input failure.
func IsSchemaError(err error) bool {
	return errors.Is(err, ErrMissingColumns) || errors.Is(err, ErrValidationFailed)
}
