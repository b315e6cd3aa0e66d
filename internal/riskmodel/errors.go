package riskmodel

import (
	"fmt"
	"strings"
)

// FieldError is one offending row/field pair reported by Validate. Table and
// RowID identify the row so a caller can point a user at it directly.
type FieldError struct {
	Table   string
	RowID   string
	Field   string
	Message string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s[%s].%s: %s", e.Table, e.RowID, e.Field, e.Message)
}

// ValidationError aggregates every failing row found by Validate — it never
// stops at the first failure (§4.1, §7).
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.String()
	}
	return fmt.Sprintf("validation failed (%d issue(s)): %s", len(e.Errors), strings.Join(parts, "; "))
}

// InsufficientDataError is returned when a dataset has zero CAPEX items and
// zero risks — there is nothing to simulate.
type InsufficientDataError struct{}

func (e *InsufficientDataError) Error() string {
	return "insufficient data: dataset has zero CAPEX items and zero risks"
}

// ConfigurationError is returned when a Config option is out of its
// documented bounds.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// NumericError is returned when correlation factorisation fails even after
// eigenvalue clipping and jitter escalation.
type NumericError struct {
	MinEigenvalue float64
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("numeric error: correlation matrix could not be factorised (minimum eigenvalue observed: %g)", e.MinEigenvalue)
}

// CancelledError wraps the context error that stopped a simulation early.
// It never carries partial results.
type CancelledError struct {
	Cause error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("simulation cancelled: %v", e.Cause)
}

func (e *CancelledError) Unwrap() error {
	return e.Cause
}

// InternalError signals a logic bug — an invariant that Validate should have
// guaranteed was violated downstream. It is never expected in normal
// operation and is never recovered from (§7).
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s", e.Message)
}
