package domain

import (
	"fmt"
	"strings"
)

// ValidationError is returned when a required field is missing or an
// enumerated field falls outside its closed set. No record is written.
type ValidationError struct {
	Entity EntityType
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "is required"
	}
	return fmt.Sprintf("%s %s %s", e.Entity, e.Field, reason)
}

// NotFoundError is returned when an operation references a missing identifier.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// InvalidStageError is returned when a lead would be placed in a stage that is
// not in the current settings registry.
type InvalidStageError struct {
	Stage string
}

func (e *InvalidStageError) Error() string {
	if e.Stage == "" {
		return "no pipeline stage available"
	}
	return fmt.Sprintf("stage %q is not a configured pipeline stage", e.Stage)
}

// StageInUseError is returned by stage removal under the forbid policy.
type StageInUseError struct {
	Stage string
	Leads []string
}

func (e *StageInUseError) Error() string {
	return fmt.Sprintf("stage %q still referenced by %d lead(s): %s", e.Stage, len(e.Leads), strings.Join(e.Leads, ", "))
}

// PersistenceParseError reports an unreadable stored snapshot. The store
// recovers by resetting to defaults; the error is logged, never fatal.
type PersistenceParseError struct {
	Key string
	Err error
}

func (e *PersistenceParseError) Error() string {
	return fmt.Sprintf("stored state %q unreadable: %v", e.Key, e.Err)
}

func (e *PersistenceParseError) Unwrap() error { return e.Err }

// ImportFormatError reports a malformed lead import payload. The store is left untouched.
type ImportFormatError struct {
	Reason string
	Err    error
}

func (e *ImportFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("import leads: %s: %v", e.Reason, e.Err)
	}
	return "import leads: " + e.Reason
}

func (e *ImportFormatError) Unwrap() error { return e.Err }

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return fmt.Sprintf("transaction blocked by rule %s: %s", v.Rule, v.Message)
		}
	}
	return "transaction blocked by rules"
}
