package core

import (
	"errors"
	"fmt"
)

// ErrAttributeNotFound is returned by the store when a required attribute
// is absent from an entity.
var ErrAttributeNotFound = errors.New("attribute not found")

// ErrSolverUnknown is returned when a solver check cannot decide within its
// budget. Callers treat it as inconclusive, never fatal.
var ErrSolverUnknown = errors.New("solver returned unknown")

// UndeclaredAttributeError aborts a policy load: a rule references an
// attribute the schema does not declare for the implicated entity kind.
type UndeclaredAttributeError struct {
	Rule string
	Path Path
}

func (e *UndeclaredAttributeError) Error() string {
	return fmt.Sprintf("rule '%s' references undeclared attribute %s", e.Rule, e.Path)
}

// EncodingError marks a single rule as structurally unencodable. It is
// rule-local: the offending rule is skipped and the rest of the rule set
// continues.
type EncodingError struct {
	Rule    string
	Wrapped error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding rule '%s': %v", e.Rule, e.Wrapped)
}

func (e *EncodingError) Unwrap() error {
	return e.Wrapped
}
