package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingMilestone indicates an anchor refers to a gateway without a date.
	ErrMissingMilestone = errors.New("missing milestone")
	// ErrMissingRule indicates a department has no date rule.
	ErrMissingRule = errors.New("missing date rule")
	// ErrUnknownActivityType indicates no Leistungsart is mapped for a key.
	ErrUnknownActivityType = errors.New("unknown activity type")
	// ErrConfiguration indicates malformed settings.
	ErrConfiguration = errors.New("configuration error")
)

// MissingMilestoneError reports a gateway anchor with no milestone date.
type MissingMilestoneError struct {
	Anchor Anchor
}

func (e *MissingMilestoneError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMissingMilestone, e.Anchor)
}

func (e *MissingMilestoneError) Unwrap() error { return ErrMissingMilestone }

// MissingRuleError reports a department without a date rule.
type MissingRuleError struct {
	Department Department
}

func (e *MissingRuleError) Error() string {
	return fmt.Sprintf("%v for department %s", ErrMissingRule, e.Department)
}

func (e *MissingRuleError) Unwrap() error { return ErrMissingRule }

// UnknownActivityTypeError reports a key with no activity type mapping.
type UnknownActivityTypeError struct {
	Key string
}

func (e *UnknownActivityTypeError) Error() string {
	return fmt.Sprintf("%v for %q", ErrUnknownActivityType, e.Key)
}

func (e *UnknownActivityTypeError) Unwrap() error { return ErrUnknownActivityType }

// ConfigurationError reports a malformed settings document or entry.
type ConfigurationError struct {
	Field string // settings key, e.g. "date_rules.MCAD"
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %v", ErrConfiguration, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", ErrConfiguration, e.Field, e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *ConfigurationError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }

// DepartmentError attaches the department and rule being derived to a planning failure.
type DepartmentError struct {
	Department Department
	Rule       string // rule text, empty when no rule exists
	Err        error
}

func (e *DepartmentError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("planning %s: %v", e.Department, e.Err)
	}
	return fmt.Sprintf("planning %s with rule %s: %v", e.Department, e.Rule, e.Err)
}

func (e *DepartmentError) Unwrap() error { return e.Err }
