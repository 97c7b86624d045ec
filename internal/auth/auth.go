// Package auth resolves who is acting: the project lead short code used for
// person tasks and dashboard filters, and the optional bearer token for the EDP
// web service. Each value comes from a chain of providers.
package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoLead indicates no provider supplied a project lead short code.
var ErrNoLead = errors.New("no project lead configured")

// Provider yields one credential value.
type Provider interface {
	Get() (string, error)
}

// StaticProvider returns a fixed value, typically from a command-line flag.
type StaticProvider struct {
	Value string
	Name  string // where the value came from, for error messages
}

// Get returns the trimmed value or an error when it is empty.
func (s *StaticProvider) Get() (string, error) {
	v := strings.TrimSpace(s.Value)
	if v == "" {
		return "", fmt.Errorf("%s not set", s.Name)
	}
	return v, nil
}

// EnvProvider reads an environment variable.
type EnvProvider struct {
	Var string
}

// Get reads the variable. Returns an error if it is not set or empty.
func (e *EnvProvider) Get() (string, error) {
	v := strings.TrimSpace(os.Getenv(e.Var))
	if v == "" {
		return "", fmt.Errorf("%s environment variable not set or empty", e.Var)
	}
	return v, nil
}

// Chain returns the first value any provider yields, joining all errors otherwise.
func Chain(providers ...Provider) (string, error) {
	var errs []error
	for _, p := range providers {
		v, err := p.Get()
		if err == nil {
			return v, nil
		}
		errs = append(errs, err)
	}
	return "", errors.Join(errs...)
}

// Lead resolves the project lead short code from the flag value, then $PJM_LEAD.
// Short codes are upper-cased.
func Lead(flagValue string) (string, error) {
	lead, err := Chain(
		&StaticProvider{Value: flagValue, Name: "--lead flag"},
		&EnvProvider{Var: "PJM_LEAD"},
	)
	if err != nil {
		return "", fmt.Errorf(
			"%w: %v\n"+
				"Please either:\n"+
				"  1. Pass your short code with --lead, or\n"+
				"  2. Set the PJM_LEAD environment variable",
			ErrNoLead, err,
		)
	}
	return strings.ToUpper(lead), nil
}

// Token returns the EDP bearer token from $ABAS_TOKEN, or "" when unset.
// The EDP endpoint accepts anonymous requests on the intranet.
func Token() string {
	token, err := (&EnvProvider{Var: "ABAS_TOKEN"}).Get()
	if err != nil {
		return ""
	}
	return token
}
