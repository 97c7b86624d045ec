// Package leistungsart maps departments and task rows to ERP activity type codes.
package leistungsart

import (
	"strings"

	"github.com/robby/pjm/internal/domain"
)

// ABAS activity types carry the department short name, the same value the
// task's yprojteam field gets.
func defaultCodes() map[string]string {
	codes := make(map[string]string, len(domain.Departments))
	for _, d := range domain.Departments {
		codes[string(d)] = string(d)
	}
	return codes
}

// Mapper looks up activity type codes case-insensitively.
type Mapper struct {
	codes map[string]string
}

// Default returns a mapper over the built-in table.
func Default() *Mapper {
	return New(defaultCodes())
}

// New builds a mapper from key → code. Keys are normalized to upper case.
func New(codes map[string]string) *Mapper {
	m := &Mapper{codes: make(map[string]string, len(codes))}
	for k, v := range codes {
		m.codes[normalize(k)] = v
	}
	return m
}

// Map returns the code for key or an UnknownActivityTypeError.
func (m *Mapper) Map(key string) (string, error) {
	if code, ok := m.codes[normalize(key)]; ok {
		return code, nil
	}
	return "", &domain.UnknownActivityTypeError{Key: key}
}

// MapOr returns the code for key, or def when the key is unknown.
func (m *Mapper) MapOr(key, def string) string {
	if code, ok := m.codes[normalize(key)]; ok {
		return code
	}
	return def
}

func normalize(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}
