// Package settings holds the user-editable planning configuration: task labels,
// date rules, feature toggles and the ERP endpoint. Settings are loaded once per
// session and passed explicitly into the ERP client and the plan assembler.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/robby/pjm/internal/domain"
)

// DefaultBaseAddress is the EDP web service endpoint used when none is configured.
const DefaultBaseAddress = "http://intra-erp:4444/EPLAN_WS_FREE_EDP"

// DefaultIPCPerson is the person IPC tasks are billed to.
const DefaultIPCPerson = "IPC"

const (
	keyDuplicateImaging = "doppelte_bildgebungsaufgabe"
	keyReleaseTasks     = "mcad_ecad_freigabeaufgabe"
	keyTaskNames        = "task_names"
	keyDateRules        = "date_rules"
	keyBaseAddress      = "base_address"
	keyBaseAddressAlias = "base_adress"
	keyIPCPerson        = "ipc_person"
)

// Settings is the planning configuration document.
type Settings struct {
	DuplicateImagingTask bool                                  // create a second imaging (support) task
	ReleaseTasks         bool                                  // create MCAD/ECAD release tasks at G7
	TaskNames            map[domain.Department]string          // task label per department
	DateRules            map[domain.Department]domain.DateRule // date rule per department
	BaseAddress          string                                // EDP endpoint
	IPCPerson            string                                // person short code for IPC tasks

	// Extra keeps unknown top-level keys verbatim (compacted JSON).
	Extra map[string]json.RawMessage
}

// DefaultTaskNames returns the built-in task label per department.
func DefaultTaskNames() map[domain.Department]string {
	return map[domain.Department]string{
		domain.DeptImaging:            "Imaging Design",
		domain.DeptMCAD:               "MCAD Konstruktionsphase (inklusive Kundenlayout)",
		domain.DeptECAD:               "ECAD Konstruktionsphase",
		domain.DeptProjectManagement:  "Project Planning",
		domain.DeptProductDevelopment: "Special Development",
		domain.DeptSoftware:           "Software Installation",
		domain.DeptTD:                 "Manual",
		domain.DeptAutomation:         "Automation",
	}
}

// DefaultDateRules returns the built-in date rule per department.
func DefaultDateRules() map[domain.Department]domain.DateRule {
	return map[domain.Department]domain.DateRule{
		domain.DeptImaging:            domain.NewDateRule(domain.AnchorG6, 0, domain.AnchorG6, 7),
		domain.DeptMCAD:               domain.NewDateRule(domain.AnchorG7, -14, domain.AnchorG7, -7),
		domain.DeptECAD:               domain.NewDateRule(domain.AnchorG7, -14, domain.AnchorG7, -7),
		domain.DeptProjectManagement:  domain.NewDateRule(domain.AnchorToday, -5, domain.AnchorG8, 0),
		domain.DeptProductDevelopment: domain.NewDateRule(domain.AnchorG6, 0, domain.AnchorG7, 0),
		domain.DeptSoftware:           domain.NewDateRule(domain.AnchorG7, 1, domain.AnchorG7, 14),
		domain.DeptTD:                 domain.NewDateRule(domain.AnchorG8, -10, domain.AnchorG8, -3),
		domain.DeptAutomation:         domain.NewDateRule(domain.AnchorG7, 0, domain.AnchorG7, 14),
	}
}

// Default returns a fresh copy of the built-in settings.
func Default() Settings {
	return Settings{
		DuplicateImagingTask: true,
		ReleaseTasks:         true,
		TaskNames:            DefaultTaskNames(),
		DateRules:            DefaultDateRules(),
		BaseAddress:          DefaultBaseAddress,
		IPCPerson:            DefaultIPCPerson,
	}
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	c := s
	c.TaskNames = maps.Clone(s.TaskNames)
	c.DateRules = maps.Clone(s.DateRules)
	if s.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}

// TaskName returns the configured label for d, falling back to the built-in
// label and finally to the department name.
func (s Settings) TaskName(d domain.Department) string {
	if name, ok := s.TaskNames[d]; ok && strings.TrimSpace(name) != "" {
		return name
	}
	if name, ok := DefaultTaskNames()[d]; ok {
		return name
	}
	return string(d)
}

// Validate checks the fields that have no safe default.
func (s Settings) Validate() error {
	u, err := url.Parse(s.BaseAddress)
	if err != nil {
		return &domain.ConfigurationError{Field: keyBaseAddress, Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &domain.ConfigurationError{Field: keyBaseAddress, Err: fmt.Errorf("want an http(s) URL, got %q", s.BaseAddress)}
	}
	if strings.TrimSpace(s.IPCPerson) == "" {
		return &domain.ConfigurationError{Field: keyIPCPerson, Err: errors.New("must not be empty")}
	}
	for dept := range s.TaskNames {
		if !dept.Valid() {
			return &domain.ConfigurationError{Field: keyTaskNames + "." + string(dept), Err: fmt.Errorf("unknown department %q", dept)}
		}
	}
	for dept, rule := range s.DateRules {
		if !dept.Valid() {
			return &domain.ConfigurationError{Field: keyDateRules + "." + string(dept), Err: fmt.Errorf("unknown department %q", dept)}
		}
		for _, a := range []domain.Anchor{rule.Start.Anchor, rule.End.Anchor} {
			if _, err := a.MarshalText(); err != nil {
				return &domain.ConfigurationError{Field: keyDateRules + "." + string(dept), Err: err}
			}
		}
	}
	return nil
}

// Parse decodes a settings document on top of the defaults. Map values
// (task_names, date_rules) are merged key by key; scalars replace the default.
// The legacy key base_adress is read as base_address.
func Parse(data []byte) (Settings, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return Settings{}, &domain.ConfigurationError{Err: err}
	}

	if alias, ok := doc[keyBaseAddressAlias]; ok {
		if _, ok := doc[keyBaseAddress]; !ok {
			doc[keyBaseAddress] = alias
		}
		delete(doc, keyBaseAddressAlias)
	}

	s := Default()
	for key, raw := range doc {
		var err error
		switch key {
		case keyDuplicateImaging:
			err = json.Unmarshal(raw, &s.DuplicateImagingTask)
		case keyReleaseTasks:
			err = json.Unmarshal(raw, &s.ReleaseTasks)
		case keyBaseAddress:
			err = json.Unmarshal(raw, &s.BaseAddress)
		case keyIPCPerson:
			err = json.Unmarshal(raw, &s.IPCPerson)
		case keyTaskNames:
			var names map[domain.Department]string
			if err = json.Unmarshal(raw, &names); err == nil {
				maps.Copy(s.TaskNames, names)
			}
		case keyDateRules:
			var rules map[domain.Department]domain.DateRule
			if err = json.Unmarshal(raw, &rules); err == nil {
				maps.Copy(s.DateRules, rules)
			}
		default:
			var buf bytes.Buffer
			if err = json.Compact(&buf, raw); err == nil {
				if s.Extra == nil {
					s.Extra = make(map[string]json.RawMessage)
				}
				s.Extra[key] = json.RawMessage(buf.Bytes())
			}
		}
		if err != nil {
			return Settings{}, &domain.ConfigurationError{Field: key, Err: err}
		}
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Marshal encodes s as an indented settings document, unknown keys included.
func Marshal(s Settings) ([]byte, error) {
	doc := make(map[string]any, len(s.Extra)+6)
	for k, v := range s.Extra {
		doc[k] = v
	}
	doc[keyDuplicateImaging] = s.DuplicateImagingTask
	doc[keyReleaseTasks] = s.ReleaseTasks
	doc[keyTaskNames] = s.TaskNames
	doc[keyDateRules] = s.DateRules
	doc[keyBaseAddress] = s.BaseAddress
	doc[keyIPCPerson] = s.IPCPerson

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}
	return append(data, '\n'), nil
}

// MalformedError reports a settings file that could not be parsed. Load
// returns it together with the defaults, which callers may continue with.
type MalformedError struct {
	Path string
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("settings file %s is malformed, using defaults: %v", e.Path, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Load reads the settings file at path. A missing file yields the defaults.
// A malformed file yields the defaults and a *MalformedError; other errors
// are I/O failures.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("reading settings %s: %w", path, err)
	}

	s, err := Parse(data)
	if err != nil {
		return Default(), &MalformedError{Path: path, Err: err}
	}
	return s, nil
}

// Save writes s to path, replacing the file atomically. Last writer wins.
func Save(path string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := Marshal(s)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("creating temp settings file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing settings: %w", err)
	}
	return nil
}

// ResolvePath picks the settings file: the explicit path if given, then
// $PJM_SETTINGS, then ~/.pjm/settings.json.
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv("PJM_SETTINGS"); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".pjm", "settings.json"), nil
}
