// Package output renders plans and dashboards for the command line as text,
// JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Supported formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formatter writes a value in one output format.
type Formatter interface {
	Format(data any) error
}

// Options configures a formatter.
type Options struct {
	Writer  io.Writer // defaults to os.Stdout
	NoColor bool      // plain text without styles
	Width   int       // maximum label width in text tables, 0 for the default

	// Renderer styles text output; nil detects the profile of Writer.
	Renderer *lipgloss.Renderer
}

// NewFormatter creates a formatter for format.
func NewFormatter(format string, opts *Options) (Formatter, error) {
	if opts == nil {
		opts = &Options{}
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	switch format {
	case FormatJSON:
		return &JSONFormatter{opts: opts}, nil
	case FormatYAML:
		return &YAMLFormatter{opts: opts}, nil
	case FormatText, "":
		return &TextFormatter{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s (supported: text, json, yaml)", format)
	}
}

// JSONFormatter writes indented JSON.
type JSONFormatter struct {
	opts *Options
}

func (f *JSONFormatter) Format(data any) error {
	encoder := json.NewEncoder(f.opts.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// YAMLFormatter writes YAML.
type YAMLFormatter struct {
	opts *Options
}

func (f *YAMLFormatter) Format(data any) error {
	encoder := yaml.NewEncoder(f.opts.Writer)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(data)
}

// TextFormatter writes tables for plans and dashboards. Other values must be
// strings or implement fmt.Stringer.
type TextFormatter struct {
	opts *Options
}

func (f *TextFormatter) Format(data any) error {
	var text string
	switch v := data.(type) {
	case PlanView:
		text = renderPlan(v, f.styles(), f.opts.Width)
	case *PlanView:
		text = renderPlan(*v, f.styles(), f.opts.Width)
	case DashboardView:
		text = renderDashboard(v, f.styles(), f.opts.Width)
	case *DashboardView:
		text = renderDashboard(*v, f.styles(), f.opts.Width)
	case CommitView:
		text = renderCommit(v)
	case string:
		text = v
	case fmt.Stringer:
		text = v.String()
	default:
		return fmt.Errorf("text formatter cannot render %T", data)
	}
	_, err := fmt.Fprintln(f.opts.Writer, text)
	return err
}

var _ Formatter = (*JSONFormatter)(nil)
var _ Formatter = (*YAMLFormatter)(nil)
var _ Formatter = (*TextFormatter)(nil)
