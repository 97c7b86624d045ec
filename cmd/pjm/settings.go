package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/robby/pjm/internal/domain"
	"github.com/robby/pjm/internal/settings"
)

var settingsYesFlag bool

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the planning settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadSettings()
			if err := warnMalformed(cmd.ErrOrStderr(), err); err != nil {
				return err
			}
			data, err := settings.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the settings file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := settings.ResolvePath(settingsFlag)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p)
			return err
		},
	}

	edit := &cobra.Command{
		Use:   "edit",
		Short: "Edit the settings in a form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isInteractive() {
				return errors.New("settings edit needs a terminal")
			}
			p, cfg, err := loadEditableSettings()
			if err != nil {
				return err
			}
			values := newSettingsValues(cfg)
			if err := settingsForm(values).Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return nil
				}
				return err
			}
			updated, err := values.apply(cfg)
			if err != nil {
				return err
			}
			if err := settings.Save(p, updated); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", p)
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore the built-in settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := settings.ResolvePath(settingsFlag)
			if err != nil {
				return err
			}
			if !settingsYesFlag {
				if !isInteractive() {
					return errors.New("reset overwrites the settings file; pass --yes to confirm")
				}
				var ok bool
				err := huh.NewConfirm().
					Title(fmt.Sprintf("Overwrite %s with the defaults?", p)).
					Value(&ok).
					Run()
				if err != nil && !errors.Is(err, huh.ErrUserAborted) {
					return err
				}
				if !ok {
					return nil
				}
			}
			if err := settings.Save(p, settings.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %s\n", p)
			return nil
		},
	}
	reset.Flags().BoolVarP(&settingsYesFlag, "yes", "y", false, "Do not ask for confirmation")

	cmd.AddCommand(show, path, edit, reset)
	return cmd
}

func loadSettings() (string, settings.Settings, error) {
	p, err := settings.ResolvePath(settingsFlag)
	if err != nil {
		return "", settings.Settings{}, err
	}
	cfg, err := settings.Load(p)
	return p, cfg, err
}

// loadEditableSettings refuses a malformed file so saving the form cannot
// replace the user's document with the defaults.
func loadEditableSettings() (string, settings.Settings, error) {
	p, cfg, err := loadSettings()
	var malformed *settings.MalformedError
	if errors.As(err, &malformed) {
		return "", settings.Settings{}, fmt.Errorf("%w; fix the file or run 'pjm settings reset' before editing", err)
	}
	return p, cfg, err
}

// warnMalformed prints a malformed settings file as a warning and clears the
// error so the command continues with the defaults. Other errors are returned.
func warnMalformed(w io.Writer, err error) error {
	var malformed *settings.MalformedError
	if errors.As(err, &malformed) {
		fmt.Fprintf(w, "warning: %v\n", err)
		return nil
	}
	return err
}

// ruleDepartments are the departments whose date rule and label can be edited.
var ruleDepartments = []domain.Department{
	domain.DeptImaging,
	domain.DeptMCAD,
	domain.DeptECAD,
	domain.DeptAutomation,
	domain.DeptProjectManagement,
	domain.DeptProductDevelopment,
	domain.DeptSoftware,
	domain.DeptTD,
	domain.DeptIPC,
	domain.DeptTechnikum,
}

// settingsValues holds the form's string-backed fields.
type settingsValues struct {
	baseAddress   string
	ipcPerson     string
	duplicateBild bool
	releaseTasks  bool
	names         map[domain.Department]*string
	rules         map[domain.Department]*string
}

func newSettingsValues(cfg settings.Settings) *settingsValues {
	v := &settingsValues{
		baseAddress:   cfg.BaseAddress,
		ipcPerson:     cfg.IPCPerson,
		duplicateBild: cfg.DuplicateImagingTask,
		releaseTasks:  cfg.ReleaseTasks,
		names:         make(map[domain.Department]*string),
		rules:         make(map[domain.Department]*string),
	}
	for _, d := range ruleDepartments {
		name := cfg.TaskName(d)
		v.names[d] = &name
		rule := ""
		if r, ok := cfg.DateRules[d]; ok {
			rule = r.String()
		}
		v.rules[d] = &rule
	}
	return v
}

// apply writes the form values over a copy of cfg.
func (v *settingsValues) apply(cfg settings.Settings) (settings.Settings, error) {
	out := cfg.Clone()
	out.BaseAddress = strings.TrimSpace(v.baseAddress)
	out.IPCPerson = strings.ToUpper(strings.TrimSpace(v.ipcPerson))
	out.DuplicateImagingTask = v.duplicateBild
	out.ReleaseTasks = v.releaseTasks

	for _, d := range ruleDepartments {
		if name := strings.TrimSpace(*v.names[d]); name != "" {
			out.TaskNames[d] = name
		}
		text := strings.TrimSpace(*v.rules[d])
		if text == "" {
			delete(out.DateRules, d)
			continue
		}
		rule, err := domain.ParseDateRule(text)
		if err != nil {
			return settings.Settings{}, &domain.ConfigurationError{Field: "date_rules." + string(d), Err: err}
		}
		out.DateRules[d] = rule
	}
	return out, out.Validate()
}

func settingsForm(v *settingsValues) *huh.Form {
	general := huh.NewGroup(
		huh.NewInput().
			Title("ABAS EDP address").
			Value(&v.baseAddress).
			Validate(validateBaseAddress),
		huh.NewInput().
			Title("IPC person (short code)").
			Value(&v.ipcPerson).
			Validate(validateRequired),
		huh.NewConfirm().
			Title("Create a second imaging support task?").
			Value(&v.duplicateBild),
		huh.NewConfirm().
			Title("Create MCAD/ECAD release tasks at G7?").
			Value(&v.releaseTasks),
	).Title("General")

	nameFields := make([]huh.Field, 0, len(ruleDepartments))
	ruleFields := make([]huh.Field, 0, len(ruleDepartments))
	for _, d := range ruleDepartments {
		nameFields = append(nameFields, huh.NewInput().
			Title(string(d)).
			Value(v.names[d]))
		ruleFields = append(ruleFields, huh.NewInput().
			Title(string(d)).
			Description("(anchor, days, anchor, days); anchors TODAY, G6, G7, G8; blank for none").
			Placeholder("(G7, -14, G7, -7)").
			Value(v.rules[d]).
			Validate(validateOptionalRule))
	}

	return huh.NewForm(
		general,
		huh.NewGroup(nameFields...).Title("Task labels"),
		huh.NewGroup(ruleFields...).Title("Date rules"),
	)
}

func validateBaseAddress(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) URL")
	}
	return nil
}

func validateRequired(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func validateOptionalRule(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_, err := domain.ParseDateRule(s)
	return err
}
