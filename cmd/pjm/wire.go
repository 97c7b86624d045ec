package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/robby/pjm/internal/abas"
	"github.com/robby/pjm/internal/auth"
	"github.com/robby/pjm/internal/dashboard"
	"github.com/robby/pjm/internal/planner"
	"github.com/robby/pjm/internal/settings"
)

// deps are the collaborators shared by all commands.
type deps struct {
	settings settings.Settings
	notice   string // settings problem the user should see
	client   *abas.Client
	service  *planner.Service
	loader   *dashboard.Loader
	lead     string
}

// wire loads settings and identity and builds the ERP client, the planner and
// the dashboard loader.
func wire(logger *slog.Logger) (*deps, error) {
	lead, err := auth.Lead(leadFlag)
	if err != nil {
		return nil, err
	}

	path, err := settings.ResolvePath(settingsFlag)
	if err != nil {
		return nil, err
	}
	var notice string
	cfg, err := settings.Load(path)
	var malformed *settings.MalformedError
	if errors.As(err, &malformed) {
		logger.Warn("settings file is malformed, using defaults", "path", path, "error", malformed.Err)
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		notice = err.Error()
	} else if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}

	client := abas.New(cfg.BaseAddress,
		abas.WithToken(auth.Token()),
		abas.WithLogger(logger),
	)
	assembler := planner.NewAssembler(cfg)

	logger.Debug("wired", "settings", path, "endpoint", client.Endpoint(), "lead", lead)
	return &deps{
		settings: cfg,
		notice:   notice,
		client:   client,
		service:  planner.NewService(client, client, assembler, logger),
		loader:   dashboard.NewLoader(client, nil, logger),
		lead:     lead,
	}, nil
}
