package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/cosync/internal/api"
	"github.com/nhle/cosync/internal/app"
	"github.com/nhle/cosync/internal/channel"
	"github.com/nhle/cosync/internal/credential"
	"github.com/nhle/cosync/internal/model"
	"github.com/nhle/cosync/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cosync: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger, closeLog, err := newLogger()
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	cfg, err := model.LoadConfig(model.DefaultConfigPath())
	if err != nil {
		return err
	}

	token, err := credential.Token()
	if err != nil || token == "" || cfg.ServerURL == "" {
		cfg, token, err = firstRunSetup(cfg)
		if err != nil {
			return err
		}
	}

	st, err := store.NewSQLiteStore(model.DefaultCachePath())
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer st.Close()

	apiClient := api.NewClient(cfg.ServerURL, token, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	viewer, err := apiClient.Me(ctx)
	if err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}

	chann, err := channel.NewClient(channel.Config{
		URL:    cfg.ResolveChannelURL(),
		Token:  token,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	go chann.Run(ctx)

	root := app.New(app.Config{
		App:     *cfg,
		Logger:  logger,
		API:     apiClient,
		Channel: chann,
		Store:   st,
		Viewer:  *viewer,
	})

	program := tea.NewProgram(root,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// newLogger writes structured JSON logs next to the config file; the
// terminal itself belongs to the UI.
func newLogger() (*slog.Logger, func(), error) {
	dir := filepath.Dir(model.DefaultConfigPath())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, "cosync.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	return logger, func() { f.Close() }, nil
}

// firstRunSetup prompts for the backend URL and access token, persists
// both, and returns the completed configuration.
func firstRunSetup(cfg *model.AppConfig) (*model.AppConfig, string, error) {
	serverURL := cfg.ServerURL
	var token string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Description("Base URL of your collaboration backend").
				Placeholder("https://api.example.com").
				Value(&serverURL).
				Validate(func(s string) error {
					s = strings.TrimSpace(s)
					if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
						return fmt.Errorf("must start with http:// or https://")
					}
					return nil
				}),
			huh.NewInput().
				Title("Access token").
				Description("Stored in your system keyring").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("token is required")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return nil, "", fmt.Errorf("setup cancelled: %w", err)
	}

	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(serverURL), "/")
	token = strings.TrimSpace(token)

	if err := model.SaveConfig(model.DefaultConfigPath(), cfg); err != nil {
		return nil, "", err
	}
	if err := credential.SetToken(token); err != nil {
		return nil, "", fmt.Errorf("storing token: %w", err)
	}
	return cfg, token, nil
}
