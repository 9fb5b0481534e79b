package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/h0rv/kanbanbar/internal/auth"
	"github.com/h0rv/kanbanbar/internal/board"
	"github.com/h0rv/kanbanbar/internal/config"
	"github.com/h0rv/kanbanbar/internal/copilot"
	"github.com/h0rv/kanbanbar/internal/engine"
	"github.com/h0rv/kanbanbar/internal/gh"
	"github.com/h0rv/kanbanbar/internal/logging"
	"github.com/h0rv/kanbanbar/internal/store"
)

// app holds the wired components shared by every command.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	closer  io.Closer
	client  *gh.Client
	secrets auth.SecretStore
	tokens  auth.Chain
	engine  *engine.Engine
	copilot *copilot.Copilot
}

// newApp loads the config and builds the client, store, board, engine and copilot.
// toFile sends logs to the configured log file instead of stderr.
func newApp(toFile bool) (*app, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, closer, err := logging.Setup(cfg.Log, toFile)
	if err != nil {
		return nil, err
	}

	client, err := gh.New(gh.Config{
		GraphQLURL: cfg.GitHub.GraphQLURL,
		RESTURL:    cfg.GitHub.RESTURL,
		Timeout:    cfg.GitHub.Timeout,
		Logger:     log,
	})
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	b := board.New()
	if f, err := board.ParseFilter(cfg.Board.Filter); err == nil {
		b.SetFilter(f)
	} else {
		log.Warn("ignoring board filter", "filter", cfg.Board.Filter, "error", err)
	}

	secrets := auth.NewKeyringStore()
	tokens := auth.NewChain(secrets)
	e := engine.New(client, store.New(client, log), b, tokens, log)

	return &app{
		cfg:     cfg,
		log:     log,
		closer:  closer,
		client:  client,
		secrets: secrets,
		tokens:  tokens,
		engine:  e,
		copilot: copilot.New(e, log),
	}, nil
}

// authenticator builds the OAuth flow from the configured app credentials.
func (a *app) authenticator() (*auth.Authenticator, error) {
	return auth.NewAuthenticator(auth.OAuthConfig{
		ClientID:     a.cfg.GitHub.ClientID,
		ClientSecret: a.cfg.GitHub.ClientSecret,
		CallbackAddr: a.cfg.GitHub.CallbackAddr,
	}, a.secrets, a.client, a.log)
}

// projectRef is --project, else the configured default.
func (a *app) projectRef() string {
	if projectFlag != "" {
		return projectFlag
	}
	return a.cfg.Board.Project
}

func (a *app) Close() error {
	return a.closer.Close()
}
