// inkwell - An AI writing assistant for the command line.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeranaias/inkwell/internal/assistant"
	"github.com/jeranaias/inkwell/internal/cli"
	"github.com/jeranaias/inkwell/internal/config"
	"github.com/jeranaias/inkwell/internal/gateway"
	"github.com/jeranaias/inkwell/internal/storage"
	"github.com/jeranaias/inkwell/internal/telemetry"
	"github.com/jeranaias/inkwell/internal/vault"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdVersion:
		cli.PrintVersion()
		return
	case cli.CmdHelp:
		cli.PrintUsage()
		return
	}

	app, err := buildApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer app.close()

	var code int
	switch cmd {
	case cli.CmdChat:
		code = cli.HandleChat(args, cli.ChatDeps{
			Manager: app.manager,
			Gateway: app.gateway,
		})
	case cli.CmdSetup:
		code = cli.HandleSetup(args, cli.SetupDeps{
			Vault:   app.vault,
			Gateway: app.gateway,
			Config:  app.cfg,
		})
	case cli.CmdSession:
		code = cli.HandleSession(args, app.manager)
	case cli.CmdConfig:
		code = cli.HandleConfig(args, cli.ConfigDeps{
			Config:  app.cfg,
			Gateway: app.gateway,
		})
	case cli.CmdUsage:
		code = cli.HandleUsage(args, app.usage)
	}

	os.Exit(code)
}

// app holds the wired application components.
type app struct {
	cfg     *config.Config
	vault   *vault.FileVault
	store   *storage.SessionStore
	usage   *telemetry.UsageStore
	gateway *gateway.Gateway
	manager *assistant.Manager
}

// buildApp constructs and wires the application components.
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}

	fv, err := vault.NewFileVault(filepath.Join(configDir, "vault"))
	if err != nil {
		return nil, fmt.Errorf("could not open vault: %w", err)
	}

	store, err := storage.NewSessionStoreWithDir(filepath.Join(configDir, "sessions"))
	if err != nil {
		return nil, fmt.Errorf("could not open session store: %w", err)
	}

	usage, err := telemetry.NewUsageStore(filepath.Join(configDir, "usage.db"))
	if err != nil {
		return nil, fmt.Errorf("could not open usage store: %w", err)
	}

	gw := gateway.New(fv, gateway.RequestParams{
		Model:            cfg.OpenAI.Model,
		Temperature:      cfg.OpenAI.Temperature,
		MaxTokens:        cfg.OpenAI.MaxTokens,
		TopP:             cfg.OpenAI.TopP,
		FrequencyPenalty: cfg.OpenAI.FrequencyPenalty,
		PresencePenalty:  cfg.OpenAI.PresencePenalty,
	})
	gw.SetRecorder(usage)

	// Missing key is fine here; chat reports it when it matters.
	gw.Initialize("")

	manager := assistant.NewManager(store, gw, cfg)

	return &app{
		cfg:     cfg,
		vault:   fv,
		store:   store,
		usage:   usage,
		gateway: gw,
		manager: manager,
	}, nil
}

func (a *app) close() {
	if a.usage != nil {
		a.usage.Close()
	}
}
