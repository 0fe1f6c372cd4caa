// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration subcommands for inkwell CLI.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/inkwell/internal/config"
	"github.com/jeranaias/inkwell/internal/gateway"
)

// ConfigDeps are the collaborators the config commands drive.
type ConfigDeps struct {
	Config  *config.Config
	Gateway *gateway.Gateway
}

// HandleConfig dispatches the config subcommands. Returns the process
// exit code.
func HandleConfig(args Args, deps ConfigDeps) int {
	switch strings.ToLower(args.Subcommand) {
	case "", "show":
		return configShow(deps.Config)

	case "get":
		if args.ConfigKey == "" {
			fmt.Fprintln(os.Stderr, "Usage: inkwell config get <key>")
			return 1
		}
		value, err := deps.Config.Get(args.ConfigKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("%v\n", value)
		return 0

	case "set":
		if args.ConfigKey == "" || args.ConfigVal == "" {
			fmt.Fprintln(os.Stderr, "Usage: inkwell config set <key> <value>")
			return 1
		}
		if err := deps.Config.Set(args.ConfigKey, args.ConfigVal); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if err := deps.Config.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if err := config.Save(deps.Config); err != nil {
			fmt.Fprintf(os.Stderr, "Error: could not save config: %v\n", err)
			return 1
		}
		// Model parameters take effect immediately
		if deps.Gateway != nil {
			deps.Gateway.SetParams(requestParams(deps.Config))
		}
		fmt.Printf("%s = %s\n", args.ConfigKey, args.ConfigVal)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args.Subcommand)
		return 1
	}
}

func configShow(cfg *config.Config) int {
	for _, key := range config.GetAllKeys() {
		value, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Printf("%-26s %v\n", key, value)
	}
	return 0
}
