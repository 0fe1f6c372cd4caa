// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// setup.go - First-run setup wizard for inkwell CLI.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jeranaias/inkwell/internal/config"
	"github.com/jeranaias/inkwell/internal/gateway"
	"github.com/jeranaias/inkwell/internal/vault"
)

// SetupDeps are the collaborators the setup wizard drives.
type SetupDeps struct {
	Vault   vault.Vault
	Gateway *gateway.Gateway
	Config  *config.Config
}

// HandleSetup runs the interactive setup wizard: stores the API key in
// the vault and optionally picks a default model. Returns the process
// exit code.
func HandleSetup(args Args, deps SetupDeps) int {
	fmt.Println("inkwell setup")
	fmt.Println()

	key := promptSecure("OpenAI API key (press Enter to keep existing)")
	if key != "" {
		if err := deps.Vault.Store(vault.KeyOpenAIAPI, key); err != nil {
			fmt.Fprintf(os.Stderr, "Error: could not store API key: %v\n", err)
			return 1
		}
		fmt.Println("API key stored (encrypted at rest).")
	} else if !deps.Vault.Exists(vault.KeyOpenAIAPI) {
		fmt.Println("No API key provided and none stored; chat will stay unavailable.")
	}

	model := promptInput(fmt.Sprintf("Default model [%s]", deps.Config.OpenAI.Model))
	if model != "" {
		deps.Config.OpenAI.Model = model
	}

	if err := config.Save(deps.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not save config: %v\n", err)
		return 1
	}

	if deps.Gateway.Initialize("") {
		fmt.Printf("Ready. Model: %s. Run 'inkwell' to start chatting.\n", deps.Config.OpenAI.Model)
	} else {
		fmt.Println("Setup saved, but no usable API key is configured yet.")
	}
	return 0
}

// promptSecure prompts for sensitive input without echoing.
// SECURITY: API keys never appear on screen or in shell history.
func promptSecure(prompt string) string {
	if prompt != "" {
		fmt.Print(prompt)
		if !strings.HasSuffix(prompt, ": ") && !strings.HasSuffix(prompt, " ") {
			fmt.Print(": ")
		}
	}

	keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return ""
	}
	fmt.Println()

	return strings.TrimSpace(string(keyBytes))
}

// promptInput prompts for a plain line of input.
func promptInput(prompt string) string {
	if prompt != "" {
		fmt.Printf("%s: ", prompt)
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(input)
}
