// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// usage_cmd.go - Token usage subcommands for inkwell CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jeranaias/inkwell/internal/telemetry"
)

// HandleUsage dispatches the usage subcommands. Returns the process
// exit code.
func HandleUsage(args Args, store *telemetry.UsageStore) int {
	switch strings.ToLower(args.Subcommand) {
	case "", "show":
		return usageShow(args, store)

	case "reset":
		if err := store.Reset(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Println("Usage records cleared.")
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown usage subcommand: %s\n", args.Subcommand)
		return 1
	}
}

func usageShow(args Args, store *telemetry.UsageStore) int {
	byModel, err := store.TotalsByModel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if args.JSON {
		out, err := json.MarshalIndent(byModel, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Println(string(out))
		return 0
	}

	if len(byModel) == 0 {
		fmt.Println("No usage recorded yet.")
		return 0
	}

	models := make([]string, 0, len(byModel))
	for m := range byModel {
		models = append(models, m)
	}
	sort.Strings(models)

	fmt.Printf("%-24s %10s %14s %18s\n", "MODEL", "REQUESTS", "PROMPT TOKENS", "COMPLETION TOKENS")
	var total telemetry.Totals
	for _, m := range models {
		t := byModel[m]
		fmt.Printf("%-24s %10d %14d %18d\n", m, t.Requests, t.PromptTokens, t.CompletionTokens)
		total.Requests += t.Requests
		total.PromptTokens += t.PromptTokens
		total.CompletionTokens += t.CompletionTokens
	}
	fmt.Printf("%-24s %10d %14d %18d\n", "TOTAL", total.Requests, total.PromptTokens, total.CompletionTokens)
	return 0
}
