// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// session_cmd.go - Session management subcommands for inkwell CLI.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/inkwell/internal/assistant"
	"github.com/jeranaias/inkwell/internal/storage"
	"github.com/jeranaias/inkwell/internal/util"
)

// HandleSession dispatches the session subcommands. Returns the
// process exit code.
func HandleSession(args Args, manager *assistant.Manager) int {
	switch strings.ToLower(args.Subcommand) {
	case "", "list":
		return sessionList(manager)

	case "show":
		if len(args.Raw) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: inkwell session show <id>")
			return 1
		}
		return sessionShow(manager, args.Raw[0])

	case "delete":
		if len(args.Raw) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: inkwell session delete <id>")
			return 1
		}
		if !manager.Remove(args.Raw[0]) {
			fmt.Fprintf(os.Stderr, "Session not found: %s\n", args.Raw[0])
			return 1
		}
		fmt.Println("Session deleted.")
		return 0

	case "delete-all":
		if !manager.ClearAll() {
			fmt.Fprintln(os.Stderr, "Some sessions could not be deleted.")
			return 1
		}
		fmt.Println("All sessions deleted.")
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown session subcommand: %s\n", args.Subcommand)
		return 1
	}
}

func sessionList(manager *assistant.Manager) int {
	metas, err := manager.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not list sessions: %v\n", err)
		return 1
	}
	if len(metas) == 0 {
		fmt.Println("No saved sessions.")
		return 0
	}

	fmt.Print(FormatSessionList(metas))
	return 0
}

// FormatSessionList renders session metadata as an aligned table.
func FormatSessionList(metas []storage.SessionMeta) string {
	var b strings.Builder
	b.WriteString(util.Pad("ID", 38))
	b.WriteString(util.Pad("UPDATED", 18))
	b.WriteString(util.Pad("MSGS", 6))
	b.WriteString("PREVIEW\n")

	for _, meta := range metas {
		b.WriteString(util.Pad(meta.ID, 38))
		b.WriteString(util.Pad(meta.UpdatedAt.Format("2006-01-02 15:04"), 18))
		b.WriteString(util.Pad(fmt.Sprintf("%d", meta.MessageCount), 6))
		b.WriteString(util.Truncate(meta.Preview, 48))
		b.WriteString("\n")
	}
	return b.String()
}

func sessionShow(manager *assistant.Manager, id string) int {
	msgs := manager.Messages(id)
	if len(msgs) == 0 {
		fmt.Fprintf(os.Stderr, "Session not found or empty: %s\n", id)
		return 1
	}

	for _, msg := range msgs {
		fmt.Printf("[%s] %s\n%s\n\n", msg.Role.DisplayName(), msg.Timestamp.Format("2006-01-02 15:04:05"), msg.Content)
	}
	return 0
}
