// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for inkwell.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdSetup
	CmdSession
	CmdConfig
	CmdUsage
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Model   string
	Quiet   bool
	JSON    bool
	Verbose bool

	// Command-specific
	Subcommand string
	ConfigKey  string
	ConfigVal  string

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `inkwell - AI writing assistant for the command line

Inkwell keeps a persistent conversation with an OpenAI model. Sessions
survive restarts; your API key is stored encrypted on disk.

Usage:
  inkwell                    Resume the last chat session (default)
  inkwell chat               Same as the default
  inkwell setup              Store your API key and pick a model
  inkwell session [cmd]      Session management
  inkwell config [cmd]       Configuration
  inkwell usage              Token usage summary
  inkwell version            Show version
  inkwell help               Show this help

Chat flags:
  -m, --model NAME           Use a specific model for this run
  -q, --quiet                Minimal output

Session Commands:
  inkwell session list               List all saved sessions
  inkwell session show <id>          Print a session transcript
  inkwell session delete <id>        Delete a session
  inkwell session delete-all         Delete all sessions

Config Commands:
  inkwell config show                Show current configuration
  inkwell config get <key>           Get a value (dot notation, e.g. openai.model)
  inkwell config set <key> <value>   Set a value and save

Usage Commands:
  inkwell usage                      Totals across all models
  inkwell usage --json               Machine-readable output
  inkwell usage reset                Clear recorded usage

Interactive Commands (during chat):
  /help               Show available commands
  /new, /clear        Start a fresh session
  /model [name]       Show or switch model
  /history            Show the full transcript
  /quit               Exit chat
  Ctrl+D              Exit chat

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("inkwell version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return parseArgs(os.Args[1:])
}

// parseArgs is the testable core of Parse.
func parseArgs(args []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(args)

	if len(remaining) == 0 {
		return CmdChat, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining

	switch cmd {
	case "chat":
		return CmdChat, parsed

	case "setup":
		return CmdSetup, parsed

	case "session", "sessions":
		if len(remaining) > 0 {
			parsed.Subcommand = remaining[0]
			parsed.Raw = remaining[1:]
		}
		return CmdSession, parsed

	case "config":
		parseConfigArgs(&parsed, remaining)
		return CmdConfig, parsed

	case "usage":
		if len(remaining) > 0 && !strings.HasPrefix(remaining[0], "-") {
			parsed.Subcommand = remaining[0]
		}
		return CmdUsage, parsed

	case "version", "-v", "--version":
		return CmdVersion, parsed

	case "help", "-h", "--help":
		return CmdHelp, parsed

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, parsed
	}
}

// parseGlobalFlags extracts global flags, returning the remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var parsed Args
	var remaining []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-m", "--model":
			if i+1 < len(args) {
				i++
				parsed.Model = args[i]
			}
		case "-q", "--quiet":
			parsed.Quiet = true
		case "--json":
			parsed.JSON = true
		case "--verbose":
			parsed.Verbose = true
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, parsed
}

// parseConfigArgs parses config subcommand arguments.
func parseConfigArgs(parsed *Args, remaining []string) {
	if len(remaining) == 0 {
		parsed.Subcommand = "show"
		return
	}

	parsed.Subcommand = strings.ToLower(remaining[0])
	if len(remaining) > 1 {
		parsed.ConfigKey = remaining[1]
	}
	if len(remaining) > 2 {
		parsed.ConfigVal = strings.Join(remaining[2:], " ")
	}
}
