// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for inkwell CLI.
//
// USABILITY: Input history and line editing for a pleasant REPL
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/inkwell/internal/assistant"
	"github.com/jeranaias/inkwell/internal/config"
	"github.com/jeranaias/inkwell/internal/gateway"
	"github.com/jeranaias/inkwell/internal/model"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
// USABILITY: Supports arrow keys for history navigation and line editing.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with secure permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}

	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

// ChatDeps are the collaborators the chat REPL drives. Configuration
// is read and replaced through the manager, whose accessors are safe
// against the reload watcher goroutine.
type ChatDeps struct {
	Manager *assistant.Manager
	Gateway *gateway.Gateway
}

// HandleChat runs the interactive chat REPL. Returns the process exit
// code.
func HandleChat(args Args, deps ChatDeps) int {
	if args.Model != "" {
		cfg := *deps.Manager.Config()
		cfg.OpenAI.Model = args.Model
		deps.Manager.SetConfig(&cfg)
		deps.Gateway.SetParams(requestParams(&cfg))
	}

	session, err := deps.Manager.Bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not open a session: %v\n", err)
		return 1
	}

	cli := NewChatCLI()
	defer cli.Close()

	// Pick up config edits made while the session is open.
	if tomlPath, err := config.ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			// The callback runs on the watcher goroutine while the REPL
			// may have a request in flight, so the new snapshot is handed
			// over through the manager's synchronized setter rather than
			// written into shared state.
			w, err := config.NewWatcher(tomlPath, 500*time.Millisecond, func(fresh *config.Config) {
				deps.Manager.SetConfig(fresh)
				deps.Gateway.SetParams(requestParams(fresh))
			})
			if err == nil && w.Watch() == nil {
				defer w.Close()
			}
		}
	}

	if !args.Quiet {
		fmt.Printf("inkwell %s - model: %s\n", Version, deps.Manager.Config().OpenAI.Model)
		fmt.Println("Type /help for commands, /quit or Ctrl+D to exit.")
		fmt.Println()
		printTranscript(session.Messages)
	}

	ctx := context.Background()

	for {
		input, err := cli.ReadInput("> ")
		if err != nil {
			// Ctrl+D or Ctrl+C ends the session
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			fmt.Println()
			return 0
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := handleChatCommand(input, &session, deps); quit {
				return 0
			}
			continue
		}

		reply, err := deps.Manager.Send(ctx, session.ID, input)
		if err != nil {
			if errors.Is(err, assistant.ErrNotConfigured) {
				fmt.Println("No API key configured. Run 'inkwell setup' first.")
				continue
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}

		fmt.Printf("\n%s\n\n", reply)
	}
}

// handleChatCommand processes a /command. Returns true to exit.
func handleChatCommand(input string, session **model.ChatSession, deps ChatDeps) bool {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case "/quit", "/q", "/exit":
		return true

	case "/help", "/h":
		fmt.Println("Commands:")
		fmt.Println("  /new, /clear    Start a fresh session")
		fmt.Println("  /model [name]   Show or switch model")
		fmt.Println("  /history        Show the full transcript")
		fmt.Println("  /quit           Exit chat")

	case "/new", "/clear", "/c":
		fresh, err := deps.Manager.NewSession()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: could not create session: %v\n", err)
			return false
		}
		*session = fresh
		fmt.Println("Started a new session.")
		printTranscript(fresh.Messages)

	case "/model":
		if len(fields) < 2 {
			fmt.Printf("Current model: %s\n", deps.Manager.Config().OpenAI.Model)
			return false
		}
		cfg := *deps.Manager.Config()
		cfg.OpenAI.Model = fields[1]
		deps.Manager.SetConfig(&cfg)
		deps.Gateway.SetParams(requestParams(&cfg))
		if err := config.Save(&cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save config: %v\n", err)
		}
		fmt.Printf("Switched to model %s\n", fields[1])

	case "/history":
		printTranscript(deps.Manager.Messages((*session).ID))

	default:
		fmt.Printf("Unknown command %s. Type /help for commands.\n", cmd)
	}

	return false
}

// printTranscript prints messages with role labels.
func printTranscript(msgs []model.ChatMessage) {
	for _, msg := range msgs {
		fmt.Printf("[%s] %s\n", msg.Role.DisplayName(), msg.Content)
	}
	if len(msgs) > 0 {
		fmt.Println()
	}
}

// requestParams maps config onto the gateway's parameter set.
func requestParams(cfg *config.Config) gateway.RequestParams {
	return gateway.RequestParams{
		Model:            cfg.OpenAI.Model,
		Temperature:      cfg.OpenAI.Temperature,
		MaxTokens:        cfg.OpenAI.MaxTokens,
		TopP:             cfg.OpenAI.TopP,
		FrequencyPenalty: cfg.OpenAI.FrequencyPenalty,
		PresencePenalty:  cfg.OpenAI.PresencePenalty,
	}
}
