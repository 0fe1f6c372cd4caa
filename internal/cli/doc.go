// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements inkwell's command-line surface: argument
// parsing, the interactive chat REPL, the setup wizard, and the
// session, config, and usage subcommands.
package cli
