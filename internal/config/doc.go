// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config manages inkwell's persistent configuration: model
// request parameters and chat behavior, stored as TOML (with a JSON
// fallback) under ~/.inkwell.
//
// Load order is file values over Default(), then environment overrides,
// then validation. There is no package-level config singleton; callers
// hold and pass the *Config they loaded. A Watcher can reload the file
// on change for long-running sessions.
package config
