// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat sessions as self-contained JSON records,
// one file per session under the store's base directory.
//
// Records are always written whole, via an atomic temp-write-then-rename,
// so a reader never sees a partially updated transcript. Appends take a
// per-session lock around the load-modify-overwrite cycle to rule out
// lost updates between concurrent writers.
//
// Write failures on create/append propagate to the caller; deletes are
// best-effort and report per-record failures to the log instead.
package storage
