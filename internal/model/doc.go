// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the chat data types shared across the inkwell
// core: Role, ChatMessage, and ChatSession.
//
// A ChatSession owns an ordered, append-only transcript of ChatMessages.
// Messages never move between sessions and are immutable once created.
// These types carry their persisted JSON shape directly; the storage
// package reads and writes them as whole records.
package model
