// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assistant coordinates conversations between the session
// store and the model gateway.
//
// The Manager enforces the conversation protocol: the user's message
// is persisted before the model is asked, a failed request yields the
// apology reply rather than an error, and a missing credential is the
// one condition surfaced as a typed error (ErrNotConfigured) so the
// caller can direct the user to setup.
package assistant
