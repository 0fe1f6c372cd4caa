// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway sends conversations to OpenAI chat models.
//
// The Gateway holds the credential-backed client and shapes request
// parameters per model family: general chat models take the full
// sampling parameter set, reasoning-tier models (o1, o3) take a pinned
// temperature and a max_completion_tokens cap only. The family table
// in families.go is the single place that knowledge lives.
//
// Complete distinguishes two failure shapes: ErrNotInitialized when no
// credential has been configured (actionable by the caller), and an
// empty reply for transport or API failures (logged here, replaced
// with fallback text upstream).
package gateway
