// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CHAT SESSION
// =============================================================================

// ChatSession is the unit of durability: one ongoing conversation with an
// ordered, append-only transcript. The identifier doubles as the storage
// key. Message order is chronological and never reordered or deduplicated;
// a session with zero messages is valid.
type ChatSession struct {
	ID        string        `json:"id"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewChatSession creates an empty session with a generated ID and the
// timestamps set to the current time.
func NewChatSession() *ChatSession {
	now := time.Now()
	return &ChatSession{
		ID:        uuid.NewString(),
		Messages:  []ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a new message to the transcript and refreshes UpdatedAt.
// UpdatedAt is monotonically non-decreasing across appends.
func (s *ChatSession) Append(role Role, content string) ChatMessage {
	msg := NewChatMessage(s.ID, role, content)
	s.Messages = append(s.Messages, msg)

	if msg.Timestamp.After(s.UpdatedAt) {
		s.UpdatedAt = msg.Timestamp
	}
	return msg
}

// MessageCount returns the number of messages in the session.
func (s *ChatSession) MessageCount() int {
	return len(s.Messages)
}

// Preview returns a short preview from the first user message, or an
// empty string if the session has no user messages yet.
func (s *ChatSession) Preview(maxLen int) string {
	for _, msg := range s.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			return msg.Preview(maxLen)
		}
	}
	return ""
}
