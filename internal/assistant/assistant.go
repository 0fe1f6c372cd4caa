// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jeranaias/inkwell/internal/config"
	"github.com/jeranaias/inkwell/internal/gateway"
	"github.com/jeranaias/inkwell/internal/model"
	"github.com/jeranaias/inkwell/internal/storage"
)

// =============================================================================
// CONSTANTS AND ERRORS
// =============================================================================

// Apology is the assistant's reply when the model request fails. It is
// conversation content, never an error value.
const Apology = "I'm sorry, I couldn't process your request."

// ErrNotConfigured indicates no API credential has been set up. Unlike
// a failed request, this is actionable: the caller should point the
// user at setup instead of showing a fallback reply.
var ErrNotConfigured = errors.New("assistant not configured: no API key available")

// systemRoleModels lists the models known to honor a system role.
// Anything else gets system turns downgraded to assistant turns in the
// outgoing request; the stored transcript is never rewritten.
var systemRoleModels = map[string]bool{
	"gpt-4":               true,
	"gpt-4-turbo-preview": true,
	"gpt-3.5-turbo":       true,
	"gpt-4o":              true,
	"gpt-4o-mini":         true,
}

// =============================================================================
// COMPLETER
// =============================================================================

// Completer is the model-facing surface the manager depends on.
// *gateway.Gateway satisfies it; tests substitute a fake.
type Completer interface {
	Ready() bool
	Complete(ctx context.Context, msgs []gateway.Message, modelOverride string) (string, error)
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager drives conversations: it owns session lifecycle, transcript
// persistence, and the request/fallback protocol around the model
// gateway.
type Manager struct {
	store     *storage.SessionStore
	completer Completer

	mu  sync.RWMutex
	cfg *config.Config
}

// NewManager creates a conversation manager.
func NewManager(store *storage.SessionStore, completer Completer, cfg *config.Config) *Manager {
	return &Manager{
		store:     store,
		completer: completer,
		cfg:       cfg,
	}
}

// SetConfig replaces the manager's configuration, e.g. after a reload.
// The handle is swapped under a lock so an in-flight Send keeps reading
// a consistent snapshot; callers must not mutate cfg after passing it.
func (m *Manager) SetConfig(cfg *config.Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// Config returns the current configuration snapshot.
func (m *Manager) Config() *config.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Bootstrap resumes the most recently used session, or creates a new
// one. A new session opens with the configured welcome message unless
// welcome display is disabled. Bootstrap is idempotent: calling it
// again resumes the session it created.
func (m *Manager) Bootstrap() (*model.ChatSession, error) {
	session, err := m.store.MostRecent()
	if err != nil {
		return nil, fmt.Errorf("failed to find recent session: %w", err)
	}
	if session != nil {
		return session, nil
	}

	session, err = m.store.Create()
	if err != nil {
		return nil, err
	}

	cfg := m.Config()
	if cfg.Chat.DisplayWelcome {
		welcome := cfg.Chat.WelcomeMessage
		if welcome == "" {
			welcome = config.DefaultWelcomeMessage
		}
		if _, err := m.store.AppendMessage(session.ID, model.RoleAssistant, welcome); err != nil {
			return nil, err
		}
		return m.store.Load(session.ID)
	}

	return session, nil
}

// NewSession creates a fresh session, with the welcome message when
// enabled, regardless of existing sessions.
func (m *Manager) NewSession() (*model.ChatSession, error) {
	session, err := m.store.Create()
	if err != nil {
		return nil, err
	}

	cfg := m.Config()
	if cfg.Chat.DisplayWelcome {
		welcome := cfg.Chat.WelcomeMessage
		if welcome == "" {
			welcome = config.DefaultWelcomeMessage
		}
		if _, err := m.store.AppendMessage(session.ID, model.RoleAssistant, welcome); err != nil {
			return nil, err
		}
		return m.store.Load(session.ID)
	}

	return session, nil
}

// Send appends the user's message to the session, requests a reply,
// and appends that reply.
//
// When no credential is configured it returns ErrNotConfigured without
// touching the transcript. When the request itself fails, the apology
// text is returned as the reply but never stored: the user's message
// stays in the transcript and the next request retries from there
// without a fabricated assistant turn in the history. Persistence
// failures propagate.
func (m *Manager) Send(ctx context.Context, sessionID, text string) (string, error) {
	if !m.completer.Ready() {
		return "", ErrNotConfigured
	}

	if _, err := m.store.AppendMessage(sessionID, model.RoleUser, text); err != nil {
		return "", err
	}

	transcript := m.mapTranscript(m.store.Messages(sessionID))

	reply, err := m.completer.Complete(ctx, transcript, "")
	if err != nil {
		if errors.Is(err, gateway.ErrNotInitialized) {
			return "", ErrNotConfigured
		}
		return "", err
	}
	if reply == "" {
		return Apology, nil
	}

	if _, err := m.store.AppendMessage(sessionID, model.RoleAssistant, reply); err != nil {
		return "", err
	}
	return reply, nil
}

// mapTranscript converts stored messages into request turns, applying
// the system-role downgrade for models outside the allow-list.
func (m *Manager) mapTranscript(msgs []model.ChatMessage) []gateway.Message {
	downgrade := !systemRoleModels[m.Config().OpenAI.Model]

	out := make([]gateway.Message, 0, len(msgs))
	for _, msg := range msgs {
		role := msg.Role
		if role == model.RoleSystem && downgrade {
			role = model.RoleAssistant
		}
		out = append(out, gateway.Message{Role: role, Content: msg.Content})
	}
	return out
}

// Messages returns the ordered transcript for a session.
func (m *Manager) Messages(sessionID string) []model.ChatMessage {
	return m.store.Messages(sessionID)
}

// List returns metadata for all sessions, most recent first.
func (m *Manager) List() ([]storage.SessionMeta, error) {
	return m.store.List()
}

// Remove deletes one session. Returns whether it existed.
func (m *Manager) Remove(sessionID string) bool {
	return m.store.Delete(sessionID)
}

// ClearAll deletes every session.
func (m *Manager) ClearAll() bool {
	return m.store.DeleteAll()
}
