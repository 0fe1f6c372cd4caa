// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/inkwell/internal/model"
	"github.com/jeranaias/inkwell/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrSessionNotFound is returned when a session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidSessionID is returned for identifiers that could escape
	// the session directory.
	ErrInvalidSessionID = errors.New("invalid session id")
)

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionStore persists chat sessions, one JSON file per session, with
// the session identifier as the storage key.
//
// Each append is a load-modify-overwrite cycle over the whole record.
// A per-session mutex serializes that cycle so two concurrent appends
// cannot both load the same prior state and clobber each other.
type SessionStore struct {
	// BaseDir is the directory for session files.
	// Default: ~/.inkwell/sessions/
	BaseDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSessionStore creates a store rooted at the default directory.
func NewSessionStore() (*SessionStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewSessionStoreWithDir(filepath.Join(homeDir, ".inkwell", "sessions"))
}

// NewSessionStoreWithDir creates a store with a custom directory.
func NewSessionStoreWithDir(baseDir string) (*SessionStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &SessionStore{
		BaseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// sessionLock returns the mutex guarding one session's read-modify-write
// cycle, creating it on first use.
func (s *SessionStore) sessionLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// =============================================================================
// CREATE / APPEND
// =============================================================================

// Create makes a new empty session, persists it immediately, and
// returns it.
func (s *SessionStore) Create() (*model.ChatSession, error) {
	session := model.NewChatSession()
	if err := s.save(session); err != nil {
		return nil, fmt.Errorf("failed to persist new session: %w", err)
	}
	return session, nil
}

// AppendMessage loads the session, appends a new message, and persists
// the whole record atomically. Returns ErrSessionNotFound if the
// session does not exist. Write failures propagate: silently losing a
// message would corrupt the transcript.
func (s *SessionStore) AppendMessage(sessionID string, role model.Role, content string) (model.ChatMessage, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.Load(sessionID)
	if err != nil {
		return model.ChatMessage{}, err
	}

	msg := session.Append(role, content)

	if err := s.save(session); err != nil {
		return model.ChatMessage{}, fmt.Errorf("failed to persist message: %w", err)
	}
	return msg, nil
}

// save marshals and atomically overwrites the session record. No
// partial-write state is observable to a subsequent read.
func (s *SessionStore) save(session *model.ChatSession) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	return util.AtomicWriteFile(s.filePath(session.ID), data, 0644)
}

// =============================================================================
// LOAD / READ
// =============================================================================

// Load retrieves a session by ID.
func (s *SessionStore) Load(id string) (*model.ChatSession, error) {
	if !validSessionID(id) {
		return nil, ErrInvalidSessionID
	}

	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var session model.ChatSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &session, nil
}

// Messages returns the ordered transcript for a session. A missing or
// unreadable session yields an empty slice: read paths never throw.
func (s *SessionStore) Messages(sessionID string) []model.ChatMessage {
	session, err := s.Load(sessionID)
	if err != nil {
		return []model.ChatMessage{}
	}
	return session.Messages
}

// MostRecent returns the session whose storage record has the latest
// modification time, or nil if no sessions exist. Ties on modification
// time are broken by the lexicographically greatest session ID, so the
// result is deterministic at any filesystem timestamp granularity.
func (s *SessionStore) MostRecent() (*model.ChatSession, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	type candidate struct {
		id      string
		modTime time.Time
	}

	var candidates []candidate
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{
			id:      strings.TrimSuffix(entry.Name(), ".json"),
			modTime: info.ModTime(),
		})
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].modTime.Equal(candidates[j].modTime) {
			return candidates[i].modTime.After(candidates[j].modTime)
		}
		return candidates[i].id > candidates[j].id
	})

	return s.Load(candidates[0].id)
}

// List returns metadata for all sessions, most recently updated first.
func (s *SessionStore) List() ([]SessionMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SessionMeta{}, nil
		}
		return nil, err
	}

	var metas []SessionMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		session, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue // Skip corrupted files
		}

		metas = append(metas, SessionMeta{
			ID:           session.ID,
			CreatedAt:    session.CreatedAt,
			UpdatedAt:    session.UpdatedAt,
			MessageCount: session.MessageCount(),
			Preview:      session.Preview(80),
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		if !metas[i].UpdatedAt.Equal(metas[j].UpdatedAt) {
			return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
		}
		return metas[i].ID > metas[j].ID
	})

	return metas, nil
}

// SessionMeta contains metadata for listing sessions.
type SessionMeta struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"`
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a session record. Returns true if it was removed,
// false if it did not exist. Any auxiliary file whose name shares the
// session-id prefix is removed as well; failures there are logged and
// do not abort the delete.
func (s *SessionStore) Delete(id string) bool {
	if !validSessionID(id) {
		return false
	}

	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(s.filePath(id)); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("storage: error removing session %s: %v", id, err)
		}
		return false
	}

	// Defensive cleanup of orphan artifacts sharing the session prefix.
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		return true
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), id) {
			continue
		}
		if err := os.Remove(filepath.Join(s.BaseDir, entry.Name())); err != nil {
			log.Printf("storage: error removing associated file %s: %v", entry.Name(), err)
		}
	}

	return true
}

// DeleteAll removes every persisted session, best-effort: a failure on
// one record is logged and does not abort removal of the others.
// Returns false if anything could not be removed.
func (s *SessionStore) DeleteAll() bool {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return true
		}
		log.Printf("storage: error listing sessions: %v", err)
		return false
	}

	ok := true
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(s.BaseDir, entry.Name())); err != nil {
			log.Printf("storage: error removing file %s: %v", entry.Name(), err)
			ok = false
		}
	}
	return ok
}

// =============================================================================
// HELPERS
// =============================================================================

// filePath returns the record path for a session ID.
func (s *SessionStore) filePath(id string) string {
	return filepath.Join(s.BaseDir, id+".json")
}

// validSessionID rejects identifiers that could traverse outside the
// session directory. IDs are opaque but never contain separators.
func validSessionID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}
