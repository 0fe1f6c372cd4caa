// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/inkwell/internal/model"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	store, err := NewSessionStoreWithDir(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestSessionStore_Create(t *testing.T) {
	store := newTestStore(t)

	session, err := store.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if session.ID == "" {
		t.Error("expected non-empty session ID")
	}
	if len(session.Messages) != 0 {
		t.Errorf("new session should have 0 messages, got %d", len(session.Messages))
	}

	// Persisted immediately
	loaded, err := store.Load(session.ID)
	if err != nil {
		t.Fatalf("Load after Create failed: %v", err)
	}
	if loaded.ID != session.ID {
		t.Errorf("loaded ID = %q, want %q", loaded.ID, session.ID)
	}
}

func TestSessionStore_AppendMessage(t *testing.T) {
	store := newTestStore(t)
	session, _ := store.Create()

	msg, err := store.AppendMessage(session.ID, model.RoleUser, "Hello")
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if msg.SessionID != session.ID {
		t.Errorf("message SessionID = %q, want %q", msg.SessionID, session.ID)
	}
	if msg.Role != model.RoleUser || msg.Content != "Hello" {
		t.Errorf("unexpected message: %+v", msg)
	}

	loaded, _ := store.Load(session.ID)
	if len(loaded.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(loaded.Messages))
	}
	if !loaded.UpdatedAt.Before(time.Now().Add(time.Second)) {
		t.Error("UpdatedAt should be refreshed")
	}
}

func TestSessionStore_AppendMessageNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AppendMessage("missing-session", model.RoleUser, "Hello")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionStore_AppendOrderPreserved(t *testing.T) {
	store := newTestStore(t)
	session, _ := store.Create()

	const n = 20
	for i := 0; i < n; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		if _, err := store.AppendMessage(session.ID, role, fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	msgs := store.Messages(session.ID)
	if len(msgs) != n {
		t.Fatalf("expected %d messages, got %d", n, len(msgs))
	}
	for i, msg := range msgs {
		want := fmt.Sprintf("message %d", i)
		if msg.Content != want {
			t.Errorf("Messages[%d].Content = %q, want %q", i, msg.Content, want)
		}
	}
}

func TestSessionStore_MessagesMissingSession(t *testing.T) {
	store := newTestStore(t)

	msgs := store.Messages("nonexistent")
	if msgs == nil {
		t.Error("Messages should return an empty slice, not nil")
	}
	if len(msgs) != 0 {
		t.Errorf("expected empty slice, got %d messages", len(msgs))
	}
}

func TestSessionStore_RoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 50} {
		t.Run(fmt.Sprintf("%d_messages", n), func(t *testing.T) {
			store := newTestStore(t)
			session, _ := store.Create()

			for i := 0; i < n; i++ {
				if _, err := store.AppendMessage(session.ID, model.RoleUser, fmt.Sprintf("msg %d", i)); err != nil {
					t.Fatalf("append failed: %v", err)
				}
			}

			before := store.Messages(session.ID)

			// Reload through a fresh store handle (same directory)
			reopened, err := NewSessionStoreWithDir(store.BaseDir)
			if err != nil {
				t.Fatalf("reopen failed: %v", err)
			}
			after := reopened.Messages(session.ID)

			if len(after) != len(before) {
				t.Fatalf("message count changed: %d vs %d", len(after), len(before))
			}
			for i := range before {
				if after[i].ID != before[i].ID || after[i].Role != before[i].Role ||
					after[i].Content != before[i].Content {
					t.Errorf("message %d mismatch: %+v vs %+v", i, after[i], before[i])
				}
				// Timestamp precision preserved to at least the second
				if !after[i].Timestamp.Truncate(time.Second).Equal(before[i].Timestamp.Truncate(time.Second)) {
					t.Errorf("message %d timestamp drift: %v vs %v", i, after[i].Timestamp, before[i].Timestamp)
				}
			}
		})
	}
}

func TestSessionStore_MostRecent(t *testing.T) {
	store := newTestStore(t)

	// Empty store: no session, no error
	session, err := store.MostRecent()
	if err != nil {
		t.Fatalf("MostRecent on empty store failed: %v", err)
	}
	if session != nil {
		t.Error("expected nil session for empty store")
	}

	a, _ := store.Create()
	b, _ := store.Create()
	c, _ := store.Create()

	// Pin modification times so the ordering is explicit.
	base := time.Now().Add(-time.Hour)
	for i, id := range []string{a.ID, b.ID, c.ID} {
		path := filepath.Join(store.BaseDir, id+".json")
		mt := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(path, mt, mt); err != nil {
			t.Fatalf("Chtimes failed: %v", err)
		}
	}

	got, err := store.MostRecent()
	if err != nil {
		t.Fatalf("MostRecent failed: %v", err)
	}
	if got.ID != c.ID {
		t.Errorf("MostRecent = %q, want %q", got.ID, c.ID)
	}
}

func TestSessionStore_MostRecentTieBreak(t *testing.T) {
	store := newTestStore(t)

	a, _ := store.Create()
	b, _ := store.Create()

	// Identical mtimes: tie-break must be deterministic.
	mt := time.Now().Truncate(time.Second)
	for _, id := range []string{a.ID, b.ID} {
		path := filepath.Join(store.BaseDir, id+".json")
		if err := os.Chtimes(path, mt, mt); err != nil {
			t.Fatalf("Chtimes failed: %v", err)
		}
	}

	want := a.ID
	if b.ID > a.ID {
		want = b.ID
	}

	for i := 0; i < 5; i++ {
		got, err := store.MostRecent()
		if err != nil {
			t.Fatalf("MostRecent failed: %v", err)
		}
		if got.ID != want {
			t.Errorf("tie-break not deterministic: got %q, want %q", got.ID, want)
		}
	}
}

func TestSessionStore_Delete(t *testing.T) {
	store := newTestStore(t)
	session, _ := store.Create()

	if !store.Delete(session.ID) {
		t.Error("Delete should return true for existing session")
	}
	if _, err := store.Load(session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("session should not exist after delete")
	}
	if store.Delete(session.ID) {
		t.Error("Delete should return false for missing session")
	}
}

func TestSessionStore_DeleteRemovesPrefixedArtifacts(t *testing.T) {
	store := newTestStore(t)
	session, _ := store.Create()

	// Orphan artifact sharing the session-id prefix
	orphan := filepath.Join(store.BaseDir, session.ID+".export.md")
	if err := os.WriteFile(orphan, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create orphan file: %v", err)
	}

	if !store.Delete(session.ID) {
		t.Fatal("Delete failed")
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Error("prefixed artifact should be removed with the session")
	}
}

func TestSessionStore_DeleteAll(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 3; i++ {
		store.Create()
	}

	if !store.DeleteAll() {
		t.Error("DeleteAll should succeed")
	}

	metas, _ := store.List()
	if len(metas) != 0 {
		t.Errorf("expected 0 sessions after DeleteAll, got %d", len(metas))
	}
}

func TestSessionStore_DeleteAllPartialFailure(t *testing.T) {
	store := newTestStore(t)

	a, _ := store.Create()
	b, _ := store.Create()

	// An unremovable record: os.Remove fails on a non-empty directory,
	// but the real sessions must still be deleted.
	stuck := filepath.Join(store.BaseDir, "stuck.json")
	if err := os.MkdirAll(stuck, 0755); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(stuck, "inner"), []byte("x"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if store.DeleteAll() {
		t.Error("DeleteAll should report failure when a record could not be removed")
	}
	if _, err := store.Load(a.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("session a should be removed")
	}
	if _, err := store.Load(b.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("session b should be removed")
	}
}

func TestSessionStore_ConcurrentAppends(t *testing.T) {
	store := newTestStore(t)
	session, _ := store.Create()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := store.AppendMessage(session.ID, model.RoleUser, fmt.Sprintf("m%d", i)); err != nil {
				t.Errorf("append failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	// No lost updates: every append is present.
	msgs := store.Messages(session.ID)
	if len(msgs) != n {
		t.Errorf("expected %d messages, got %d (lost update)", n, len(msgs))
	}
}

func TestSessionStore_InvalidID(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Load("../escape"); !errors.Is(err, ErrInvalidSessionID) {
		t.Errorf("expected ErrInvalidSessionID, got %v", err)
	}
	if store.Delete("../../etc") {
		t.Error("Delete with traversal ID should return false")
	}
}

func TestSessionStore_List(t *testing.T) {
	store := newTestStore(t)

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 0 {
		t.Errorf("expected empty list, got %d", len(metas))
	}

	s, _ := store.Create()
	store.AppendMessage(s.ID, model.RoleUser, "Hello there")

	metas, err = store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 1 {
		t.Fatalf("expected 1 session, got %d", len(metas))
	}
	if metas[0].MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", metas[0].MessageCount)
	}
	if metas[0].Preview != "Hello there" {
		t.Errorf("Preview = %q", metas[0].Preview)
	}
}
