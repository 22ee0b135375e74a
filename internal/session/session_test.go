package session_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docdesk/internal/config"
	"docdesk/internal/desk"
	"docdesk/internal/session"
)

func testUser() *desk.AuthenticatedUser {
	return &desk.AuthenticatedUser{
		ID:          "U2",
		Name:        "Ravi User",
		Username:    "ravi",
		Role:        desk.RoleUser,
		Permissions: []string{"documents", "share"},
	}
}

func newFileStore(t *testing.T, unencrypted bool) (*session.FileStore, string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "session.age")
	keyPath := filepath.Join(dir, "keys", "session.key")
	return session.NewFileStore(path, keyPath, unencrypted), path, keyPath
}

func TestFileStore_LoadWithoutSession(t *testing.T) {
	t.Parallel()
	s, _, _ := newFileStore(t, false)

	if _, err := s.Load(); !errors.Is(err, desk.ErrNoSession) {
		t.Errorf("Load() error = %v, want ErrNoSession", err)
	}
}

func TestFileStore_SaveLoad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		unencrypted bool
	}{
		{name: "encrypted", unencrypted: false},
		{name: "unencrypted", unencrypted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, path, keyPath := newFileStore(t, tt.unencrypted)

			if err := s.Save(testUser()); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("reading session file: %v", err)
			}
			plain := strings.Contains(string(raw), "ravi")
			if plain != tt.unencrypted {
				t.Errorf("session file plaintext = %v, want %v", plain, tt.unencrypted)
			}
			_, keyErr := os.Stat(keyPath)
			if (keyErr == nil) == tt.unencrypted {
				t.Errorf("key file exists = %v, want %v", keyErr == nil, !tt.unencrypted)
			}

			got, err := s.Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			want := testUser()
			if got.Username != want.Username || got.Role != want.Role || len(got.Permissions) != 2 {
				t.Errorf("Load() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestFileStore_KeyReusedAcrossSaves(t *testing.T) {
	t.Parallel()
	s, _, keyPath := newFileStore(t, false)

	if err := s.Save(testUser()); err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(keyPath)

	u := testUser()
	u.Name = "Ravi K"
	if err := s.Save(u); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(keyPath)
	if string(first) != string(second) {
		t.Error("session key was regenerated")
	}

	got, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Ravi K" {
		t.Errorf("Name = %q, want the latest save", got.Name)
	}
}

func TestFileStore_MissingKeyMeansSignedOut(t *testing.T) {
	t.Parallel()
	s, _, keyPath := newFileStore(t, false)

	if err := s.Save(testUser()); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(keyPath); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(); !errors.Is(err, desk.ErrNoSession) {
		t.Errorf("Load() error = %v, want ErrNoSession", err)
	}
}

func TestFileStore_Clear(t *testing.T) {
	t.Parallel()
	s, _, _ := newFileStore(t, false)

	if err := s.Clear(); err != nil {
		t.Errorf("Clear() without a session error = %v", err)
	}
	if err := s.Save(testUser()); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := s.Load(); !errors.Is(err, desk.ErrNoSession) {
		t.Errorf("Load() after Clear error = %v, want ErrNoSession", err)
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	s := session.NewMemoryStore()

	if _, err := s.Load(); !errors.Is(err, desk.ErrNoSession) {
		t.Fatalf("Load() error = %v, want ErrNoSession", err)
	}

	u := testUser()
	if err := s.Save(u); err != nil {
		t.Fatal(err)
	}
	u.Permissions[0] = "changed"

	got, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Permissions[0] != "documents" {
		t.Error("MemoryStore shares the caller's slice")
	}

	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(); !errors.Is(err, desk.ErrNoSession) {
		t.Errorf("Load() after Clear error = %v, want ErrNoSession", err)
	}
}

func TestNewSessionStoreFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      config.SessionConfig
		wantType string
		wantErr  bool
	}{
		{name: "no path is memory", cfg: config.SessionConfig{}, wantType: "*session.MemoryStore"},
		{name: "encrypted file", cfg: config.SessionConfig{Path: "s.age", KeyPath: "s.key"}, wantType: "*session.FileStore"},
		{name: "unencrypted file", cfg: config.SessionConfig{Path: "s.json", Unencrypted: true}, wantType: "*session.FileStore"},
		{name: "encrypted without key", cfg: config.SessionConfig{Path: "s.age"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := session.NewSessionStoreFromConfig(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			switch got.(type) {
			case *session.MemoryStore:
				if tt.wantType != "*session.MemoryStore" {
					t.Errorf("got MemoryStore, want %s", tt.wantType)
				}
			case *session.FileStore:
				if tt.wantType != "*session.FileStore" {
					t.Errorf("got FileStore, want %s", tt.wantType)
				}
			}
		})
	}
}
