// Package session keeps the signed-in user between CLI invocations.
package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"docdesk/internal/desk"
)

// FileStore writes the session as JSON, encrypted with an age X25519 identity
// kept next to it unless unencrypted is set. The identity file is created on
// first save.
type FileStore struct {
	path        string
	keyPath     string
	unencrypted bool
}

var _ desk.SessionStore = (*FileStore)(nil)

// NewFileStore creates a FileStore.
func NewFileStore(path, keyPath string, unencrypted bool) *FileStore {
	return &FileStore{path: path, keyPath: keyPath, unencrypted: unencrypted}
}

func (s *FileStore) Save(user *desk.AuthenticatedUser) error {
	if user == nil {
		return s.Clear()
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	if !s.unencrypted {
		identity, err := s.loadOrCreateIdentity()
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		w, err := age.Encrypt(&buf, identity.Recipient())
		if err != nil {
			return fmt.Errorf("creating encrypted writer: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("encrypting session: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("finalizing encryption: %w", err)
		}
		data = buf.Bytes()
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	return writeAtomic(s.path, data)
}

func (s *FileStore) Load() (*desk.AuthenticatedUser, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, desk.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	if !s.unencrypted {
		identity, err := s.loadIdentity()
		if errors.Is(err, os.ErrNotExist) {
			return nil, desk.ErrNoSession
		}
		if err != nil {
			return nil, err
		}
		r, err := age.Decrypt(bytes.NewReader(data), identity)
		if err != nil {
			return nil, fmt.Errorf("decrypting session: %w", err)
		}
		if data, err = io.ReadAll(r); err != nil {
			return nil, fmt.Errorf("reading decrypted session: %w", err)
		}
	}

	var user desk.AuthenticatedUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &user, nil
}

// Clear removes the session file. The key is kept for the next sign-in.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}

func (s *FileStore) loadIdentity() (*age.X25519Identity, error) {
	keyData, err := os.ReadFile(s.keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading session key: %w", err)
	}
	identity, err := age.ParseX25519Identity(strings.TrimSpace(string(keyData)))
	if err != nil {
		return nil, fmt.Errorf("parsing session key: %w", err)
	}
	return identity, nil
}

func (s *FileStore) loadOrCreateIdentity() (*age.X25519Identity, error) {
	identity, err := s.loadIdentity()
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return identity, err
	}

	identity, err = age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating session key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.keyPath), 0700); err != nil {
		return nil, fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(s.keyPath, []byte(identity.String()+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("writing session key: %w", err)
	}
	return identity, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".session-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming session file: %w", err)
	}
	return nil
}
