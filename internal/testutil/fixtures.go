package testutil

import (
	"context"
	"sync"
	"testing"

	"docdesk/internal/desk"
	"docdesk/internal/remote"
	"docdesk/internal/store"
)

// TestSheets are the sheet names used across tests.
var TestSheets = desk.Sheets{
	Login:     "Login",
	Documents: "Documents",
	Master:    "Master",
	ShareLog:  "Share Log",
}

// Credential rows seeded by NewTestRemote. The admin row stores a partial
// permission list on purpose: admins are granted the fixed set regardless.
var (
	AdminRow   = []string{"U1", "Asha Admin", "admin", "secret", "admin", "documents", ""}
	UserRow    = []string{"U2", "Ravi User", "ravi", "pass123", "user", "documents, share ,, renewals", ""}
	DeletedRow = []string{"U3", "Old Timer", "gone", "pw", "user", "documents", "Deleted"}
)

// NewTestStore creates an in-memory SQLite store with the schema applied.
// The store is closed when the test completes.
func NewTestStore(t *testing.T, clock desk.Clock) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:", clock)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// NewTestRemote creates an in-memory endpoint with every TestSheets sheet
// holding its header row, and the login sheet holding the credential fixtures.
func NewTestRemote() *remote.Memory {
	m := remote.NewMemory(TestSheets.Documents)
	m.SetRows(TestSheets.Login, [][]string{remote.LoginHeader, AdminRow, UserRow, DeletedRow})
	m.SetRows(TestSheets.Documents, [][]string{remote.DocumentsHeader})
	m.SetRows(TestSheets.Master, [][]string{remote.MasterHeader})
	m.SetRows(TestSheets.ShareLog, [][]string{remote.ShareLogHeader})
	return m
}

// RecordingPacer counts Wait calls without blocking.
type RecordingPacer struct {
	mu    sync.Mutex
	calls int
	Err   error
}

func (p *RecordingPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.Err != nil {
		return p.Err
	}
	return ctx.Err()
}

// Calls returns how many times Wait was called.
func (p *RecordingPacer) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// RecordingOpener remembers opened links instead of launching anything.
type RecordingOpener struct {
	mu    sync.Mutex
	links []string
	Err   error
}

func (o *RecordingOpener) Open(link string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.links = append(o.links, link)
	return o.Err
}

// Links returns the opened links in order.
func (o *RecordingOpener) Links() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.links...)
}

// Harness bundles a DeskService with the fakes behind it.
type Harness struct {
	Service *desk.DeskService
	Remote  *remote.Memory
	Store   *store.SQLiteStore
	Pacer   *RecordingPacer
	Opener  *RecordingOpener
	Clock   *StubClock
}

// NewHarness wires a DeskService on an in-memory endpoint (which also serves
// uploads), an in-memory store, and recording fakes.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	clock := FixedClock()
	h := &Harness{
		Remote: NewTestRemote(),
		Store:  NewTestStore(t, clock),
		Pacer:  &RecordingPacer{},
		Opener: &RecordingOpener{},
		Clock:  clock,
	}
	h.Service = desk.NewDeskService(h.Remote, h.Remote, h.Store, h.Pacer, h.Opener,
		desk.NewNopLogger(), clock, NewStubIDGenerator(), desk.Settings{
			Sheets:             TestSheets,
			UploadFolderID:     "folder-1",
			DefaultCountryCode: "91",
			SenderName:         "Docs Team",
		})
	return h
}
