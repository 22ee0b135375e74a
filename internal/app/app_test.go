package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"docdesk/internal/config"
	"docdesk/internal/desk"
	"docdesk/internal/pacer"
	"docdesk/internal/remote"
	"docdesk/internal/session"
	"docdesk/internal/store"
	"docdesk/internal/testutil"
)

type testEnv struct {
	cfg      *config.Config
	remote   *remote.Memory
	sessions *session.MemoryStore
	opener   *testutil.RecordingOpener
}

// newTestEnv returns a config backed by a sqlite cache in a temp dir, so
// several apps opened in one test share state like separate invocations do.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.NewConfig("", "folder-1", t.TempDir())
	cfg.Endpoint.Type = "memory"
	return &testEnv{
		cfg:      cfg,
		remote:   testutil.NewTestRemote(),
		sessions: session.NewMemoryStore(),
		opener:   &testutil.RecordingOpener{},
	}
}

func (e *testEnv) open(t *testing.T, operation string) *DeskApp {
	t.Helper()
	a, err := NewDeskAppWith(e.cfg, operation, Overrides{
		Endpoint: e.remote,
		Pacer:    pacer.None{},
		Sessions: e.sessions,
		Opener:   e.opener,
		Logger:   desk.NewNopLogger(),
		Clock:    testutil.FixedClock(),
		IDGen:    testutil.NewStubIDGenerator(),
	})
	if err != nil {
		t.Fatalf("NewDeskAppWith() error = %v", err)
	}
	return a
}

func (e *testEnv) login(t *testing.T, username, password string) {
	t.Helper()
	a := e.open(t, "Login")
	defer a.Close()
	if _, err := a.Login(context.Background(), username, password); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
}

func TestNewDeskApp_InvalidConfig(t *testing.T) {
	cfg := config.NewConfig("", "folder-1", t.TempDir())
	if _, err := NewDeskApp(cfg, "ListDocuments", nil); !errors.Is(err, config.ErrMissingConfig) {
		t.Errorf("NewDeskApp() error = %v, want ErrMissingConfig", err)
	}
}

func TestNewDeskApp_MemoryEndpointNeedsOverride(t *testing.T) {
	env := newTestEnv(t)
	if _, err := NewDeskApp(env.cfg, "ListDocuments", env.opener); !errors.Is(err, ErrMemoryEndpoint) {
		t.Errorf("NewDeskApp() error = %v, want ErrMemoryEndpoint", err)
	}

	a := env.open(t, "ListDocuments")
	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

type debugLogger struct {
	desk.NopLogger
	lines []string
}

func (l *debugLogger) Debug(msg string, args ...any) {
	l.lines = append(l.lines, fmt.Sprint(append([]any{msg}, args...)...))
}

func TestNewDeskApp_LogsCachePath(t *testing.T) {
	env := newTestEnv(t)
	logger := &debugLogger{}
	a, err := NewDeskAppWith(env.cfg, "ListDocuments", Overrides{
		Endpoint: env.remote,
		Sessions: env.sessions,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("NewDeskAppWith() error = %v", err)
	}
	defer a.Close()

	want := filepath.Join(env.cfg.Store.DataDir, store.CacheFileName)
	if len(logger.lines) == 0 || !strings.Contains(logger.lines[0], want) {
		t.Errorf("debug lines = %q, want cache path %q", logger.lines, want)
	}
}

func TestDeskApp_LoginLogout(t *testing.T) {
	env := newTestEnv(t)
	a := env.open(t, "Login")
	defer a.Close()

	if _, err := a.CurrentUser(); !errors.Is(err, desk.ErrNoSession) {
		t.Fatalf("CurrentUser() error = %v, want ErrNoSession", err)
	}

	if _, err := a.Login(context.Background(), "ravi", "wrong"); !errors.Is(err, desk.ErrInvalidCredentials) {
		t.Fatalf("Login() error = %v, want ErrInvalidCredentials", err)
	}

	user, err := a.Login(context.Background(), " ravi ", "pass123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.Username != "ravi" {
		t.Errorf("Username = %q", user.Username)
	}

	current, err := a.CurrentUser()
	if err != nil || current.Name != "Ravi User" {
		t.Errorf("CurrentUser() = %+v, %v", current, err)
	}

	if err := a.Logout(); err != nil {
		t.Fatal(err)
	}
	if _, err := a.CurrentUser(); !errors.Is(err, desk.ErrNoSession) {
		t.Errorf("CurrentUser() after Logout error = %v, want ErrNoSession", err)
	}
}

func TestDeskApp_Permissions(t *testing.T) {
	env := newTestEnv(t)

	a := env.open(t, "ListDocuments")
	if _, err := a.ListDocuments(); !errors.Is(err, desk.ErrNoSession) {
		t.Errorf("ListDocuments() without session error = %v, want ErrNoSession", err)
	}
	if _, err := a.Operations(10); !errors.Is(err, desk.ErrNoSession) {
		t.Errorf("Operations() without session error = %v, want ErrNoSession", err)
	}
	a.Close()

	env.login(t, "ravi", "pass123")

	a = env.open(t, "AddDocuments")
	defer a.Close()

	if _, err := a.AddDocuments(context.Background(), []desk.Entry{{Name: "Deed"}}); !errors.Is(err, desk.ErrPermissionDenied) {
		t.Errorf("AddDocuments() error = %v, want ErrPermissionDenied", err)
	}
	if _, err := a.MasterData(); !errors.Is(err, desk.ErrPermissionDenied) {
		t.Errorf("MasterData() error = %v, want ErrPermissionDenied", err)
	}
	if _, err := a.ListDocuments(); err != nil {
		t.Errorf("ListDocuments() error = %v", err)
	}
	if _, err := a.Renewals(0); err != nil {
		t.Errorf("Renewals() error = %v", err)
	}
	if _, err := a.Operations(10); err != nil {
		t.Errorf("Operations() error = %v", err)
	}
	if got := len(env.remote.Rows(testutil.TestSheets.Documents)); got != 1 {
		t.Errorf("documents sheet rows = %d, want only the header", got)
	}
}

func TestDeskApp_AddAndShare(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "admin", "secret")

	a := env.open(t, "AddDocuments")
	res, err := a.AddDocuments(context.Background(), []desk.Entry{
		{Name: "Trade licence", Type: "Licence", Category: "Trade", PersonName: "Acme"},
		{Name: "Fire permit"},
	})
	if err != nil {
		t.Fatalf("AddDocuments() error = %v", err)
	}
	if len(res.Saved) != 2 || res.Saved[0].SerialNo != "D0001" {
		t.Fatalf("Saved = %+v", res.Saved)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	a = env.open(t, "Share")
	shared, err := a.Share(context.Background(), ShareInput{
		Serials:   []string{"D0001", " D0002"},
		Recipient: desk.Recipient{Name: "Bob", Email: "bob@example.com"},
		Email:     true,
	})
	if err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	if !shared.EmailSent || len(shared.Records) != 2 {
		t.Errorf("Share() = %+v", shared)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	a = env.open(t, "Operations")
	defer a.Close()

	ops, err := a.Operations(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 2 {
		t.Fatalf("len(ops) = %d, want 2", len(ops))
	}
	if ops[0].Name != "Share" || ops[0].Status != StatusSuccess || ops[0].Parameters != "D0001,D0002" {
		t.Errorf("ops[0] = %+v", ops[0])
	}
	if ops[1].Name != "AddDocuments" || ops[1].Parameters != "entries=2" || ops[1].FinishedAt.IsZero() {
		t.Errorf("ops[1] = %+v", ops[1])
	}

	history, err := a.ShareHistory(0)
	if err != nil || len(history) != 2 {
		t.Errorf("ShareHistory() = %d records, %v", len(history), err)
	}
	master, err := a.MasterData()
	if err != nil || len(master) != 1 {
		t.Errorf("MasterData() = %+v, %v", master, err)
	}
}

func TestDeskApp_ShareUnknownSerial(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "admin", "secret")

	a := env.open(t, "Share")
	defer a.Close()

	_, err := a.Share(context.Background(), ShareInput{
		Serials:   []string{"D9999"},
		Recipient: desk.Recipient{Email: "bob@example.com"},
		Email:     true,
	})
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("Share() error = %v, want ErrDocumentNotFound", err)
	}
	if a.op.Persisted() {
		t.Error("operation persisted for a rejected share")
	}
}

func TestDeskApp_FailedSyncRecordsError(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "admin", "secret")

	env.remote = remote.NewMemory(testutil.TestSheets.Documents)
	a := env.open(t, "Sync")
	if _, err := a.Sync(context.Background()); !errors.Is(err, remote.ErrRemote) {
		t.Fatalf("Sync() error = %v, want ErrRemote", err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	a = env.open(t, "Operations")
	defer a.Close()
	ops, err := a.Operations(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 || ops[0].Name != "Sync" || ops[0].Status != StatusError {
		t.Errorf("ops = %+v", ops)
	}
}

func TestDeskApp_ImportExport(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "admin", "secret")

	a := env.open(t, "AddDocuments")
	defer a.Close()
	if _, err := a.AddDocuments(context.Background(), []desk.Entry{{Name: "Deed"}}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	n, err := a.ExportDocuments(path)
	if err != nil || n != 1 {
		t.Fatalf("ExportDocuments() = %d, %v", n, err)
	}

	entries, err := a.ImportEntries(path)
	if err != nil {
		t.Fatalf("ImportEntries() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "Deed" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestLinkPrinter(t *testing.T) {
	var buf bytes.Buffer
	var opened []string
	p := NewLinkPrinter(&buf, false)
	p.open = func(link string) error {
		opened = append(opened, link)
		return nil
	}

	if err := p.Open("https://wa.me/1?text=hi"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "https://wa.me/1?text=hi") {
		t.Errorf("output = %q", buf.String())
	}
	if len(opened) != 0 {
		t.Error("browser launched without launch set")
	}

	p.launch = true
	p.open = func(string) error { return errors.New("no display") }
	if err := p.Open("https://wa.me/1"); err == nil {
		t.Error("expected error from browser")
	}
}
