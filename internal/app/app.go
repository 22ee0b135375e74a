package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"docdesk/internal/config"
	"docdesk/internal/desk"
	"docdesk/internal/pacer"
	"docdesk/internal/remote"
	"docdesk/internal/session"
	"docdesk/internal/sheetio"
	"docdesk/internal/store"
	"docdesk/internal/upload"
)

var (
	// ErrDocumentNotFound is returned when a serial number is not in the cache.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrMemoryEndpoint is returned when the config selects the in-memory
	// endpoint and no endpoint was supplied through Overrides.
	ErrMemoryEndpoint = errors.New("memory endpoint cannot be used outside tests")
)

// Overrides replaces components NewDeskAppWith would otherwise build from
// config. Nil fields are built as usual.
type Overrides struct {
	Endpoint remote.Endpoint
	Uploader desk.FileUploader
	Pacer    desk.Pacer
	Sessions desk.SessionStore
	Opener   desk.LinkOpener
	Logger   desk.Logger
	Clock    desk.Clock
	IDGen    desk.IDGenerator
}

// DeskApp is the application layer between the CLI and DeskService.
// It constructs all dependencies from config, enforces the signed-in user's
// permissions, and records mutating commands as operations finished on Close.
type DeskApp struct {
	cfg      *config.Config
	store    *store.SQLiteStore
	sessions desk.SessionStore
	service  *desk.DeskService
	logger   desk.Logger
	op       *DeskOperation
	logFile  *os.File
}

// NewDeskApp creates a fully wired DeskApp from the given config.
// operation identifies the CLI command being run (e.g. "AddDocuments", "Share").
// The caller must call Close when done.
func NewDeskApp(cfg *config.Config, operation string, opener desk.LinkOpener) (*DeskApp, error) {
	return NewDeskAppWith(cfg, operation, Overrides{Opener: opener})
}

// NewDeskAppWith is NewDeskApp with some components supplied by the caller.
func NewDeskAppWith(cfg *config.Config, operation string, o Overrides) (*DeskApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if o.Endpoint == nil && cfg.Endpoint.Type == "memory" {
		return nil, ErrMemoryEndpoint
	}

	clock := o.Clock
	if clock == nil {
		clock = desk.RealClock{}
	}
	idgen := o.IDGen
	if idgen == nil {
		idgen = desk.UUIDGenerator{}
	}

	endpoint := o.Endpoint
	if endpoint == nil {
		var err error
		if endpoint, err = remote.NewEndpointFromConfig(cfg.Endpoint, cfg.Sheets, clock); err != nil {
			return nil, fmt.Errorf("creating endpoint: %w", err)
		}
	}

	uploader := o.Uploader
	if uploader == nil {
		var err error
		if uploader, err = upload.NewUploaderFromConfig(context.Background(), cfg.Upload, endpoint, idgen); err != nil {
			return nil, fmt.Errorf("creating uploader: %w", err)
		}
	}

	p := o.Pacer
	if p == nil {
		var err error
		if p, err = pacer.NewPacerFromConfig(cfg.Upload); err != nil {
			return nil, fmt.Errorf("creating pacer: %w", err)
		}
	}

	sessions := o.Sessions
	if sessions == nil {
		var err error
		if sessions, err = session.NewSessionStoreFromConfig(cfg.Session); err != nil {
			return nil, fmt.Errorf("creating session store: %w", err)
		}
	}

	opener := o.Opener
	if opener == nil {
		opener = NewLinkPrinter(os.Stdout, false)
	}

	st, err := store.NewStoreFromConfig(cfg.Store, clock)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	if err := st.CheckMigrations(); err != nil {
		st.Close()
		return nil, fmt.Errorf("cache schema out of date: %w", err)
	}

	logger := o.Logger
	var logFile *os.File
	if logger == nil {
		opID := time.Now().UTC().Format("20060102T150405Z")
		logger, logFile, err = newLogger(cfg.LogDir, opID, cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("creating logger: %w", err)
		}
	}
	logger.Debug("cache opened", "path", st.Path(), "operation", operation)

	svc := desk.NewDeskService(endpoint, uploader, st, p, opener, logger, clock, idgen, desk.Settings{
		Sheets: desk.Sheets{
			Login:     cfg.Sheets.Login,
			Documents: cfg.Sheets.Documents,
			Master:    cfg.Sheets.Master,
			ShareLog:  cfg.Sheets.ShareLog,
		},
		UploadFolderID:     cfg.Upload.FolderID,
		ShareExpiry:        time.Duration(cfg.Share.ExpiryDays) * 24 * time.Hour,
		DefaultCountryCode: cfg.Share.DefaultCountryCode,
		SenderName:         cfg.Share.SenderName,
	})

	return &DeskApp{
		cfg:      cfg,
		store:    st,
		sessions: sessions,
		service:  svc,
		logger:   logger,
		op:       NewDeskOperation(operation, ""),
		logFile:  logFile,
	}, nil
}

// persistOperation saves the operation to the store, giving it an auto-increment ID.
// This should only be called for mutating commands.
func (a *DeskApp) persistOperation(parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	op, err := a.store.CreateOperation(a.op.Operation, parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = op.ID
	return nil
}

// fail marks the operation as failed and returns err unchanged.
func (a *DeskApp) fail(err error) error {
	if err != nil {
		a.op.Status = StatusError
	}
	return err
}

// require loads the session and checks that its user holds permission.
// An empty permission only requires a session.
func (a *DeskApp) require(permission string) (*desk.AuthenticatedUser, error) {
	user, err := a.sessions.Load()
	if err != nil {
		return nil, err
	}
	if permission == "" {
		return user, nil
	}
	if err := desk.Authorize(user, permission); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks the credentials against the endpoint and stores the session.
func (a *DeskApp) Login(ctx context.Context, username, password string) (*desk.AuthenticatedUser, error) {
	user, err := a.service.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := a.sessions.Save(user); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return user, nil
}

// Logout forgets the signed-in user.
func (a *DeskApp) Logout() error {
	return a.sessions.Clear()
}

// CurrentUser returns the signed-in user.
func (a *DeskApp) CurrentUser() (*desk.AuthenticatedUser, error) {
	return a.sessions.Load()
}

// ImportEntries reads entries from an .xlsx workbook.
func (a *DeskApp) ImportEntries(path string) ([]desk.Entry, error) {
	return sheetio.ReadEntries(path)
}

// AddDocuments submits the entries as one batch.
func (a *DeskApp) AddDocuments(ctx context.Context, entries []desk.Entry) (*desk.SubmitResult, error) {
	if _, err := a.require(desk.PermAddDocument); err != nil {
		return nil, err
	}
	batch, err := desk.NewBatch(entries...)
	if err != nil {
		return nil, err
	}
	if err := a.persistOperation(fmt.Sprintf("entries=%d", batch.Len())); err != nil {
		return nil, err
	}
	res, err := a.service.SubmitBatch(ctx, batch)
	return res, a.fail(err)
}

// ListDocuments returns the cached documents.
func (a *DeskApp) ListDocuments() ([]*desk.DocumentItem, error) {
	if _, err := a.require(desk.PermDocuments); err != nil {
		return nil, err
	}
	return a.service.ListDocuments()
}

// Sync replaces the cache with the endpoint's current sheets.
func (a *DeskApp) Sync(ctx context.Context) (*desk.RefreshResult, error) {
	if _, err := a.require(desk.PermDocuments); err != nil {
		return nil, err
	}
	if err := a.persistOperation(""); err != nil {
		return nil, err
	}
	res, err := a.service.Refresh(ctx)
	return res, a.fail(err)
}

// Renewals returns cached documents due for renewal within the window.
func (a *DeskApp) Renewals(within time.Duration) ([]desk.RenewalDue, error) {
	if _, err := a.require(desk.PermRenewals); err != nil {
		return nil, err
	}
	return a.service.DueForRenewal(within)
}

// ExportDocuments writes the cached documents to an .xlsx workbook.
func (a *DeskApp) ExportDocuments(path string) (int, error) {
	docs, err := a.ListDocuments()
	if err != nil {
		return 0, err
	}
	if err := sheetio.ExportDocuments(path, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// MasterData returns the cached picklist entries.
func (a *DeskApp) MasterData() ([]desk.MasterEntry, error) {
	if _, err := a.require(desk.PermMasterData); err != nil {
		return nil, err
	}
	return a.service.ListMasterData()
}

// ShareInput names the documents to share by serial number.
type ShareInput struct {
	Serials   []string
	Recipient desk.Recipient
	Email     bool
	WhatsApp  bool
	Note      string
}

// Share resolves the serials against the cache and shares the documents.
func (a *DeskApp) Share(ctx context.Context, in ShareInput) (*desk.ShareResult, error) {
	if _, err := a.require(desk.PermShare); err != nil {
		return nil, err
	}

	serials := make([]string, 0, len(in.Serials))
	docs := make([]*desk.DocumentItem, 0, len(in.Serials))
	for _, serial := range in.Serials {
		serial = strings.TrimSpace(serial)
		doc, err := a.store.FindDocumentBySerial(serial)
		if err != nil {
			return nil, fmt.Errorf("looking up %s: %w", serial, err)
		}
		if doc == nil {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, serial)
		}
		serials = append(serials, serial)
		docs = append(docs, doc)
	}

	if err := a.persistOperation(strings.Join(serials, ",")); err != nil {
		return nil, err
	}
	res, err := a.service.Share(ctx, desk.ShareRequest{
		Documents: docs,
		Recipient: in.Recipient,
		Email:     in.Email,
		WhatsApp:  in.WhatsApp,
		Note:      in.Note,
	})
	return res, a.fail(err)
}

// ShareHistory returns the most recent share records.
func (a *DeskApp) ShareHistory(limit int) ([]*desk.ShareRecord, error) {
	if _, err := a.require(desk.PermShare); err != nil {
		return nil, err
	}
	return a.service.ShareHistory(limit)
}

// Operations returns the most recent recorded operations.
func (a *DeskApp) Operations(limit int) ([]*desk.Operation, error) {
	if _, err := a.require(""); err != nil {
		return nil, err
	}
	return a.service.Operations(limit)
}

// Close finalizes the operation and closes all resources.
func (a *DeskApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.store.FinishOperation(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
