package desk

import "context"

// Remote is the spreadsheet-backed scripting endpoint. It holds the canonical
// state; everything the client caches is derived from it.
type Remote interface {
	// FetchRows returns every row of a sheet, header row included.
	// query carries extra read parameters (credentials for the login sheet).
	FetchRows(ctx context.Context, sheet string, query map[string]string) ([][]string, error)

	// Insert appends a row to a sheet. The endpoint may assign a serial number.
	Insert(ctx context.Context, sheet string, row []string) (*InsertResult, error)

	// SendEmail asks the endpoint to deliver an email.
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// InsertResult is the endpoint's answer to an insert.
// SerialNo is empty when the endpoint did not report one.
type InsertResult struct {
	SerialNo string
}

// EmailMessage is delivered by the endpoint's sendEmail action.
type EmailMessage struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// FileUpload is one attachment to store before its document row is inserted.
type FileUpload struct {
	FileName string
	MimeType string
	Content  []byte
	FolderID string
}

// FileUploader stores attachments and returns a URL referencing them.
type FileUploader interface {
	Upload(ctx context.Context, file FileUpload) (string, error)
}

// Pacer spaces out consecutive requests. The first Wait returns immediately;
// later calls block according to the pacing policy or until ctx is done.
type Pacer interface {
	Wait(ctx context.Context) error
}

// LinkOpener hands a deep link to an external client.
type LinkOpener interface {
	Open(link string) error
}

// Store is the local application state. The endpoint stays authoritative;
// the store is a cache mutated only through these actions.
type Store interface {
	// Documents

	// AddDocument appends a document to the cache.
	AddDocument(doc *DocumentItem) error

	// UpdateDocumentSerial records the serial assigned to a cached document.
	UpdateDocumentSerial(id, serialNo string) error

	// ListDocuments returns cached documents, oldest first.
	ListDocuments() ([]*DocumentItem, error)

	// FindDocumentBySerial returns nil, nil when no document has that serial.
	FindDocumentBySerial(serialNo string) (*DocumentItem, error)

	// ReplaceDocuments swaps the whole cache for a fresh copy from the endpoint.
	ReplaceDocuments(docs []*DocumentItem) error

	// Master data

	// AddMasterData appends an entry unless a case-insensitive match exists.
	// Returns false when the entry was already known.
	AddMasterData(entry MasterEntry) (bool, error)

	// HasMasterData reports whether a case-insensitive match exists.
	HasMasterData(entry MasterEntry) (bool, error)

	// ListMasterData returns known entries in insertion order.
	ListMasterData() ([]MasterEntry, error)

	// ReplaceMasterData swaps the picklist for a fresh copy from the endpoint.
	ReplaceMasterData(entries []MasterEntry) error

	// Share history

	// AddShareRecord appends to the share history.
	AddShareRecord(rec *ShareRecord) error

	// ListShareRecords returns up to limit records, newest first.
	ListShareRecords(limit int) ([]*ShareRecord, error)

	// Operations

	// CreateOperation records the start of a mutating command.
	CreateOperation(name, parameters string) (*Operation, error)

	// FinishOperation stamps the finish time and final status.
	FinishOperation(id int64, status string) error

	// ListOperations returns up to limit operations, newest first.
	ListOperations(limit int) ([]*Operation, error)

	// Close releases the underlying storage.
	Close() error
}

// SessionStore persists the authenticated user between invocations.
type SessionStore interface {
	Save(user *AuthenticatedUser) error
	// Load returns ErrNoSession when nobody is signed in.
	Load() (*AuthenticatedUser, error)
	Clear() error
}
