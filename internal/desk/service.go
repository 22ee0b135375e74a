package desk

import (
	"fmt"
	"time"
)

// Sheets names the endpoint sheets the service reads and writes.
type Sheets struct {
	Login     string
	Documents string
	Master    string
	ShareLog  string // empty disables remote share logging
}

// Settings carries the configuration values the service needs at runtime.
type Settings struct {
	Sheets             Sheets
	UploadFolderID     string
	ShareExpiry        time.Duration
	DefaultCountryCode string // prefixed to bare local phone numbers in deep links
	SenderName         string
}

// DeskService is the orchestration layer that coordinates the endpoint, the
// local store and the upload targets to perform the operations the CLI needs.
type DeskService struct {
	remote   Remote
	uploader FileUploader
	store    Store
	pacer    Pacer
	opener   LinkOpener
	logger   Logger
	clock    Clock
	idgen    IDGenerator
	settings Settings
}

// NewDeskService creates a new DeskService with the provided dependencies.
func NewDeskService(remote Remote, uploader FileUploader, store Store, pacer Pacer, opener LinkOpener, logger Logger, clock Clock, idgen IDGenerator, settings Settings) *DeskService {
	if settings.ShareExpiry <= 0 {
		settings.ShareExpiry = 7 * 24 * time.Hour
	}
	return &DeskService{
		remote:   remote,
		uploader: uploader,
		store:    store,
		pacer:    pacer,
		opener:   opener,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		settings: settings,
	}
}

// ListDocuments returns the cached documents, oldest first.
func (s *DeskService) ListDocuments() ([]*DocumentItem, error) {
	docs, err := s.store.ListDocuments()
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// ListMasterData returns the cached picklist entries.
func (s *DeskService) ListMasterData() ([]MasterEntry, error) {
	entries, err := s.store.ListMasterData()
	if err != nil {
		return nil, fmt.Errorf("listing master data: %w", err)
	}
	return entries, nil
}

// ShareHistory returns the most recent share records, newest first.
func (s *DeskService) ShareHistory(limit int) ([]*ShareRecord, error) {
	recs, err := s.store.ListShareRecords(limit)
	if err != nil {
		return nil, fmt.Errorf("listing share history: %w", err)
	}
	return recs, nil
}

// Operations returns the most recent recorded operations, newest first.
func (s *DeskService) Operations(limit int) ([]*Operation, error) {
	ops, err := s.store.ListOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}
