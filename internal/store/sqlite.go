package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"docdesk/internal/desk"
	"docdesk/internal/store/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements desk.Store on a per-user SQLite file.
type SQLiteStore struct {
	db    *sql.DB
	clock desk.Clock
	path  string
}

// NewSQLiteStore opens the cache at path and applies pending migrations.
// path can be a file path or ":memory:" for an in-memory cache.
func NewSQLiteStore(path string, clock desk.Clock) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating cache: %w", err)
	}
	return &SQLiteStore{db: db, clock: clock, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	// Every pooled connection to ":memory:" would see its own empty database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure cache: %w", err)
	}
	return db, nil
}

// Documents

const documentColumns = `id, serial_no, name, type, category, person_name, needs_renewal, renewal_date,
	file_url, issue_date, contact_name, contact_email, contact_phone, company_name, status, created_at`

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertDocument(ex execer, d *desk.DocumentItem) error {
	_, err := ex.Exec(`INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.SerialNo, d.Name, d.Type, d.Category, d.PersonName, d.NeedsRenewal, d.RenewalDate,
		d.FileURL, d.IssueDate, d.ContactName, d.ContactEmail, d.ContactPhone, d.CompanyName, d.Status,
		d.CreatedAt.UTC())
	return err
}

func (s *SQLiteStore) AddDocument(doc *desk.DocumentItem) error {
	if err := insertDocument(s.db, doc); err != nil {
		return fmt.Errorf("adding document: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateDocumentSerial(id, serialNo string) error {
	res, err := s.db.Exec(`UPDATE documents SET serial_no = ? WHERE id = ?`, serialNo, id)
	if err != nil {
		return fmt.Errorf("updating document serial: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("updating document serial: no document with id %s", id)
	}
	return nil
}

func (s *SQLiteStore) ListDocuments() ([]*desk.DocumentItem, error) {
	rows, err := s.db.Query(`SELECT ` + documentColumns + ` FROM documents ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*desk.DocumentItem
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("listing documents: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

func (s *SQLiteStore) FindDocumentBySerial(serialNo string) (*desk.DocumentItem, error) {
	if serialNo == "" || serialNo == desk.PendingSerial {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE serial_no = ? ORDER BY position LIMIT 1`, serialNo)
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding document by serial: %w", err)
	}
	return d, nil
}

func (s *SQLiteStore) ReplaceDocuments(docs []*desk.DocumentItem) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM documents`); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}
	for _, d := range docs {
		if err := insertDocument(tx, d); err != nil {
			return fmt.Errorf("inserting document %s: %w", d.SerialNo, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing documents: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc scanner) (*desk.DocumentItem, error) {
	var d desk.DocumentItem
	err := sc.Scan(&d.ID, &d.SerialNo, &d.Name, &d.Type, &d.Category, &d.PersonName, &d.NeedsRenewal,
		&d.RenewalDate, &d.FileURL, &d.IssueDate, &d.ContactName, &d.ContactEmail, &d.ContactPhone,
		&d.CompanyName, &d.Status, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Master data

// masterKey is the case-insensitive identity of a picklist entry.
func masterKey(m desk.MasterEntry) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return norm(m.CompanyName) + "\x1f" + norm(m.DocumentType) + "\x1f" + norm(m.Category)
}

func insertMaster(ex execer, m desk.MasterEntry) (bool, error) {
	res, err := ex.Exec(`INSERT OR IGNORE INTO master_data (match_key, company_name, document_type, category)
		VALUES (?, ?, ?, ?)`,
		masterKey(m), strings.TrimSpace(m.CompanyName), strings.TrimSpace(m.DocumentType), strings.TrimSpace(m.Category))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) AddMasterData(entry desk.MasterEntry) (bool, error) {
	added, err := insertMaster(s.db, entry)
	if err != nil {
		return false, fmt.Errorf("adding master data: %w", err)
	}
	return added, nil
}

func (s *SQLiteStore) HasMasterData(entry desk.MasterEntry) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM master_data WHERE match_key = ?`, masterKey(entry)).Scan(&n); err != nil {
		return false, fmt.Errorf("checking master data: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListMasterData() ([]desk.MasterEntry, error) {
	rows, err := s.db.Query(`SELECT company_name, document_type, category FROM master_data ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("listing master data: %w", err)
	}
	defer rows.Close()

	var entries []desk.MasterEntry
	for rows.Next() {
		var m desk.MasterEntry
		if err := rows.Scan(&m.CompanyName, &m.DocumentType, &m.Category); err != nil {
			return nil, fmt.Errorf("listing master data: %w", err)
		}
		entries = append(entries, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing master data: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) ReplaceMasterData(entries []desk.MasterEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM master_data`); err != nil {
		return fmt.Errorf("clearing master data: %w", err)
	}
	for _, m := range entries {
		if _, err := insertMaster(tx, m); err != nil {
			return fmt.Errorf("inserting master data: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing master data: %w", err)
	}
	return nil
}

// Share history

func (s *SQLiteStore) AddShareRecord(rec *desk.ShareRecord) error {
	_, err := s.db.Exec(`INSERT INTO share_history
		(id, method, recipient_name, contact, document_serial, document_name, shared_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Method), rec.RecipientName, rec.Contact, rec.DocumentSerial, rec.DocumentName,
		rec.SharedAt.UTC())
	if err != nil {
		return fmt.Errorf("adding share record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListShareRecords(limit int) ([]*desk.ShareRecord, error) {
	rows, err := s.db.Query(`SELECT id, method, recipient_name, contact, document_serial, document_name, shared_at
		FROM share_history ORDER BY position DESC LIMIT ?`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("listing share history: %w", err)
	}
	defer rows.Close()

	var recs []*desk.ShareRecord
	for rows.Next() {
		var r desk.ShareRecord
		var method string
		if err := rows.Scan(&r.ID, &method, &r.RecipientName, &r.Contact, &r.DocumentSerial, &r.DocumentName, &r.SharedAt); err != nil {
			return nil, fmt.Errorf("listing share history: %w", err)
		}
		r.Method = desk.ShareMethod(method)
		recs = append(recs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing share history: %w", err)
	}
	return recs, nil
}

// Operation tracking

func (s *SQLiteStore) CreateOperation(name, parameters string) (*desk.Operation, error) {
	started := s.clock.Now().UTC()
	res, err := s.db.Exec(`INSERT INTO operations (name, parameters, status, started_at) VALUES (?, ?, '', ?)`,
		name, parameters, started)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	return &desk.Operation{ID: id, Name: name, Parameters: parameters, StartedAt: started}, nil
}

func (s *SQLiteStore) FinishOperation(id int64, status string) error {
	_, err := s.db.Exec(`UPDATE operations SET status = ?, finished_at = ? WHERE id = ?`,
		status, s.clock.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListOperations(limit int) ([]*desk.Operation, error) {
	rows, err := s.db.Query(`SELECT id, name, parameters, status, started_at, finished_at
		FROM operations ORDER BY id DESC LIMIT ?`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*desk.Operation
	for rows.Next() {
		var op desk.Operation
		var finished sql.NullTime
		if err := rows.Scan(&op.ID, &op.Name, &op.Parameters, &op.Status, &op.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("listing operations: %w", err)
		}
		if finished.Valid {
			op.FinishedAt = finished.Time
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// sqlLimit maps a non-positive limit to SQLite's "no limit".
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// Path returns the cache file path (or ":memory:" for in-memory caches).
func (s *SQLiteStore) Path() string {
	return s.path
}

// CheckMigrations verifies the schema is at the latest version.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteStore implements desk.Store
var _ desk.Store = (*SQLiteStore)(nil)
