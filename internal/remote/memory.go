package remote

import (
	"context"
	"fmt"
	"sync"

	"docdesk/internal/desk"
)

// Memory is an in-process endpoint holding sheets as row slices. Inserts into
// the documents sheet are numbered D0001, D0002, ... like the scripted endpoint.
// Safe for concurrent use.
type Memory struct {
	mu        sync.Mutex
	sheets    map[string][][]string
	documents string
	serial    int

	// OmitSerial makes inserts answer without a serial number.
	OmitSerial bool

	// Hooks run before the matching call takes effect. A non-nil error
	// fails the call and leaves the sheets unchanged.
	InsertHook func(sheet string, row []string) error
	UploadHook func(file desk.FileUpload) error
	EmailHook  func(msg desk.EmailMessage) error

	Uploads []desk.FileUpload
	Sent    []desk.EmailMessage
}

// NewMemory creates an empty endpoint. documentsSheet names the sheet whose
// inserts receive serial numbers.
func NewMemory(documentsSheet string) *Memory {
	return &Memory{
		sheets:    make(map[string][][]string),
		documents: documentsSheet,
	}
}

// SetRows replaces the content of sheet, header row included.
func (m *Memory) SetRows(sheet string, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets[sheet] = copyRows(rows)
}

// Rows returns a copy of the content of sheet.
func (m *Memory) Rows(sheet string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyRows(m.sheets[sheet])
}

// FetchRows returns the whole sheet. Query parameters are ignored; filtering is
// the caller's job.
func (m *Memory) FetchRows(ctx context.Context, sheet string, _ map[string]string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: sheet %q not found", ErrRemote, sheet)
	}
	return copyRows(rows), nil
}

// Insert appends row to sheet, creating the sheet if needed.
func (m *Memory) Insert(ctx context.Context, sheet string, row []string) (*desk.InsertResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertHook != nil {
		if err := m.InsertHook(sheet, row); err != nil {
			return nil, err
		}
	}

	stored := append([]string(nil), row...)
	res := &desk.InsertResult{}
	if sheet == m.documents {
		m.serial++
		serial := fmt.Sprintf("D%04d", m.serial)
		if len(stored) > 1 {
			stored[1] = serial
		}
		if !m.OmitSerial {
			res.SerialNo = serial
		}
	}
	m.sheets[sheet] = append(m.sheets[sheet], stored)
	return res, nil
}

// Upload records the file and returns a memory:// URL for it.
func (m *Memory) Upload(ctx context.Context, file desk.FileUpload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UploadHook != nil {
		if err := m.UploadHook(file); err != nil {
			return "", err
		}
	}
	m.Uploads = append(m.Uploads, file)
	return fmt.Sprintf("memory://files/%d/%s", len(m.Uploads), file.FileName), nil
}

// SendEmail records msg.
func (m *Memory) SendEmail(ctx context.Context, msg desk.EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.EmailHook != nil {
		if err := m.EmailHook(msg); err != nil {
			return err
		}
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

func copyRows(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

var (
	_ desk.Remote       = (*Memory)(nil)
	_ desk.FileUploader = (*Memory)(nil)
)
