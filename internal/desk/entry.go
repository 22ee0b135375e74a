package desk

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxEntries is the largest number of entries a single submission may carry.
const MaxEntries = 10

// Attachment is a file picked for an entry, held in memory until uploaded.
type Attachment struct {
	FileName string
	MimeType string
	Content  []byte
}

// LoadAttachment reads a file from disk and detects its MIME type.
func LoadAttachment(path string) (*Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading attachment: %w", err)
	}
	name := filepath.Base(path)
	return &Attachment{
		FileName: name,
		MimeType: detectMimeType(name, data),
		Content:  data,
	}, nil
}

func detectMimeType(name string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	return http.DetectContentType(data)
}

// Entry is one in-progress document form row before submission.
// Dates are entered as yyyy-mm-dd.
type Entry struct {
	Name         string
	Type         string
	Category     string
	PersonName   string
	NeedsRenewal bool
	RenewalDate  string
	IssueDate    string
	ContactName  string
	ContactEmail string
	ContactPhone string
	CompanyName  string
	Attachment   *Attachment
}

// Validate checks the only required fields: the document name, and the
// renewal date when renewal is requested.
func (e *Entry) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: document name is required", ErrValidation)
	}
	if e.NeedsRenewal && strings.TrimSpace(e.RenewalDate) == "" {
		return fmt.Errorf("%w: renewal date is required when renewal is set", ErrValidation)
	}
	return nil
}

// MasterEntry returns the picklist combination this entry describes.
func (e *Entry) MasterEntry() MasterEntry {
	return MasterEntry{
		CompanyName:  strings.TrimSpace(e.PersonName),
		DocumentType: strings.TrimSpace(e.Type),
		Category:     strings.TrimSpace(e.Category),
	}
}

// Batch collects entries for one submission.
type Batch struct {
	entries []Entry
}

// NewBatch creates a batch holding the given entries.
// It fails without keeping anything when there are more than MaxEntries.
func NewBatch(entries ...Entry) (*Batch, error) {
	b := &Batch{}
	if len(entries) > MaxEntries {
		return nil, fmt.Errorf("%w: %d entries, at most %d allowed", ErrBatchFull, len(entries), MaxEntries)
	}
	b.entries = append(b.entries, entries...)
	return b, nil
}

// Add appends an entry. The batch is left unchanged when already full.
func (b *Batch) Add(e Entry) error {
	if len(b.entries) >= MaxEntries {
		return fmt.Errorf("%w: at most %d entries allowed", ErrBatchFull, MaxEntries)
	}
	b.entries = append(b.entries, e)
	return nil
}

// Remove drops the entry at index i.
func (b *Batch) Remove(i int) error {
	if i < 0 || i >= len(b.entries) {
		return fmt.Errorf("no entry at index %d", i)
	}
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	return nil
}

// Len returns the number of entries.
func (b *Batch) Len() int {
	return len(b.entries)
}

// Entries returns a copy of the entries in submission order.
func (b *Batch) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}
