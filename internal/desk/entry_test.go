package desk_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"docdesk/internal/desk"
)

func TestBatch_Add(t *testing.T) {
	t.Parallel()

	t.Run("eleventh entry is rejected and the batch unchanged", func(t *testing.T) {
		t.Parallel()
		b, _ := desk.NewBatch()
		for i := range desk.MaxEntries {
			if err := b.Add(desk.Entry{Name: string(rune('A' + i))}); err != nil {
				t.Fatalf("Add(%d) error = %v", i, err)
			}
		}
		before := b.Entries()

		err := b.Add(desk.Entry{Name: "overflow"})
		if !errors.Is(err, desk.ErrBatchFull) {
			t.Fatalf("Add(11th) error = %v, want ErrBatchFull", err)
		}
		if b.Len() != desk.MaxEntries {
			t.Errorf("Len() = %d, want %d", b.Len(), desk.MaxEntries)
		}
		after := b.Entries()
		for i := range before {
			if before[i].Name != after[i].Name {
				t.Errorf("entry %d changed from %q to %q", i, before[i].Name, after[i].Name)
			}
		}
	})

	t.Run("NewBatch rejects more than ten", func(t *testing.T) {
		t.Parallel()
		entries := make([]desk.Entry, desk.MaxEntries+1)
		b, err := desk.NewBatch(entries...)
		if !errors.Is(err, desk.ErrBatchFull) {
			t.Fatalf("NewBatch(11) error = %v, want ErrBatchFull", err)
		}
		if b != nil {
			t.Error("NewBatch(11) returned a batch")
		}
	})
}

func TestBatch_Remove(t *testing.T) {
	t.Parallel()

	b, _ := desk.NewBatch(desk.Entry{Name: "A"}, desk.Entry{Name: "B"}, desk.Entry{Name: "C"})
	if err := b.Remove(1); err != nil {
		t.Fatalf("Remove(1) error = %v", err)
	}
	got := b.Entries()
	if len(got) != 2 || got[0].Name != "A" || got[1].Name != "C" {
		t.Errorf("Entries() = %+v, want A, C", got)
	}
	if err := b.Remove(5); err == nil {
		t.Error("Remove(5) expected error")
	}
}

func TestBatch_EntriesIsACopy(t *testing.T) {
	t.Parallel()

	b, _ := desk.NewBatch(desk.Entry{Name: "A"})
	got := b.Entries()
	got[0].Name = "changed"
	if b.Entries()[0].Name != "A" {
		t.Error("mutating Entries() result changed the batch")
	}
}

func TestEntry_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entry   desk.Entry
		wantErr bool
	}{
		{"name only", desk.Entry{Name: "Passport"}, false},
		{"blank name", desk.Entry{Name: " \t"}, true},
		{"renewal with date", desk.Entry{Name: "Visa", NeedsRenewal: true, RenewalDate: "2025-01-01"}, false},
		{"renewal without date", desk.Entry{Name: "Visa", NeedsRenewal: true}, true},
		{"date without renewal is fine", desk.Entry{Name: "Visa", RenewalDate: "2025-01-01"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.entry.Validate()
			if tt.wantErr && !errors.Is(err, desk.ErrValidation) {
				t.Errorf("Validate() error = %v, want ErrValidation", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestLoadAttachment(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pdf := filepath.Join(dir, "scan.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF-1.4 test"), 0644); err != nil {
		t.Fatal(err)
	}
	blob := filepath.Join(dir, "notes")
	if err := os.WriteFile(blob, []byte("plain words"), 0644); err != nil {
		t.Fatal(err)
	}

	a, err := desk.LoadAttachment(pdf)
	if err != nil {
		t.Fatalf("LoadAttachment() error = %v", err)
	}
	if a.FileName != "scan.pdf" || a.MimeType != "application/pdf" {
		t.Errorf("attachment = %q %q, want scan.pdf application/pdf", a.FileName, a.MimeType)
	}

	b, err := desk.LoadAttachment(blob)
	if err != nil {
		t.Fatalf("LoadAttachment() error = %v", err)
	}
	if b.MimeType != "text/plain; charset=utf-8" {
		t.Errorf("sniffed MimeType = %q", b.MimeType)
	}

	if _, err := desk.LoadAttachment(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("LoadAttachment(missing) expected error")
	}
}

func TestFormatSheetDate(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"2024-03-01", "01/03/2024"},
		{" 2024-12-31 ", "31/12/2024"},
		{"", ""},
		{"next spring", "next spring"},
	}
	for _, tt := range tests {
		if got := desk.FormatSheetDate(tt.in); got != tt.want {
			t.Errorf("FormatSheetDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
