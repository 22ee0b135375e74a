package desk

import (
	"context"
	"fmt"
	"strings"
)

// UploadFailure records an attachment that could not be stored. The entry is
// still inserted, without a file reference.
type UploadFailure struct {
	Index    int
	FileName string
	Err      error
}

// SubmitResult describes what a submission committed. On an insert failure it
// holds the entries saved before the failing one.
type SubmitResult struct {
	Saved          []*DocumentItem
	UploadFailures []UploadFailure
	NewMasterData  []MasterEntry
}

// SubmitBatch registers every entry of the batch in two strict phases.
//
// Upload phase: attachments are uploaded in entry order, spaced by the pacer.
// A failed upload does not abort the batch; the entry degrades to "no file".
//
// Insert phase: each entry is inserted in order and the serial number the
// endpoint assigns is read back into the local store. An insert failure aborts
// the remaining entries. Entries already inserted stay committed both remotely
// and locally; nothing is rolled back.
func (s *DeskService) SubmitBatch(ctx context.Context, batch *Batch) (*SubmitResult, error) {
	entries := batch.Entries()
	if len(entries) == 0 {
		return nil, ErrEmptyBatch
	}
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
	}

	result := &SubmitResult{}

	fileURLs, err := s.uploadAttachments(ctx, entries, result)
	if err != nil {
		return result, err
	}

	for i, e := range entries {
		s.rememberMasterData(ctx, e, result)

		row := documentRow(e, fileURLs[i], s.clock.Now())
		res, err := s.remote.Insert(ctx, s.settings.Sheets.Documents, row)
		if err != nil {
			s.logger.Error("insert failed, aborting remaining entries",
				"entry", i+1, "name", e.Name, "saved", len(result.Saved), "skipped", len(entries)-i-1, "error", err)
			return result, fmt.Errorf("inserting entry %d (%s): %w", i+1, e.Name, err)
		}

		doc := &DocumentItem{
			ID:           s.idgen.New(),
			SerialNo:     PendingSerial,
			Name:         row[docColName],
			Type:         row[docColType],
			Category:     row[docColCategory],
			PersonName:   row[docColPerson],
			NeedsRenewal: e.NeedsRenewal,
			RenewalDate:  row[docColRenewalDate],
			FileURL:      fileURLs[i],
			IssueDate:    row[docColIssueDate],
			ContactName:  row[docColContactName],
			ContactEmail: row[docColContactEmail],
			ContactPhone: row[docColContactPhone],
			CompanyName:  row[docColCompany],
			Status:       StatusActive,
			CreatedAt:    s.clock.Now(),
		}
		if err := s.store.AddDocument(doc); err != nil {
			return result, fmt.Errorf("caching entry %d (%s): %w", i+1, e.Name, err)
		}
		result.Saved = append(result.Saved, doc)

		if serial := strings.TrimSpace(res.SerialNo); serial != "" {
			if err := s.store.UpdateDocumentSerial(doc.ID, serial); err != nil {
				return result, fmt.Errorf("recording serial for entry %d (%s): %w", i+1, e.Name, err)
			}
			doc.SerialNo = serial
		}
		if !doc.SerialResolved() {
			s.logger.Warn("endpoint returned no serial number, cached as pending", "entry", i+1, "name", doc.Name)
		}
		s.logger.Info("document saved", "serial", doc.SerialNo, "name", doc.Name)
	}

	return result, nil
}

// uploadAttachments runs the upload phase and returns one file URL per entry;
// entries without an attachment, or whose upload failed, get "".
func (s *DeskService) uploadAttachments(ctx context.Context, entries []Entry, result *SubmitResult) ([]string, error) {
	urls := make([]string, len(entries))

	for i, e := range entries {
		if e.Attachment == nil {
			continue
		}

		if err := s.pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting to upload %s: %w", e.Attachment.FileName, err)
		}

		url, err := s.uploader.Upload(ctx, FileUpload{
			FileName: e.Attachment.FileName,
			MimeType: e.Attachment.MimeType,
			Content:  e.Attachment.Content,
			FolderID: s.settings.UploadFolderID,
		})
		if err != nil {
			s.logger.Warn("upload failed, saving entry without file",
				"entry", i+1, "file", e.Attachment.FileName, "error", err)
			result.UploadFailures = append(result.UploadFailures, UploadFailure{
				Index:    i,
				FileName: e.Attachment.FileName,
				Err:      err,
			})
			continue
		}

		urls[i] = url
		s.logger.Debug("file uploaded", "entry", i+1, "file", e.Attachment.FileName, "url", url)
	}

	return urls, nil
}

// rememberMasterData appends the entry's (company, type, category) to the
// picklist when it is complete and not yet known. Failures only warn.
func (s *DeskService) rememberMasterData(ctx context.Context, e Entry, result *SubmitResult) {
	m := e.MasterEntry()
	if !m.Complete() {
		return
	}

	known, err := s.store.HasMasterData(m)
	if err != nil {
		s.logger.Warn("checking master data", "error", err)
		return
	}
	if known {
		return
	}

	if _, err := s.remote.Insert(ctx, s.settings.Sheets.Master, masterRow(m)); err != nil {
		s.logger.Warn("master data not saved", "company", m.CompanyName, "type", m.DocumentType, "category", m.Category, "error", err)
		return
	}

	added, err := s.store.AddMasterData(m)
	if err != nil {
		s.logger.Warn("caching master data", "error", err)
		return
	}
	if added {
		result.NewMasterData = append(result.NewMasterData, m)
	}
}
