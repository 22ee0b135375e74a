package desk

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// RefreshResult counts what Refresh pulled from the endpoint.
type RefreshResult struct {
	Documents  int
	MasterData int
}

// Refresh replaces the cached documents and master data with the endpoint's
// current sheets. Local document IDs are regenerated; serials come from the sheet.
func (s *DeskService) Refresh(ctx context.Context) (*RefreshResult, error) {
	docRows, err := s.remote.FetchRows(ctx, s.settings.Sheets.Documents, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching documents: %w", err)
	}
	masterRows, err := s.remote.FetchRows(ctx, s.settings.Sheets.Master, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching master data: %w", err)
	}

	docs := make([]*DocumentItem, 0, len(docRows))
	for i, row := range docRows {
		if i == 0 || cell(row, docColName) == "" {
			continue
		}
		doc := documentFromRow(row)
		doc.ID = s.idgen.New()
		docs = append(docs, doc)
	}

	var entries []MasterEntry
	for i, row := range masterRows {
		if i == 0 {
			continue
		}
		m := masterFromRow(row)
		if !m.Complete() {
			continue
		}
		dup := false
		for _, e := range entries {
			if e.Matches(m) {
				dup = true
				break
			}
		}
		if !dup {
			entries = append(entries, m)
		}
	}

	if err := s.store.ReplaceDocuments(docs); err != nil {
		return nil, fmt.Errorf("caching documents: %w", err)
	}
	if err := s.store.ReplaceMasterData(entries); err != nil {
		return nil, fmt.Errorf("caching master data: %w", err)
	}

	s.logger.Info("cache refreshed", "documents", len(docs), "master_data", len(entries))
	return &RefreshResult{Documents: len(docs), MasterData: len(entries)}, nil
}

// RenewalDue is a cached document whose renewal date falls inside a window.
type RenewalDue struct {
	Document *DocumentItem
	DueAt    time.Time
	DaysLeft int // negative when overdue
}

// DueForRenewal returns active documents flagged for renewal whose renewal
// date is on or before now+within, soonest first. Overdue documents are included.
func (s *DeskService) DueForRenewal(within time.Duration) ([]RenewalDue, error) {
	docs, err := s.store.ListDocuments()
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	now := s.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	limit := today.Add(within)

	var due []RenewalDue
	for _, doc := range docs {
		if !doc.NeedsRenewal || doc.Status == StatusInactive {
			continue
		}
		t, ok := ParseSheetDate(doc.RenewalDate)
		if !ok {
			s.logger.Debug("skipping unparseable renewal date", "serial", doc.SerialNo, "date", doc.RenewalDate)
			continue
		}
		if t.After(limit) {
			continue
		}
		due = append(due, RenewalDue{
			Document: doc,
			DueAt:    t,
			DaysLeft: int(t.Sub(today).Hours() / 24),
		})
	}

	sort.SliceStable(due, func(i, j int) bool { return due[i].DueAt.Before(due[j].DueAt) })
	return due, nil
}
