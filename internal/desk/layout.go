package desk

import (
	"strings"
	"time"
)

// Layouts used by the documents sheet.
const (
	TimestampLayout = "02/01/2006 15:04:05"
	SheetDateLayout = "02/01/2006"
	InputDateLayout = "2006-01-02"
)

// Column positions of the documents sheet. The insert payload is a
// fixed-position row in exactly this order.
const (
	docColTimestamp = iota
	docColSerial
	docColName
	docColType
	docColCategory
	docColPerson
	docColRenewal
	docColRenewalDate
	docColFileURL
	docColReserved1
	docColReserved2
	docColStatus
	docColIssueDate
	docColContactName
	docColContactEmail
	docColContactPhone
	docColCompany

	documentColumns
)

// Column positions of the master sheet.
const (
	masterColCompany = iota
	masterColType
	masterColCategory
)

// FormatSheetDate converts a yyyy-mm-dd input to the sheet's dd/mm/yyyy layout.
// Empty input stays empty; input that does not parse is passed through as typed.
func FormatSheetDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t, err := time.Parse(InputDateLayout, s)
	if err != nil {
		return s
	}
	return t.Format(SheetDateLayout)
}

// ParseSheetDate reads a dd/mm/yyyy sheet date, also accepting yyyy-mm-dd and
// RFC 3339 timestamps the endpoint emits for date-typed cells.
func ParseSheetDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{SheetDateLayout, InputDateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// documentRow builds the insert payload for an entry. The serial column is
// left empty for the endpoint to fill.
func documentRow(e Entry, fileURL string, now time.Time) []string {
	row := make([]string, documentColumns)
	row[docColTimestamp] = now.Format(TimestampLayout)
	row[docColSerial] = ""
	row[docColName] = strings.TrimSpace(e.Name)
	row[docColType] = strings.TrimSpace(e.Type)
	row[docColCategory] = strings.TrimSpace(e.Category)
	row[docColPerson] = strings.TrimSpace(e.PersonName)
	row[docColRenewal] = yesNo(e.NeedsRenewal)
	if e.NeedsRenewal {
		row[docColRenewalDate] = FormatSheetDate(e.RenewalDate)
	}
	row[docColFileURL] = fileURL
	row[docColStatus] = StatusActive
	row[docColIssueDate] = FormatSheetDate(e.IssueDate)
	row[docColContactName] = strings.TrimSpace(e.ContactName)
	row[docColContactEmail] = strings.TrimSpace(e.ContactEmail)
	row[docColContactPhone] = strings.TrimSpace(e.ContactPhone)
	row[docColCompany] = strings.TrimSpace(e.CompanyName)
	return row
}

// documentFromRow maps a documents sheet row back into a DocumentItem.
func documentFromRow(row []string) *DocumentItem {
	doc := &DocumentItem{
		SerialNo:     cell(row, docColSerial),
		Name:         cell(row, docColName),
		Type:         cell(row, docColType),
		Category:     cell(row, docColCategory),
		PersonName:   cell(row, docColPerson),
		NeedsRenewal: strings.EqualFold(cell(row, docColRenewal), "yes"),
		RenewalDate:  cell(row, docColRenewalDate),
		FileURL:      cell(row, docColFileURL),
		Status:       cell(row, docColStatus),
		IssueDate:    cell(row, docColIssueDate),
		ContactName:  cell(row, docColContactName),
		ContactEmail: cell(row, docColContactEmail),
		ContactPhone: cell(row, docColContactPhone),
		CompanyName:  cell(row, docColCompany),
	}
	if doc.SerialNo == "" {
		doc.SerialNo = PendingSerial
	}
	if t, err := time.Parse(TimestampLayout, cell(row, docColTimestamp)); err == nil {
		doc.CreatedAt = t
	}
	return doc
}

func masterRow(m MasterEntry) []string {
	return []string{m.CompanyName, m.DocumentType, m.Category}
}

func masterFromRow(row []string) MasterEntry {
	return MasterEntry{
		CompanyName:  cell(row, masterColCompany),
		DocumentType: cell(row, masterColType),
		Category:     cell(row, masterColCategory),
	}
}
