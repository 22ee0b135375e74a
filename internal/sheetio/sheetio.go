// Package sheetio imports document entries from and exports cached documents
// to .xlsx workbooks.
package sheetio

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"docdesk/internal/desk"
)

// ExportSheet is the name of the worksheet written by ExportDocuments.
const ExportSheet = "Documents"

type column int

const (
	colName column = iota
	colType
	colCategory
	colPerson
	colRenewal
	colRenewalDate
	colIssueDate
	colContactName
	colContactEmail
	colContactPhone
	colCompany
	colAttachment
)

var headerAliases = map[string]column{
	"name":          colName,
	"document name": colName,
	"document":      colName,
	"type":          colType,
	"document type": colType,
	"category":      colCategory,
	"person":        colPerson,
	"person name":   colPerson,
	"renewal":       colRenewal,
	"needs renewal": colRenewal,
	"renewal date":  colRenewalDate,
	"issue date":    colIssueDate,
	"contact name":  colContactName,
	"contact":       colContactName,
	"contact email": colContactEmail,
	"email":         colContactEmail,
	"contact phone": colContactPhone,
	"phone":         colContactPhone,
	"company":       colCompany,
	"company name":  colCompany,
	"attachment":    colAttachment,
	"file":          colAttachment,
}

// ReadEntries reads entries from the first worksheet of an .xlsx file. The
// first row is a header naming the columns; blank rows are skipped. Attachment
// paths are resolved relative to the workbook.
func ReadEntries(path string) ([]desk.Entry, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no worksheet found in %s", path)
	}
	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("worksheet %q is empty", sheetName)
	}

	index := map[column]int{}
	for i, h := range rows[0] {
		if c, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, seen := index[c]; !seen {
				index[c] = i
			}
		}
	}
	if _, ok := index[colName]; !ok {
		return nil, fmt.Errorf("%w: workbook has no name column", desk.ErrValidation)
	}

	baseDir := filepath.Dir(path)
	var entries []desk.Entry
	for n, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		if len(entries) == desk.MaxEntries {
			return nil, fmt.Errorf("%w: workbook has more than %d entries", desk.ErrBatchFull, desk.MaxEntries)
		}

		get := func(c column) string {
			i, ok := index[c]
			if !ok {
				return ""
			}
			return cellValue(row, i)
		}

		e := desk.Entry{
			Name:         get(colName),
			Type:         get(colType),
			Category:     get(colCategory),
			PersonName:   get(colPerson),
			NeedsRenewal: parseYes(get(colRenewal)),
			RenewalDate:  normalizeDate(get(colRenewalDate)),
			IssueDate:    normalizeDate(get(colIssueDate)),
			ContactName:  get(colContactName),
			ContactEmail: get(colContactEmail),
			ContactPhone: get(colContactPhone),
			CompanyName:  get(colCompany),
		}
		if p := get(colAttachment); p != "" {
			if !filepath.IsAbs(p) {
				p = filepath.Join(baseDir, p)
			}
			att, err := desk.LoadAttachment(p)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", n+2, err)
			}
			e.Attachment = att
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ExportHeader is the header row written by ExportDocuments.
var ExportHeader = []string{
	"Serial No", "Name", "Type", "Category", "Person Name", "Needs Renewal",
	"Renewal Date", "Issue Date", "Contact Name", "Contact Email", "Contact Phone",
	"Company Name", "File URL", "Status", "Created At",
}

// ExportDocuments writes documents to a new workbook at path.
func ExportDocuments(path string, docs []*desk.DocumentItem) error {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	if err := file.SetSheetName(file.GetSheetName(0), ExportSheet); err != nil {
		return fmt.Errorf("naming worksheet: %w", err)
	}

	header := make([]any, len(ExportHeader))
	for i, h := range ExportHeader {
		header[i] = h
	}
	if err := file.SetSheetRow(ExportSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, d := range docs {
		renewal := "No"
		if d.NeedsRenewal {
			renewal = "Yes"
		}
		row := []any{
			d.SerialNo, d.Name, d.Type, d.Category, d.PersonName, renewal,
			d.RenewalDate, d.IssueDate, d.ContactName, d.ContactEmail, d.ContactPhone,
			d.CompanyName, d.FileURL, d.Status, createdAt(d.CreatedAt),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func createdAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(desk.TimestampLayout)
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.Join(strings.Fields(header), " "))
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseYes(v string) bool {
	switch strings.ToLower(v) {
	case "yes", "y", "true", "1", "x":
		return true
	}
	return false
}

// 01-02-06 is how excelize renders cells with the built-in date format.
var dateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006", "02-01-2006", "01-02-06"}

// normalizeDate turns the date forms people type into cells, and Excel date
// serials, into the yyyy-mm-dd form entries use. Unrecognised values pass
// through so validation downstream can report them.
func normalizeDate(v string) string {
	if v == "" {
		return ""
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial >= 20000 && serial < 2958466 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format("2006-01-02")
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return v
}
