package remote

import (
	"fmt"
	"time"

	"docdesk/internal/config"
	"docdesk/internal/desk"
)

// Endpoint is what the application needs from a remote: the service port plus
// the endpoint's own file upload action.
type Endpoint interface {
	desk.Remote
	desk.FileUploader
}

// NewEndpointFromConfig creates an Endpoint based on the endpoint config type.
// A memory endpoint starts with a header row in every configured sheet.
func NewEndpointFromConfig(cfg config.EndpointConfig, sheets config.SheetsConfig, clock desk.Clock) (Endpoint, error) {
	switch cfg.Type {
	case "script":
		if cfg.URL == "" {
			return nil, fmt.Errorf("url required for script endpoint")
		}
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		return NewClient(cfg.URL, timeout, clock), nil
	case "memory":
		m := NewMemory(sheets.Documents)
		m.SetRows(sheets.Login, [][]string{LoginHeader})
		m.SetRows(sheets.Documents, [][]string{DocumentsHeader})
		m.SetRows(sheets.Master, [][]string{MasterHeader})
		if sheets.ShareLog != "" {
			m.SetRows(sheets.ShareLog, [][]string{ShareLogHeader})
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown endpoint type: %s", cfg.Type)
	}
}

// Header rows of the sheets the endpoint serves.
var (
	LoginHeader     = []string{"ID", "Name", "Username", "Password", "Role", "Permissions", "Delete"}
	DocumentsHeader = []string{
		"Timestamp", "Serial No", "Document Name", "Document Type", "Category", "Name",
		"Need Renewal", "Renewal Date", "Image", "", "", "Status", "Issue Date",
		"Concern Person Name", "Concern Person Email", "Concern Person Mobile", "Company Name",
	}
	MasterHeader   = []string{"Company Name", "Document Type", "Category"}
	ShareLogHeader = []string{"Timestamp", "Share ID", "Method", "Recipient", "Contact", "Serial No", "Document Name"}
)
