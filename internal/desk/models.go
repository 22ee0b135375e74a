package desk

import (
	"slices"
	"strings"
	"time"
)

// PendingSerial is the placeholder serial number of a document whose insert
// response has not been consumed, or whose response carried no serial.
// It is not unique and must never be used as a key.
const PendingSerial = "Pending"

// Document status values as written to the documents sheet.
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// DocumentItem is a registered document as cached locally.
// ID is the local primary key; SerialNo is assigned by the remote endpoint.
type DocumentItem struct {
	ID           string
	SerialNo     string
	Name         string
	Type         string
	Category     string
	PersonName   string
	NeedsRenewal bool
	RenewalDate  string // dd/mm/yyyy as stored in the sheet
	FileURL      string
	IssueDate    string // dd/mm/yyyy as stored in the sheet
	ContactName  string
	ContactEmail string
	ContactPhone string
	CompanyName  string
	Status       string
	CreatedAt    time.Time
}

// SerialResolved reports whether the serial number came back from the endpoint.
func (d *DocumentItem) SerialResolved() bool {
	return d.SerialNo != "" && d.SerialNo != PendingSerial
}

// MasterEntry is one (company, type, category) picklist combination.
type MasterEntry struct {
	CompanyName  string
	DocumentType string
	Category     string
}

// Matches compares two entries field by field, ignoring case and surrounding space.
func (m MasterEntry) Matches(other MasterEntry) bool {
	return foldEqual(m.CompanyName, other.CompanyName) &&
		foldEqual(m.DocumentType, other.DocumentType) &&
		foldEqual(m.Category, other.Category)
}

// Complete reports whether all three fields are present.
func (m MasterEntry) Complete() bool {
	return strings.TrimSpace(m.CompanyName) != "" &&
		strings.TrimSpace(m.DocumentType) != "" &&
		strings.TrimSpace(m.Category) != ""
}

func foldEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ShareMethod identifies how a document reference was shared.
type ShareMethod string

const (
	ShareEmail    ShareMethod = "email"
	ShareWhatsApp ShareMethod = "whatsapp"
)

// ShareRecord is one entry of the append-only share history.
type ShareRecord struct {
	ID             string
	Method         ShareMethod
	RecipientName  string
	Contact        string // email address or phone number, depending on Method
	DocumentSerial string
	DocumentName   string
	SharedAt       time.Time
}

// Role of an authenticated user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Permissions understood by the client.
const (
	PermDashboard   = "dashboard"
	PermDocuments   = "documents"
	PermAddDocument = "add_document"
	PermShare       = "share"
	PermRenewals    = "renewals"
	PermMasterData  = "master_data"
	PermSettings    = "settings"
)

// AdminPermissions is the fixed permission set granted to every admin,
// regardless of what the credentials sheet stores for them.
func AdminPermissions() []string {
	return []string{
		PermDashboard,
		PermDocuments,
		PermAddDocument,
		PermShare,
		PermRenewals,
		PermMasterData,
		PermSettings,
	}
}

// AuthenticatedUser is the signed-in user for the lifetime of a session.
type AuthenticatedUser struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Username    string   `json:"username"`
	Role        Role     `json:"role"`
	Permissions []string `json:"permissions"`
}

// Can reports whether the user holds the given permission.
func (u *AuthenticatedUser) Can(permission string) bool {
	if u == nil {
		return false
	}
	return slices.Contains(u.Permissions, permission)
}

// Operation tracks a CLI invocation that mutates local or remote state.
type Operation struct {
	ID         int64
	Name       string
	Parameters string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
}
