package desk

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"
)

// Recipient is who a share is addressed to.
type Recipient struct {
	Name  string
	Email string
	Phone string
}

// ComposedEmail is the email representation of a share.
type ComposedEmail struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// field is one label/value line of a document summary.
type field struct {
	label string
	value string
}

// documentFields lists the fields of doc that carry a value. Absent fields are
// omitted rather than shown blank.
func documentFields(doc *DocumentItem) []field {
	all := []field{
		{"Serial No", doc.SerialNo},
		{"Document", doc.Name},
		{"Type", doc.Type},
		{"Category", doc.Category},
		{"Name", doc.PersonName},
		{"Company", doc.CompanyName},
		{"Issue Date", doc.IssueDate},
	}
	if doc.NeedsRenewal {
		all = append(all, field{"Renewal Date", doc.RenewalDate})
	}
	all = append(all,
		field{"Contact", doc.ContactName},
		field{"Contact Phone", doc.ContactPhone},
		field{"Contact Email", doc.ContactEmail},
		field{"File", doc.FileURL},
	)

	present := make([]field, 0, len(all))
	for _, f := range all {
		v := strings.TrimSpace(f.value)
		if v == "" || (f.label == "Serial No" && v == PendingSerial) {
			continue
		}
		present = append(present, field{f.label, v})
	}
	return present
}

func expiryNotice(expiresAt time.Time) string {
	return fmt.Sprintf("Shared links are valid until %s.", expiresAt.Format(SheetDateLayout))
}

func shareSubject(docs []*DocumentItem) string {
	if len(docs) == 1 {
		return "Document: " + docs[0].Name
	}
	return fmt.Sprintf("Documents shared with you (%d)", len(docs))
}

// ComposeEmail builds the HTML and plain-text email bodies for a share.
func ComposeEmail(docs []*DocumentItem, to Recipient, note, sender string, expiresAt time.Time) ComposedEmail {
	var h, t strings.Builder

	greeting := "Hello,"
	if name := strings.TrimSpace(to.Name); name != "" {
		greeting = "Dear " + name + ","
	}
	fmt.Fprintf(&h, "<p>%s</p>\n", html.EscapeString(greeting))
	fmt.Fprintf(&t, "%s\n\n", greeting)

	if len(docs) == 1 {
		h.WriteString("<p>Please find the document details below.</p>\n")
		t.WriteString("Please find the document details below.\n\n")
	} else {
		fmt.Fprintf(&h, "<p>Please find the details of %d documents below.</p>\n", len(docs))
		fmt.Fprintf(&t, "Please find the details of %d documents below.\n\n", len(docs))
	}

	if note = strings.TrimSpace(note); note != "" {
		fmt.Fprintf(&h, "<p>%s</p>\n", html.EscapeString(note))
		fmt.Fprintf(&t, "%s\n\n", note)
	}

	for i, doc := range docs {
		if len(docs) > 1 {
			fmt.Fprintf(&h, "<h3>%d. %s</h3>\n", i+1, html.EscapeString(doc.Name))
			fmt.Fprintf(&t, "%d. %s\n", i+1, doc.Name)
		}
		h.WriteString("<table style=\"border-collapse:collapse\">\n")
		for _, f := range documentFields(doc) {
			value := html.EscapeString(f.value)
			if f.label == "File" {
				value = fmt.Sprintf("<a href=\"%s\">View file</a>", html.EscapeString(f.value))
			}
			fmt.Fprintf(&h, "<tr><td style=\"padding:4px 8px\"><strong>%s</strong></td><td style=\"padding:4px 8px\">%s</td></tr>\n",
				html.EscapeString(f.label), value)
			fmt.Fprintf(&t, "%s: %s\n", f.label, f.value)
		}
		h.WriteString("</table>\n")
		t.WriteString("\n")
	}

	notice := expiryNotice(expiresAt)
	fmt.Fprintf(&h, "<p><em>%s</em></p>\n", html.EscapeString(notice))
	fmt.Fprintf(&t, "%s\n", notice)

	if sender = strings.TrimSpace(sender); sender != "" {
		fmt.Fprintf(&h, "<p>Regards,<br>%s</p>\n", html.EscapeString(sender))
		fmt.Fprintf(&t, "\nRegards,\n%s\n", sender)
	}

	return ComposedEmail{
		Subject:  shareSubject(docs),
		HTMLBody: h.String(),
		TextBody: t.String(),
	}
}

// ComposeWhatsApp builds the messaging text for a share, using *bold* and
// _italic_ markup.
func ComposeWhatsApp(docs []*DocumentItem, to Recipient, note, sender string, expiresAt time.Time) string {
	var b strings.Builder

	if name := strings.TrimSpace(to.Name); name != "" {
		fmt.Fprintf(&b, "Hello %s,\n\n", name)
	}
	if len(docs) == 1 {
		b.WriteString("*Document Details*\n\n")
	} else {
		fmt.Fprintf(&b, "*Document Details (%d)*\n\n", len(docs))
	}
	if note = strings.TrimSpace(note); note != "" {
		fmt.Fprintf(&b, "%s\n\n", note)
	}

	for i, doc := range docs {
		if len(docs) > 1 {
			fmt.Fprintf(&b, "*%d. %s*\n", i+1, doc.Name)
		}
		for _, f := range documentFields(doc) {
			fmt.Fprintf(&b, "*%s:* %s\n", f.label, f.value)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "_%s_", expiryNotice(expiresAt))
	if sender = strings.TrimSpace(sender); sender != "" {
		fmt.Fprintf(&b, "\n\n%s", sender)
	}
	return b.String()
}

// WhatsAppLink builds a wa.me deep link with the text pre-filled. Bare local
// numbers of ten digits get countryCode prefixed.
func WhatsAppLink(phone, countryCode, text string) string {
	digits := onlyDigits(phone)
	if len(digits) == 10 && countryCode != "" {
		digits = onlyDigits(countryCode) + digits
	}
	escaped := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return "https://wa.me/" + digits + "?text=" + escaped
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
