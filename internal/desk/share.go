package desk

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ShareRequest selects documents, a recipient and the delivery methods.
type ShareRequest struct {
	Documents []*DocumentItem
	Recipient Recipient
	Email     bool
	WhatsApp  bool
	Note      string
}

// ShareResult reports what a share delivered.
type ShareResult struct {
	EmailSent    bool
	EmailErr     error
	WhatsAppLink string
	Records      []*ShareRecord
}

func (r ShareRequest) validate() error {
	if len(r.Documents) == 0 {
		return ErrNothingToShare
	}
	if !r.Email && !r.WhatsApp {
		return ErrNoShareMethod
	}
	if r.Email && strings.TrimSpace(r.Recipient.Email) == "" {
		return fmt.Errorf("%w: email address is required", ErrValidation)
	}
	if r.WhatsApp && onlyDigits(r.Recipient.Phone) == "" {
		return fmt.Errorf("%w: phone number is required", ErrValidation)
	}
	return nil
}

// Share sends document references by email and/or a messaging deep link and
// appends one history record per document for every method that went out.
//
// Email delivery goes through the endpoint and may fail. The messaging link is
// handed to an external client and is always treated as sent.
func (s *DeskService) Share(ctx context.Context, req ShareRequest) (*ShareResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.settings.ShareExpiry)
	result := &ShareResult{}

	if req.Email {
		msg := ComposeEmail(req.Documents, req.Recipient, req.Note, s.settings.SenderName, expiresAt)
		err := s.remote.SendEmail(ctx, EmailMessage{
			To:       strings.TrimSpace(req.Recipient.Email),
			Subject:  msg.Subject,
			HTMLBody: msg.HTMLBody,
			TextBody: msg.TextBody,
		})
		if err != nil {
			s.logger.Error("email not sent", "to", req.Recipient.Email, "error", err)
			result.EmailErr = err
		} else {
			result.EmailSent = true
			s.logger.Info("email sent", "to", req.Recipient.Email, "documents", len(req.Documents))
		}
	}

	if req.WhatsApp {
		text := ComposeWhatsApp(req.Documents, req.Recipient, req.Note, s.settings.SenderName, expiresAt)
		result.WhatsAppLink = WhatsAppLink(req.Recipient.Phone, s.settings.DefaultCountryCode, text)
		if err := s.opener.Open(result.WhatsAppLink); err != nil {
			s.logger.Warn("could not open messaging link", "error", err)
		}
	}

	seq := 0
	record := func(method ShareMethod, contact string) error {
		for _, doc := range req.Documents {
			seq++
			rec := &ShareRecord{
				ID:             shareID(now, seq),
				Method:         method,
				RecipientName:  strings.TrimSpace(req.Recipient.Name),
				Contact:        strings.TrimSpace(contact),
				DocumentSerial: doc.SerialNo,
				DocumentName:   doc.Name,
				SharedAt:       now,
			}
			if err := s.store.AddShareRecord(rec); err != nil {
				return fmt.Errorf("recording share: %w", err)
			}
			s.logShareRemotely(ctx, rec)
			result.Records = append(result.Records, rec)
		}
		return nil
	}

	if result.EmailSent {
		if err := record(ShareEmail, req.Recipient.Email); err != nil {
			return result, err
		}
	}
	if req.WhatsApp {
		if err := record(ShareWhatsApp, req.Recipient.Phone); err != nil {
			return result, err
		}
	}

	if req.Email && !result.EmailSent && !req.WhatsApp {
		return result, fmt.Errorf("%w: %v", ErrEmailFailed, result.EmailErr)
	}
	return result, nil
}

// shareID returns a sequential-looking identifier: SH, the unix milliseconds
// of the share, and a per-share sequence number.
func shareID(t time.Time, seq int) string {
	return fmt.Sprintf("SH%d%02d", t.UnixMilli(), seq)
}

// logShareRemotely appends the record to the share-log sheet. Failures only warn.
func (s *DeskService) logShareRemotely(ctx context.Context, rec *ShareRecord) {
	sheet := s.settings.Sheets.ShareLog
	if sheet == "" {
		return
	}
	row := []string{
		rec.SharedAt.Format(TimestampLayout),
		rec.ID,
		string(rec.Method),
		rec.RecipientName,
		rec.Contact,
		rec.DocumentSerial,
		rec.DocumentName,
	}
	if _, err := s.remote.Insert(ctx, sheet, row); err != nil {
		s.logger.Warn("share not logged remotely", "id", rec.ID, "error", err)
	}
}
