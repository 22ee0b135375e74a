package desk

import (
	"context"
	"fmt"
	"strings"
)

// DeletedMarker is the exact deletion-flag value that disables an account.
const DeletedMarker = "Deleted"

// Column positions of the credentials sheet.
const (
	loginColID = iota
	loginColName
	loginColUsername
	loginColPassword
	loginColRole
	loginColPermissions
	loginColDeleted
)

// Authenticate checks the credentials against the login sheet and returns the
// matching user. The first row whose trimmed username and password equal the
// trimmed inputs wins; comparison is case-sensitive.
func (s *DeskService) Authenticate(ctx context.Context, username, password string) (*AuthenticatedUser, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, ErrEmptyCredentials
	}

	rows, err := s.remote.FetchRows(ctx, s.settings.Sheets.Login, map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching credentials: %w", err)
	}

	user, err := MatchCredentials(rows, username, password)
	if err != nil {
		s.logger.Warn("sign-in rejected", "username", username, "reason", err.Error())
		return nil, err
	}

	s.logger.Info("signed in", "username", username, "role", string(user.Role))
	return user, nil
}

// MatchCredentials scans a credentials table (header row first) for the user.
func MatchCredentials(rows [][]string, username, password string) (*AuthenticatedUser, error) {
	if len(rows) == 0 {
		return nil, ErrInvalidCredentials
	}

	for _, row := range rows[1:] {
		if cell(row, loginColUsername) != username || cell(row, loginColPassword) != password {
			continue
		}
		if rawCell(row, loginColDeleted) == DeletedMarker {
			return nil, ErrUserDeleted
		}
		role := Role(strings.ToLower(cell(row, loginColRole)))
		if role != RoleAdmin {
			role = RoleUser
		}
		user := &AuthenticatedUser{
			ID:       cell(row, loginColID),
			Name:     cell(row, loginColName),
			Username: username,
			Role:     role,
		}
		if role == RoleAdmin {
			user.Permissions = AdminPermissions()
		} else {
			user.Permissions = parsePermissions(rawCell(row, loginColPermissions))
		}
		return user, nil
	}

	return nil, ErrInvalidCredentials
}

// parsePermissions splits a comma-separated permission list, dropping blanks.
func parsePermissions(raw string) []string {
	perms := []string{}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			perms = append(perms, p)
		}
	}
	return perms
}

// Authorize returns ErrPermissionDenied unless user holds permission.
func Authorize(user *AuthenticatedUser, permission string) error {
	if user == nil {
		return ErrNoSession
	}
	if !user.Can(permission) {
		return fmt.Errorf("%w: %s requires %q", ErrPermissionDenied, user.Username, permission)
	}
	return nil
}

func rawCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func cell(row []string, idx int) string {
	return strings.TrimSpace(rawCell(row, idx))
}
