package desk

import "errors"

var (
	ErrEmptyCredentials   = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserDeleted        = errors.New("user account has been deleted")
	ErrNoSession          = errors.New("not signed in")
	ErrPermissionDenied   = errors.New("permission denied")

	ErrValidation = errors.New("invalid entry")
	ErrBatchFull  = errors.New("batch is full")
	ErrEmptyBatch = errors.New("batch has no entries")

	ErrNothingToShare = errors.New("no documents selected")
	ErrNoShareMethod  = errors.New("no share method selected")
	ErrEmailFailed    = errors.New("email was not sent")
)
