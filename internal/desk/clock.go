package desk

import (
	"time"

	"github.com/google/uuid"
)

// Clock stamps new sheet rows and sets share link expiry.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator mints local document IDs and share IDs.
type IDGenerator interface {
	New() string
}

// UUIDGenerator mints random v4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
