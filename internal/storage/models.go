package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Lookup is one recorded locate attempt. It never carries record contents.
type Lookup struct {
	ID         string    `json:"id"`
	ScanID     string    `json:"scan_id"`
	CaseNumber string    `json:"case_number"`
	Outcome    string    `json:"outcome"` // "found", "not_found", "invalid", "error"
	Database   string    `json:"database,omitempty"`
	Probed     int       `json:"probed"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
