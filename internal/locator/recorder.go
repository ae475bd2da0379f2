package locator

import (
	"context"
	"log/slog"
	"time"
)

// Status is the outcome class of one Locate call.
type Status string

const (
	StatusFound    Status = "found"
	StatusNotFound Status = "not_found"
	StatusInvalid  Status = "invalid"
	StatusError    Status = "error"
)

// Outcome describes a finished Locate call.
type Outcome struct {
	ScanID     string
	CaseNumber string
	Status     Status
	Database   string // set only when Status is StatusFound
	Probed     int
	Duration   time.Duration
}

// Recorder receives the outcome of every Locate call.
type Recorder interface {
	RecordLookup(ctx context.Context, o Outcome) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, o Outcome) error

func (f RecorderFunc) RecordLookup(ctx context.Context, o Outcome) error {
	return f(ctx, o)
}

func (l *Locator) record(ctx context.Context, log *slog.Logger, o Outcome) {
	if l.recorder == nil {
		return
	}
	if err := l.recorder.RecordLookup(context.WithoutCancel(ctx), o); err != nil {
		log.Warn("recording lookup", "error", err)
	}
}
