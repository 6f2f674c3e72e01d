package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool { return s == StatusDone || s == StatusError }

var ErrNotFound = errors.New("job not found")

// Job: запись о задаче решения, хранится целиком под ключом ID.
type Job struct {
	ID        string          `json:"id"`
	Status    Status          `json:"status"`
	Answer    string          `json:"answer,omitempty"`  // только при done
	Message   string          `json:"message,omitempty"` // только при error
	UpdatedAt time.Time       `json:"updated_at"`
	Debug     json.RawMessage `json:"debug,omitempty"`
	Attempts  int             `json:"attempts,omitempty"`
	Budget    int             `json:"budget,omitempty"`
}

// JobStore is a whole-record key-value store keyed by job id.
// Put overwrites; there is no partial update.
type JobStore interface {
	Put(ctx context.Context, j Job) error
	Get(ctx context.Context, id string) (Job, error)
	// ListStale returns running jobs last updated before the cutoff.
	ListStale(ctx context.Context, before time.Time) ([]Job, error)
	// Advance replaces the record only while the stored job is running.
	// false means the job is gone or already terminal and nothing was written.
	Advance(ctx context.Context, j Job) (bool, error)
	// CloseStale is Advance that also requires the stored record to be
	// last updated before the cutoff.
	CloseStale(ctx context.Context, j Job, before time.Time) (bool, error)
}
