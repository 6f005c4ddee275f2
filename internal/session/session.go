// Package session persists per-conversation state between turns.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Version is the current record format version.
// Increment when making breaking changes to Record.
const Version = 1

// Record is the persisted state of one conversation.
type Record struct {
	Version   int            `json:"version"`
	ID        string         `json:"id"`
	State     map[string]any `json:"state"`
	Turns     int            `json:"turns"`
	LastRunID string         `json:"last_run_id,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewRecord creates an empty record for id.
func NewRecord(id string) *Record {
	return &Record{Version: Version, ID: id, State: map[string]any{}}
}

// Marshal serializes a record to JSON.
func (r *Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Unmarshal deserializes a record from JSON.
func Unmarshal(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if r.Version > Version {
		return nil, fmt.Errorf("session %s: unsupported version %d", r.ID, r.Version)
	}
	if r.State == nil {
		r.State = map[string]any{}
	}
	return &r, nil
}

// Store persists session records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores rec under rec.ID, overwriting any previous record.
	// UpdatedAt is set by the store.
	Save(ctx context.Context, rec *Record) error

	// Load retrieves a record.
	// Returns ErrNotFound if the session doesn't exist.
	Load(ctx context.Context, id string) (*Record, error)

	// Delete removes a session.
	// Returns nil if the session doesn't exist.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of stored sessions, sorted.
	List(ctx context.Context) ([]string, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates a session doesn't exist.
	ErrNotFound = errors.New("session not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("session store closed")

	// ErrEmptyID indicates a record without an ID.
	ErrEmptyID = errors.New("session id cannot be empty")
)

// LoadOrNew loads id from store, or returns a fresh record if it does not exist.
func LoadOrNew(ctx context.Context, store Store, id string) (*Record, error) {
	rec, err := store.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return NewRecord(id), nil
	}
	return rec, err
}

// encode stamps rec and returns its JSON form.
func encode(rec *Record) ([]byte, error) {
	if rec == nil || rec.ID == "" {
		return nil, ErrEmptyID
	}
	rec.Version = Version
	rec.UpdatedAt = time.Now().UTC()
	data, err := rec.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal session %s: %w", rec.ID, err)
	}
	return data, nil
}
