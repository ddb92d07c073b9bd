// Package outbox delivers audit entries to Kafka. Records are written in the
// same transaction as the entry and published by a polling Worker, so
// delivery is at least once. The record key is the audit id.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hearth/internal/audit"
)

// Record is one pending or published outbox row.
type Record struct {
	ID           string
	Action       audit.Action
	ResourceKind string
	Payload      []byte
	CreatedAt    time.Time
	PublishedAt  *time.Time
}

func (r *Record) IsPending() bool {
	return r.PublishedAt == nil
}

// Event is the JSON payload consumers receive.
type Event struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"actor_id"`
	ActorLabel   string         `json:"actor_label,omitempty"`
	Action       string         `json:"action"`
	ResourceKind string         `json:"resource_kind"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	RequestID    string         `json:"request_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Store persists outbox records. Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, record *Record) error
	// FetchPending returns up to limit unpublished records, oldest first.
	FetchPending(ctx context.Context, limit int) ([]*Record, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
	CountPending(ctx context.Context) (int64, error)
	DeletePublishedBefore(ctx context.Context, before time.Time) (int64, error)
}

// ErrNotPending is returned by MarkPublished for unknown or already published ids.
var ErrNotPending = errors.New("outbox record not pending")

// Outbox implements audit.Outbox on top of a Store.
type Outbox struct {
	store Store
}

func New(store Store) *Outbox {
	return &Outbox{store: store}
}

func (o *Outbox) Enqueue(ctx context.Context, entry *audit.Entry) error {
	payload, err := json.Marshal(Event{
		ID:           entry.ID,
		ActorID:      entry.ActorID.String(),
		ActorLabel:   entry.ActorLabel,
		Action:       string(entry.Action),
		ResourceKind: entry.ResourceKind,
		ResourceID:   entry.ResourceID,
		Details:      entry.Details,
		RequestID:    entry.RequestID,
		CreatedAt:    entry.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return o.store.Append(ctx, &Record{
		ID:           entry.ID,
		Action:       entry.Action,
		ResourceKind: entry.ResourceKind,
		Payload:      payload,
		CreatedAt:    entry.CreatedAt,
	})
}
