package repository

import (
	"context"

	"intel-agent/models"
)

// EventRepository is the durable event log. Implementations must guarantee
// that a successful ReplaceAll or Clear is observable by a subsequent
// GetAll, across process restarts.
type EventRepository interface {
	// GetAll returns all persisted events in storage order. A missing store
	// is an empty list, not an error.
	GetAll(ctx context.Context) ([]models.Event, error)

	// ReplaceAll de-duplicates the given events by title+source_url and
	// atomically overwrites the entire store. Callers wanting append
	// semantics must read-merge-write themselves.
	ReplaceAll(ctx context.Context, events []models.Event) error

	// Clear resets the store to an empty list.
	Clear(ctx context.Context) error
}
