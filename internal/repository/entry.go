package repository

import (
	"context"
	"time"

	"entryapi/internal/model"
)

// EntryRepository defines data access for entries using SQL queries only.
// No business logic here, strictly persistence operations.
type EntryRepository interface {
	// Create inserts a new entry record and returns the stored row.
	Create(ctx context.Context, e *model.Entry) (*model.Entry, error)

	// FindByID returns an entry by its ID. It returns sql.ErrNoRows when missing.
	FindByID(ctx context.Context, id string) (*model.Entry, error)

	// FindChildren returns the direct children of parentID, oldest first.
	FindChildren(ctx context.Context, parentID string) ([]model.Entry, error)

	// List returns a page of root entries (no parent), newest first, with the total root count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Entry], error)

	// SetAttachment records the object path of the entry's attachment and sets updated_at to at.
	// It returns sql.ErrNoRows when the entry does not exist.
	SetAttachment(ctx context.Context, id, path string, at time.Time) error

	// AttachmentPaths returns the attachment paths of the entry and all of its descendants.
	AttachmentPaths(ctx context.Context, id string) ([]string, error)

	// Delete removes an entry by ID; its descendants go with it.
	// It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
