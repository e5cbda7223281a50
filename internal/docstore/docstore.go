// Package docstore is the generic document persistence gateway. It stores
// schemaless JSON documents in named collections; sub-collections are scoped
// by a parent document id (e.g. the roles of one team). Identity and
// timestamps are assigned by the gateway, never by callers.
package docstore

import (
	"context"
	"errors"
	"time"
)

// Filter operators supported by GetByFilter.
const (
	OpEqual         = "=="
	OpArrayContains = "array-contains"
)

var ErrNotFound = errors.New("docstore: not found")

// Filter is a single field predicate. Equality compares the JSON value of a
// field; array-contains matches when the field is an array holding the value.
type Filter struct {
	Field string
	Op    string
	Value any
}

// Entity is a stored document plus its gateway-assigned envelope.
type Entity struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Data      map[string]any
}

// Gateway is the persistence boundary. parentID is empty for top-level
// collections and holds the owning document id for sub-collections. Update
// applies a shallow merge of patch onto the stored document.
type Gateway interface {
	Create(ctx context.Context, collection, parentID string, data map[string]any) (Entity, error)
	GetByID(ctx context.Context, collection, parentID, id string) (Entity, error)
	GetAll(ctx context.Context, collection, parentID string) ([]Entity, error)
	GetByFilter(ctx context.Context, collection, parentID string, filters []Filter) ([]Entity, error)
	Update(ctx context.Context, collection, parentID, id string, patch map[string]any) (Entity, error)
	Delete(ctx context.Context, collection, parentID, id string) error
	Count(ctx context.Context, collection, parentID string) (int, error)
}
