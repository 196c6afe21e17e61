package change

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Change is one audit-trail entry: a single field of a record changed by
// an editor. Old and New carry JSON renderings of the field values.
type Change struct {
	ID         uuid.UUID
	EditorID   uuid.UUID
	PersonID   uuid.UUID
	ObjectName string
	Field      string
	Old        json.RawMessage
	New        json.RawMessage
	Remark     string
	CreatedAt  time.Time
}

// FindParams narrows and pages change queries. Newest entries first.
type FindParams struct {
	PersonID uuid.UUID
	Limit    int
	Offset   int
}

type Repository interface {
	Create(ctx context.Context, changes []*Change) error
	ListByPerson(ctx context.Context, params *FindParams) ([]*Change, error)
}
