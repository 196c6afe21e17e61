package person

import (
	"github.com/google/uuid"
)

// UpdatedEvent is published after an update transaction commits.
type UpdatedEvent struct {
	PersonID uuid.UUID
	EditorID uuid.UUID
	// Applied holds the variances written to the store; Rejected the
	// names of fields dropped by capability filtering.
	Applied  []Variance
	Rejected []string
}
