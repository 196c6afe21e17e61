package capability

import (
	"context"

	"github.com/google/uuid"
)

// Actions recognized by capability providers.
const (
	ActionRead  = "read"
	ActionWrite = "write"
)

// Set is an editor's resolved per-field capabilities over one record
// type. Editing a field requires both read and write capability; a field
// an editor cannot see is not one they can change.
type Set struct {
	readable map[string]struct{}
	writable map[string]struct{}
}

// NewSet builds a Set from the field names the editor may read and
// write.
func NewSet(readable, writable []string) Set {
	s := Set{
		readable: make(map[string]struct{}, len(readable)),
		writable: make(map[string]struct{}, len(writable)),
	}
	for _, f := range readable {
		s.readable[f] = struct{}{}
	}
	for _, f := range writable {
		s.writable[f] = struct{}{}
	}
	return s
}

func (s Set) CanRead(field string) bool {
	_, ok := s.readable[field]
	return ok
}

func (s Set) CanWrite(field string) bool {
	_, ok := s.writable[field]
	return ok
}

// CanEdit reports whether the editor may change the field: write
// capability intersected with read capability.
func (s Set) CanEdit(field string) bool {
	return s.CanRead(field) && s.CanWrite(field)
}

// CanEditAnything reports whether the editor holds write capability over
// at least one field. Editors without any are refused profile locks.
func (s Set) CanEditAnything() bool {
	for f := range s.writable {
		if s.CanRead(f) {
			return true
		}
	}
	return false
}

// Provider resolves an editor's capabilities over a record type.
type Provider interface {
	Capabilities(ctx context.Context, editorID uuid.UUID, object string) (Set, error)
}
