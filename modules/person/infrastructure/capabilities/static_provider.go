package capabilities

import (
	"context"

	"github.com/google/uuid"

	"github.com/harborworks/crewdb/modules/person/domain/value_objects/capability"
)

// StaticProvider returns fixed capability sets per editor. Used in tests
// and local tooling where group policies would be noise.
type StaticProvider struct {
	sets     map[uuid.UUID]capability.Set
	fallback capability.Set
}

func NewStaticProvider(fallback capability.Set) *StaticProvider {
	return &StaticProvider{
		sets:     make(map[uuid.UUID]capability.Set),
		fallback: fallback,
	}
}

// Grant fixes the capability set returned for one editor.
func (p *StaticProvider) Grant(editorID uuid.UUID, set capability.Set) {
	p.sets[editorID] = set
}

func (p *StaticProvider) Capabilities(_ context.Context, editorID uuid.UUID, _ string) (capability.Set, error) {
	if set, ok := p.sets[editorID]; ok {
		return set, nil
	}
	return p.fallback, nil
}
