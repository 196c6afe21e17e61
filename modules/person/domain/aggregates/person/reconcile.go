package person

import (
	"github.com/google/uuid"
)

// Reconciliation classifies the difference between two versions of a
// child collection into the store operations that realize it.
type Reconciliation[E any] struct {
	Created []E
	Updated []E
	Deleted []E
}

// Reconcile matches old and new child entities by identity and
// classifies every element:
//
//   - a new entity whose identity matches an old one is an update when
//     any attribute differs, otherwise unchanged;
//   - a new entity with no matching identity is a creation and receives
//     a fresh identity from newID plus the owning record reference. Any
//     client-supplied identity is discarded here, since trusting it
//     would allow spoofing another record's entity;
//   - an old entity whose identity is claimed by no new entity is a
//     deletion.
func Reconcile[E Child[E]](old, updated []E, ownerID uuid.UUID, newID func() uuid.UUID) Reconciliation[E] {
	byID := make(map[uuid.UUID]E, len(old))
	for _, o := range old {
		byID[o.Identity()] = o
	}

	var rec Reconciliation[E]
	matched := make(map[uuid.UUID]struct{}, len(updated))

	for _, n := range updated {
		existing, ok := byID[n.Identity()]
		if n.Identity() != uuid.Nil && ok {
			matched[n.Identity()] = struct{}{}
			if !existing.Equal(n) {
				rec.Updated = append(rec.Updated, n)
			}
			continue
		}
		rec.Created = append(rec.Created, n.Adopt(newID(), ownerID))
	}

	for _, o := range old {
		if _, ok := matched[o.Identity()]; !ok {
			rec.Deleted = append(rec.Deleted, o)
		}
	}

	return rec
}

// listEqual reports set equality of two child lists: same size and every
// element of a has an attribute-equal counterpart in b. Order is not
// significant.
func listEqual[E Child[E]](a, b []E) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
outer:
	for _, x := range a {
		for i, y := range b {
			if !used[i] && x.Equal(y) {
				used[i] = true
				continue outer
			}
		}
		return false
	}
	return true
}
