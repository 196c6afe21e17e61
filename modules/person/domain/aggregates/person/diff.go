package person

import (
	"errors"
)

// ErrIdentityMismatch is returned when two record versions with
// different IDs are compared.
var ErrIdentityMismatch = errors.New("cannot diff records with different identities")

// Diff walks the field table and returns one Variance per field whose
// value differs between the stored and the submitted version. The
// result order follows field declaration order, so repeated diffs of the
// same pair are identical.
func Diff(old, updated *Person) ([]Variance, error) {
	if old.ID != updated.ID {
		return nil, ErrIdentityMismatch
	}
	var variances []Variance
	for _, f := range Fields() {
		if f.Equal(old, updated) {
			continue
		}
		variances = append(variances, Variance{
			Field: f.Name,
			Kind:  f.Kind,
			Old:   f.Value(old),
			New:   f.Value(updated),
		})
	}
	return variances, nil
}
