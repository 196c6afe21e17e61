package person

import (
	"github.com/harborworks/crewdb/modules/person/domain/value_objects/capability"
)

// FilterByCapability partitions detected variances into those the editor
// may apply and the names of those silently dropped. Reserved fields are
// never editable regardless of capability; their presence in the input
// is the caller's error to handle before filtering.
func FilterByCapability(variances []Variance, caps capability.Set) (allowed []Variance, rejected []string) {
	for _, v := range variances {
		f, ok := FieldByName(v.Field)
		if ok && !f.Reserved && caps.CanEdit(v.Field) {
			allowed = append(allowed, v)
			continue
		}
		rejected = append(rejected, v.Field)
	}
	return allowed, rejected
}

// RedactByCapability returns a copy of the record with every field the
// reader may not see zeroed out. The record identity always survives;
// reserved fields are redacted unless explicitly readable.
func RedactByCapability(p *Person, caps capability.Set) *Person {
	out := p.Clone()
	for _, f := range Fields() {
		if !caps.CanRead(f.Name) {
			f.Clear(out)
		}
	}
	return out
}
