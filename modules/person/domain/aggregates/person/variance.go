package person

// FieldKind is the closed set of field shapes a Person carries.
type FieldKind uint8

const (
	KindScalar FieldKind = iota + 1
	KindCollection
)

func (k FieldKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// Variance is one detected difference between two versions of a record.
// For collection fields Old and New hold the full old and new child
// lists. Writes never consume these payloads: the reconciler re-reads
// the typed lists through the field table, so they exist only for the
// change log and for display.
type Variance struct {
	Field string
	Kind  FieldKind
	Old   any
	New   any
}

// FieldNames projects a variance list to its field names, preserving
// order.
func FieldNames(variances []Variance) []string {
	out := make([]string, 0, len(variances))
	for _, v := range variances {
		out = append(out, v.Field)
	}
	return out
}
