package person

import (
	"context"

	"github.com/google/uuid"
)

// Storage tables holding the scalar fields.
const (
	TableMain    = "persons_main"
	TableWork    = "persons_work"
	TableContact = "persons_contact"
)

// ChildCounts tallies the store operations performed for one collection
// field during an update.
type ChildCounts struct {
	Created int
	Updated int
	Deleted int
}

// FieldDef describes one field of a Person. The definition set is
// closed: diffing, authorization filtering, validation and persistence
// all walk the same table, so a field absent here does not exist as far
// as updates are concerned.
type FieldDef struct {
	Name string
	Kind FieldKind

	// Table and Column locate a scalar field's storage. Empty for
	// collections.
	Table  string
	Column string

	// Reserved marks system-managed fields clients may never write.
	Reserved bool

	equal func(old, updated *Person) bool
	value func(p *Person) any

	// setScalar writes a scalar value onto a record. Nil for
	// collections.
	setScalar func(p *Person, value string)

	// clear zeroes the field on a record. Used when a reader lacks the
	// capability to see it.
	clear func(p *Person)

	// applyChildren reconciles a collection field against the store.
	// Nil for scalar and reserved fields.
	applyChildren func(ctx context.Context, repo Repository, old, updated *Person, newID func() uuid.UUID) (ChildCounts, error)
}

// Equal reports whether the field carries the same value on both
// versions.
func (f FieldDef) Equal(old, updated *Person) bool { return f.equal(old, updated) }

// Value extracts the field's value for change-log and display payloads.
func (f FieldDef) Value(p *Person) any { return f.value(p) }

// SetScalar writes a scalar value onto the record. The value must be
// the field's native string; no-op for collection fields.
func (f FieldDef) SetScalar(p *Person, value any) {
	if f.setScalar == nil {
		return
	}
	if s, ok := value.(string); ok {
		f.setScalar(p, s)
	}
}

// Clear zeroes the field on the record.
func (f FieldDef) Clear(p *Person) { f.clear(p) }

// ApplyChildren reconciles a collection field's children between the two
// record versions and writes the result through repo. Panics when called
// on a field without child semantics; the update engine only routes
// non-reserved collection variances here.
func (f FieldDef) ApplyChildren(ctx context.Context, repo Repository, old, updated *Person, newID func() uuid.UUID) (ChildCounts, error) {
	return f.applyChildren(ctx, repo, old, updated, newID)
}

func scalarField(name, table, column string, get func(*Person) string, set func(*Person, string)) FieldDef {
	return FieldDef{
		Name:      name,
		Kind:      KindScalar,
		Table:     table,
		Column:    column,
		equal:     func(old, updated *Person) bool { return get(old) == get(updated) },
		value:     func(p *Person) any { return get(p) },
		setScalar: set,
		clear:     func(p *Person) { set(p, "") },
	}
}

type childOps[E Child[E]] struct {
	add    func(ctx context.Context, r Repository, e E) error
	update func(ctx context.Context, r Repository, e E) error
	delete func(ctx context.Context, r Repository, id uuid.UUID) error
}

func collectionField[E Child[E]](name string, get func(*Person) []E, set func(*Person, []E), ops childOps[E]) FieldDef {
	return FieldDef{
		Name:  name,
		Kind:  KindCollection,
		equal: func(old, updated *Person) bool { return listEqual(get(old), get(updated)) },
		value: func(p *Person) any { return get(p) },
		clear: func(p *Person) { set(p, nil) },
		applyChildren: func(ctx context.Context, repo Repository, old, updated *Person, newID func() uuid.UUID) (ChildCounts, error) {
			rec := Reconcile(get(old), get(updated), old.ID, newID)
			for _, e := range rec.Created {
				if err := ops.add(ctx, repo, e); err != nil {
					return ChildCounts{}, err
				}
			}
			for _, e := range rec.Updated {
				if err := ops.update(ctx, repo, e); err != nil {
					return ChildCounts{}, err
				}
			}
			for _, e := range rec.Deleted {
				if err := ops.delete(ctx, repo, e.Identity()); err != nil {
					return ChildCounts{}, err
				}
			}
			return ChildCounts{
				Created: len(rec.Created),
				Updated: len(rec.Updated),
				Deleted: len(rec.Deleted),
			}, nil
		},
	}
}

var fieldDefs = []FieldDef{
	scalarField("FirstName", TableMain, "first_name",
		func(p *Person) string { return p.FirstName },
		func(p *Person, v string) { p.FirstName = v }),
	scalarField("MiddleName", TableMain, "middle_name",
		func(p *Person) string { return p.MiddleName },
		func(p *Person, v string) { p.MiddleName = v }),
	scalarField("LastName", TableMain, "last_name",
		func(p *Person) string { return p.LastName },
		func(p *Person, v string) { p.LastName = v }),
	scalarField("Rate", TableMain, "rate",
		func(p *Person) string { return p.Rate },
		func(p *Person, v string) { p.Rate = v }),
	scalarField("Title", TableMain, "title",
		func(p *Person) string { return p.Title },
		func(p *Person, v string) { p.Title = v }),
	scalarField("DateOfBirth", TableMain, "date_of_birth",
		func(p *Person) string { return p.DateOfBirth },
		func(p *Person, v string) { p.DateOfBirth = v }),
	scalarField("Remarks", TableMain, "remarks",
		func(p *Person) string { return p.Remarks },
		func(p *Person, v string) { p.Remarks = v }),

	scalarField("Division", TableWork, "division",
		func(p *Person) string { return p.Division },
		func(p *Person, v string) { p.Division = v }),
	scalarField("Department", TableWork, "department",
		func(p *Person) string { return p.Department },
		func(p *Person, v string) { p.Department = v }),
	scalarField("Command", TableWork, "command",
		func(p *Person) string { return p.Command },
		func(p *Person, v string) { p.Command = v }),
	scalarField("Supervisor", TableWork, "supervisor",
		func(p *Person) string { return p.Supervisor },
		func(p *Person, v string) { p.Supervisor = v }),
	scalarField("WorkRemarks", TableWork, "work_remarks",
		func(p *Person) string { return p.WorkRemarks },
		func(p *Person, v string) { p.WorkRemarks = v }),

	scalarField("ContactRemarks", TableContact, "contact_remarks",
		func(p *Person) string { return p.ContactRemarks },
		func(p *Person, v string) { p.ContactRemarks = v }),

	collectionField("EmailAddresses",
		func(p *Person) []EmailAddress { return p.EmailAddresses },
		func(p *Person, v []EmailAddress) { p.EmailAddresses = v },
		childOps[EmailAddress]{
			add:    func(ctx context.Context, r Repository, e EmailAddress) error { return r.AddEmailAddress(ctx, e) },
			update: func(ctx context.Context, r Repository, e EmailAddress) error { return r.UpdateEmailAddress(ctx, e) },
			delete: func(ctx context.Context, r Repository, id uuid.UUID) error { return r.DeleteEmailAddress(ctx, id) },
		}),
	collectionField("PhoneNumbers",
		func(p *Person) []PhoneNumber { return p.PhoneNumbers },
		func(p *Person, v []PhoneNumber) { p.PhoneNumbers = v },
		childOps[PhoneNumber]{
			add:    func(ctx context.Context, r Repository, e PhoneNumber) error { return r.AddPhoneNumber(ctx, e) },
			update: func(ctx context.Context, r Repository, e PhoneNumber) error { return r.UpdatePhoneNumber(ctx, e) },
			delete: func(ctx context.Context, r Repository, id uuid.UUID) error { return r.DeletePhoneNumber(ctx, id) },
		}),
	collectionField("PhysicalAddresses",
		func(p *Person) []PhysicalAddress { return p.PhysicalAddresses },
		func(p *Person, v []PhysicalAddress) { p.PhysicalAddresses = v },
		childOps[PhysicalAddress]{
			add:    func(ctx context.Context, r Repository, e PhysicalAddress) error { return r.AddPhysicalAddress(ctx, e) },
			update: func(ctx context.Context, r Repository, e PhysicalAddress) error { return r.UpdatePhysicalAddress(ctx, e) },
			delete: func(ctx context.Context, r Repository, id uuid.UUID) error { return r.DeletePhysicalAddress(ctx, id) },
		}),

	{
		Name:     "AccountHistory",
		Kind:     KindCollection,
		Reserved: true,
		// A nil submitted history means the client did not include the
		// field; only a non-nil divergent list counts as a change.
		equal: func(old, updated *Person) bool {
			if updated.AccountHistory == nil {
				return true
			}
			return listEqual(old.AccountHistory, updated.AccountHistory)
		},
		value: func(p *Person) any { return p.AccountHistory },
		clear: func(p *Person) { p.AccountHistory = nil },
	},
}

var fieldsByName = func() map[string]FieldDef {
	m := make(map[string]FieldDef, len(fieldDefs))
	for _, f := range fieldDefs {
		m[f.Name] = f
	}
	return m
}()

// Fields returns the closed field definition list in declaration order.
// Callers must treat it as read-only.
func Fields() []FieldDef { return fieldDefs }

// FieldByName looks up a field definition by name.
func FieldByName(name string) (FieldDef, bool) {
	f, ok := fieldsByName[name]
	return f, ok
}
