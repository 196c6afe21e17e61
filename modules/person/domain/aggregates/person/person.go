package person

import (
	"time"

	"github.com/google/uuid"
)

// ObjectName is the record type identifier used for capability
// resolution and change-log entries.
const ObjectName = "person"

// Person is the composite record being edited. Scalar fields are split
// across three storage tables; the child collections live in tables of
// their own and are reconciled by identity during updates.
//
// AccountHistory is system-managed: clients may never write it. A nil
// slice on a submitted record means "not included" and is ignored; a
// non-nil slice that differs from the stored one is treated as
// tampering.
type Person struct {
	ID uuid.UUID

	// persons_main
	FirstName   string
	MiddleName  string
	LastName    string
	Rate        string
	Title       string
	DateOfBirth string
	Remarks     string

	// persons_work
	Division    string
	Department  string
	Command     string
	Supervisor  string
	WorkRemarks string

	// persons_contact
	ContactRemarks string

	EmailAddresses    []EmailAddress
	PhoneNumbers      []PhoneNumber
	PhysicalAddresses []PhysicalAddress

	AccountHistory []AccountEvent
}

// AccountEvent is an audit-history entry attached to a profile (logins,
// password resets, and similar). Written by the service, never by
// clients.
type AccountEvent struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	EventType  string
	OccurredAt time.Time
}

func (e AccountEvent) Identity() uuid.UUID { return e.ID }

func (e AccountEvent) Equal(other AccountEvent) bool {
	return e.ID == other.ID &&
		e.OwnerID == other.OwnerID &&
		e.EventType == other.EventType &&
		e.OccurredAt.Equal(other.OccurredAt)
}

func (e AccountEvent) Adopt(id, ownerID uuid.UUID) AccountEvent {
	e.ID = id
	e.OwnerID = ownerID
	return e
}

// FriendlyName renders the display form used in lock-contention
// messages, e.g. "CTI2 Atwood, Daniel".
func (p *Person) FriendlyName() string {
	name := p.LastName
	if p.FirstName != "" {
		name += ", " + p.FirstName
	}
	if p.Rate != "" {
		name = p.Rate + " " + name
	}
	return name
}

// Clone returns a deep copy. Stores that hand out records must never
// share child slices with callers.
func (p *Person) Clone() *Person {
	out := *p
	out.EmailAddresses = append([]EmailAddress(nil), p.EmailAddresses...)
	out.PhoneNumbers = append([]PhoneNumber(nil), p.PhoneNumbers...)
	out.PhysicalAddresses = append([]PhysicalAddress(nil), p.PhysicalAddresses...)
	if p.AccountHistory != nil {
		out.AccountHistory = append([]AccountEvent(nil), p.AccountHistory...)
	}
	return &out
}
