package person

import (
	"github.com/google/uuid"
)

// Child is implemented by entities living in a child collection of a
// Person. An entity with a Nil identity has never been persisted.
type Child[E any] interface {
	Identity() uuid.UUID
	// Equal compares every attribute, identity included.
	Equal(other E) bool
	// Adopt returns a copy bound to the given identity and owner. Used
	// when a creation is classified: client-supplied identities for new
	// entities are never trusted.
	Adopt(id, ownerID uuid.UUID) E
}

type EmailAddress struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	Address       string `validate:"required,email"`
	IsContactable bool
	IsPreferred   bool
}

func (e EmailAddress) Identity() uuid.UUID { return e.ID }

func (e EmailAddress) Equal(other EmailAddress) bool {
	return e == other
}

func (e EmailAddress) Adopt(id, ownerID uuid.UUID) EmailAddress {
	e.ID = id
	e.OwnerID = ownerID
	return e
}

type PhoneNumber struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	Number        string `validate:"required,max=30"`
	Carrier       string `validate:"max=50"`
	NumberType    string `validate:"omitempty,oneof=Home Work Mobile"`
	IsContactable bool
	IsPreferred   bool
}

func (n PhoneNumber) Identity() uuid.UUID { return n.ID }

func (n PhoneNumber) Equal(other PhoneNumber) bool {
	return n == other
}

func (n PhoneNumber) Adopt(id, ownerID uuid.UUID) PhoneNumber {
	n.ID = id
	n.OwnerID = ownerID
	return n
}

type PhysicalAddress struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	StreetNumber  string `validate:"max=30"`
	Route         string `validate:"max=100"`
	City          string `validate:"max=100"`
	State         string `validate:"max=50"`
	ZipCode       string `validate:"max=10"`
	IsHomeAddress bool
}

func (a PhysicalAddress) Identity() uuid.UUID { return a.ID }

func (a PhysicalAddress) Equal(other PhysicalAddress) bool {
	return a == other
}

func (a PhysicalAddress) Adopt(id, ownerID uuid.UUID) PhysicalAddress {
	a.ID = id
	a.OwnerID = ownerID
	return a
}
