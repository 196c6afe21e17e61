package person

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("person not found")

// Repository is the authoritative store for Person records. All write
// operations participate in the transaction carried by ctx.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Person, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Create(ctx context.Context, p *Person) error
	// FriendlyName resolves a record ID to its display name.
	FriendlyName(ctx context.Context, id uuid.UUID) (string, error)

	// ApplyScalarVariances groups the given scalar variances by storage
	// table and issues one UPDATE per table touching only the changed
	// columns, filtered by record ID. It returns the number of distinct
	// tables touched and the total rows affected; callers compare the
	// two to detect partial application.
	ApplyScalarVariances(ctx context.Context, id uuid.UUID, variances []Variance) (tables int, rows int64, err error)

	AddEmailAddress(ctx context.Context, e EmailAddress) error
	UpdateEmailAddress(ctx context.Context, e EmailAddress) error
	DeleteEmailAddress(ctx context.Context, id uuid.UUID) error

	AddPhoneNumber(ctx context.Context, n PhoneNumber) error
	UpdatePhoneNumber(ctx context.Context, n PhoneNumber) error
	DeletePhoneNumber(ctx context.Context, id uuid.UUID) error

	AddPhysicalAddress(ctx context.Context, a PhysicalAddress) error
	UpdatePhysicalAddress(ctx context.Context, a PhysicalAddress) error
	DeletePhysicalAddress(ctx context.Context, id uuid.UUID) error
}

// Validator is the per-field format oracle consulted before any write.
type Validator interface {
	// ValidateVariance checks the new value of a single authorized
	// variance and returns a descriptive error when unacceptable.
	ValidateVariance(ctx context.Context, v Variance) error
}
