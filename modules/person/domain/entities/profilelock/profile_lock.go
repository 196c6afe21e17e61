package profilelock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no lock matches the query.
var ErrNotFound = errors.New("profile lock not found")

// ProfileLock grants its owner exclusive edit rights over one profile
// until released or aged out. At most one lock exists per profile and at
// most one per owner.
type ProfileLock struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	SubjectID  uuid.UUID
	AcquiredAt time.Time
}

// Live reports whether the lock is still valid at the given instant. A
// lock older than maxAge is expired and may be taken over.
func (l *ProfileLock) Live(now time.Time, maxAge time.Duration) bool {
	return now.Sub(l.AcquiredAt) < maxAge
}

// Repository stores profile locks. TryInsert is the atomic check-and-act
// primitive: the whole acquire protocol is built on it racing correctly.
type Repository interface {
	GetBySubject(ctx context.Context, subjectID uuid.UUID) (*ProfileLock, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*ProfileLock, error)
	// TryInsert inserts the lock unless a lock for its subject or its
	// owner already exists, reporting whether the insert happened.
	// Concurrent callers for the same subject see exactly one true.
	TryInsert(ctx context.Context, lock *ProfileLock) (bool, error)
	// Refresh resets the acquisition instant of the given lock.
	Refresh(ctx context.Context, id uuid.UUID, acquiredAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error
}
