package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/harborworks/crewdb/modules/person/domain/aggregates/person"
	"github.com/harborworks/crewdb/modules/person/domain/entities/profilelock"
	"github.com/harborworks/crewdb/modules/person/domain/value_objects/capability"
	"github.com/harborworks/crewdb/pkg/composables"
	"github.com/harborworks/crewdb/pkg/metrics"
)

// anonymousOwner is shown when the lock owner's display name cannot be
// resolved.
const anonymousOwner = "another user"

// LockInfo is the display form of a lock returned to clients.
type LockInfo struct {
	Lock      *profilelock.ProfileLock
	OwnerName string
	ExpiresAt time.Time
}

// LockService implements the profile-lock protocol: exclusive edit
// rights per record, one lock per owner, takeover of aged-out locks.
type LockService struct {
	locks   profilelock.Repository
	persons person.Repository
	caps    capability.Provider
	clock   clockwork.Clock
	maxAge  time.Duration
}

func NewLockService(
	locks profilelock.Repository,
	persons person.Repository,
	caps capability.Provider,
	clock clockwork.Clock,
	maxAge time.Duration,
) *LockService {
	return &LockService{
		locks:   locks,
		persons: persons,
		caps:    caps,
		clock:   clock,
		maxAge:  maxAge,
	}
}

// MaxAge is the configured lock lifetime.
func (s *LockService) MaxAge() time.Duration { return s.maxAge }

// Acquire grants the editor the lock on the subject record. Holding the
// lock already refreshes it. A live lock held by someone else fails with
// LockOwnedError; an expired one is taken over. Acquiring releases any
// lock the editor holds elsewhere.
func (s *LockService) Acquire(ctx context.Context, editorID, subjectID uuid.UUID) (*profilelock.ProfileLock, error) {
	exists, err := s.persons.Exists(ctx, subjectID)
	if err != nil {
		return nil, s.countErr(err)
	}
	if !exists {
		metrics.LockAcquireTotal.WithLabelValues("impossible").Inc()
		return nil, ErrPersonNotFound
	}

	caps, err := s.caps.Capabilities(ctx, editorID, person.ObjectName)
	if err != nil {
		return nil, s.countErr(err)
	}
	if !caps.CanEditAnything() {
		metrics.LockAcquireTotal.WithLabelValues("impossible").Inc()
		return nil, &LockImpossibleError{Reason: "editor has no editable fields on this record type"}
	}

	// One lock per owner: drop any lock held on another record first.
	if own, err := s.locks.GetByOwner(ctx, editorID); err == nil && own.SubjectID != subjectID {
		if err := s.locks.DeleteByOwner(ctx, editorID); err != nil {
			return nil, s.countErr(err)
		}
	} else if err != nil && !errors.Is(err, profilelock.ErrNotFound) {
		return nil, s.countErr(err)
	}

	// Two attempts: the retry covers losing the insert race to a lock
	// that itself disappears before we re-fetch it.
	for attempt := 0; attempt < 2; attempt++ {
		existing, err := s.locks.GetBySubject(ctx, subjectID)
		switch {
		case err == nil:
			if existing.OwnerID == editorID {
				if err := s.locks.Refresh(ctx, existing.ID, s.clock.Now()); err != nil {
					return nil, s.countErr(err)
				}
				existing.AcquiredAt = s.clock.Now()
				metrics.LockAcquireTotal.WithLabelValues("refreshed").Inc()
				return existing, nil
			}
			if existing.Live(s.clock.Now(), s.maxAge) {
				metrics.LockAcquireTotal.WithLabelValues("owned").Inc()
				return nil, s.ownedError(ctx, existing.OwnerID)
			}
			if err := s.locks.Delete(ctx, existing.ID); err != nil {
				return nil, s.countErr(err)
			}
			metrics.LockForcedTakeoverTotal.Inc()
		case !errors.Is(err, profilelock.ErrNotFound):
			return nil, s.countErr(err)
		}

		lock := &profilelock.ProfileLock{
			ID:         uuid.New(),
			OwnerID:    editorID,
			SubjectID:  subjectID,
			AcquiredAt: s.clock.Now(),
		}
		inserted, err := s.locks.TryInsert(ctx, lock)
		if err != nil {
			return nil, s.countErr(err)
		}
		if inserted {
			metrics.LockAcquireTotal.WithLabelValues("acquired").Inc()
			return lock, nil
		}

		// Lost the race. If a foreign lock now covers the subject,
		// report its owner; otherwise loop once more.
		if winner, err := s.locks.GetBySubject(ctx, subjectID); err == nil && winner.OwnerID != editorID {
			metrics.LockAcquireTotal.WithLabelValues("owned").Inc()
			return nil, s.ownedError(ctx, winner.OwnerID)
		}
	}

	metrics.LockAcquireTotal.WithLabelValues("error").Inc()
	return nil, errors.New("failed to acquire profile lock after retry")
}

// Refresh resets the lifetime of the editor's lock on the subject
// record. Used as a keep-alive by long-running edit sessions.
func (s *LockService) Refresh(ctx context.Context, editorID, subjectID uuid.UUID) (*profilelock.ProfileLock, error) {
	lock, err := s.locks.GetBySubject(ctx, subjectID)
	if errors.Is(err, profilelock.ErrNotFound) {
		return nil, ErrLockNotHeld
	}
	if err != nil {
		return nil, err
	}
	if lock.OwnerID != editorID {
		return nil, ErrLockNotHeld
	}
	if err := s.locks.Refresh(ctx, lock.ID, s.clock.Now()); err != nil {
		return nil, err
	}
	lock.AcquiredAt = s.clock.Now()
	return lock, nil
}

// ReleaseOwn drops whatever lock the editor currently holds. Releasing
// when holding nothing succeeds.
func (s *LockService) ReleaseOwn(ctx context.Context, editorID uuid.UUID) error {
	return s.locks.DeleteByOwner(ctx, editorID)
}

// ReleaseBySubject drops the lock on the given record. Only the owner
// may release a live lock this way; expired locks may be cleared by
// anyone, and a missing lock is a success.
func (s *LockService) ReleaseBySubject(ctx context.Context, editorID, subjectID uuid.UUID) error {
	lock, err := s.locks.GetBySubject(ctx, subjectID)
	if errors.Is(err, profilelock.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if lock.OwnerID != editorID && lock.Live(s.clock.Now(), s.maxAge) {
		return ErrLockForbidden
	}
	return s.locks.Delete(ctx, lock.ID)
}

// RequireLock verifies the editor holds a live lock on the subject and
// returns it. Every profile edit passes through here first.
func (s *LockService) RequireLock(ctx context.Context, editorID, subjectID uuid.UUID) (*profilelock.ProfileLock, error) {
	lock, err := s.locks.GetBySubject(ctx, subjectID)
	if errors.Is(err, profilelock.ErrNotFound) {
		return nil, ErrLockNotHeld
	}
	if err != nil {
		return nil, err
	}
	if lock.OwnerID != editorID || !lock.Live(s.clock.Now(), s.maxAge) {
		return nil, ErrLockNotHeld
	}
	return lock, nil
}

// Get returns the lock on a record together with its owner's display
// name, or profilelock.ErrNotFound when the record is unlocked.
func (s *LockService) Get(ctx context.Context, subjectID uuid.UUID) (*LockInfo, error) {
	lock, err := s.locks.GetBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return &LockInfo{
		Lock:      lock,
		OwnerName: s.ownerName(ctx, lock.OwnerID),
		ExpiresAt: lock.AcquiredAt.Add(s.maxAge),
	}, nil
}

func (s *LockService) ownedError(ctx context.Context, ownerID uuid.UUID) error {
	return &LockOwnedError{OwnerID: ownerID, OwnerName: s.ownerName(ctx, ownerID)}
}

func (s *LockService) ownerName(ctx context.Context, ownerID uuid.UUID) string {
	name, err := s.persons.FriendlyName(ctx, ownerID)
	if err != nil || name == "" {
		composables.UseLogger(ctx).WithField("owner_id", ownerID).
			Debug("lock owner has no resolvable display name")
		return anonymousOwner
	}
	return name
}

func (s *LockService) countErr(err error) error {
	metrics.LockAcquireTotal.WithLabelValues("error").Inc()
	return err
}
