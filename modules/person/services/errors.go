package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/harborworks/crewdb/pkg/serrors"
)

var (
	// ErrLockNotHeld is returned when an edit is attempted without a live
	// profile lock on the target record.
	ErrLockNotHeld = serrors.NewError(
		"LOCK_NOT_HELD",
		"a profile lock on this record is required",
		"Persons.Errors.LockNotHeld",
	)

	// ErrLockForbidden is returned when releasing a lock held by someone
	// else through the subject-scoped release.
	ErrLockForbidden = serrors.NewError(
		"LOCK_FORBIDDEN",
		"only the lock owner may release it",
		"Persons.Errors.LockForbidden",
	)

	// ErrPersonNotFound is returned when the target record does not exist.
	ErrPersonNotFound = serrors.NewError(
		"PERSON_NOT_FOUND",
		"person not found",
		"Persons.Errors.NotFound",
	)

	// ErrInconsistent is returned when a grouped scalar update touches a
	// different number of rows than tables; the transaction is rolled
	// back rather than leaving a record partially written.
	ErrInconsistent = serrors.NewError(
		"PERSON_INCONSISTENT",
		"update touched an unexpected number of rows",
		"Persons.Errors.Inconsistent",
	)
)

// LockOwnedError reports that a live lock held by a different editor
// blocks the operation. OwnerName is a display name, never an ID.
type LockOwnedError struct {
	OwnerID   uuid.UUID
	OwnerName string
}

func (e *LockOwnedError) Error() string {
	return fmt.Sprintf("record is locked for editing by %s", e.OwnerName)
}

// LockImpossibleError reports that the editor can never acquire the
// lock, e.g. when they hold no write capability at all.
type LockImpossibleError struct {
	Reason string
}

func (e *LockImpossibleError) Error() string {
	return "cannot acquire profile lock: " + e.Reason
}

// NewAuthorizationError enumerates reserved fields an editor tried to
// change.
func NewAuthorizationError(fields []string) *serrors.FieldsError {
	return serrors.NewFieldsError(
		"PERSON_AUTHORIZATION",
		"submitted changes to fields that may not be edited",
		fields,
	)
}

// NewValidationError enumerates fields whose submitted values were
// rejected.
func NewValidationError(fields []string) *serrors.FieldsError {
	return serrors.NewFieldsError(
		"PERSON_VALIDATION",
		"submitted values failed validation",
		fields,
	)
}
