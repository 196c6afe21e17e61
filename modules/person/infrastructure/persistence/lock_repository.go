package persistence

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/harborworks/crewdb/modules/person/domain/entities/profilelock"
	"github.com/harborworks/crewdb/pkg/composables"
)

const (
	selectLockBySubjectQuery = `SELECT id, owner_id, subject_id, acquired_at FROM profile_locks WHERE subject_id = $1`
	selectLockByOwnerQuery   = `SELECT id, owner_id, subject_id, acquired_at FROM profile_locks WHERE owner_id = $1`
	// The unique indexes on subject_id and owner_id make this the atomic
	// acquire primitive: concurrent inserts for the same subject commit
	// exactly one row.
	insertLockQuery      = `INSERT INTO profile_locks (id, owner_id, subject_id, acquired_at) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`
	refreshLockQuery     = `UPDATE profile_locks SET acquired_at = $2 WHERE id = $1`
	deleteLockQuery      = `DELETE FROM profile_locks WHERE id = $1`
	deleteByOwnerQuery   = `DELETE FROM profile_locks WHERE owner_id = $1`
)

type PgLockRepository struct{}

func NewLockRepository() profilelock.Repository {
	return &PgLockRepository{}
}

func (r *PgLockRepository) GetBySubject(ctx context.Context, subjectID uuid.UUID) (*profilelock.ProfileLock, error) {
	return r.queryOne(ctx, selectLockBySubjectQuery, subjectID)
}

func (r *PgLockRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*profilelock.ProfileLock, error) {
	return r.queryOne(ctx, selectLockByOwnerQuery, ownerID)
}

func (r *PgLockRepository) TryInsert(ctx context.Context, lock *profilelock.ProfileLock) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, insertLockQuery, lock.ID, lock.OwnerID, lock.SubjectID, lock.AcquiredAt)
	if err != nil {
		return false, errors.Wrap(err, "failed to insert profile lock")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgLockRepository) Refresh(ctx context.Context, id uuid.UUID, acquiredAt time.Time) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, refreshLockQuery, id, acquiredAt)
	if err != nil {
		return errors.Wrap(err, "failed to refresh profile lock")
	}
	if tag.RowsAffected() == 0 {
		return profilelock.ErrNotFound
	}
	return nil
}

func (r *PgLockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, deleteLockQuery, id)
	return errors.Wrap(err, "failed to delete profile lock")
}

func (r *PgLockRepository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, deleteByOwnerQuery, ownerID)
	return errors.Wrap(err, "failed to delete owner's profile locks")
}

func (r *PgLockRepository) queryOne(ctx context.Context, query string, arg any) (*profilelock.ProfileLock, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	lock := &profilelock.ProfileLock{}
	err = tx.QueryRow(ctx, query, arg).Scan(&lock.ID, &lock.OwnerID, &lock.SubjectID, &lock.AcquiredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, profilelock.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query profile lock")
	}
	return lock, nil
}
