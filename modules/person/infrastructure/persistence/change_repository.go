package persistence

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/harborworks/crewdb/modules/person/domain/entities/change"
	"github.com/harborworks/crewdb/pkg/composables"
	"github.com/harborworks/crewdb/pkg/repo"
)

const (
	insertChangeQuery = `
		INSERT INTO changes (id, editor_id, person_id, object_name, field, old_value, new_value, remark, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	listChangesQuery = `
		SELECT id, editor_id, person_id, object_name, field, old_value, new_value, remark, created_at
		FROM changes
		WHERE person_id = $1
		ORDER BY created_at DESC, id`
)

type PgChangeRepository struct{}

func NewChangeRepository() change.Repository {
	return &PgChangeRepository{}
}

func (r *PgChangeRepository) Create(ctx context.Context, changes []*change.Change) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	for _, c := range changes {
		if _, err := tx.Exec(ctx, insertChangeQuery,
			c.ID, c.EditorID, c.PersonID, c.ObjectName, c.Field,
			c.Old, c.New, c.Remark, c.CreatedAt,
		); err != nil {
			return errors.Wrap(err, "failed to insert change entry")
		}
	}
	return nil
}

func (r *PgChangeRepository) ListByPerson(ctx context.Context, params *change.FindParams) ([]*change.Change, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	query := listChangesQuery + " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	rows, err := tx.Query(ctx, query, params.PersonID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query changes")
	}
	defer rows.Close()

	var out []*change.Change
	for rows.Next() {
		c := &change.Change{}
		if err := rows.Scan(
			&c.ID, &c.EditorID, &c.PersonID, &c.ObjectName, &c.Field,
			&c.Old, &c.New, &c.Remark, &c.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan change entry")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
