package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/harborworks/crewdb/modules/person/domain/aggregates/person"
	"github.com/harborworks/crewdb/modules/person/domain/value_objects/capability"
	"github.com/harborworks/crewdb/pkg/composables"
	"github.com/harborworks/crewdb/pkg/eventbus"
	"github.com/harborworks/crewdb/pkg/metrics"
)

// UpdateResult reports the outcome of a profile update: which fields
// were written and which the capability filter dropped.
type UpdateResult struct {
	Applied  []string
	Rejected []string
}

// PersonService owns the profile update engine: diff the submitted
// record against the stored one, drop what the editor may not touch,
// validate the rest, and apply everything atomically.
type PersonService struct {
	persons    person.Repository
	locks      *LockService
	caps       capability.Provider
	validator  person.Validator
	changes    *ChangeService
	transactor Transactor
	publisher  eventbus.EventBus
}

func NewPersonService(
	persons person.Repository,
	locks *LockService,
	caps capability.Provider,
	validator person.Validator,
	changes *ChangeService,
	transactor Transactor,
	publisher eventbus.EventBus,
) *PersonService {
	return &PersonService{
		persons:    persons,
		locks:      locks,
		caps:       caps,
		validator:  validator,
		changes:    changes,
		transactor: transactor,
		publisher:  publisher,
	}
}

func (s *PersonService) GetByID(ctx context.Context, id uuid.UUID) (*person.Person, error) {
	p, err := s.persons.GetByID(ctx, id)
	if errors.Is(err, person.ErrNotFound) {
		return nil, ErrPersonNotFound
	}
	return p, err
}

func (s *PersonService) Create(ctx context.Context, editorID uuid.UUID, p *person.Person) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if err := s.transactor.InTx(ctx, func(txCtx context.Context) error {
		return s.persons.Create(txCtx, p)
	}); err != nil {
		return err
	}
	s.changes.RecordCreation(ctx, editorID, p.ID)
	return nil
}

// View returns a record as the reader may see it: fields outside the
// reader's read capability are blanked before leaving the service.
func (s *PersonService) View(ctx context.Context, readerID, id uuid.UUID) (*person.Person, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	caps, err := s.caps.Capabilities(ctx, readerID, person.ObjectName)
	if err != nil {
		return nil, err
	}
	return person.RedactByCapability(p, caps), nil
}

// Update applies the submitted version of a record. The editor must hold
// a live profile lock on it. Changes to fields outside the editor's
// capabilities are silently dropped and reported back; changes to
// reserved fields fail the whole request. Everything that survives is
// validated and then written in one transaction.
func (s *PersonService) Update(ctx context.Context, editorID uuid.UUID, submitted *person.Person) (*UpdateResult, error) {
	if _, err := s.locks.RequireLock(ctx, editorID, submitted.ID); err != nil {
		return nil, err
	}

	stored, err := s.persons.GetByID(ctx, submitted.ID)
	if errors.Is(err, person.ErrNotFound) {
		return nil, ErrPersonNotFound
	}
	if err != nil {
		return nil, err
	}

	variances, err := person.Diff(stored, submitted)
	if err != nil {
		return nil, err
	}

	if reserved := reservedFields(variances); len(reserved) > 0 {
		return nil, NewAuthorizationError(reserved)
	}

	caps, err := s.caps.Capabilities(ctx, editorID, person.ObjectName)
	if err != nil {
		return nil, err
	}
	allowed, rejected := person.FilterByCapability(variances, caps)

	var invalid []string
	for _, v := range allowed {
		if err := s.validator.ValidateVariance(ctx, v); err != nil {
			composables.UseLogger(ctx).WithError(err).
				WithField("field", v.Field).
				Debug("submitted value rejected")
			invalid = append(invalid, v.Field)
		}
	}
	if len(invalid) > 0 {
		return nil, NewValidationError(invalid)
	}

	if len(allowed) > 0 {
		if err := s.transactor.InTx(ctx, func(txCtx context.Context) error {
			return s.apply(txCtx, stored, submitted, allowed)
		}); err != nil {
			return nil, err
		}
	}

	metrics.UpdateVariancesApplied.Add(float64(len(allowed)))
	metrics.UpdateVariancesRejected.Add(float64(len(rejected)))

	s.changes.RecordAsync(ctx, editorID, submitted.ID, allowed)
	s.publisher.Publish(person.UpdatedEvent{
		PersonID: submitted.ID,
		EditorID: editorID,
		Applied:  allowed,
		Rejected: rejected,
	})

	return &UpdateResult{Applied: person.FieldNames(allowed), Rejected: rejected}, nil
}

// apply writes one update's variances inside a transaction. Scalars go
// through one grouped UPDATE per table; collection fields are reconciled
// child by child.
func (s *PersonService) apply(ctx context.Context, stored, submitted *person.Person, allowed []person.Variance) error {
	var scalars []person.Variance
	var collections []person.Variance
	for _, v := range allowed {
		switch v.Kind {
		case person.KindScalar:
			scalars = append(scalars, v)
		case person.KindCollection:
			collections = append(collections, v)
		}
	}

	if len(scalars) > 0 {
		tables, rows, err := s.persons.ApplyScalarVariances(ctx, stored.ID, scalars)
		if err != nil {
			return err
		}
		// Each touched table must update exactly the one row belonging
		// to this record; anything else means the record's table rows
		// are out of sync and the transaction must not commit.
		if rows != int64(tables) {
			return ErrInconsistent
		}
	}

	for _, v := range collections {
		f, ok := person.FieldByName(v.Field)
		if !ok {
			return ErrInconsistent
		}
		if _, err := f.ApplyChildren(ctx, s.persons, stored, submitted, uuid.New); err != nil {
			return err
		}
	}
	return nil
}

func reservedFields(variances []person.Variance) []string {
	var reserved []string
	for _, v := range variances {
		if f, ok := person.FieldByName(v.Field); ok && f.Reserved {
			reserved = append(reserved, v.Field)
		}
	}
	return reserved
}
