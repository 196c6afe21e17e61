package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborworks/crewdb/modules/person/domain/aggregates/person"
	"github.com/harborworks/crewdb/modules/person/domain/entities/change"
	"github.com/harborworks/crewdb/modules/person/domain/value_objects/capability"
	"github.com/harborworks/crewdb/modules/person/infrastructure/capabilities"
	"github.com/harborworks/crewdb/modules/person/infrastructure/persistence/memory"
	"github.com/harborworks/crewdb/modules/person/permissions"
	"github.com/harborworks/crewdb/modules/person/services"
	"github.com/harborworks/crewdb/modules/person/validators"
	"github.com/harborworks/crewdb/pkg/eventbus"
	"github.com/harborworks/crewdb/pkg/serrors"
)

type personFixture struct {
	store   *memory.Store
	clock   *clockwork.FakeClock
	caps    *capabilities.StaticProvider
	locks   *services.LockService
	changes *services.ChangeService
	bus     eventbus.EventBus
	svc     *services.PersonService
}

func newPersonFixture(t *testing.T) *personFixture {
	t.Helper()
	store := memory.NewStore()
	clock := clockwork.NewFakeClock()
	caps := capabilities.NewStaticProvider(fullAccess())
	locks := services.NewLockService(store.Locks(), store.Persons(), caps, clock, time.Hour)
	changes := services.NewChangeService(store.Changes())
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	bus := eventbus.NewEventPublisher(log)
	return &personFixture{
		store:   store,
		clock:   clock,
		caps:    caps,
		locks:   locks,
		changes: changes,
		bus:     bus,
		svc: services.NewPersonService(
			store.Persons(), locks, caps,
			validators.NewPersonValidator(), changes,
			store.Transactor(), bus,
		),
	}
}

func (f *personFixture) seed(t *testing.T) *person.Person {
	t.Helper()
	p := &person.Person{
		ID:        uuid.New(),
		FirstName: "Daniel",
		LastName:  "Atwood",
		Rate:      "CTI2",
		Division:  "N31",
		EmailAddresses: []person.EmailAddress{
			{ID: uuid.New(), Address: "daniel@example.com", IsPreferred: true},
		},
	}
	p.EmailAddresses[0].OwnerID = p.ID
	require.NoError(t, f.store.Persons().Create(context.Background(), p))
	return p
}

func (f *personFixture) lock(t *testing.T, editorID, subjectID uuid.UUID) {
	t.Helper()
	_, err := f.locks.Acquire(context.Background(), editorID, subjectID)
	require.NoError(t, err)
}

func TestPersonService_Update(t *testing.T) {
	t.Parallel()

	f := newPersonFixture(t)
	stored := f.seed(t)
	editorID := uuid.New()
	ctx := context.Background()
	f.lock(t, editorID, stored.ID)

	submitted := stored.Clone()
	submitted.FirstName = "Dan"
	submitted.Division = "N32"
	submitted.EmailAddresses = append(submitted.EmailAddresses, person.EmailAddress{
		Address: "personal@example.com",
	})

	result, err := f.svc.Update(ctx, editorID, submitted)
	require.NoError(t, err)
	assert.Equal(t, []string{"FirstName", "Division", "EmailAddresses"}, result.Applied)
	assert.Empty(t, result.Rejected)

	got, err := f.svc.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dan", got.FirstName)
	assert.Equal(t, "N32", got.Division)
	require.Len(t, got.EmailAddresses, 2)
	for _, e := range got.EmailAddresses {
		assert.NotEqual(t, uuid.Nil, e.ID)
		assert.Equal(t, stored.ID, e.OwnerID)
	}

	f.changes.Wait()
	assert.Equal(t, 3, f.store.ChangeCount())

	entries, err := f.changes.List(ctx, &change.FindParams{PersonID: stored.ID})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, entry := range entries {
		assert.Equal(t, services.RemarkEdited, entry.Remark)
		assert.Equal(t, editorID, entry.EditorID)
	}
}

func TestPersonService_CreateRecordsChange(t *testing.T) {
	t.Parallel()

	f := newPersonFixture(t)
	editorID := uuid.New()
	ctx := context.Background()

	p := &person.Person{FirstName: "Sara", LastName: "Nguyen", Rate: "YN1"}
	require.NoError(t, f.svc.Create(ctx, editorID, p))
	require.NotEqual(t, uuid.Nil, p.ID)

	f.changes.Wait()
	entries, err := f.changes.List(ctx, &change.FindParams{PersonID: p.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, services.RemarkCreated, entries[0].Remark)
	assert.Equal(t, editorID, entries[0].EditorID)
}

func TestPersonService_View(t *testing.T) {
	t.Parallel()

	f := newPersonFixture(t)
	stored := f.seed(t)
	ctx := context.Background()

	reader := uuid.New()
	f.caps.Grant(reader, capability.NewSet([]string{"FirstName", "LastName"}, nil))

	got, err := f.svc.View(ctx, reader, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Daniel", got.FirstName)
	assert.Equal(t, "Atwood", got.LastName)
	assert.Empty(t, got.Division)
	assert.Empty(t, got.Rate)
	assert.Empty(t, got.EmailAddresses)

	// The stored record is untouched.
	raw, err := f.svc.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "N31", raw.Division)
	assert.Len(t, raw.EmailAddresses, 1)
}

func TestPersonService_UpdateRequiresLock(t *testing.T) {
	t.Parallel()

	f := newPersonFixture(t)
	stored := f.seed(t)

	submitted := stored.Clone()
	submitted.FirstName = "Dan"

	_, err := f.svc.Update(context.Background(), uuid.New(), submitted)
	require.ErrorIs(t, err, services.ErrLockNotHeld)
}

func TestPersonService_UpdateWithExpiredLock(t *testing.T) {
	t.Parallel()

	f := newPersonFixture(t)
	stored := f.seed(t)
	editorID := uuid.New()
	f.lock(t, editorID, stored.ID)
	f.clock.Advance(61 * time.Minute)

	submitted := stored.Clone()
	submitted.FirstName = "Dan"

	_, err := f.svc.Update(context.Background(), editorID, submitted)
	require.ErrorIs(t, err, services.ErrLockNotHeld)
}

func TestPersonService_CapabilityFilter(t *testing.T) {
	t.Parallel()

	f := newPersonFixture(t)
	stored := f.seed(t)
	ctx := context.Background()

	// A member may edit their contact details but not identity fields.
	member := uuid.New()
	f.caps.Grant(member, capability.NewSet(
		append([]string{"FirstName", "Division"}, permissions.ContactFields...),
		permissions.ContactFields,
	))
	f.lock(t, member, stored.ID)

	submitted := stored.Clone()
	submitted.FirstName = "Dan"
	submitted.ContactRemarks = "call after 1600"

	result, err := f.svc.Update(ctx, member, submitted)
	require.NoError(t, err)
	assert.Equal(t, []string{"ContactRemarks"}, result.Applied)
	assert.Equal(t, []string{"FirstName"}, result.Rejected)

	got, err := f.svc.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Daniel", got.FirstName)
	assert.Equal(t, "call after 1600", got.ContactRemarks)

	// Dropped fields are not recorded as changes.
	f.changes.Wait()
	assert.Equal(t, 1, f.store.ChangeCount())
}

func TestPersonService_ReservedFieldTampering(t *testing.T) {
	t.Parallel()

	f := newPersonFixture(t)
	stored := f.seed(t)
	editorID := uuid.New()
	f.lock(t, editorID, stored.ID)

	submitted := stored.Clone()
	submitted.AccountHistory = []person.AccountEvent{
		{ID: uuid.New(), OwnerID: stored.ID, EventType: "Login"},
	}

	_, err := f.svc.Update(context.Background(), editorID, submitted)
	var fieldsErr *serrors.FieldsError
	require.ErrorAs(t, err, &fieldsErr)
	assert.Equal(t, "PERSON_AUTHORIZATION", fieldsErr.Code)
	assert.Equal(t, []string{"AccountHistory"}, fieldsErr.Fields)
}

func TestPersonService_OmittedAccountHistory(t *testing.T) {
	t.Parallel()

	f := newPersonFixture(t)
	stored := f.seed(t)
	editorID := uuid.New()
	f.lock(t, editorID, stored.ID)

	submitted := stored.Clone()
	submitted.AccountHistory = nil
	submitted.Title = "Petty Officer"

	result, err := f.svc.Update(context.Background(), editorID, submitted)
	require.NoError(t, err)
	assert.Equal(t, []string{"Title"}, result.Applied)
}

func TestPersonService_Validation(t *testing.T) {
	t.Parallel()

	f := newPersonFixture(t)
	stored := f.seed(t)
	editorID := uuid.New()
	ctx := context.Background()
	f.lock(t, editorID, stored.ID)

	submitted := stored.Clone()
	submitted.LastName = ""
	submitted.EmailAddresses = append(submitted.EmailAddresses, person.EmailAddress{
		Address: "not-an-email",
	})

	_, err := f.svc.Update(ctx, editorID, submitted)
	var fieldsErr *serrors.FieldsError
	require.ErrorAs(t, err, &fieldsErr)
	assert.Equal(t, "PERSON_VALIDATION", fieldsErr.Code)
	assert.ElementsMatch(t, []string{"LastName", "EmailAddresses"}, fieldsErr.Fields)

	// Nothing was written.
	got, err := f.svc.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Atwood", got.LastName)
	assert.Len(t, got.EmailAddresses, 1)
}

func TestPersonService_UpdateIsAtomic(t *testing.T) {
	t.Parallel()

	f := newPersonFixture(t)
	stored := f.seed(t)
	editorID := uuid.New()
	ctx := context.Background()
	f.lock(t, editorID, stored.ID)

	f.store.FailWith("AddEmailAddress", errors.New("disk full"))

	submitted := stored.Clone()
	submitted.FirstName = "Dan"
	submitted.EmailAddresses = append(submitted.EmailAddresses, person.EmailAddress{
		Address: "personal@example.com",
	})

	_, err := f.svc.Update(ctx, editorID, submitted)
	require.Error(t, err)

	// The scalar write in the same transaction was rolled back.
	got, err := f.svc.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Daniel", got.FirstName)
	assert.Len(t, got.EmailAddresses, 1)

	f.changes.Wait()
	assert.Zero(t, f.store.ChangeCount())
}

func TestPersonService_InconsistentRowCount(t *testing.T) {
	t.Parallel()

	f := newPersonFixture(t)
	stored := f.seed(t)
	editorID := uuid.New()
	ctx := context.Background()
	f.lock(t, editorID, stored.ID)

	f.store.FailWith("ApplyScalarVariancesRows", errors.New("row drift"))

	submitted := stored.Clone()
	submitted.FirstName = "Dan"

	_, err := f.svc.Update(ctx, editorID, submitted)
	require.ErrorIs(t, err, services.ErrInconsistent)

	got, err := f.svc.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Daniel", got.FirstName)
}

func TestPersonService_NoChanges(t *testing.T) {
	t.Parallel()

	f := newPersonFixture(t)
	stored := f.seed(t)
	editorID := uuid.New()
	f.lock(t, editorID, stored.ID)

	result, err := f.svc.Update(context.Background(), editorID, stored.Clone())
	require.NoError(t, err)
	assert.Empty(t, result.Applied)
	assert.Empty(t, result.Rejected)

	f.changes.Wait()
	assert.Zero(t, f.store.ChangeCount())
}

func TestPersonService_PublishesUpdatedEvent(t *testing.T) {
	t.Parallel()

	f := newPersonFixture(t)
	stored := f.seed(t)
	editorID := uuid.New()
	f.lock(t, editorID, stored.ID)

	events := make(chan person.UpdatedEvent, 1)
	f.bus.Subscribe(func(e person.UpdatedEvent) {
		events <- e
	})

	submitted := stored.Clone()
	submitted.Command = "NIOC"
	_, err := f.svc.Update(context.Background(), editorID, submitted)
	require.NoError(t, err)

	select {
	case e := <-events:
		assert.Equal(t, stored.ID, e.PersonID)
		assert.Equal(t, editorID, e.EditorID)
		assert.Equal(t, []string{"Command"}, person.FieldNames(e.Applied))
	default:
		t.Fatal("expected an update event")
	}
}

func TestPersonService_NotFound(t *testing.T) {
	t.Parallel()

	f := newPersonFixture(t)
	_, err := f.svc.GetByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, services.ErrPersonNotFound)
}
