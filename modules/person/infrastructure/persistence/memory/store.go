package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harborworks/crewdb/modules/person/domain/aggregates/person"
	"github.com/harborworks/crewdb/modules/person/domain/entities/change"
	"github.com/harborworks/crewdb/modules/person/domain/entities/profilelock"
	"github.com/harborworks/crewdb/modules/person/services"
)

// Store is a database-free implementation of the person module's
// repositories, used by tests and local tooling. InTx gives it the same
// all-or-nothing write semantics as the SQL store: a failing function
// restores the pre-transaction state.
type Store struct {
	mu       sync.Mutex
	persons  map[uuid.UUID]*person.Person
	locks    map[uuid.UUID]*profilelock.ProfileLock
	changes  []*change.Change
	failures map[string]error
}

func NewStore() *Store {
	return &Store{
		persons:  make(map[uuid.UUID]*person.Person),
		locks:    make(map[uuid.UUID]*profilelock.ProfileLock),
		failures: make(map[string]error),
	}
}

func (s *Store) Persons() person.Repository      { return &personRepository{s} }
func (s *Store) Locks() profilelock.Repository   { return &lockRepository{s} }
func (s *Store) Changes() change.Repository      { return &changeRepository{s} }
func (s *Store) Transactor() services.Transactor { return &transactor{s} }

// FailWith makes the named operation return err until cleared with a
// nil err. Operation names match the repository method names.
func (s *Store) FailWith(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// ChangeCount reports how many change entries have been recorded.
func (s *Store) ChangeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.changes)
}

func (s *Store) fail(op string) error {
	return s.failures[op]
}

type snapshot struct {
	persons map[uuid.UUID]*person.Person
	locks   map[uuid.UUID]*profilelock.ProfileLock
	changes []*change.Change
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		persons: make(map[uuid.UUID]*person.Person, len(s.persons)),
		locks:   make(map[uuid.UUID]*profilelock.ProfileLock, len(s.locks)),
		changes: append([]*change.Change(nil), s.changes...),
	}
	for id, p := range s.persons {
		snap.persons[id] = p.Clone()
	}
	for id, l := range s.locks {
		cp := *l
		snap.locks[id] = &cp
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persons = snap.persons
	s.locks = snap.locks
	s.changes = snap.changes
}

type transactor struct{ store *Store }

func (t *transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

type personRepository struct{ store *Store }

func (r *personRepository) GetByID(ctx context.Context, id uuid.UUID) (*person.Person, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.fail("GetByID"); err != nil {
		return nil, err
	}
	p, ok := r.store.persons[id]
	if !ok {
		return nil, person.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *personRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.fail("Exists"); err != nil {
		return false, err
	}
	_, ok := r.store.persons[id]
	return ok, nil
}

func (r *personRepository) Create(ctx context.Context, p *person.Person) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.fail("Create"); err != nil {
		return err
	}
	stored := p.Clone()
	// Stored records always carry a concrete history list; nil means
	// "omitted" only on submitted records.
	if stored.AccountHistory == nil {
		stored.AccountHistory = []person.AccountEvent{}
	}
	r.store.persons[stored.ID] = stored
	return nil
}

func (r *personRepository) FriendlyName(ctx context.Context, id uuid.UUID) (string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.fail("FriendlyName"); err != nil {
		return "", err
	}
	p, ok := r.store.persons[id]
	if !ok {
		return "", person.ErrNotFound
	}
	return p.FriendlyName(), nil
}

func (r *personRepository) ApplyScalarVariances(ctx context.Context, id uuid.UUID, variances []person.Variance) (int, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.fail("ApplyScalarVariances"); err != nil {
		return 0, 0, err
	}
	p, ok := r.store.persons[id]
	if !ok {
		return 0, 0, person.ErrNotFound
	}
	tables := make(map[string]struct{})
	for _, v := range variances {
		f, found := person.FieldByName(v.Field)
		if !found {
			continue
		}
		f.SetScalar(p, v.New)
		tables[f.Table] = struct{}{}
	}
	rows := int64(len(tables))
	if extra := r.store.fail("ApplyScalarVariancesRows"); extra != nil {
		// Simulates a grouped UPDATE matching the wrong number of rows.
		rows++
	}
	return len(tables), rows, nil
}

func (r *personRepository) AddEmailAddress(ctx context.Context, e person.EmailAddress) error {
	return withPerson(r.store, "AddEmailAddress", e.OwnerID, func(p *person.Person) {
		p.EmailAddresses = append(p.EmailAddresses, e)
	})
}

func (r *personRepository) UpdateEmailAddress(ctx context.Context, e person.EmailAddress) error {
	return withPerson(r.store, "UpdateEmailAddress", e.OwnerID, func(p *person.Person) {
		for i := range p.EmailAddresses {
			if p.EmailAddresses[i].ID == e.ID {
				p.EmailAddresses[i] = e
				return
			}
		}
	})
}

func (r *personRepository) DeleteEmailAddress(ctx context.Context, id uuid.UUID) error {
	return eachPerson(r.store, "DeleteEmailAddress", func(p *person.Person) {
		for i := range p.EmailAddresses {
			if p.EmailAddresses[i].ID == id {
				p.EmailAddresses = append(p.EmailAddresses[:i], p.EmailAddresses[i+1:]...)
				return
			}
		}
	})
}

func (r *personRepository) AddPhoneNumber(ctx context.Context, n person.PhoneNumber) error {
	return withPerson(r.store, "AddPhoneNumber", n.OwnerID, func(p *person.Person) {
		p.PhoneNumbers = append(p.PhoneNumbers, n)
	})
}

func (r *personRepository) UpdatePhoneNumber(ctx context.Context, n person.PhoneNumber) error {
	return withPerson(r.store, "UpdatePhoneNumber", n.OwnerID, func(p *person.Person) {
		for i := range p.PhoneNumbers {
			if p.PhoneNumbers[i].ID == n.ID {
				p.PhoneNumbers[i] = n
				return
			}
		}
	})
}

func (r *personRepository) DeletePhoneNumber(ctx context.Context, id uuid.UUID) error {
	return eachPerson(r.store, "DeletePhoneNumber", func(p *person.Person) {
		for i := range p.PhoneNumbers {
			if p.PhoneNumbers[i].ID == id {
				p.PhoneNumbers = append(p.PhoneNumbers[:i], p.PhoneNumbers[i+1:]...)
				return
			}
		}
	})
}

func (r *personRepository) AddPhysicalAddress(ctx context.Context, a person.PhysicalAddress) error {
	return withPerson(r.store, "AddPhysicalAddress", a.OwnerID, func(p *person.Person) {
		p.PhysicalAddresses = append(p.PhysicalAddresses, a)
	})
}

func (r *personRepository) UpdatePhysicalAddress(ctx context.Context, a person.PhysicalAddress) error {
	return withPerson(r.store, "UpdatePhysicalAddress", a.OwnerID, func(p *person.Person) {
		for i := range p.PhysicalAddresses {
			if p.PhysicalAddresses[i].ID == a.ID {
				p.PhysicalAddresses[i] = a
				return
			}
		}
	})
}

func (r *personRepository) DeletePhysicalAddress(ctx context.Context, id uuid.UUID) error {
	return eachPerson(r.store, "DeletePhysicalAddress", func(p *person.Person) {
		for i := range p.PhysicalAddresses {
			if p.PhysicalAddresses[i].ID == id {
				p.PhysicalAddresses = append(p.PhysicalAddresses[:i], p.PhysicalAddresses[i+1:]...)
				return
			}
		}
	})
}

func withPerson(s *Store, op string, id uuid.UUID, fn func(*person.Person)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(op); err != nil {
		return err
	}
	p, ok := s.persons[id]
	if !ok {
		return person.ErrNotFound
	}
	fn(p)
	return nil
}

func eachPerson(s *Store, op string, fn func(*person.Person)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(op); err != nil {
		return err
	}
	for _, p := range s.persons {
		fn(p)
	}
	return nil
}

type lockRepository struct{ store *Store }

func (r *lockRepository) GetBySubject(ctx context.Context, subjectID uuid.UUID) (*profilelock.ProfileLock, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.fail("GetBySubject"); err != nil {
		return nil, err
	}
	for _, l := range r.store.locks {
		if l.SubjectID == subjectID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, profilelock.ErrNotFound
}

func (r *lockRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*profilelock.ProfileLock, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.fail("GetByOwner"); err != nil {
		return nil, err
	}
	for _, l := range r.store.locks {
		if l.OwnerID == ownerID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, profilelock.ErrNotFound
}

func (r *lockRepository) TryInsert(ctx context.Context, lock *profilelock.ProfileLock) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.fail("TryInsert"); err != nil {
		return false, err
	}
	for _, l := range r.store.locks {
		if l.SubjectID == lock.SubjectID || l.OwnerID == lock.OwnerID {
			return false, nil
		}
	}
	cp := *lock
	r.store.locks[cp.ID] = &cp
	return true, nil
}

func (r *lockRepository) Refresh(ctx context.Context, id uuid.UUID, acquiredAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.fail("Refresh"); err != nil {
		return err
	}
	l, ok := r.store.locks[id]
	if !ok {
		return profilelock.ErrNotFound
	}
	l.AcquiredAt = acquiredAt
	return nil
}

func (r *lockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.fail("Delete"); err != nil {
		return err
	}
	delete(r.store.locks, id)
	return nil
}

func (r *lockRepository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.fail("DeleteByOwner"); err != nil {
		return err
	}
	for id, l := range r.store.locks {
		if l.OwnerID == ownerID {
			delete(r.store.locks, id)
		}
	}
	return nil
}

type changeRepository struct{ store *Store }

func (r *changeRepository) Create(ctx context.Context, changes []*change.Change) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.fail("CreateChanges"); err != nil {
		return err
	}
	for _, c := range changes {
		cp := *c
		r.store.changes = append(r.store.changes, &cp)
	}
	return nil
}

func (r *changeRepository) ListByPerson(ctx context.Context, params *change.FindParams) ([]*change.Change, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.fail("ListByPerson"); err != nil {
		return nil, err
	}
	var out []*change.Change
	for i := len(r.store.changes) - 1; i >= 0; i-- {
		c := r.store.changes[i]
		if c.PersonID == params.PersonID {
			cp := *c
			out = append(out, &cp)
		}
	}
	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return nil, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && params.Limit < len(out) {
		out = out[:params.Limit]
	}
	return out, nil
}
