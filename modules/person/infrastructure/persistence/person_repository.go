package persistence

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/harborworks/crewdb/modules/person/domain/aggregates/person"
	"github.com/harborworks/crewdb/pkg/composables"
)

const (
	selectPersonQuery = `
		SELECT m.id,
		       m.first_name, m.middle_name, m.last_name, m.rate, m.title, m.date_of_birth, m.remarks,
		       w.division, w.department, w.command, w.supervisor, w.work_remarks,
		       c.contact_remarks
		FROM persons_main m
		JOIN persons_work w ON w.person_id = m.id
		JOIN persons_contact c ON c.person_id = m.id
		WHERE m.id = $1`
	personExistsQuery   = `SELECT EXISTS (SELECT 1 FROM persons_main WHERE id = $1)`
	friendlyNameQuery   = `SELECT rate, last_name, first_name FROM persons_main WHERE id = $1`
	insertPersonMain    = `INSERT INTO persons_main (id, first_name, middle_name, last_name, rate, title, date_of_birth, remarks) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	insertPersonWork    = `INSERT INTO persons_work (person_id, division, department, command, supervisor, work_remarks) VALUES ($1, $2, $3, $4, $5, $6)`
	insertPersonContact = `INSERT INTO persons_contact (person_id, contact_remarks) VALUES ($1, $2)`

	selectEmailsQuery    = `SELECT id, person_id, address, is_contactable, is_preferred FROM email_addresses WHERE person_id = $1 ORDER BY id`
	insertEmailQuery     = `INSERT INTO email_addresses (id, person_id, address, is_contactable, is_preferred) VALUES ($1, $2, $3, $4, $5)`
	updateEmailQuery     = `UPDATE email_addresses SET address = $2, is_contactable = $3, is_preferred = $4 WHERE id = $1`
	deleteEmailQuery     = `DELETE FROM email_addresses WHERE id = $1`
	selectPhonesQuery    = `SELECT id, person_id, number, carrier, number_type, is_contactable, is_preferred FROM phone_numbers WHERE person_id = $1 ORDER BY id`
	insertPhoneQuery     = `INSERT INTO phone_numbers (id, person_id, number, carrier, number_type, is_contactable, is_preferred) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	updatePhoneQuery     = `UPDATE phone_numbers SET number = $2, carrier = $3, number_type = $4, is_contactable = $5, is_preferred = $6 WHERE id = $1`
	deletePhoneQuery     = `DELETE FROM phone_numbers WHERE id = $1`
	selectAddressesQuery = `SELECT id, person_id, street_number, route, city, state, zip_code, is_home_address FROM physical_addresses WHERE person_id = $1 ORDER BY id`
	insertAddressQuery   = `INSERT INTO physical_addresses (id, person_id, street_number, route, city, state, zip_code, is_home_address) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	updateAddressQuery   = `UPDATE physical_addresses SET street_number = $2, route = $3, city = $4, state = $5, zip_code = $6, is_home_address = $7 WHERE id = $1`
	deleteAddressQuery   = `DELETE FROM physical_addresses WHERE id = $1`
	selectHistoryQuery   = `SELECT id, person_id, event_type, occurred_at FROM account_history WHERE person_id = $1 ORDER BY occurred_at`
)

type PgPersonRepository struct{}

func NewPersonRepository() person.Repository {
	return &PgPersonRepository{}
}

func (r *PgPersonRepository) GetByID(ctx context.Context, id uuid.UUID) (*person.Person, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	p := &person.Person{}
	err = tx.QueryRow(ctx, selectPersonQuery, id).Scan(
		&p.ID,
		&p.FirstName, &p.MiddleName, &p.LastName, &p.Rate, &p.Title, &p.DateOfBirth, &p.Remarks,
		&p.Division, &p.Department, &p.Command, &p.Supervisor, &p.WorkRemarks,
		&p.ContactRemarks,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, person.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query person")
	}

	if p.EmailAddresses, err = r.emailAddresses(ctx, id); err != nil {
		return nil, err
	}
	if p.PhoneNumbers, err = r.phoneNumbers(ctx, id); err != nil {
		return nil, err
	}
	if p.PhysicalAddresses, err = r.physicalAddresses(ctx, id); err != nil {
		return nil, err
	}
	if p.AccountHistory, err = r.accountHistory(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PgPersonRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := tx.QueryRow(ctx, personExistsQuery, id).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "failed to check person existence")
	}
	return exists, nil
}

func (r *PgPersonRepository) Create(ctx context.Context, p *person.Person) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, insertPersonMain,
		p.ID, p.FirstName, p.MiddleName, p.LastName, p.Rate, p.Title, p.DateOfBirth, p.Remarks,
	); err != nil {
		return errors.Wrap(err, "failed to insert person")
	}
	if _, err := tx.Exec(ctx, insertPersonWork,
		p.ID, p.Division, p.Department, p.Command, p.Supervisor, p.WorkRemarks,
	); err != nil {
		return errors.Wrap(err, "failed to insert person work record")
	}
	if _, err := tx.Exec(ctx, insertPersonContact, p.ID, p.ContactRemarks); err != nil {
		return errors.Wrap(err, "failed to insert person contact record")
	}
	for _, e := range p.EmailAddresses {
		if err := r.AddEmailAddress(ctx, e); err != nil {
			return err
		}
	}
	for _, n := range p.PhoneNumbers {
		if err := r.AddPhoneNumber(ctx, n); err != nil {
			return err
		}
	}
	for _, a := range p.PhysicalAddresses {
		if err := r.AddPhysicalAddress(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (r *PgPersonRepository) FriendlyName(ctx context.Context, id uuid.UUID) (string, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return "", err
	}
	var p person.Person
	err = tx.QueryRow(ctx, friendlyNameQuery, id).Scan(&p.Rate, &p.LastName, &p.FirstName)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", person.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to query person name")
	}
	return p.FriendlyName(), nil
}

// keyColumn returns the column a scalar table is keyed by.
func keyColumn(table string) string {
	if table == person.TableMain {
		return "id"
	}
	return "person_id"
}

func (r *PgPersonRepository) ApplyScalarVariances(ctx context.Context, id uuid.UUID, variances []person.Variance) (int, int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, 0, err
	}

	byTable := make(map[string][]person.Variance)
	for _, v := range variances {
		f, ok := person.FieldByName(v.Field)
		if !ok || f.Kind != person.KindScalar {
			return 0, 0, errors.Errorf("field %q is not a stored scalar", v.Field)
		}
		byTable[f.Table] = append(byTable[f.Table], v)
	}

	tables := make([]string, 0, len(byTable))
	for t := range byTable {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	var rows int64
	for _, table := range tables {
		group := byTable[table]
		// Column names come from the closed field table, never from
		// client input.
		assignments := make([]string, 0, len(group))
		args := make([]any, 0, len(group)+1)
		args = append(args, id)
		for i, v := range group {
			f, _ := person.FieldByName(v.Field)
			assignments = append(assignments, fmt.Sprintf("%s = $%d", f.Column, i+2))
			args = append(args, v.New)
		}
		query := fmt.Sprintf(
			"UPDATE %s SET %s WHERE %s = $1",
			table, strings.Join(assignments, ", "), keyColumn(table),
		)
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "failed to update %s", table)
		}
		rows += tag.RowsAffected()
	}
	return len(tables), rows, nil
}

func (r *PgPersonRepository) AddEmailAddress(ctx context.Context, e person.EmailAddress) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, insertEmailQuery, e.ID, e.OwnerID, e.Address, e.IsContactable, e.IsPreferred)
	return errors.Wrap(err, "failed to insert email address")
}

func (r *PgPersonRepository) UpdateEmailAddress(ctx context.Context, e person.EmailAddress) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, updateEmailQuery, e.ID, e.Address, e.IsContactable, e.IsPreferred)
	return errors.Wrap(err, "failed to update email address")
}

func (r *PgPersonRepository) DeleteEmailAddress(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, deleteEmailQuery, id)
	return errors.Wrap(err, "failed to delete email address")
}

func (r *PgPersonRepository) AddPhoneNumber(ctx context.Context, n person.PhoneNumber) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, insertPhoneQuery, n.ID, n.OwnerID, n.Number, n.Carrier, n.NumberType, n.IsContactable, n.IsPreferred)
	return errors.Wrap(err, "failed to insert phone number")
}

func (r *PgPersonRepository) UpdatePhoneNumber(ctx context.Context, n person.PhoneNumber) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, updatePhoneQuery, n.ID, n.Number, n.Carrier, n.NumberType, n.IsContactable, n.IsPreferred)
	return errors.Wrap(err, "failed to update phone number")
}

func (r *PgPersonRepository) DeletePhoneNumber(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, deletePhoneQuery, id)
	return errors.Wrap(err, "failed to delete phone number")
}

func (r *PgPersonRepository) AddPhysicalAddress(ctx context.Context, a person.PhysicalAddress) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, insertAddressQuery, a.ID, a.OwnerID, a.StreetNumber, a.Route, a.City, a.State, a.ZipCode, a.IsHomeAddress)
	return errors.Wrap(err, "failed to insert physical address")
}

func (r *PgPersonRepository) UpdatePhysicalAddress(ctx context.Context, a person.PhysicalAddress) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, updateAddressQuery, a.ID, a.StreetNumber, a.Route, a.City, a.State, a.ZipCode, a.IsHomeAddress)
	return errors.Wrap(err, "failed to update physical address")
}

func (r *PgPersonRepository) DeletePhysicalAddress(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, deleteAddressQuery, id)
	return errors.Wrap(err, "failed to delete physical address")
}

func (r *PgPersonRepository) emailAddresses(ctx context.Context, personID uuid.UUID) ([]person.EmailAddress, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, selectEmailsQuery, personID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query email addresses")
	}
	defer rows.Close()

	var out []person.EmailAddress
	for rows.Next() {
		var e person.EmailAddress
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Address, &e.IsContactable, &e.IsPreferred); err != nil {
			return nil, errors.Wrap(err, "failed to scan email address")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PgPersonRepository) phoneNumbers(ctx context.Context, personID uuid.UUID) ([]person.PhoneNumber, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, selectPhonesQuery, personID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query phone numbers")
	}
	defer rows.Close()

	var out []person.PhoneNumber
	for rows.Next() {
		var n person.PhoneNumber
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Number, &n.Carrier, &n.NumberType, &n.IsContactable, &n.IsPreferred); err != nil {
			return nil, errors.Wrap(err, "failed to scan phone number")
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *PgPersonRepository) physicalAddresses(ctx context.Context, personID uuid.UUID) ([]person.PhysicalAddress, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, selectAddressesQuery, personID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query physical addresses")
	}
	defer rows.Close()

	var out []person.PhysicalAddress
	for rows.Next() {
		var a person.PhysicalAddress
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.StreetNumber, &a.Route, &a.City, &a.State, &a.ZipCode, &a.IsHomeAddress); err != nil {
			return nil, errors.Wrap(err, "failed to scan physical address")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PgPersonRepository) accountHistory(ctx context.Context, personID uuid.UUID) ([]person.AccountEvent, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, selectHistoryQuery, personID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query account history")
	}
	defer rows.Close()

	out := []person.AccountEvent{}
	for rows.Next() {
		var e person.AccountEvent
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.EventType, &e.OccurredAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan account history entry")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
