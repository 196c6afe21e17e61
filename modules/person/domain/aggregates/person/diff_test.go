package person_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborworks/crewdb/modules/person/domain/aggregates/person"
	"github.com/harborworks/crewdb/modules/person/domain/value_objects/capability"
)

func samplePerson() *person.Person {
	id := uuid.New()
	return &person.Person{
		ID:        id,
		FirstName: "Daniel",
		LastName:  "Atwood",
		Rate:      "CTI2",
		Division:  "N31",
		EmailAddresses: []person.EmailAddress{
			{ID: uuid.New(), OwnerID: id, Address: "daniel@example.com", IsPreferred: true},
		},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()

	old := samplePerson()
	variances, err := person.Diff(old, old.Clone())
	require.NoError(t, err)
	assert.Empty(t, variances)
}

func TestDiff_ScalarAndCollection(t *testing.T) {
	t.Parallel()

	old := samplePerson()
	updated := old.Clone()
	updated.FirstName = "Dan"
	updated.EmailAddresses = append(updated.EmailAddresses, person.EmailAddress{
		Address: "personal@example.com",
	})

	variances, err := person.Diff(old, updated)
	require.NoError(t, err)
	require.Len(t, variances, 2)

	assert.Equal(t, "FirstName", variances[0].Field)
	assert.Equal(t, person.KindScalar, variances[0].Kind)
	assert.Equal(t, "Daniel", variances[0].Old)
	assert.Equal(t, "Dan", variances[0].New)

	assert.Equal(t, "EmailAddresses", variances[1].Field)
	assert.Equal(t, person.KindCollection, variances[1].Kind)
}

func TestDiff_Deterministic(t *testing.T) {
	t.Parallel()

	old := samplePerson()
	updated := old.Clone()
	updated.Division = "N32"
	updated.LastName = "Attwood"
	updated.ContactRemarks = "call after 1600"

	first, err := person.Diff(old, updated)
	require.NoError(t, err)
	second, err := person.Diff(old, updated)
	require.NoError(t, err)

	assert.Equal(t, person.FieldNames(first), person.FieldNames(second))
	assert.Equal(t, []string{"LastName", "Division", "ContactRemarks"}, person.FieldNames(first))
}

func TestDiff_SwapSymmetry(t *testing.T) {
	t.Parallel()

	old := samplePerson()
	updated := old.Clone()
	updated.Rate = "CTI1"
	updated.Supervisor = "Chief Ward"

	forward, err := person.Diff(old, updated)
	require.NoError(t, err)
	backward, err := person.Diff(updated, old)
	require.NoError(t, err)

	require.Equal(t, person.FieldNames(forward), person.FieldNames(backward))
	for i := range forward {
		assert.Equal(t, forward[i].Old, backward[i].New)
		assert.Equal(t, forward[i].New, backward[i].Old)
	}
}

func TestDiff_IdentityMismatch(t *testing.T) {
	t.Parallel()

	old := samplePerson()
	updated := old.Clone()
	updated.ID = uuid.New()

	_, err := person.Diff(old, updated)
	require.ErrorIs(t, err, person.ErrIdentityMismatch)
}

func TestDiff_AccountHistory(t *testing.T) {
	t.Parallel()

	old := samplePerson()
	old.AccountHistory = []person.AccountEvent{
		{ID: uuid.New(), OwnerID: old.ID, EventType: "Login"},
	}

	t.Run("NilSubmittedMeansOmitted", func(t *testing.T) {
		t.Parallel()
		updated := old.Clone()
		updated.AccountHistory = nil
		variances, err := person.Diff(old, updated)
		require.NoError(t, err)
		assert.Empty(t, variances)
	})

	t.Run("DivergentListIsDetected", func(t *testing.T) {
		t.Parallel()
		updated := old.Clone()
		updated.AccountHistory = append(updated.AccountHistory, person.AccountEvent{
			ID: uuid.New(), OwnerID: old.ID, EventType: "PasswordReset",
		})
		variances, err := person.Diff(old, updated)
		require.NoError(t, err)
		require.Len(t, variances, 1)
		assert.Equal(t, "AccountHistory", variances[0].Field)
	})
}

func TestFilterByCapability(t *testing.T) {
	t.Parallel()

	variances := []person.Variance{
		{Field: "FirstName", Kind: person.KindScalar},
		{Field: "Division", Kind: person.KindScalar},
		{Field: "AccountHistory", Kind: person.KindCollection},
		{Field: "NoSuchField", Kind: person.KindScalar},
	}

	caps := capability.NewSet(
		[]string{"FirstName", "Division", "AccountHistory", "NoSuchField"},
		[]string{"FirstName", "AccountHistory", "NoSuchField"},
	)

	allowed, rejected := person.FilterByCapability(variances, caps)

	// Reserved and unknown fields are rejected even with write
	// capability; every input lands in exactly one partition.
	assert.Equal(t, []string{"FirstName"}, person.FieldNames(allowed))
	assert.Equal(t, []string{"Division", "AccountHistory", "NoSuchField"}, rejected)
	assert.Len(t, allowed, len(variances)-len(rejected))
}

func TestRedactByCapability(t *testing.T) {
	t.Parallel()

	p := samplePerson()
	p.Division = "N31"
	p.AccountHistory = []person.AccountEvent{
		{ID: uuid.New(), OwnerID: p.ID, EventType: "Login"},
	}

	caps := capability.NewSet([]string{"FirstName", "EmailAddresses"}, nil)
	redacted := person.RedactByCapability(p, caps)

	assert.Equal(t, p.ID, redacted.ID)
	assert.Equal(t, "Daniel", redacted.FirstName)
	assert.Len(t, redacted.EmailAddresses, 1)
	assert.Empty(t, redacted.LastName)
	assert.Empty(t, redacted.Division)
	assert.Nil(t, redacted.AccountHistory)

	// The input record keeps its values.
	assert.Equal(t, "Atwood", p.LastName)
	assert.Len(t, p.AccountHistory, 1)
}

func TestFilterByCapability_WriteWithoutRead(t *testing.T) {
	t.Parallel()

	variances := []person.Variance{{Field: "Remarks", Kind: person.KindScalar}}
	caps := capability.NewSet(nil, []string{"Remarks"})

	allowed, rejected := person.FilterByCapability(variances, caps)
	assert.Empty(t, allowed)
	assert.Equal(t, []string{"Remarks"}, rejected)
}
