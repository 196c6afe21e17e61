package capabilities_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborworks/crewdb/modules/person/domain/aggregates/person"
	"github.com/harborworks/crewdb/modules/person/infrastructure/capabilities"
	"github.com/harborworks/crewdb/modules/person/permissions"
)

func newProvider(t *testing.T) *capabilities.CasbinProvider {
	t.Helper()
	var names []string
	for _, f := range person.Fields() {
		names = append(names, f.Name)
	}
	provider, err := capabilities.NewCasbinProvider(map[string][]string{
		person.ObjectName: names,
	})
	require.NoError(t, err)
	return provider
}

func TestCasbinProvider_Groups(t *testing.T) {
	t.Parallel()

	provider := newProvider(t)
	ctx := context.Background()

	member := uuid.New()
	require.NoError(t, provider.AssignGroup(member, permissions.GroupMembers))
	viewer := uuid.New()
	require.NoError(t, provider.AssignGroup(viewer, permissions.GroupViewers))
	editor := uuid.New()
	require.NoError(t, provider.AssignGroup(editor, permissions.GroupEditors))

	t.Run("MemberEditsContactFieldsOnly", func(t *testing.T) {
		set, err := provider.Capabilities(ctx, member, person.ObjectName)
		require.NoError(t, err)
		assert.True(t, set.CanEdit("EmailAddresses"))
		assert.True(t, set.CanEdit("ContactRemarks"))
		assert.False(t, set.CanEdit("FirstName"))
		assert.False(t, set.CanEdit("Division"))
		assert.True(t, set.CanRead("FirstName"))
		assert.True(t, set.CanEditAnything())
	})

	t.Run("ViewerEditsNothing", func(t *testing.T) {
		set, err := provider.Capabilities(ctx, viewer, person.ObjectName)
		require.NoError(t, err)
		assert.True(t, set.CanRead("FirstName"))
		assert.False(t, set.CanEditAnything())
	})

	t.Run("EditorEditsEverythingButReserved", func(t *testing.T) {
		set, err := provider.Capabilities(ctx, editor, person.ObjectName)
		require.NoError(t, err)
		assert.True(t, set.CanEdit("FirstName"))
		assert.True(t, set.CanEdit("Division"))
		assert.False(t, set.CanWrite("AccountHistory"))
	})

	t.Run("UnassignedClientHasNoCapabilities", func(t *testing.T) {
		set, err := provider.Capabilities(ctx, uuid.New(), person.ObjectName)
		require.NoError(t, err)
		assert.False(t, set.CanRead("FirstName"))
		assert.False(t, set.CanEditAnything())
	})
}
