package sqlstore

import (
	"testing"

	"github.com/pliu/personifid/internal/common"
	"github.com/pliu/personifid/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextCRUD(t *testing.T) {
	s := SetupTestDB(t)
	a := createAccount(t, s, "alice")
	c := createContext(t, s, a.ID, "work")

	got, err := s.GetContext(ctx, a.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "work", got.Name)
	assert.Zero(t, got.IdentityCount)

	require.NoError(t, s.UpdateContext(ctx, a.ID, c.ID, map[string]any{"description": "day job"}))
	got, err = s.GetContext(ctx, a.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "day job", got.Description)
	assert.Equal(t, "work", got.Name)

	n, err := s.CountContexts(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, s.DeleteContext(ctx, a.ID, c.ID))
	_, err = s.GetContext(ctx, a.ID, c.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, s.DeleteContext(ctx, a.ID, c.ID), common.ErrNotFound)
}

func TestContextsAreScopedToOwner(t *testing.T) {
	s := SetupTestDB(t)
	alice := createAccount(t, s, "alice")
	bob := createAccount(t, s, "bob")
	c := createContext(t, s, alice.ID, "private")

	_, err := s.GetContext(ctx, bob.ID, c.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, s.UpdateContext(ctx, bob.ID, c.ID, map[string]any{"name": "x"}), common.ErrNotFound)
	assert.ErrorIs(t, s.DeleteContext(ctx, bob.ID, c.ID), common.ErrNotFound)

	list, err := s.ListContexts(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = s.ListContexts(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAddContextIdentityIsIdempotent(t *testing.T) {
	s := SetupTestDB(t)
	a := createAccount(t, s, "alice")
	i := createIdentity(t, s, a.ID, "one")
	c := createContext(t, s, a.ID, "work")

	added, err := s.AddContextIdentity(ctx, c.ID, i.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddContextIdentity(ctx, c.ID, i.ID)
	require.NoError(t, err)
	assert.False(t, added)

	got, err := s.GetContext(ctx, a.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.IdentityCount)

	identity, err := s.GetIdentity(ctx, a.ID, i.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, identity.ContextCount)
}

func TestRemoveContextIdentity(t *testing.T) {
	s := SetupTestDB(t)
	a := createAccount(t, s, "alice")
	i := createIdentity(t, s, a.ID, "one")
	c := createContext(t, s, a.ID, "work")

	removed, err := s.RemoveContextIdentity(ctx, c.ID, i.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.AddContextIdentity(ctx, c.ID, i.ID)
	require.NoError(t, err)

	removed, err = s.RemoveContextIdentity(ctx, c.ID, i.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	members, err := s.ListContextIdentities(ctx, a.ID, c.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestAssignedAndUnassignedPartitionIdentities(t *testing.T) {
	s := SetupTestDB(t)
	a := createAccount(t, s, "alice")
	var all []*models.Identity
	for _, name := range []string{"one", "two", "three", "four"} {
		all = append(all, createIdentity(t, s, a.ID, name))
	}
	c := createContext(t, s, a.ID, "work")
	other := createContext(t, s, a.ID, "home")

	for _, i := range all[:2] {
		_, err := s.AddContextIdentity(ctx, c.ID, i.ID)
		require.NoError(t, err)
	}
	_, err := s.AddContextIdentity(ctx, other.ID, all[3].ID)
	require.NoError(t, err)

	assigned, err := s.ListContextIdentities(ctx, a.ID, c.ID)
	require.NoError(t, err)
	unassigned, err := s.ListUnassignedIdentities(ctx, a.ID, c.ID)
	require.NoError(t, err)

	ids := map[int64]bool{}
	for _, i := range assigned {
		ids[i.ID] = true
	}
	for _, i := range unassigned {
		assert.False(t, ids[i.ID], "identity %d listed twice", i.ID)
		ids[i.ID] = true
	}
	assert.Len(t, assigned, 2)
	assert.Len(t, unassigned, 2)
	assert.Len(t, ids, len(all))
}

func TestDeleteContextRemovesAssociations(t *testing.T) {
	s := SetupTestDB(t)
	a := createAccount(t, s, "alice")
	i := createIdentity(t, s, a.ID, "one")
	c := createContext(t, s, a.ID, "work")
	_, err := s.AddContextIdentity(ctx, c.ID, i.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteContext(ctx, a.ID, c.ID))

	got, err := s.GetIdentity(ctx, a.ID, i.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ContextCount)
}
