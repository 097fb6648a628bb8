package sqlstore

import (
	"testing"
	"time"

	"github.com/pliu/personifid/internal/common"
	"github.com/pliu/personifid/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAccount(t *testing.T) {
	s := SetupTestDB(t)

	a := createAccount(t, s, "testuser")
	assert.NotZero(t, a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	// Same username, different email.
	err := s.CreateAccount(ctx, &models.Account{Username: "testuser", Email: "other@example.com", Password: "x"})
	assert.ErrorIs(t, err, common.ErrConflict)

	// Same email, different username.
	err = s.CreateAccount(ctx, &models.Account{Username: "other", Email: "testuser@example.com", Password: "x"})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestGetAccount(t *testing.T) {
	s := SetupTestDB(t)
	a := createAccount(t, s, "testuser")

	byID, err := s.GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "testuser", byID.Username)
	assert.True(t, byID.IsActive)

	byName, err := s.GetAccountByUsername(ctx, "testuser")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byName.ID)

	byEmail, err := s.GetAccountByLogin(ctx, "testuser@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byEmail.ID)

	byLogin, err := s.GetAccountByLogin(ctx, "testuser")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byLogin.ID)

	_, err = s.GetAccountByUsername(ctx, "nonexistent")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = s.GetAccountByID(ctx, a.ID+100)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAccountTaken(t *testing.T) {
	s := SetupTestDB(t)
	a := createAccount(t, s, "alice")
	b := createAccount(t, s, "bob")

	taken, err := s.AccountTaken(ctx, "alice", "new@example.com", 0)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = s.AccountTaken(ctx, "", "alice@example.com", b.ID)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = s.AccountTaken(ctx, "", "alice@example.com", a.ID)
	require.NoError(t, err)
	assert.False(t, taken, "an account never collides with itself")
}

func TestUpdateAccount(t *testing.T) {
	s := SetupTestDB(t)
	a := createAccount(t, s, "alice")
	createAccount(t, s, "bob")

	now := time.Now().UTC()
	require.NoError(t, s.UpdateAccount(ctx, a.ID, map[string]any{"full_name": "Alice A", "last_login": now}))

	got, err := s.GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice A", got.FullName)
	require.NotNil(t, got.LastLogin)
	assert.WithinDuration(t, now, *got.LastLogin, time.Second)

	err = s.UpdateAccount(ctx, a.ID, map[string]any{"email": "bob@example.com"})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestVerifyAccount(t *testing.T) {
	s := SetupTestDB(t)
	a := &models.Account{Username: "v", Email: "v@example.com", Password: "x", VerificationToken: "tok-123"}
	require.NoError(t, s.CreateAccount(ctx, a))

	assert.ErrorIs(t, s.VerifyAccount(ctx, "wrong"), common.ErrNotFound)
	assert.ErrorIs(t, s.VerifyAccount(ctx, ""), common.ErrNotFound)
	require.NoError(t, s.VerifyAccount(ctx, "tok-123"))

	got, err := s.GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	assert.Empty(t, got.VerificationToken)

	assert.ErrorIs(t, s.VerifyAccount(ctx, "tok-123"), common.ErrNotFound, "tokens are single use")
}

func TestRefreshIdentityCount(t *testing.T) {
	s := SetupTestDB(t)
	a := createAccount(t, s, "alice")
	createIdentity(t, s, a.ID, "one")
	createIdentity(t, s, a.ID, "two")

	n, err := s.RefreshIdentityCount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.IdentityCount)
}
