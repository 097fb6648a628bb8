package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pliu/personifid/internal/common"
	"github.com/pliu/personifid/internal/models"
	"github.com/pliu/personifid/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gl "gorm.io/gorm/logger"
)

var ctx = context.Background()

func SetupTestDB(t *testing.T) *SQLStore {
	t.Helper()
	s, err := New("sqlite3", ":memory:", WithLogger(gl.Discard))
	require.NoError(t, err, "open test database")
	t.Cleanup(func() { s.Close() })
	return s
}

func createAccount(t *testing.T, s *SQLStore, username string) *models.Account {
	t.Helper()
	a := &models.Account{
		Username:     username,
		Email:        username + "@example.com",
		Password:     "hash",
		PrivacyLevel: models.PrivacyStandard,
		IsActive:     true,
	}
	require.NoError(t, s.CreateAccount(ctx, a))
	return a
}

func createIdentity(t *testing.T, s *SQLStore, accountID int64, name string) *models.Identity {
	t.Helper()
	i := &models.Identity{
		AccountID:    accountID,
		DisplayName:  name,
		IsPublic:     true,
		PrivacyLevel: models.PrivacyStandard,
	}
	require.NoError(t, s.InsertIdentity(ctx, i))
	return i
}

func createContext(t *testing.T, s *SQLStore, accountID int64, name string) *models.Context {
	t.Helper()
	c := &models.Context{AccountID: accountID, Name: name, Icon: "📁", Color: "#60A5FA"}
	require.NoError(t, s.InsertContext(ctx, c))
	return c
}

func TestSqliteDSN(t *testing.T) {
	tests := []struct {
		dsn, want string
	}{
		{":memory:", ":memory:?_foreign_keys=on"},
		{"personifid.db", "personifid.db?_foreign_keys=on"},
		{"file:test.db?cache=shared", "file:test.db?cache=shared&_foreign_keys=on"},
		{"test.db?_foreign_keys=off", "test.db?_foreign_keys=off"},
		{"test.db?_fk=1", "test.db?_fk=1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sqliteDSN(tt.dsn), tt.dsn)
	}
}

func TestForeignKeysEnabled(t *testing.T) {
	s := SetupTestDB(t)

	var on int
	require.NoError(t, s.sqlDB.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&on))
	assert.Equal(t, 1, on)

	// A context row for a missing account violates the foreign key.
	err := s.InsertContext(ctx, &models.Context{AccountID: 999, Name: "Orphan"})
	assert.Error(t, err)
}

func TestNewUnsupportedDriver(t *testing.T) {
	_, err := New("oracle", "whatever")
	assert.Error(t, err)
}

func TestTxRollsBack(t *testing.T) {
	s := SetupTestDB(t)
	owner := createAccount(t, s, "owner")

	boom := errors.New("boom")
	err := s.Tx(ctx, func(tx store.Store) error {
		require.NoError(t, tx.InsertIdentity(ctx, &models.Identity{AccountID: owner.ID, DisplayName: "ghost"}))
		_, err := tx.RefreshIdentityCount(ctx, owner.ID)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := s.CountIdentities(ctx, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := s.GetAccountByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, got.IdentityCount)
}

func TestTotals(t *testing.T) {
	s := SetupTestDB(t)
	a := createAccount(t, s, "alice")
	createAccount(t, s, "bob")
	createIdentity(t, s, a.ID, "one")
	createContext(t, s, a.ID, "work")

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Totals{Users: 2, Identities: 1, Contexts: 1}, totals)
	assert.NoError(t, s.Ping(ctx))
}

func TestIsDuplicate(t *testing.T) {
	assert.False(t, isDuplicate(nil))
	assert.False(t, isDuplicate(errors.New("other")))
	assert.False(t, isDuplicate(fmt.Errorf("wrapped: %w", common.ErrConflict)))
	assert.True(t, isDuplicate(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
}
