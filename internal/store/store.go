package store

import (
	"context"
	"time"

	"github.com/pliu/personifid/internal/models"
)

// Store is the persistence boundary. Every identity and context query takes
// the owning account id and treats rows of other accounts as absent, so a
// miss returns an error wrapping common.ErrNotFound.
type Store interface {
	// Tx runs fn against a store bound to one transaction. Returning an
	// error from fn rolls back every write made through tx.
	Tx(ctx context.Context, fn func(tx Store) error) error

	// Account operations
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByID(ctx context.Context, id int64) (*models.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	GetAccountByLogin(ctx context.Context, usernameOrEmail string) (*models.Account, error)
	AccountTaken(ctx context.Context, username, email string, exceptID int64) (bool, error)
	UpdateAccount(ctx context.Context, id int64, fields map[string]any) error
	VerifyAccount(ctx context.Context, token string) error
	RefreshIdentityCount(ctx context.Context, accountID int64) (int, error)

	// Identity operations
	ListIdentities(ctx context.Context, accountID int64) ([]models.Identity, error)
	RecentIdentities(ctx context.Context, accountID int64, limit int) ([]models.Identity, error)
	CountIdentities(ctx context.Context, accountID int64) (int64, error)
	GetIdentity(ctx context.Context, accountID, id int64) (*models.Identity, error)
	GetDefaultIdentity(ctx context.Context, accountID int64) (*models.Identity, error)
	InsertIdentity(ctx context.Context, identity *models.Identity) error
	UpdateIdentity(ctx context.Context, accountID, id int64, fields map[string]any) error
	ClearDefaultIdentities(ctx context.Context, accountID, exceptID int64) error
	DeleteIdentity(ctx context.Context, accountID, id int64) error
	RecordIdentityUse(ctx context.Context, accountID, id int64, at time.Time) error

	// Context operations
	ListContexts(ctx context.Context, accountID int64) ([]models.Context, error)
	CountContexts(ctx context.Context, accountID int64) (int64, error)
	GetContext(ctx context.Context, accountID, id int64) (*models.Context, error)
	InsertContext(ctx context.Context, c *models.Context) error
	UpdateContext(ctx context.Context, accountID, id int64, fields map[string]any) error
	DeleteContext(ctx context.Context, accountID, id int64) error

	// Association operations. Callers check ownership of both sides first.
	AddContextIdentity(ctx context.Context, contextID, identityID int64) (bool, error)
	RemoveContextIdentity(ctx context.Context, contextID, identityID int64) (bool, error)
	ListContextIdentities(ctx context.Context, accountID, contextID int64) ([]models.Identity, error)
	ListUnassignedIdentities(ctx context.Context, accountID, contextID int64) ([]models.Identity, error)

	Totals(ctx context.Context) (models.Totals, error)
	Ping(ctx context.Context) error
	Close() error
}
