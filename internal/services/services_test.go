package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pliu/personifid/internal/auth"
	"github.com/pliu/personifid/internal/models"
	"github.com/pliu/personifid/internal/store"
	"github.com/pliu/personifid/internal/store/sqlstore"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	gl "gorm.io/gorm/logger"
)

var ctx = context.Background()

type sentMail struct {
	to, username, link string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendVerificationEmail(to, username, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, username, link})
	return m.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(e models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// failingStore fails RefreshIdentityCount, including inside transactions.
type failingStore struct {
	store.Store
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) Tx(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Store.Tx(ctx, func(tx store.Store) error {
		return fn(&failingStore{Store: tx})
	})
}

func (f *failingStore) RefreshIdentityCount(context.Context, int64) (int, error) {
	return 0, errDiskFull
}

type env struct {
	store      *sqlstore.SQLStore
	tokens     *auth.Tokens
	mailer     *fakeMailer
	events     *recordingPublisher
	accounts   *AccountService
	identities *IdentityService
	contexts   *ContextService
	dashboard  *DashboardService
}

func setup(t *testing.T) *env {
	t.Helper()
	s, err := sqlstore.New("sqlite3", ":memory:", sqlstore.WithLogger(gl.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	e := &env{
		store:  s,
		tokens: auth.NewTokens("test-secret", 30*time.Minute),
		mailer: &fakeMailer{},
		events: &recordingPublisher{},
	}
	e.accounts = NewAccountService(s, e.tokens, e.mailer, AccountConfig{
		BcryptCost: bcrypt.MinCost,
		PublicURL:  "http://localhost:8000/",
	})
	e.identities = NewIdentityService(s, e.events)
	e.contexts = NewContextService(s, e.events)
	e.dashboard = NewDashboardService(s)
	return e
}

func (e *env) register(t *testing.T, username string) *models.Account {
	t.Helper()
	a, err := e.accounts.Register(ctx, RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	return a
}

func (e *env) createIdentity(t *testing.T, owner *models.Account, name string, isDefault bool) *models.Identity {
	t.Helper()
	i, err := e.identities.Create(ctx, owner, IdentityRequest{DisplayName: name, IsDefault: isDefault})
	require.NoError(t, err)
	return i
}

func (e *env) createContext(t *testing.T, owner *models.Account, name string) *models.Context {
	t.Helper()
	c, err := e.contexts.Create(ctx, owner, ContextRequest{Name: name})
	require.NoError(t, err)
	return c
}

func ptr[T any](v T) *T { return &v }
