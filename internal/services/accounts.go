package services

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pliu/personifid/internal/auth"
	"github.com/pliu/personifid/internal/common"
	"github.com/pliu/personifid/internal/models"
	"github.com/pliu/personifid/internal/store"
	"github.com/pliu/personifid/internal/xlog"
)

const minPasswordLength = 8

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// ProfilePatch lists the account fields a user may change. Nil fields are
// left alone.
type ProfilePatch struct {
	Email        *string              `json:"email"`
	FullName     *string              `json:"full_name"`
	AvatarURL    *string              `json:"avatar_url"`
	PrivacyLevel *models.PrivacyLevel `json:"privacy_level"`
}

type AccountConfig struct {
	BcryptCost int
	PublicURL  string
}

type AccountService struct {
	store  store.Store
	tokens *auth.Tokens
	mailer Mailer
	cfg    AccountConfig
	now    func() time.Time
}

func NewAccountService(s store.Store, tokens *auth.Tokens, mailer Mailer, cfg AccountConfig) *AccountService {
	return &AccountService{store: s, tokens: tokens, mailer: mailer, cfg: cfg, now: utcNow}
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && strings.Count(email, "@") == 1 && !strings.ContainsAny(email, " \t\r\n")
}

func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*models.Account, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if err := required("username", req.Username); err != nil {
		return nil, err
	}
	// Login accepts a username or an email, so the two must not overlap.
	if strings.Contains(req.Username, "@") {
		return nil, common.Errorf(common.ErrValidation, "username must not contain @")
	}
	if err := required("email", req.Email); err != nil {
		return nil, err
	}
	if !validEmail(req.Email) {
		return nil, common.Errorf(common.ErrValidation, "email is not a valid address")
	}
	if len(req.Password) < minPasswordLength {
		return nil, common.Errorf(common.ErrValidation, "password must be at least %d characters", minPasswordLength)
	}

	taken, err := s.store.AccountTaken(ctx, req.Username, req.Email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		xlog.Warnf("registration rejected, user exists: %s / %s", req.Username, req.Email)
		return nil, common.Errorf(common.ErrConflict, "Username or email already exists")
	}

	hashed, err := auth.HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		Username:          req.Username,
		Email:             req.Email,
		Password:          hashed,
		FullName:          strings.TrimSpace(req.FullName),
		PrivacyLevel:      models.PrivacyStandard,
		IsActive:          true,
		VerificationToken: uuid.NewString(),
	}
	// The unique indexes still catch a registration racing this one.
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	xlog.Infof("user registered: %s (id %d)", account.Username, account.ID)

	s.sendVerification(account)
	return account, nil
}

func (s *AccountService) sendVerification(account *models.Account) {
	if s.mailer == nil {
		return
	}
	link := strings.TrimRight(s.cfg.PublicURL, "/") + "/auth/verify?token=" + url.QueryEscape(account.VerificationToken)
	if err := s.mailer.SendVerificationEmail(account.Email, account.Username, link); err != nil {
		xlog.Errorf("send verification email to user %d: %v", account.ID, err)
	}
}

// Login accepts a username or an email address as login.
func (s *AccountService) Login(ctx context.Context, login, password string) (*Token, error) {
	account, err := s.store.GetAccountByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			xlog.Warnf("login failed, user not found: %s", login)
			return nil, common.Errorf(common.ErrUnauthorized, "Invalid credentials")
		}
		return nil, err
	}
	if !auth.CheckPassword(account.Password, password) {
		xlog.Warnf("login failed, bad password for user %d", account.ID)
		return nil, common.Errorf(common.ErrUnauthorized, "Invalid credentials")
	}
	if !account.IsActive {
		return nil, common.Errorf(common.ErrUnauthorized, "Inactive user")
	}

	if err := s.store.UpdateAccount(ctx, account.ID, map[string]any{"last_login": s.now()}); err != nil {
		return nil, err
	}

	signed, _, err := s.tokens.Issue(strconv.FormatInt(account.ID, 10))
	if err != nil {
		return nil, err
	}
	xlog.Infof("login succeeded: %s (id %d)", account.Username, account.ID)

	return &Token{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int(s.tokens.TTL() / time.Second),
	}, nil
}

// Resolve maps a bearer token to its account. A numeric subject is an
// account id, anything else a username.
func (s *AccountService) Resolve(ctx context.Context, token string) (*models.Account, error) {
	subject, err := s.tokens.Subject(token)
	if err != nil {
		return nil, err
	}

	var account *models.Account
	if id, convErr := strconv.ParseInt(subject, 10, 64); convErr == nil {
		account, err = s.store.GetAccountByID(ctx, id)
	} else {
		account, err = s.store.GetAccountByUsername(ctx, subject)
	}
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf(common.ErrUnauthorized, "User not found")
		}
		return nil, err
	}
	if !account.IsActive {
		return nil, common.Errorf(common.ErrUnauthorized, "Inactive user")
	}
	return account, nil
}

func (s *AccountService) Verify(ctx context.Context, token string) error {
	return s.store.VerifyAccount(ctx, strings.TrimSpace(token))
}

func (s *AccountService) UpdateProfile(ctx context.Context, account *models.Account, patch ProfilePatch) (*models.Account, error) {
	fields := map[string]any{}

	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		if !validEmail(email) {
			return nil, common.Errorf(common.ErrValidation, "email is not a valid address")
		}
		taken, err := s.store.AccountTaken(ctx, "", email, account.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, common.Errorf(common.ErrConflict, "Username or email already exists")
		}
		fields["email"] = email
	}
	if patch.FullName != nil {
		fields["full_name"] = strings.TrimSpace(*patch.FullName)
	}
	if patch.AvatarURL != nil {
		fields["avatar_url"] = strings.TrimSpace(*patch.AvatarURL)
	}
	if patch.PrivacyLevel != nil {
		if !patch.PrivacyLevel.Valid() {
			return nil, common.Errorf(common.ErrValidation, "privacy_level must be one of minimal, standard, high")
		}
		fields["privacy_level"] = *patch.PrivacyLevel
	}

	if len(fields) > 0 {
		if err := s.store.UpdateAccount(ctx, account.ID, fields); err != nil {
			return nil, err
		}
	}
	return s.store.GetAccountByID(ctx, account.ID)
}
