package services

import (
	"context"
	"strings"
	"time"

	"github.com/pliu/personifid/internal/common"
	"github.com/pliu/personifid/internal/models"
	"github.com/pliu/personifid/internal/store"
	"github.com/pliu/personifid/internal/xlog"
)

type IdentityRequest struct {
	DisplayName  string              `json:"display_name"`
	Email        string              `json:"email"`
	Phone        string              `json:"phone"`
	Title        string              `json:"title"`
	Bio          string              `json:"bio"`
	AvatarURL    string              `json:"avatar_url"`
	IsDefault    bool                `json:"is_default"`
	IsPublic     *bool               `json:"is_public"` // nil means true
	PrivacyLevel models.PrivacyLevel `json:"privacy_level"`
	SocialLinks  models.SocialLinks  `json:"social_links"`
	UseCase      string              `json:"use_case"`
}

// IdentityPatch is a partial update. Only non-nil fields are written.
type IdentityPatch struct {
	DisplayName  *string              `json:"display_name"`
	Email        *string              `json:"email"`
	Phone        *string              `json:"phone"`
	Title        *string              `json:"title"`
	Bio          *string              `json:"bio"`
	AvatarURL    *string              `json:"avatar_url"`
	IsDefault    *bool                `json:"is_default"`
	IsPublic     *bool                `json:"is_public"`
	PrivacyLevel *models.PrivacyLevel `json:"privacy_level"`
	SocialLinks  *models.SocialLinks  `json:"social_links"`
	UseCase      *string              `json:"use_case"`
}

func (p IdentityPatch) fields() (map[string]any, error) {
	fields := map[string]any{}
	if p.DisplayName != nil {
		if err := required("display_name", *p.DisplayName); err != nil {
			return nil, err
		}
		fields["display_name"] = strings.TrimSpace(*p.DisplayName)
	}
	setString := func(column string, v *string) {
		if v != nil {
			fields[column] = *v
		}
	}
	setString("email", p.Email)
	setString("phone", p.Phone)
	setString("title", p.Title)
	setString("bio", p.Bio)
	setString("avatar_url", p.AvatarURL)
	setString("use_case", p.UseCase)

	if p.IsDefault != nil {
		fields["is_default"] = *p.IsDefault
	}
	if p.IsPublic != nil {
		fields["is_public"] = *p.IsPublic
	}
	if p.PrivacyLevel != nil {
		if !p.PrivacyLevel.Valid() {
			return nil, common.Errorf(common.ErrValidation, "privacy_level must be one of minimal, standard, high")
		}
		fields["privacy_level"] = *p.PrivacyLevel
	}
	if p.SocialLinks != nil {
		links := *p.SocialLinks
		if links == nil {
			links = models.SocialLinks{}
		}
		fields["social_links"] = links
	}
	return fields, nil
}

type IdentityService struct {
	store  store.Store
	events Publisher
	now    func() time.Time
}

func NewIdentityService(s store.Store, events Publisher) *IdentityService {
	return &IdentityService{store: s, events: publisherOrNop(events), now: utcNow}
}

func (s *IdentityService) publish(t models.EventType, accountID, identityID int64) {
	s.events.Publish(models.Event{Type: t, AccountID: accountID, ResourceID: identityID, At: s.now()})
}

func (s *IdentityService) List(ctx context.Context, account *models.Account) ([]models.Identity, error) {
	return s.store.ListIdentities(ctx, account.ID)
}

func (s *IdentityService) Get(ctx context.Context, account *models.Account, id int64) (*models.Identity, error) {
	return s.store.GetIdentity(ctx, account.ID, id)
}

// Create inserts the identity. When it is flagged default, every other
// identity of the account loses the flag in the same transaction.
func (s *IdentityService) Create(ctx context.Context, account *models.Account, req IdentityRequest) (*models.Identity, error) {
	if err := required("display_name", req.DisplayName); err != nil {
		return nil, err
	}
	level, err := privacyLevel(req.PrivacyLevel)
	if err != nil {
		return nil, err
	}

	identity := &models.Identity{
		AccountID:    account.ID,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Email:        req.Email,
		Phone:        req.Phone,
		Title:        req.Title,
		Bio:          req.Bio,
		AvatarURL:    req.AvatarURL,
		IsDefault:    req.IsDefault,
		IsPublic:     req.IsPublic == nil || *req.IsPublic,
		PrivacyLevel: level,
		SocialLinks:  req.SocialLinks,
		UseCase:      req.UseCase,
	}

	err = s.store.Tx(ctx, func(tx store.Store) error {
		if identity.IsDefault {
			if err := tx.ClearDefaultIdentities(ctx, account.ID, 0); err != nil {
				return err
			}
		}
		if err := tx.InsertIdentity(ctx, identity); err != nil {
			return err
		}
		_, err := tx.RefreshIdentityCount(ctx, account.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	xlog.Debugf("identity %d created for user %d", identity.ID, account.ID)
	s.publish(models.EventIdentityCreated, account.ID, identity.ID)
	return identity, nil
}

func (s *IdentityService) Update(ctx context.Context, account *models.Account, id int64, patch IdentityPatch) (*models.Identity, error) {
	fields, err := patch.fields()
	if err != nil {
		return nil, err
	}

	err = s.store.Tx(ctx, func(tx store.Store) error {
		if _, err := tx.GetIdentity(ctx, account.ID, id); err != nil {
			return err
		}
		if len(fields) == 0 {
			return nil
		}
		if patch.IsDefault != nil && *patch.IsDefault {
			if err := tx.ClearDefaultIdentities(ctx, account.ID, id); err != nil {
				return err
			}
		}
		return tx.UpdateIdentity(ctx, account.ID, id, fields)
	})
	if err != nil {
		return nil, err
	}

	if len(fields) > 0 {
		s.publish(models.EventIdentityUpdated, account.ID, id)
	}
	return s.store.GetIdentity(ctx, account.ID, id)
}

// Delete removes the identity with its context memberships and recounts the
// owner's identities.
func (s *IdentityService) Delete(ctx context.Context, account *models.Account, id int64) error {
	err := s.store.Tx(ctx, func(tx store.Store) error {
		if err := tx.DeleteIdentity(ctx, account.ID, id); err != nil {
			return err
		}
		_, err := tx.RefreshIdentityCount(ctx, account.ID)
		return err
	})
	if err != nil {
		return err
	}

	xlog.Debugf("identity %d deleted for user %d", id, account.ID)
	s.publish(models.EventIdentityDeleted, account.ID, id)
	return nil
}

// Use records that the identity was presented somewhere.
func (s *IdentityService) Use(ctx context.Context, account *models.Account, id int64) (*models.Identity, error) {
	return recordUse(ctx, s.store, account.ID, id, s.now())
}

// recordUse bumps the usage counter and returns the identity as stored
// afterwards.
func recordUse(ctx context.Context, st store.Store, accountID, id int64, at time.Time) (*models.Identity, error) {
	if err := st.RecordIdentityUse(ctx, accountID, id, at); err != nil {
		return nil, err
	}
	return st.GetIdentity(ctx, accountID, id)
}
