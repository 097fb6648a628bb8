package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pliu/personifid/internal/common"
	"github.com/pliu/personifid/internal/models"
	"github.com/pliu/personifid/internal/store"
)

const (
	DefaultContextIcon  = "📁"
	DefaultContextColor = "#60A5FA"

	MsgIdentityAdded       = "Identity successfully added to context"
	MsgIdentityAlreadyIn   = "Identity already assigned to context"
	MsgIdentityRemoved     = "Identity successfully removed from context"
	MsgIdentityNotAssigned = "Identity not assigned to context"

	ResolvedByMapping  = "explicit_mapping"
	ResolvedByFallback = "default_fallback"
)

type ContextRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Icon        *string `json:"icon"`
	Color       *string `json:"color"`
}

type ContextPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	Color       *string `json:"color"`
}

// Notice is the outcome of an association change. Changed is false when the
// pair was already in the requested state.
type Notice struct {
	Changed bool
	Message string
}

// Resolution names the identity presented in a context.
type Resolution struct {
	ContextID        int64                 `json:"context_id"`
	ContextName      string                `json:"context_name"`
	ResolvedIdentity models.PublicIdentity `json:"resolved_identity"`
	ResolutionMethod string                `json:"resolution_method"`
	Timestamp        time.Time             `json:"timestamp"`
}

type ContextService struct {
	store  store.Store
	events Publisher
	now    func() time.Time
}

func NewContextService(s store.Store, events Publisher) *ContextService {
	return &ContextService{store: s, events: publisherOrNop(events), now: utcNow}
}

func (s *ContextService) publish(t models.EventType, accountID, resourceID, contextID int64) {
	s.events.Publish(models.Event{
		Type:       t,
		AccountID:  accountID,
		ResourceID: resourceID,
		ContextID:  contextID,
		At:         s.now(),
	})
}

func (s *ContextService) List(ctx context.Context, account *models.Account) ([]models.Context, error) {
	return s.store.ListContexts(ctx, account.ID)
}

func (s *ContextService) Get(ctx context.Context, account *models.Account, id int64) (*models.Context, error) {
	return s.store.GetContext(ctx, account.ID, id)
}

func (s *ContextService) Create(ctx context.Context, account *models.Account, req ContextRequest) (*models.Context, error) {
	if err := required("name", req.Name); err != nil {
		return nil, err
	}
	c := &models.Context{
		AccountID:   account.ID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Icon:        DefaultContextIcon,
		Color:       DefaultContextColor,
	}
	if req.Icon != nil {
		c.Icon = *req.Icon
	}
	if req.Color != nil {
		c.Color = *req.Color
	}

	if err := s.store.InsertContext(ctx, c); err != nil {
		return nil, err
	}
	s.publish(models.EventContextCreated, account.ID, c.ID, 0)
	return c, nil
}

func (s *ContextService) Update(ctx context.Context, account *models.Account, id int64, patch ContextPatch) (*models.Context, error) {
	fields := map[string]any{}
	if patch.Name != nil {
		if err := required("name", *patch.Name); err != nil {
			return nil, err
		}
		fields["name"] = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Icon != nil {
		fields["icon"] = *patch.Icon
	}
	if patch.Color != nil {
		fields["color"] = *patch.Color
	}

	if len(fields) > 0 {
		if err := s.store.UpdateContext(ctx, account.ID, id, fields); err != nil {
			return nil, err
		}
		s.publish(models.EventContextUpdated, account.ID, id, 0)
	}
	return s.store.GetContext(ctx, account.ID, id)
}

func (s *ContextService) Delete(ctx context.Context, account *models.Account, id int64) error {
	if err := s.store.DeleteContext(ctx, account.ID, id); err != nil {
		return err
	}
	s.publish(models.EventContextDeleted, account.ID, id, 0)
	return nil
}

// AddIdentity associates the identity with the context. Both must belong to
// account. Adding a pair twice is not an error.
func (s *ContextService) AddIdentity(ctx context.Context, account *models.Account, contextID, identityID int64) (Notice, error) {
	var added bool
	err := s.store.Tx(ctx, func(tx store.Store) error {
		if err := s.checkPair(ctx, tx, account, contextID, identityID); err != nil {
			return err
		}
		var err error
		added, err = tx.AddContextIdentity(ctx, contextID, identityID)
		return err
	})
	if err != nil {
		return Notice{}, err
	}
	if !added {
		return Notice{Message: MsgIdentityAlreadyIn}, nil
	}
	s.publish(models.EventIdentityAdded, account.ID, identityID, contextID)
	return Notice{Changed: true, Message: MsgIdentityAdded}, nil
}

// RemoveIdentity drops the association. Removing an absent pair is not an
// error.
func (s *ContextService) RemoveIdentity(ctx context.Context, account *models.Account, contextID, identityID int64) (Notice, error) {
	var removed bool
	err := s.store.Tx(ctx, func(tx store.Store) error {
		if err := s.checkPair(ctx, tx, account, contextID, identityID); err != nil {
			return err
		}
		var err error
		removed, err = tx.RemoveContextIdentity(ctx, contextID, identityID)
		return err
	})
	if err != nil {
		return Notice{}, err
	}
	if !removed {
		return Notice{Message: MsgIdentityNotAssigned}, nil
	}
	s.publish(models.EventIdentityRemoved, account.ID, identityID, contextID)
	return Notice{Changed: true, Message: MsgIdentityRemoved}, nil
}

func (s *ContextService) checkPair(ctx context.Context, tx store.Store, account *models.Account, contextID, identityID int64) error {
	if _, err := tx.GetContext(ctx, account.ID, contextID); err != nil {
		return err
	}
	_, err := tx.GetIdentity(ctx, account.ID, identityID)
	return err
}

func (s *ContextService) ListIdentities(ctx context.Context, account *models.Account, contextID int64) ([]models.Identity, error) {
	if _, err := s.store.GetContext(ctx, account.ID, contextID); err != nil {
		return nil, err
	}
	return s.store.ListContextIdentities(ctx, account.ID, contextID)
}

func (s *ContextService) ListUnassigned(ctx context.Context, account *models.Account, contextID int64) ([]models.Identity, error) {
	if _, err := s.store.GetContext(ctx, account.ID, contextID); err != nil {
		return nil, err
	}
	return s.store.ListUnassignedIdentities(ctx, account.ID, contextID)
}

// Resolve picks the identity to present in a context: the account default
// when it is a member, else the oldest member, else the account default.
// The chosen identity has its use recorded.
func (s *ContextService) Resolve(ctx context.Context, account *models.Account, contextID int64) (*Resolution, error) {
	c, err := s.store.GetContext(ctx, account.ID, contextID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListContextIdentities(ctx, account.ID, contextID)
	if err != nil {
		return nil, err
	}

	var chosen *models.Identity
	method := ResolvedByMapping
	for i := range members {
		if members[i].IsDefault {
			chosen = &members[i]
			break
		}
	}
	if chosen == nil && len(members) > 0 {
		chosen = &members[0]
	}
	if chosen == nil {
		chosen, err = s.store.GetDefaultIdentity(ctx, account.ID)
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf(common.ErrNotFound, "No identity available for context")
		}
		if err != nil {
			return nil, err
		}
		method = ResolvedByFallback
	}

	now := s.now()
	if chosen, err = recordUse(ctx, s.store, account.ID, chosen.ID, now); err != nil {
		return nil, err
	}

	return &Resolution{
		ContextID:        c.ID,
		ContextName:      c.Name,
		ResolvedIdentity: chosen.Public(),
		ResolutionMethod: method,
		Timestamp:        now,
	}, nil
}
