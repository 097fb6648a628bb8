package sqlstore

import (
	"context"
	"time"

	"github.com/pliu/personifid/internal/common"
	"github.com/pliu/personifid/internal/models"
	"gorm.io/gorm"
)

const identityColumns = "identities.*, " +
	"(SELECT COUNT(*) FROM identity_contexts ic WHERE ic.identity_id = identities.id) AS context_count"

func (s *SQLStore) identities(ctx context.Context, accountID int64) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Identity{}).
		Select(identityColumns).
		Where("identities.user_id = ?", accountID)
}

func (s *SQLStore) ListIdentities(ctx context.Context, accountID int64) ([]models.Identity, error) {
	var out []models.Identity
	err := s.identities(ctx, accountID).Order("identities.id").Find(&out).Error
	return nonNil(out), err
}

func (s *SQLStore) RecentIdentities(ctx context.Context, accountID int64, limit int) ([]models.Identity, error) {
	var out []models.Identity
	err := s.identities(ctx, accountID).
		Order("identities.created_at DESC, identities.id DESC").
		Limit(limit).
		Find(&out).Error
	return nonNil(out), err
}

func (s *SQLStore) CountIdentities(ctx context.Context, accountID int64) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Identity{}).Where("user_id = ?", accountID).Count(&n).Error
	return n, err
}

func (s *SQLStore) GetIdentity(ctx context.Context, accountID, id int64) (*models.Identity, error) {
	var identity models.Identity
	if err := s.identities(ctx, accountID).Where("identities.id = ?", id).Take(&identity).Error; err != nil {
		return nil, notFound(err, "Identity")
	}
	return &identity, nil
}

func (s *SQLStore) GetDefaultIdentity(ctx context.Context, accountID int64) (*models.Identity, error) {
	var identity models.Identity
	err := s.identities(ctx, accountID).
		Where("identities.is_default = ?", true).
		Order("identities.id").
		Take(&identity).Error
	if err != nil {
		return nil, notFound(err, "Default identity")
	}
	return &identity, nil
}

func (s *SQLStore) InsertIdentity(ctx context.Context, identity *models.Identity) error {
	if identity.SocialLinks == nil {
		identity.SocialLinks = models.SocialLinks{}
	}
	return s.db.WithContext(ctx).Omit("Account").Create(identity).Error
}

func (s *SQLStore) UpdateIdentity(ctx context.Context, accountID, id int64, fields map[string]any) error {
	values := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		values[k] = v
	}
	values["updated_at"] = s.db.NowFunc()

	res := s.db.WithContext(ctx).Model(&models.Identity{}).
		Where("id = ? AND user_id = ?", id, accountID).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return common.Errorf(common.ErrNotFound, "Identity not found")
	}
	return nil
}

// ClearDefaultIdentities unsets is_default on every identity of the account
// except exceptID (pass 0 to clear all).
func (s *SQLStore) ClearDefaultIdentities(ctx context.Context, accountID, exceptID int64) error {
	return s.db.WithContext(ctx).Model(&models.Identity{}).
		Where("user_id = ? AND id <> ? AND is_default = ?", accountID, exceptID, true).
		Update("is_default", false).Error
}

// DeleteIdentity removes the identity and every association row that
// references it.
func (s *SQLStore) DeleteIdentity(ctx context.Context, accountID, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := tx.Model(&models.Identity{}).Select("id").Where("id = ? AND user_id = ?", id, accountID)
		if err := tx.Where("identity_id IN (?)", owned).Delete(&models.IdentityContext{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND user_id = ?", id, accountID).Delete(&models.Identity{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return common.Errorf(common.ErrNotFound, "Identity not found")
		}
		return nil
	})
}

func (s *SQLStore) RecordIdentityUse(ctx context.Context, accountID, id int64, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Identity{}).
		Where("id = ? AND user_id = ?", id, accountID).
		Updates(map[string]any{
			"usage_count": gorm.Expr("usage_count + 1"),
			"last_used":   at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return common.Errorf(common.ErrNotFound, "Identity not found")
	}
	return nil
}
