package sqlstore

import (
	"context"

	"github.com/pliu/personifid/internal/common"
	"github.com/pliu/personifid/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const contextColumns = "contexts.*, " +
	"(SELECT COUNT(*) FROM identity_contexts ic WHERE ic.context_id = contexts.id) AS identity_count"

func (s *SQLStore) contexts(ctx context.Context, accountID int64) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Context{}).
		Select(contextColumns).
		Where("contexts.user_id = ?", accountID)
}

func (s *SQLStore) ListContexts(ctx context.Context, accountID int64) ([]models.Context, error) {
	var out []models.Context
	err := s.contexts(ctx, accountID).Order("contexts.id").Find(&out).Error
	return nonNil(out), err
}

func (s *SQLStore) CountContexts(ctx context.Context, accountID int64) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Context{}).Where("user_id = ?", accountID).Count(&n).Error
	return n, err
}

func (s *SQLStore) GetContext(ctx context.Context, accountID, id int64) (*models.Context, error) {
	var c models.Context
	if err := s.contexts(ctx, accountID).Where("contexts.id = ?", id).Take(&c).Error; err != nil {
		return nil, notFound(err, "Context")
	}
	return &c, nil
}

func (s *SQLStore) InsertContext(ctx context.Context, c *models.Context) error {
	return s.db.WithContext(ctx).Omit("Account").Create(c).Error
}

func (s *SQLStore) UpdateContext(ctx context.Context, accountID, id int64, fields map[string]any) error {
	values := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		values[k] = v
	}
	values["updated_at"] = s.db.NowFunc()

	res := s.db.WithContext(ctx).Model(&models.Context{}).
		Where("id = ? AND user_id = ?", id, accountID).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return common.Errorf(common.ErrNotFound, "Context not found")
	}
	return nil
}

func (s *SQLStore) DeleteContext(ctx context.Context, accountID, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := tx.Model(&models.Context{}).Select("id").Where("id = ? AND user_id = ?", id, accountID)
		if err := tx.Where("context_id IN (?)", owned).Delete(&models.IdentityContext{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND user_id = ?", id, accountID).Delete(&models.Context{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return common.Errorf(common.ErrNotFound, "Context not found")
		}
		return nil
	})
}

// AddContextIdentity inserts the pair and reports whether it was new. An
// existing pair is left alone.
func (s *SQLStore) AddContextIdentity(ctx context.Context, contextID, identityID int64) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&models.IdentityContext{IdentityID: identityID, ContextID: contextID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *SQLStore) RemoveContextIdentity(ctx context.Context, contextID, identityID int64) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("context_id = ? AND identity_id = ?", contextID, identityID).
		Delete(&models.IdentityContext{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *SQLStore) ListContextIdentities(ctx context.Context, accountID, contextID int64) ([]models.Identity, error) {
	var out []models.Identity
	err := s.identities(ctx, accountID).
		Joins("JOIN identity_contexts ON identity_contexts.identity_id = identities.id").
		Where("identity_contexts.context_id = ?", contextID).
		Order("identities.id").
		Find(&out).Error
	return nonNil(out), err
}

func (s *SQLStore) ListUnassignedIdentities(ctx context.Context, accountID, contextID int64) ([]models.Identity, error) {
	var out []models.Identity
	err := s.identities(ctx, accountID).
		Where("identities.id NOT IN (SELECT identity_id FROM identity_contexts WHERE context_id = ?)", contextID).
		Order("identities.id").
		Find(&out).Error
	return nonNil(out), err
}
