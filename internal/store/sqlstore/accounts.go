package sqlstore

import (
	"context"

	"github.com/pliu/personifid/internal/common"
	"github.com/pliu/personifid/internal/models"
)

func (s *SQLStore) CreateAccount(ctx context.Context, account *models.Account) error {
	err := s.db.WithContext(ctx).Create(account).Error
	if isDuplicate(err) {
		return common.Errorf(common.ErrConflict, "Username or email already exists")
	}
	return err
}

func (s *SQLStore) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&account).Error; err != nil {
		return nil, notFound(err, "User")
	}
	return &account, nil
}

func (s *SQLStore) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).Where("username = ?", username).Take(&account).Error; err != nil {
		return nil, notFound(err, "User")
	}
	return &account, nil
}

func (s *SQLStore) GetAccountByLogin(ctx context.Context, usernameOrEmail string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", usernameOrEmail, usernameOrEmail).
		Order("id").
		Take(&account).Error
	if err != nil {
		return nil, notFound(err, "User")
	}
	return &account, nil
}

func (s *SQLStore) AccountTaken(ctx context.Context, username, email string, exceptID int64) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("(username = ? OR email = ?) AND id <> ?", username, email, exceptID).
		Count(&n).Error
	return n > 0, err
}

func (s *SQLStore) UpdateAccount(ctx context.Context, id int64, fields map[string]any) error {
	err := s.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).Updates(fields).Error
	if isDuplicate(err) {
		return common.Errorf(common.ErrConflict, "Username or email already exists")
	}
	return err
}

func (s *SQLStore) VerifyAccount(ctx context.Context, token string) error {
	if token == "" {
		return common.Errorf(common.ErrNotFound, "Invalid verification token")
	}
	res := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("verification_token = ?", token).
		Updates(map[string]any{"is_verified": true, "verification_token": ""})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return common.Errorf(common.ErrNotFound, "Invalid verification token")
	}
	return nil
}

// RefreshIdentityCount stores the live number of identities owned by the
// account in its denormalized counter.
func (s *SQLStore) RefreshIdentityCount(ctx context.Context, accountID int64) (int, error) {
	n, err := s.CountIdentities(ctx, accountID)
	if err != nil {
		return 0, err
	}
	err = s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("identity_count", n).Error
	return int(n), err
}
