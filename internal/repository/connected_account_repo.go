package repository

import (
	"Beacon/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

// ConnectedAccountRepo 平台凭据只读存储
type ConnectedAccountRepo interface {
	GetAccount(ctx context.Context, userID uint64, platform model.Platform) (*model.ConnectedAccount, error)
	ListByUser(ctx context.Context, userID uint64) ([]*model.ConnectedAccount, error)
}

type connectedAccountRepoImpl struct {
	db *gorm.DB
}

func NewConnectedAccountRepo(db *gorm.DB) ConnectedAccountRepo {
	return &connectedAccountRepoImpl{db: db}
}

// GetAccount 不存在时返回 nil, nil
func (r *connectedAccountRepoImpl) GetAccount(ctx context.Context, userID uint64, platform model.Platform) (*model.ConnectedAccount, error) {
	var account model.ConnectedAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, platform).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *connectedAccountRepoImpl) ListByUser(ctx context.Context, userID uint64) ([]*model.ConnectedAccount, error) {
	accounts := make([]*model.ConnectedAccount, 0)
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("platform ASC").
		Find(&accounts)
	return accounts, result.Error
}
