package repository

import (
	"Beacon/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type UserRepo interface {
	GetUserById(ctx context.Context, id uint64) (*model.User, error)
	ListUserIDs(ctx context.Context) ([]uint64, error)
}

type UserRepoImpl struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepo {
	return &UserRepoImpl{db: db}
}

func (s *UserRepoImpl) GetUserById(ctx context.Context, id uint64) (*model.User, error) {
	user := &model.User{}
	result := s.db.WithContext(ctx).
		Where("is_delete = ?", false).
		First(user, id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return user, nil
}

// ListUserIDs 未删除的用户（封禁用户的历史数据仍计入统计），按 ID 升序
func (s *UserRepoImpl) ListUserIDs(ctx context.Context) ([]uint64, error) {
	ids := make([]uint64, 0)
	result := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("is_delete = ?", false).
		Order("id ASC").
		Pluck("id", &ids)
	if result.Error != nil {
		return nil, result.Error
	}
	return ids, nil
}
