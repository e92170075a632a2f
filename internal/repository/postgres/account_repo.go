package postgres

import (
	"errors"
	"fmt"

	"github.com/yourusername/gamelink-api/internal/domain/entity"
	apperrors "github.com/yourusername/gamelink-api/internal/pkg/errors"
	"gorm.io/gorm"
)

type AccountRepo struct {
	db *gorm.DB
}

func NewAccountRepo(db *gorm.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) GetByID(id uint) (*entity.Account, error) {
	var account entity.Account
	err := r.db.First(&account, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}
	return &account, nil
}

func (r *AccountRepo) UpdateCount(id uint, count int) (*entity.Account, error) {
	result := r.db.Model(&entity.Account{}).Where("id = ?", id).Update("count", count)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update account count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrNotFound
	}
	return r.GetByID(id)
}
