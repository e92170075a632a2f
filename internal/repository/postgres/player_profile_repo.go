package postgres

import (
	"errors"
	"fmt"

	"github.com/yourusername/gamelink-api/internal/domain/entity"
	apperrors "github.com/yourusername/gamelink-api/internal/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PlayerProfileRepo struct {
	db *gorm.DB
}

func NewPlayerProfileRepo(db *gorm.DB) *PlayerProfileRepo {
	return &PlayerProfileRepo{db: db}
}

func (r *PlayerProfileRepo) GetByRecallToken(token string) (*entity.PlayerProfile, error) {
	var profile entity.PlayerProfile
	err := r.db.Where("recall_token = ?", token).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get player profile: %w", err)
	}
	return &profile, nil
}

func (r *PlayerProfileRepo) Create(profile *entity.PlayerProfile) error {
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(profile)
	if result.Error != nil {
		return fmt.Errorf("failed to create player profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrConflict
	}
	return nil
}
