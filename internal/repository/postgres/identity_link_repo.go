package postgres

import (
	"errors"
	"fmt"

	"github.com/yourusername/gamelink-api/internal/domain/entity"
	apperrors "github.com/yourusername/gamelink-api/internal/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IdentityLinkRepo struct {
	db *gorm.DB
}

func NewIdentityLinkRepo(db *gorm.DB) *IdentityLinkRepo {
	return &IdentityLinkRepo{db: db}
}

func (r *IdentityLinkRepo) GetByProviderExternalID(provider, externalID string) (*entity.IdentityLink, error) {
	var link entity.IdentityLink
	err := r.db.
		Where("provider = ? AND external_id = ?", provider, externalID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get identity link: %w", err)
	}
	return &link, nil
}

// LinkAccount создает аккаунт и mapping в одной транзакции.
// Условная вставка (ON CONFLICT DO NOTHING) по уникальному индексу
// (provider, external_id) гарантирует not more than one account per identity:
// проигравшая гонку транзакция откатывается вместе со своим аккаунтом.
func (r *IdentityLinkRepo) LinkAccount(link *entity.IdentityLink) (*entity.Account, error) {
	var account entity.Account
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		link.AccountID = account.ID
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(link)
		if result.Error != nil {
			return fmt.Errorf("failed to create identity link: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			// Конкурентный первый link уже вставил mapping — откатываем аккаунт.
			return apperrors.ErrConflict
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}
