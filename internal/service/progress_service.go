package service

import (
	"fmt"
	"log"

	"github.com/yourusername/gamelink-api/internal/domain/entity"
	"github.com/yourusername/gamelink-api/internal/domain/repository"
)

// ProgressService мутирует счетчик прогресса аккаунта.
// Семантика — безусловная перезапись (last-write-wins), без инкрементов.
type ProgressService struct {
	accountRepo repository.AccountRepository
}

func NewProgressService(accountRepo repository.AccountRepository) (*ProgressService, error) {
	if accountRepo == nil {
		return nil, fmt.Errorf("account repository is required")
	}
	return &ProgressService{accountRepo: accountRepo}, nil
}

// PostCount перезаписывает счетчик аккаунта, названного в session claims.
func (s *ProgressService) PostCount(accountID uint, count int) (*entity.Account, error) {
	account, err := s.accountRepo.UpdateCount(accountID, count)
	if err != nil {
		return nil, err
	}
	log.Printf("[Progress] Account %d count set to %d", accountID, count)
	return account, nil
}
