// Package memory содержит потокобезопасные in-memory реализации репозиториев.
// Используется в тестах и для локальной разработки без PostgreSQL; семантика
// условной вставки совпадает с postgres-реализацией.
package memory

import (
	"sync"
	"time"

	"github.com/yourusername/gamelink-api/internal/domain/entity"
	apperrors "github.com/yourusername/gamelink-api/internal/pkg/errors"
)

// Store реализует repository.AccountRepository и repository.IdentityLinkRepository.
type Store struct {
	mu       sync.Mutex
	nextID   uint
	accounts map[uint]*entity.Account
	links    map[string]*entity.IdentityLink // key: provider + "\x00" + externalID
}

func NewStore() *Store {
	return &Store{
		nextID:   1001, // тот же старт последовательности, что и в миграции
		accounts: make(map[uint]*entity.Account),
		links:    make(map[string]*entity.IdentityLink),
	}
}

func linkKey(provider, externalID string) string {
	return provider + "\x00" + externalID
}

func (s *Store) GetByID(id uint) (*entity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *Store) UpdateCount(id uint, count int) (*entity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	account.Count = count
	copied := *account
	return &copied, nil
}

func (s *Store) GetByProviderExternalID(provider, externalID string) (*entity.IdentityLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[linkKey(provider, externalID)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *link
	return &copied, nil
}

// LinkAccount выделяет аккаунт и вставляет mapping атомарно под мьютексом —
// никакой suspension point между проверкой и вставкой.
func (s *Store) LinkAccount(link *entity.IdentityLink) (*entity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := linkKey(link.Provider, link.ExternalID)
	if _, exists := s.links[key]; exists {
		return nil, apperrors.ErrConflict
	}

	account := &entity.Account{
		ID:        s.nextID,
		Count:     0,
		CreatedAt: time.Now(),
	}
	s.nextID++
	s.accounts[account.ID] = account

	link.AccountID = account.ID
	link.CreatedAt = account.CreatedAt
	stored := *link
	s.links[key] = &stored

	copied := *account
	return &copied, nil
}
