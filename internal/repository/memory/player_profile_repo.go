package memory

import (
	"sync"

	"github.com/yourusername/gamelink-api/internal/domain/entity"
	apperrors "github.com/yourusername/gamelink-api/internal/pkg/errors"
)

// PlayerProfileRepo реализует repository.PlayerProfileRepository поверх карты.
type PlayerProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*entity.PlayerProfile
}

func NewPlayerProfileRepo() *PlayerProfileRepo {
	return &PlayerProfileRepo{profiles: make(map[string]*entity.PlayerProfile)}
}

func (r *PlayerProfileRepo) GetByRecallToken(token string) (*entity.PlayerProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.profiles[token]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *profile
	return &copied, nil
}

func (r *PlayerProfileRepo) Create(profile *entity.PlayerProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[profile.RecallToken]; exists {
		return apperrors.ErrConflict
	}
	stored := *profile
	r.profiles[profile.RecallToken] = &stored
	return nil
}
