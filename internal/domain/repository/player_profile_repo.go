package repository

import "github.com/yourusername/gamelink-api/internal/domain/entity"

// PlayerProfileRepository stores recall-service player records keyed by
// the durable recall token.
type PlayerProfileRepository interface {
	GetByRecallToken(token string) (*entity.PlayerProfile, error)
	Create(profile *entity.PlayerProfile) error
}
