package repository

import "github.com/yourusername/gamelink-api/internal/domain/entity"

// AccountRepository stores internal game accounts and their progress counter.
type AccountRepository interface {
	GetByID(id uint) (*entity.Account, error)
	// UpdateCount unconditionally overwrites the stored counter (last-write-wins).
	UpdateCount(id uint, count int) (*entity.Account, error)
}
