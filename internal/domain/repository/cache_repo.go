package repository

import "time"

// CacheRepository — интерфейс для кеширования (Redis или другие реализации).
type CacheRepository interface {
	SetJSON(key string, value interface{}, expiration time.Duration) error
	GetJSON(key string, dest interface{}) error
	Delete(key string) error
}
