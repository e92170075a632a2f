package entity

import "time"

// PlayerProfile — запись игрока для recall-сервиса, ключом служит
// долговременный recall token, зарегистрированный у брокера.
type PlayerProfile struct {
	RecallToken      string    `gorm:"size:64;primaryKey" json:"-"`
	Username         string    `gorm:"size:100;not null" json:"username"`
	CoinsOwned       int       `gorm:"not null;default:0" json:"coinsOwned"`
	DistanceTraveled int       `gorm:"not null;default:0" json:"distanceTraveled"`
	CreatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

func (PlayerProfile) TableName() string {
	return "player_profiles"
}
