package entity

import (
	"fmt"
	"time"
)

// Account — внутренний игровой аккаунт. ID выделяется последовательностью
// (стартует с 1001) и никогда не переиспользуется.
type Account struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Count     int       `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// InGameID returns the wire-format account identifier, e.g. "ingame-1001".
func (a *Account) InGameID() string {
	return fmt.Sprintf("ingame-%d", a.ID)
}
