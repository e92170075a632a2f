package entity

import "time"

// IdentityLink maps an external provider identity to a local account
// (google/facebook now, apple later). One link per (provider, external_id),
// created exactly once at first successful verification and never deleted.
type IdentityLink struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Provider   string    `gorm:"size:20;not null;uniqueIndex:idx_provider_external,priority:1" json:"provider"`
	ExternalID string    `gorm:"size:255;not null;uniqueIndex:idx_provider_external,priority:2" json:"external_id"`
	AccountID  uint      `gorm:"not null;index" json:"account_id"`
	Email      string    `gorm:"size:100" json:"email,omitempty"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (IdentityLink) TableName() string {
	return "identity_links"
}
