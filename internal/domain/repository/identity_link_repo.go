package repository

import "github.com/yourusername/gamelink-api/internal/domain/entity"

// IdentityLinkRepository stores the ExternalIdentity -> Account mapping.
type IdentityLinkRepository interface {
	GetByProviderExternalID(provider, externalID string) (*entity.IdentityLink, error)
	// LinkAccount atomically allocates a new account and inserts the mapping.
	// The store must guarantee at most one account per (provider, externalID):
	// when a concurrent request wins the race, the insert must be rolled back
	// and ErrConflict returned, never a second account.
	LinkAccount(link *entity.IdentityLink) (*entity.Account, error)
}
