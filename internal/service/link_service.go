package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/yourusername/gamelink-api/internal/domain/entity"
	"github.com/yourusername/gamelink-api/internal/domain/repository"
	apperrors "github.com/yourusername/gamelink-api/internal/pkg/errors"
	"github.com/yourusername/gamelink-api/pkg/auth"
)

// Идентификаторы провайдеров. Внешние id всегда квалифицируются префиксом
// провайдера — без него значения разных провайдеров могут коллидировать.
const (
	googleProvider   = "google"
	facebookProvider = "facebook"
)

// GoogleCredentialVerifier абстрагирует верификацию Google credentials.
type GoogleCredentialVerifier interface {
	Verify(ctx context.Context, cred GoogleCredential) (*GoogleTokenInfo, error)
}

// FacebookCredentialVerifier абстрагирует введение Facebook access токенов.
type FacebookCredentialVerifier interface {
	Verify(ctx context.Context, accessToken string) (*FacebookTokenInfo, error)
}

// LinkResult — результат успешного linking: аккаунт и session credential.
type LinkResult struct {
	PlayerID string
	Email    string
	Account  *entity.Account
	Token    string
}

// LinkService связывает verified внешнюю identity с внутренним аккаунтом
// и выпускает session credential.
type LinkService struct {
	googleVerifier   GoogleCredentialVerifier
	facebookVerifier FacebookCredentialVerifier
	linkRepo         repository.IdentityLinkRepository
	accountRepo      repository.AccountRepository
	jwtService       *auth.JWTService
}

func NewLinkService(
	googleVerifier GoogleCredentialVerifier,
	facebookVerifier FacebookCredentialVerifier,
	linkRepo repository.IdentityLinkRepository,
	accountRepo repository.AccountRepository,
	jwtService *auth.JWTService,
) (*LinkService, error) {
	if googleVerifier == nil || facebookVerifier == nil {
		return nil, fmt.Errorf("credential verifiers are required")
	}
	if linkRepo == nil || accountRepo == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if jwtService == nil {
		return nil, fmt.Errorf("jwt service is required")
	}
	return &LinkService{
		googleVerifier:   googleVerifier,
		facebookVerifier: facebookVerifier,
		linkRepo:         linkRepo,
		accountRepo:      accountRepo,
		jwtService:       jwtService,
	}, nil
}

// LinkGoogle верифицирует Google credential (ID token или auth code) и
// связывает playerID с аккаунтом. Вся сетевая верификация выполняется ДО
// обращения к mapping-хранилищу: между проверкой и вставкой нет await.
func (s *LinkService) LinkGoogle(ctx context.Context, cred GoogleCredential, playerID string) (*LinkResult, error) {
	info, err := s.googleVerifier.Verify(ctx, cred)
	if err != nil {
		return nil, err
	}
	log.Printf("[Link] Google identity verified: sub=%s playerID=%s", info.Sub, playerID)

	externalID := googleProvider + "-" + playerID
	account, err := s.findOrCreateAccount(googleProvider, externalID, info.Email)
	if err != nil {
		return nil, err
	}

	token, err := s.jwtService.GenerateToken(playerID, account.ID)
	if err != nil {
		return nil, err
	}

	return &LinkResult{
		PlayerID: playerID,
		Email:    info.Email,
		Account:  account,
		Token:    token,
	}, nil
}

// LinkFacebook верифицирует access токен через introspection и связывает
// идентичность fb-<id> с аккаунтом.
func (s *LinkService) LinkFacebook(ctx context.Context, accessToken string) (*LinkResult, error) {
	info, err := s.facebookVerifier.Verify(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	playerID := "fb-" + info.UserID
	log.Printf("[Link] Facebook identity verified: %s", playerID)

	account, err := s.findOrCreateAccount(facebookProvider, playerID, info.Email)
	if err != nil {
		return nil, err
	}

	token, err := s.jwtService.GenerateToken(playerID, account.ID)
	if err != nil {
		return nil, err
	}

	return &LinkResult{
		PlayerID: playerID,
		Email:    info.Email,
		Account:  account,
		Token:    token,
	}, nil
}

// findOrCreateAccount возвращает существующий аккаунт для identity или
// создает новый. At-most-once гарантирует хранилище: при проигрыше гонки
// первой вставки (ErrConflict) возвращаем аккаунт победителя.
func (s *LinkService) findOrCreateAccount(provider, externalID, email string) (*entity.Account, error) {
	link, err := s.linkRepo.GetByProviderExternalID(provider, externalID)
	if err == nil {
		log.Printf("[Link] Existing identity %s/%s -> account %d", provider, externalID, link.AccountID)
		return s.accountRepo.GetByID(link.AccountID)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	account, err := s.linkRepo.LinkAccount(&entity.IdentityLink{
		Provider:   provider,
		ExternalID: externalID,
		Email:      email,
	})
	if err == nil {
		log.Printf("[Link] New identity %s/%s -> account %d", provider, externalID, account.ID)
		return account, nil
	}
	if !errors.Is(err, apperrors.ErrConflict) {
		return nil, err
	}

	// Конкурентный первый link успел раньше — читаем его результат.
	link, lookupErr := s.linkRepo.GetByProviderExternalID(provider, externalID)
	if lookupErr != nil {
		return nil, lookupErr
	}
	return s.accountRepo.GetByID(link.AccountID)
}
