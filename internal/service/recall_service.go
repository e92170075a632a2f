package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/gamelink-api/internal/domain/entity"
	"github.com/yourusername/gamelink-api/internal/domain/repository"
	apperrors "github.com/yourusername/gamelink-api/internal/pkg/errors"
)

// RecallStatus — состояние recall-потока, видимое клиенту.
type RecallStatus string

const (
	StatusNewPlayer      RecallStatus = "NewPlayer"
	StatusAccountFound   RecallStatus = "AccountFound"
	StatusAccountCreated RecallStatus = "AccountCreated"
	// StatusOrphanedToken — брокер знает о связке, локальной записи нет.
	// Не схлопываем в NewPlayer: повторное создание аккаунта за уже
	// связанным токеном дало бы дубликат.
	StatusOrphanedToken RecallStatus = "OrphanedToken"
)

// Стартовый профиль нового игрока.
const (
	newPlayerStartingCoins    = 1
	newPlayerStartingDistance = 100
)

// RecallService восстанавливает аккаунт по session handle брокера
// и создает новые связанные аккаунты.
type RecallService struct {
	broker      RecallBroker
	profileRepo repository.PlayerProfileRepository
	cache       repository.CacheRepository // nil — кеш выключен
	cacheTTL    time.Duration
}

func NewRecallService(
	broker RecallBroker,
	profileRepo repository.PlayerProfileRepository,
	cache repository.CacheRepository,
	cacheTTL time.Duration,
) (*RecallService, error) {
	if broker == nil {
		return nil, fmt.Errorf("recall broker is required")
	}
	if profileRepo == nil {
		return nil, fmt.Errorf("player profile repository is required")
	}
	return &RecallService{
		broker:      broker,
		profileRepo: profileRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
	}, nil
}

func profileCacheKey(recallToken string) string {
	return "recall:profile:" + recallToken
}

// RecallSession запрашивает у брокера токены для session handle и ищет
// локальный профиль. Состояния: NewPlayer (брокер не знает сессию),
// AccountFound (профиль найден), OrphanedToken (связка без записи).
func (s *RecallService) RecallSession(ctx context.Context, recallSessionID string) (RecallStatus, *entity.PlayerProfile, error) {
	tokens, err := s.broker.LookupRecallTokens(ctx, recallSessionID)
	if err != nil {
		return "", nil, err
	}

	if len(tokens) == 0 {
		log.Printf("[Recall] No tokens for session, new player")
		return StatusNewPlayer, nil, nil
	}

	recallToken := tokens[0]

	if s.cache != nil {
		var cached entity.PlayerProfile
		if err := s.cache.GetJSON(profileCacheKey(recallToken), &cached); err == nil {
			log.Printf("[Recall] Profile cache hit for token")
			return StatusAccountFound, &cached, nil
		}
	}

	profile, err := s.profileRepo.GetByRecallToken(recallToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[Recall] Orphaned token: broker has a link, local store has no record")
			return StatusOrphanedToken, nil, nil
		}
		return "", nil, err
	}

	s.cacheProfile(profile)
	return StatusAccountFound, profile, nil
}

// CreateAccount чеканит новый recall токен, регистрирует persona у брокера
// и сохраняет стартовый профиль. Порядок важен: сначала брокер (сетевой
// вызов может упасть), затем локальная запись.
func (s *RecallService) CreateAccount(ctx context.Context, recallSessionID, username string) (*entity.PlayerProfile, error) {
	newRecallToken := uuid.NewString()

	// Persona должна быть стабильным несекретным идентификатором — используем сам токен.
	if err := s.broker.LinkPersona(ctx, recallSessionID, newRecallToken, newRecallToken); err != nil {
		return nil, err
	}

	profile := &entity.PlayerProfile{
		RecallToken:      newRecallToken,
		Username:         username,
		CoinsOwned:       newPlayerStartingCoins,
		DistanceTraveled: newPlayerStartingDistance,
		CreatedAt:        time.Now(),
	}
	if err := s.profileRepo.Create(profile); err != nil {
		return nil, err
	}

	s.cacheProfile(profile)
	log.Printf("[Recall] Created and linked account for %s", username)
	return profile, nil
}

func (s *RecallService) cacheProfile(profile *entity.PlayerProfile) {
	if s.cache == nil || profile == nil {
		return
	}
	if err := s.cache.SetJSON(profileCacheKey(profile.RecallToken), profile, s.cacheTTL); err != nil {
		log.Printf("[Recall] Failed to cache profile: %v", err)
	}
}
