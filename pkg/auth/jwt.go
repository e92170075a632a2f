package auth

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Ошибки парсинга session credential. Handlers маппят обе на 403:
// невалидный и истекший токен для клиента неразличимы — "sign in again".
var (
	ErrTokenExpired = errors.New("token is expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// SessionClaims содержит claims выданного session credential:
// внешняя identity (playerID) и внутренний аккаунт, к которому она привязана.
type SessionClaims struct {
	PlayerID  string `json:"player_id"`
	AccountID uint   `json:"account_id"`
	jwt.RegisteredClaims
}

// JWTService выпускает и проверяет session credentials.
// Проверка — чистая функция от shared secret, без обращения к хранилищу.
type JWTService struct {
	secret        []byte
	expirationHrs int
}

// NewJWTService создает новый сервис JWT.
// Пустой secret — фатальная ошибка конфигурации, а не per-request ошибка.
func NewJWTService(secret string, expirationHrs int) (*JWTService, error) {
	if secret == "" {
		return nil, errors.New("JWT signing secret is required")
	}
	if expirationHrs <= 0 {
		expirationHrs = 168 // 7 суток, как в референсном сервисе
	}
	return &JWTService{
		secret:        []byte(secret),
		expirationHrs: expirationHrs,
	}, nil
}

// GenerateToken создает подписанный токен, связывающий identity с аккаунтом.
func (s *JWTService) GenerateToken(playerID string, accountID uint) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		PlayerID:  playerID,
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour * time.Duration(s.expirationHrs))),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "gamelink-api",
			Subject:   fmt.Sprintf("%d", accountID),
			Audience:  jwt.ClaimStrings{"gamelink-player"},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		log.Printf("[JWT] Ошибка генерации токена для аккаунта ID=%d: %v", accountID, err)
		return "", err
	}
	return tokenString, nil
}

// ParseToken проверяет подпись и срок действия session credential.
func (s *JWTService) ParseToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})

	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			switch {
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				logAccountID := uint(0)
				if claims != nil {
					logAccountID = claims.AccountID
				}
				log.Printf("[JWT] Токен истек для аккаунта ID=%d", logAccountID)
				return nil, ErrTokenExpired
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				log.Printf("[JWT] Токен имеет неверный формат")
				return nil, ErrTokenInvalid
			case ve.Errors&jwt.ValidationErrorSignatureInvalid != 0:
				log.Printf("[JWT] Неверная подпись токена")
				return nil, ErrTokenInvalid
			default:
				log.Printf("[JWT] Ошибка при разборе токена: %v", err)
				return nil, ErrTokenInvalid
			}
		}
		return nil, ErrTokenInvalid
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.AccountID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
