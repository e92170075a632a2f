package service

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/yourusername/gamelink-api/internal/config"
	apperrors "github.com/yourusername/gamelink-api/internal/pkg/errors"
)

const (
	googleTokenEndpoint = "https://oauth2.googleapis.com/token"
	googleJWKSEndpoint  = "https://www.googleapis.com/oauth2/v3/certs"
)

// GoogleCredential — вариантный тип входа для единой функции верификации:
// либо готовый ID token (v2 flow), либо одноразовый auth code (v1 flow).
type GoogleCredential struct {
	IDToken  string
	AuthCode string
}

// GoogleTokenInfo — результат успешной верификации Google ID токена.
type GoogleTokenInfo struct {
	Sub   string
	Email string
}

// GoogleVerifier проверяет Google ID токены по JWKS и обменивает auth codes.
// Верификация read-only по отношению к провайдеру.
type GoogleVerifier struct {
	cfg        config.GoogleConfig
	httpClient *http.Client

	tokenEndpoint string
	jwksEndpoint  string

	jwksMu     sync.RWMutex
	jwksKeys   map[string]*rsa.PublicKey
	jwksExpiry time.Time
}

func NewGoogleVerifier(cfg config.GoogleConfig) *GoogleVerifier {
	tokenEndpoint := strings.TrimSpace(cfg.TokenEndpoint)
	if tokenEndpoint == "" {
		tokenEndpoint = googleTokenEndpoint
	}
	jwksEndpoint := strings.TrimSpace(cfg.JWKSEndpoint)
	if jwksEndpoint == "" {
		jwksEndpoint = googleJWKSEndpoint
	}
	return &GoogleVerifier{
		cfg:           cfg,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		tokenEndpoint: tokenEndpoint,
		jwksEndpoint:  jwksEndpoint,
	}
}

// Verify проверяет credential и возвращает стабильную внешнюю identity.
// Для auth code сначала выполняется обмен (сетевой вызов), затем верификация
// полученного ID токена.
func (v *GoogleVerifier) Verify(ctx context.Context, cred GoogleCredential) (*GoogleTokenInfo, error) {
	idToken := strings.TrimSpace(cred.IDToken)
	if idToken == "" {
		if strings.TrimSpace(cred.AuthCode) == "" {
			return nil, fmt.Errorf("%w: idToken or authCode is required", apperrors.ErrValidation)
		}
		var err error
		idToken, err = v.exchangeCodeForIDToken(ctx, cred.AuthCode)
		if err != nil {
			return nil, err
		}
	}
	return v.verifyIDToken(ctx, idToken)
}

func (v *GoogleVerifier) exchangeCodeForIDToken(ctx context.Context, code string) (string, error) {
	values := url.Values{}
	values.Set("code", code)
	values.Set("client_id", v.cfg.WebClientID)
	values.Set("client_secret", v.cfg.WebClientSecret)
	values.Set("redirect_uri", v.cfg.RedirectURI)
	values.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.tokenEndpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create google token exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: google token exchange request failed: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%w: google token exchange status=%d body=%s", apperrors.ErrExchangeFailed, resp.StatusCode, string(body))
	}

	var payload struct {
		IDToken string `json:"id_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to parse google token exchange response: %w", err)
	}
	if payload.IDToken == "" {
		return "", fmt.Errorf("%w: id_token not returned by google token exchange", apperrors.ErrExchangeFailed)
	}

	return payload.IDToken, nil
}

type googleIDTokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type googleJWKSet struct {
	Keys []googleJWK `json:"keys"`
}

type googleJWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (v *GoogleVerifier) verifyIDToken(ctx context.Context, idToken string) (*GoogleTokenInfo, error) {
	claims := &googleIDTokenClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	token, err := parser.ParseWithClaims(idToken, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if strings.TrimSpace(kid) == "" {
			return nil, fmt.Errorf("%w: missing kid header", apperrors.ErrInvalidCredential)
		}
		return v.getGooglePublicKey(ctx, strings.TrimSpace(kid))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", wrapVerificationError(err), err)
	}
	if token == nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", apperrors.ErrInvalidCredential)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", apperrors.ErrInvalidCredential)
	}
	if claims.Issuer != "accounts.google.com" && claims.Issuer != "https://accounts.google.com" {
		return nil, fmt.Errorf("%w: invalid issuer", apperrors.ErrInvalidCredential)
	}
	audMatched := false
	for _, aud := range claims.Audience {
		if aud != "" && aud == v.cfg.WebClientID {
			audMatched = true
			break
		}
	}
	if !audMatched {
		return nil, fmt.Errorf("%w: audience mismatch", apperrors.ErrInvalidCredential)
	}
	if claims.ExpiresAt == nil || time.Now().After(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w: token expired", apperrors.ErrInvalidCredential)
	}

	return &GoogleTokenInfo{
		Sub:   strings.TrimSpace(claims.Subject),
		Email: strings.TrimSpace(claims.Email),
	}, nil
}

// wrapVerificationError сохраняет таксономию: сетевые сбои при получении JWKS
// остаются UpstreamUnavailable, всё остальное — отклоненный credential.
func wrapVerificationError(err error) error {
	if strings.Contains(err.Error(), "failed to fetch google jwks") {
		return apperrors.ErrUpstreamUnavailable
	}
	return apperrors.ErrInvalidCredential
}

func (v *GoogleVerifier) getGooglePublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	now := time.Now()
	v.jwksMu.RLock()
	if key, ok := v.jwksKeys[kid]; ok && now.Before(v.jwksExpiry) {
		v.jwksMu.RUnlock()
		return key, nil
	}
	v.jwksMu.RUnlock()

	if err := v.refreshGoogleJWKS(ctx); err != nil {
		return nil, err
	}

	v.jwksMu.RLock()
	defer v.jwksMu.RUnlock()
	key, ok := v.jwksKeys[kid]
	if !ok || key == nil {
		return nil, fmt.Errorf("%w: jwks key not found", apperrors.ErrInvalidCredential)
	}
	return key, nil
}

func (v *GoogleVerifier) refreshGoogleJWKS(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksEndpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create google jwks request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch google jwks: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("failed to fetch google jwks: status=%d body=%s", resp.StatusCode, string(body))
	}

	var set googleJWKSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("failed to decode google jwks response: %w", err)
	}
	if len(set.Keys) == 0 {
		return fmt.Errorf("%w: empty google jwks response", apperrors.ErrInvalidCredential)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if strings.TrimSpace(jwk.Kid) == "" || jwk.Kty != "RSA" {
			continue
		}
		pub, err := parseGoogleRSAPublicKey(jwk)
		if err != nil {
			continue
		}
		keys[jwk.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: no usable rsa keys in google jwks", apperrors.ErrInvalidCredential)
	}

	ttl := parseGoogleJWKSMaxAge(resp.Header.Get("Cache-Control"))
	if ttl <= 0 {
		ttl = time.Hour
	}

	v.jwksMu.Lock()
	v.jwksKeys = keys
	v.jwksExpiry = time.Now().Add(ttl)
	v.jwksMu.Unlock()
	return nil
}

func parseGoogleRSAPublicKey(jwk googleJWK) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, err
	}

	n := new(big.Int).SetBytes(nBytes)
	eInt := 0
	for _, b := range eBytes {
		eInt = eInt<<8 + int(b)
	}
	if n.Sign() <= 0 || eInt <= 0 {
		return nil, fmt.Errorf("invalid rsa jwk")
	}

	return &rsa.PublicKey{N: n, E: eInt}, nil
}

func parseGoogleJWKSMaxAge(cacheControl string) time.Duration {
	for _, part := range strings.Split(cacheControl, ",") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(strings.ToLower(part), "max-age=") {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(strings.ToLower(part), "max-age="))
		seconds, err := time.ParseDuration(value + "s")
		if err != nil {
			return 0
		}
		if seconds < time.Minute {
			return time.Minute
		}
		return seconds
	}
	return 0
}
