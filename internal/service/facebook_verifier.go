package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yourusername/gamelink-api/internal/config"
	apperrors "github.com/yourusername/gamelink-api/internal/pkg/errors"
)

const facebookGraphBaseURL = "https://graph.facebook.com"

// FacebookTokenInfo — результат introspection access токена.
// Email и Name заполняются best-effort: сбой запроса профиля linking не блокирует.
type FacebookTokenInfo struct {
	UserID string
	Email  string
	Name   string
}

// FacebookVerifier проверяет opaque access токены через Graph API debug_token
// с app-level секретом и подтягивает поля профиля вторым запросом.
type FacebookVerifier struct {
	cfg        config.FacebookConfig
	httpClient *http.Client
	baseURL    string
}

func NewFacebookVerifier(cfg config.FacebookConfig) *FacebookVerifier {
	baseURL := strings.TrimSpace(cfg.GraphBaseURL)
	if baseURL == "" {
		baseURL = facebookGraphBaseURL
	}
	return &FacebookVerifier{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Verify выполняет introspection и возвращает стабильный user id.
func (v *FacebookVerifier) Verify(ctx context.Context, accessToken string) (*FacebookTokenInfo, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, fmt.Errorf("%w: accessToken is required", apperrors.ErrValidation)
	}

	userID, err := v.introspectToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	info := &FacebookTokenInfo{UserID: userID}

	// Профиль — best-effort. Ошибку логируем, но identity уже подтверждена.
	if err := v.fetchProfile(ctx, accessToken, info); err != nil {
		log.Printf("[FacebookVerifier] %v: %v", ErrProfileFetchFailed, err)
	}

	return info, nil
}

func (v *FacebookVerifier) introspectToken(ctx context.Context, accessToken string) (string, error) {
	appToken := v.cfg.AppID + "|" + v.cfg.AppSecret
	endpoint := fmt.Sprintf("%s/debug_token?input_token=%s&access_token=%s",
		v.baseURL, url.QueryEscape(accessToken), url.QueryEscape(appToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create facebook debug_token request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: facebook debug_token request failed: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%w: facebook debug_token status=%d body=%s", apperrors.ErrInvalidCredential, resp.StatusCode, string(body))
	}

	var payload struct {
		Data struct {
			AppID   string `json:"app_id"`
			IsValid bool   `json:"is_valid"`
			UserID  string `json:"user_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to parse facebook debug_token response: %w", err)
	}

	if !payload.Data.IsValid {
		return "", fmt.Errorf("%w: facebook reports token is_valid=false", apperrors.ErrInvalidCredential)
	}
	if payload.Data.AppID != "" && payload.Data.AppID != v.cfg.AppID {
		return "", fmt.Errorf("%w: facebook token app_id mismatch", apperrors.ErrInvalidCredential)
	}
	if payload.Data.UserID == "" {
		return "", fmt.Errorf("%w: facebook token has no user_id", apperrors.ErrInvalidCredential)
	}

	return payload.Data.UserID, nil
}

func (v *FacebookVerifier) fetchProfile(ctx context.Context, accessToken string, info *FacebookTokenInfo) error {
	endpoint := fmt.Sprintf("%s/%s?fields=name,email&access_token=%s",
		v.baseURL, url.PathEscape(info.UserID), url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("facebook profile status=%d body=%s", resp.StatusCode, string(body))
	}

	var profile struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return err
	}

	info.Name = strings.TrimSpace(profile.Name)
	info.Email = strings.TrimSpace(profile.Email)
	return nil
}
