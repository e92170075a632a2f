package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"

	apperrors "github.com/yourusername/gamelink-api/internal/pkg/errors"
)

const (
	gamesRecallBaseURL = "https://games.googleapis.com/games/v1"
	gamesRecallScope   = "https://www.googleapis.com/auth/androidpublisher"
)

// RecallBroker — кросс-девайсный identity-recall брокер: отображает
// эфемерный session handle в долговременные токены, не раскрывая identity.
type RecallBroker interface {
	// LookupRecallTokens возвращает recall токены для session handle.
	// Пустой срез — брокер ничего не знает об этой сессии (новый игрок).
	LookupRecallTokens(ctx context.Context, recallSessionID string) ([]string, error)
	// LinkPersona регистрирует новую persona за session handle, чтобы
	// последующие recall на других устройствах находили токен.
	LinkPersona(ctx context.Context, recallSessionID, persona, token string) error
}

// GamesRecallClient реализует RecallBroker поверх Games Recall API,
// аутентифицируясь сервисным аккаунтом (2-legged OAuth).
type GamesRecallClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewGamesRecallClient читает JSON-ключ сервисного аккаунта и строит
// HTTP-клиент с автоматическим получением access токенов.
// Любая проблема с ключом — фатальная ошибка конфигурации.
func NewGamesRecallClient(ctx context.Context, keyFilePath string) (*GamesRecallClient, error) {
	keyData, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key file %s: %w", keyFilePath, err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(keyData, gamesRecallScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}

	client := jwtConfig.Client(ctx)
	client.Timeout = 15 * time.Second

	return &GamesRecallClient{
		httpClient: client,
		baseURL:    gamesRecallBaseURL,
	}, nil
}

func (c *GamesRecallClient) LookupRecallTokens(ctx context.Context, recallSessionID string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/recall/tokens/%s", c.baseURL, url.PathEscape(recallSessionID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create recall lookup request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: recall token lookup failed: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	// 404 — не ошибка: у брокера просто нет токенов для этой сессии.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%w: recall token lookup status=%d body=%s", apperrors.ErrUpstreamUnavailable, resp.StatusCode, string(body))
	}

	var payload struct {
		Tokens []struct {
			Token string `json:"token"`
		} `json:"tokens"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse recall token response: %w", err)
	}

	tokens := make([]string, 0, len(payload.Tokens))
	for _, t := range payload.Tokens {
		if strings.TrimSpace(t.Token) != "" {
			tokens = append(tokens, t.Token)
		}
	}
	return tokens, nil
}

func (c *GamesRecallClient) LinkPersona(ctx context.Context, recallSessionID, persona, token string) error {
	endpoint := fmt.Sprintf("%s/recall:linkPersona?sessionId=%s", c.baseURL, url.QueryEscape(recallSessionID))

	body, err := json.Marshal(map[string]string{
		"token":   token,
		"persona": persona,
		// При конфликте связок всегда создаем новую — политика оригинального сервиса.
		"conflicting_links_resolution_policy": "CREATE_NEW_LINK",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal link persona request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create link persona request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: link persona request failed: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: link persona status=%d body=%s", apperrors.ErrUpstreamUnavailable, resp.StatusCode, string(respBody))
	}

	return nil
}
