package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yourusername/gamelink-api/internal/pkg/errors"
	"github.com/yourusername/gamelink-api/internal/service"
)

// LinkHandler обрабатывает linking-запросы от игрового клиента.
// Формы ответов повторяют контракт клиента дословно
// (playerID/email/inGameAccountID/inGameCount/jwtToken).
type LinkHandler struct {
	linkService     *service.LinkService
	progressService *service.ProgressService
}

func NewLinkHandler(linkService *service.LinkService, progressService *service.ProgressService) *LinkHandler {
	return &LinkHandler{
		linkService:     linkService,
		progressService: progressService,
	}
}

// --- Request/response DTOs ---

// GoogleLinkRequest — v2 flow: клиент передает готовый ID token.
type GoogleLinkRequest struct {
	IDToken  string `json:"idToken" binding:"required"`
	PlayerID string `json:"playerID" binding:"required"`
}

// AuthCodeLinkRequest — v1 flow: одноразовый server auth code.
type AuthCodeLinkRequest struct {
	AuthCode string `json:"authCode" binding:"required"`
	PlayerID string `json:"playerID" binding:"required"`
}

// FacebookLinkRequest — opaque access токен Facebook SDK.
type FacebookLinkRequest struct {
	AccessToken string `json:"accessToken" binding:"required"`
}

// LinkResponse — успешный ответ всех linking endpoints.
type LinkResponse struct {
	PlayerID        string `json:"playerID"`
	Email           string `json:"email"`
	InGameAccountID string `json:"inGameAccountID"`
	InGameCount     int    `json:"inGameCount"`
	JWTToken        string `json:"jwtToken"`
}

// PostCountRequest — указатель, чтобы count=0 проходил валидацию required.
type PostCountRequest struct {
	Count *int `json:"count" binding:"required"`
}

// PostCountResponse — email всегда пустой: прогресс-endpoint не знает профиль.
type PostCountResponse struct {
	PlayerID        string `json:"playerID"`
	Email           string `json:"email"`
	InGameAccountID string `json:"inGameAccountID"`
	InGameCount     int    `json:"inGameCount"`
}

// --- Handlers ---

// VerifyAndLinkGoogle обрабатывает POST /verify_and_link_google
func (h *LinkHandler) VerifyAndLinkGoogle(c *gin.Context) {
	var req GoogleLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idToken and playerID are required"})
		return
	}

	result, err := h.linkService.LinkGoogle(c.Request.Context(), service.GoogleCredential{IDToken: req.IDToken}, req.PlayerID)
	if err != nil {
		h.handleLinkError(c, err)
		return
	}

	c.JSON(http.StatusOK, linkResponseFrom(result))
}

// ExchangeAuthCodeAndLink обрабатывает POST /exchange_authcode_and_link
func (h *LinkHandler) ExchangeAuthCodeAndLink(c *gin.Context) {
	var req AuthCodeLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authCode and playerID are required"})
		return
	}

	result, err := h.linkService.LinkGoogle(c.Request.Context(), service.GoogleCredential{AuthCode: req.AuthCode}, req.PlayerID)
	if err != nil {
		h.handleLinkError(c, err)
		return
	}

	c.JSON(http.StatusOK, linkResponseFrom(result))
}

// VerifyAndLinkFacebook обрабатывает POST /verify_and_link_facebook
func (h *LinkHandler) VerifyAndLinkFacebook(c *gin.Context) {
	var req FacebookLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "accessToken is required"})
		return
	}

	result, err := h.linkService.LinkFacebook(c.Request.Context(), req.AccessToken)
	if err != nil {
		h.handleLinkError(c, err)
		return
	}

	c.JSON(http.StatusOK, linkResponseFrom(result))
}

// PostCount обрабатывает POST /post_count (Bearer-authenticated).
// Перезаписывает счетчик ровно того аккаунта, что закодирован в credential.
func (h *LinkHandler) PostCount(c *gin.Context) {
	accountID, exists := c.Get("account_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "token_missing"})
		return
	}

	var req PostCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "count is required"})
		return
	}

	account, err := h.progressService.PostCount(accountID.(uint), *req.Count)
	if err != nil {
		h.handleLinkError(c, err)
		return
	}

	playerID, _ := c.Get("player_id")
	playerIDStr, _ := playerID.(string)

	c.JSON(http.StatusOK, PostCountResponse{
		PlayerID:        playerIDStr,
		Email:           "",
		InGameAccountID: account.InGameID(),
		InGameCount:     account.Count,
	})
}

func linkResponseFrom(result *service.LinkResult) LinkResponse {
	return LinkResponse{
		PlayerID:        result.PlayerID,
		Email:           result.Email,
		InGameAccountID: result.Account.InGameID(),
		InGameCount:     result.Account.Count,
		JWTToken:        result.Token,
	}
}

// handleLinkError маппит ошибки сервисного слоя на HTTP-статусы.
// Отклоненный провайдером credential — 500 с generic-сообщением
// (контракт клиента), сетевой сбой до провайдера — 502.
func (h *LinkHandler) handleLinkError(c *gin.Context, err error) {
	log.Printf("[Link] Error: %v", err)

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "validation_error"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found", "error_type": "not_found"})
	case errors.Is(err, apperrors.ErrUpstreamUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Identity provider is unavailable", "error_type": "upstream_unavailable"})
	case errors.Is(err, apperrors.ErrInvalidCredential), errors.Is(err, apperrors.ErrExchangeFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify authentication", "error_type": "verification_failed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_server_error"})
	}
}
