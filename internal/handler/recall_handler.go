package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yourusername/gamelink-api/internal/pkg/errors"
	"github.com/yourusername/gamelink-api/internal/service"
)

// RecallHandler обрабатывает запросы recall-сервиса: восстановление аккаунта
// по session handle брокера и создание новых связанных аккаунтов.
type RecallHandler struct {
	recallService *service.RecallService
}

func NewRecallHandler(recallService *service.RecallService) *RecallHandler {
	return &RecallHandler{recallService: recallService}
}

// RecallSessionRequest — session handle от платформенного SDK.
type RecallSessionRequest struct {
	Token string `json:"token" binding:"required"`
}

// CreateAccountRequest — явный запрос создания аккаунта после статуса NewPlayer.
type CreateAccountRequest struct {
	RecallSessionID string `json:"recallSessionId" binding:"required"`
	Username        string `json:"username" binding:"required"`
}

// Root отвечает на GET / — строка живости, как в референсном сервисе.
func (h *RecallHandler) Root(c *gin.Context) {
	c.String(http.StatusOK, "Recall API server is running!")
}

// RecallSession обрабатывает POST /recall-session.
// Состояния: AccountFound (профиль в ответе), NewPlayer (клиент предлагает
// создание), OrphanedToken (409 — связка есть, записи нет; создавать нельзя).
func (h *RecallHandler) RecallSession(c *gin.Context) {
	var req RecallSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "No session ID provided."})
		return
	}

	status, profile, err := h.recallService.RecallSession(c.Request.Context(), req.Token)
	if err != nil {
		h.handleRecallError(c, err)
		return
	}

	switch status {
	case service.StatusAccountFound:
		c.JSON(http.StatusOK, gin.H{"status": status, "playerData": profile})
	case service.StatusOrphanedToken:
		c.JSON(http.StatusConflict, gin.H{"status": status, "message": "Broker has a link but no local record exists."})
	default:
		c.JSON(http.StatusOK, gin.H{"status": status})
	}
}

// CreateAccount обрабатывает POST /create-account.
func (h *RecallHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Session ID and username are required."})
		return
	}

	profile, err := h.recallService.CreateAccount(c.Request.Context(), req.RecallSessionID, req.Username)
	if err != nil {
		h.handleRecallError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": service.StatusAccountCreated, "playerData": profile})
}

func (h *RecallHandler) handleRecallError(c *gin.Context, err error) {
	log.Printf("[Recall] Error: %v", err)

	switch {
	case errors.Is(err, apperrors.ErrUpstreamUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": "Recall broker is unavailable."})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"status": "error", "message": "Account already exists."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "An internal server error occurred."})
	}
}
