package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gamechat/internal/auth"
)

// APIHandlers provides HTTP handlers for the public REST endpoints.
type APIHandlers struct {
	authService *auth.Service
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		log:         logger,
	}
}

// GuestResponse represents the guest login response body.
type GuestResponse struct {
	Token       string `json:"token"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// GuestLogin mints a guest identity and returns a token for the WebSocket
// hello handshake.
// POST /api/guest
func (h *APIHandlers) GuestLogin(c *gin.Context) {
	identity, token, err := h.authService.CreateGuest()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to create guest identity")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("user_id", identity.UserID).Str("display_name", identity.DisplayName).Msg("guest identity created")
	c.JSON(http.StatusOK, GuestResponse{
		Token:       token,
		UserID:      identity.UserID,
		DisplayName: identity.DisplayName,
	})
}
