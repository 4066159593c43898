package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gamechat/internal/core"
)

// AdminHandlers exposes the operational surface: room creation, stats,
// moderation policy updates and retroactive message redaction. Every call
// is a synchronous request into the hub loop.
type AdminHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewAdminHandlers creates a new admin handlers instance.
func NewAdminHandlers(hub *core.Hub, logger *zerolog.Logger) *AdminHandlers {
	return &AdminHandlers{
		hub: hub,
		log: logger,
	}
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	Code string `json:"code" binding:"required,min=1,max=64"`
	Name string `json:"name" binding:"max=64"`
	Kind string `json:"kind" binding:"omitempty,oneof=global room guild private"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	Participants int    `json:"participants"`
	Messages     int    `json:"messages"`
	CreatedAt    string `json:"created_at"`
}

// CreateRoom handles administrative room creation.
// POST /api/admin/rooms
func (h *AdminHandlers) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	kind := core.RoomKind(req.Kind)
	if kind == "" {
		kind = core.RoomKindRoom
	}

	info, created, err := h.hub.CreateRoom(c.Request.Context(), req.Code, req.Name, kind)
	if err != nil {
		h.log.Error().Err(err).Str("room", req.Code).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.log.Info().Str("room", info.Code).Str("kind", string(info.Kind)).Msg("room created")
	}
	c.JSON(status, RoomResponse{
		Code:         info.Code,
		Name:         info.DisplayName,
		Kind:         string(info.Kind),
		Participants: info.Participants,
		Messages:     info.Messages,
		CreatedAt:    info.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// StatsResponse represents registry statistics.
type StatsResponse struct {
	TotalRooms     int    `json:"total_rooms"`
	TotalMessages  int    `json:"total_messages"`
	ActiveUsers    int    `json:"active_users"`
	MostActiveRoom string `json:"most_active_room,omitempty"`
}

// Stats handles the stats read.
// GET /api/admin/stats
func (h *AdminHandlers) Stats(c *gin.Context) {
	st, err := h.hub.Stats(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to compute stats")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, StatsResponse{
		TotalRooms:     st.TotalRooms,
		TotalMessages:  st.TotalMessages,
		ActiveUsers:    st.ActiveUsers,
		MostActiveRoom: st.MostActiveRoom,
	})
}

// ModerationPolicyRequest represents the policy update request body.
type ModerationPolicyRequest struct {
	BlockedTerms          []string `json:"blocked_terms"`
	MaxMessagesPerMinute  int      `json:"max_messages_per_minute" binding:"required,min=1"`
	MuteDurationMinutes   int      `json:"mute_duration_minutes" binding:"min=0"`
	AutoModerationEnabled bool     `json:"auto_moderation_enabled"`
}

// UpdateModerationPolicy swaps the process-wide policy.
// PUT /api/admin/moderation
func (h *AdminHandlers) UpdateModerationPolicy(c *gin.Context) {
	var req ModerationPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid moderation policy request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	h.hub.UpdateModerationPolicy(&core.ModerationPolicy{
		BlockedTerms:          req.BlockedTerms,
		MaxMessagesPerMinute:  req.MaxMessagesPerMinute,
		MuteDurationMinutes:   req.MuteDurationMinutes,
		AutoModerationEnabled: req.AutoModerationEnabled,
	})

	c.Status(http.StatusNoContent)
}

// ModerateMessageRequest represents the retroactive redaction request body.
type ModerateMessageRequest struct {
	RoomCode  string `json:"room_code" binding:"required"`
	MessageID string `json:"message_id" binding:"required"`
}

// ModerateMessage redacts a stored message and broadcasts the redaction.
// POST /api/admin/moderation/messages
func (h *AdminHandlers) ModerateMessage(c *gin.Context) {
	var req ModerateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid moderate message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.hub.ModerateMessage(c.Request.Context(), req.RoomCode, req.MessageID)
	switch {
	case errors.Is(err, core.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
	case errors.Is(err, core.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "message not found"})
	case err != nil:
		h.log.Error().Err(err).Str("room", req.RoomCode).Str("message_id", req.MessageID).Msg("failed to moderate message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	default:
		h.log.Info().Str("room", req.RoomCode).Str("message_id", req.MessageID).Msg("message moderated")
		c.Status(http.StatusNoContent)
	}
}
