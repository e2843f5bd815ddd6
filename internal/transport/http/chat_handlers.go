package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/paperdesk/paperchat-server/internal/service/chat"
	"github.com/paperdesk/paperchat-server/internal/store"
)

// ChatHandlers provides the synchronous surface over the shared chat service.
type ChatHandlers struct {
	svc *chat.Service
	log *zerolog.Logger
}

// NewChatHandlers creates a new chat handlers instance.
func NewChatHandlers(svc *chat.Service, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{svc: svc, log: logger}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID         int64  `json:"id"`
	RoomID     int64  `json:"roomId"`
	SenderID   int64  `json:"senderId"`
	SenderName string `json:"senderName,omitempty"`
	ReceiverID *int64 `json:"receiverId,omitempty"`
	Message    string `json:"message"`
	IsRead     bool   `json:"isRead"`
	CreatedAt  string `json:"createdAt"`
}

// RoomResponse represents a room with its paper context.
type RoomResponse struct {
	ID         int64  `json:"id"`
	PaperID    int64  `json:"paperId"`
	PaperTitle string `json:"paperTitle"`
	TeacherID  int64  `json:"teacherId"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

// RoomSummaryResponse is one entry of the room list.
type RoomSummaryResponse struct {
	RoomResponse
	LastMessage *MessageResponse `json:"lastMessage,omitempty"`
	UnreadCount int              `json:"unreadCount"`
}

// MessageListResponse is a page of a room's visible messages.
type MessageListResponse struct {
	Messages   []MessageResponse `json:"messages"`
	TotalCount int               `json:"totalCount"`
	HasMore    bool              `json:"hasMore"`
}

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	Message    string `json:"message" binding:"required"`
	ReceiverID *int64 `json:"receiverId"`
}

// UnreadCountResponse carries a room's unread count for the caller.
type UnreadCountResponse struct {
	PaperID int64 `json:"paperId"`
	Count   int   `json:"count"`
}

// ListRooms returns the caller's rooms, newest activity first.
// GET /api/rooms
func (h *ChatHandlers) ListRooms(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	summaries, err := h.svc.ListRooms(c.Request.Context(), claims.UserID, claims.Role)
	if err != nil {
		h.respondError(c, err, "failed to list rooms")
		return
	}

	response := make([]RoomSummaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		entry := RoomSummaryResponse{
			RoomResponse: roomResponse(summary.Room, summary.Paper),
			UnreadCount:  summary.Unread,
		}
		if summary.LastMessage != nil {
			senderName, err := h.svc.SenderName(c.Request.Context(), summary.LastMessage.SenderID)
			if err != nil {
				h.respondError(c, err, "failed to resolve sender name")
				return
			}
			last := messageResponse(summary.LastMessage, senderName)
			entry.LastMessage = &last
		}
		response = append(response, entry)
	}

	c.JSON(http.StatusOK, response)
}

// GetRoom resolves the paper's room, creating it on first access.
// GET /api/papers/:paperId/room
func (h *ChatHandlers) GetRoom(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}

	info, err := h.svc.GetOrCreateRoom(c.Request.Context(), paperID, claims.UserID, claims.Role)
	if err != nil {
		h.respondError(c, err, "failed to resolve room")
		return
	}

	c.JSON(http.StatusOK, roomResponse(info.Room, info.Paper))
}

// ListMessages returns the caller's visible slice of the room.
// GET /api/papers/:paperId/messages?limit=&offset=
func (h *ChatHandlers) ListMessages(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	page, err := h.svc.ListMessages(c.Request.Context(), paperID, claims.UserID, claims.Role, limit, offset)
	if err != nil {
		h.respondError(c, err, "failed to list messages")
		return
	}

	messages := make([]MessageResponse, 0, len(page.Messages))
	for _, msg := range page.Messages {
		messages = append(messages, messageResponse(msg, ""))
	}

	c.JSON(http.StatusOK, MessageListResponse{
		Messages:   messages,
		TotalCount: page.Total,
		HasMore:    page.HasMore,
	})
}

// SendMessage persists a message, creating the room on first send.
// POST /api/papers/:paperId/messages
func (h *ChatHandlers) SendMessage(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message is required"})
		return
	}

	msg, err := h.svc.SendMessage(c.Request.Context(), paperID, claims.UserID, claims.Role, req.Message, req.ReceiverID)
	if err != nil {
		h.respondError(c, err, "failed to send message")
		return
	}

	h.log.Info().Int64("paper_id", paperID).Int64("message_id", msg.ID).Int64("sender_id", claims.UserID).Msg("message sent")
	c.JSON(http.StatusCreated, messageResponse(msg, claims.Name))
}

// MarkRoomRead marks the caller's side of the room read.
// POST /api/papers/:paperId/read
func (h *ChatHandlers) MarkRoomRead(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}

	if err := h.svc.MarkRoomRead(c.Request.Context(), paperID, claims.UserID, claims.Role); err != nil {
		h.respondError(c, err, "failed to mark room read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// MarkMessageRead flips one message's read bit.
// POST /api/messages/:messageId/read
func (h *ChatHandlers) MarkMessageRead(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	messageID, err := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid message id"})
		return
	}

	msg, err := h.svc.MarkMessageRead(c.Request.Context(), messageID, claims.UserID, claims.Role)
	if err != nil {
		h.respondError(c, err, "failed to mark message read")
		return
	}

	c.JSON(http.StatusOK, messageResponse(msg, ""))
}

// UnreadCount returns the caller's unread count for a paper; 0 when no
// conversation exists yet.
// GET /api/papers/:paperId/unread
func (h *ChatHandlers) UnreadCount(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}

	count, err := h.svc.UnreadCount(c.Request.Context(), paperID, claims.UserID, claims.Role)
	if err != nil {
		h.respondError(c, err, "failed to count unread")
		return
	}

	c.JSON(http.StatusOK, UnreadCountResponse{PaperID: paperID, Count: count})
}

// respondError maps service failures onto the HTTP taxonomy. Denials and
// validation failures are terminal for the single request only.
func (h *ChatHandlers) respondError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, chat.ErrAccessDenied), errors.Is(err, chat.ErrNotParticipant):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, chat.ErrEmptyBody):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		h.log.Error().Err(err).Msg(logMsg)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func paperIDParam(c *gin.Context) (int64, bool) {
	paperID, err := strconv.ParseInt(c.Param("paperId"), 10, 64)
	if err != nil || paperID <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid paper id"})
		return 0, false
	}
	return paperID, true
}

func roomResponse(room *store.Room, paper *store.Paper) RoomResponse {
	return RoomResponse{
		ID:         room.ID,
		PaperID:    room.PaperID,
		PaperTitle: paper.Title,
		TeacherID:  paper.TeacherID,
		CreatedAt:  room.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  room.UpdatedAt.Format(time.RFC3339),
	}
}

func messageResponse(msg *store.Message, senderName string) MessageResponse {
	return MessageResponse{
		ID:         msg.ID,
		RoomID:     msg.RoomID,
		SenderID:   msg.SenderID,
		SenderName: senderName,
		ReceiverID: msg.ReceiverID,
		Message:    msg.Body,
		IsRead:     msg.IsRead,
		CreatedAt:  msg.CreatedAt.Format(time.RFC3339),
	}
}
