package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yuzuhara/tomosanpo/internal/chat"
	"github.com/yuzuhara/tomosanpo/internal/handlers/dto"
	"github.com/yuzuhara/tomosanpo/internal/middleware"
	"github.com/yuzuhara/tomosanpo/internal/models"
)

type ChatHandler struct {
	service *chat.Service
}

func NewChatHandler(service *chat.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

// ResolveChat возвращает личную комнату с указанным пользователем,
// создавая её при первом обращении
func (h *ChatHandler) ResolveChat(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req dto.ResolveChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	otherID, _ := uuid.Parse(req.UserID)

	room, err := h.service.Resolve(userID, otherID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":               room.ID,
		"other_user_id":    room.OtherMember(userID),
		"last_message":     room.LastMessage,
		"last_activity_at": room.LastActivityAt,
	})
}

// GetMyChats — список переписок, свежие сверху
func (h *ChatHandler) GetMyChats(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	previews, err := h.service.Rooms(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	chats := make([]gin.H, len(previews))
	for i, p := range previews {
		chats[i] = gin.H{
			"id":               p.Room.ID,
			"other_user_id":    p.OtherUserID,
			"other_name":       p.OtherName,
			"last_message":     p.Room.LastMessage,
			"last_activity_at": p.Room.LastActivityAt,
			"unread":           p.Unread,
		}
	}

	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// SendMessage отправляет сообщение в комнату
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	roomID := c.Param("id")

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.service.Send(c.Request.Context(), roomID, userID, req.Body)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, formatMessageResponse(msg, userID))
}

// GetMessages — история комнаты с пагинацией назад от before
func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	roomID := c.Param("id")

	limit := 50
	if l, err := strconv.Atoi(c.Query("limit")); err == nil {
		limit = l
	}

	var beforeID *uuid.UUID
	if before := c.Query("before"); before != "" {
		id, err := uuid.Parse(before)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before id"})
			return
		}
		beforeID = &id
	}

	messages, err := h.service.History(roomID, userID, limit, beforeID)
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]gin.H, len(messages))
	for i := range messages {
		out[i] = formatMessageResponse(&messages[i], userID)
	}

	c.JSON(http.StatusOK, gin.H{"messages": out})
}

// MarkRead отмечает все чужие сообщения комнаты прочитанными
func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	roomID := c.Param("id")

	if err := h.service.MarkRead(c.Request.Context(), roomID, userID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "marked as read"})
}

func formatMessageResponse(msg *models.Message, viewerID uuid.UUID) gin.H {
	// Непрочитанное — чужое сообщение без отметки зрителя
	unread := msg.SenderID != viewerID && !msg.ReadBy(viewerID)

	return gin.H{
		"id":        msg.ID,
		"room_id":   msg.RoomID,
		"sender_id": msg.SenderID,
		"sender":    msg.Sender.Username,
		"body":      msg.Body,
		"sent_at":   msg.SentAt,
		"unread":    unread,
	}
}
