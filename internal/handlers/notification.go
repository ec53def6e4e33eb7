package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yuzuhara/tomosanpo/internal/middleware"
	"github.com/yuzuhara/tomosanpo/internal/notifications"
)

type NotificationHandler struct {
	dispatcher *notifications.Dispatcher
}

func NewNotificationHandler(dispatcher *notifications.Dispatcher) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher}
}

// GetUnread — непрочитанные уведомления, свежие сверху
func (h *NotificationHandler) GetUnread(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	list, err := h.dispatcher.ListUnread(userID)
	if err != nil {
		fail(c, err)
		return
	}

	count, err := h.dispatcher.CountUnread(userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": list, "count": count})
}

// Badge — только число непрочитанных, для индикатора в шапке
func (h *NotificationHandler) Badge(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	count, err := h.dispatcher.CountUnread(userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkRead идемпотентно отмечает уведомление прочитанным
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	if err := h.dispatcher.MarkRead(c.Param("id"), userID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "marked as read"})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	if err := h.dispatcher.MarkAllRead(userID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "all marked as read"})
}
