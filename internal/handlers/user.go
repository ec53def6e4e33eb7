package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yuzuhara/tomosanpo/internal/database"
	"github.com/yuzuhara/tomosanpo/internal/middleware"
	"github.com/yuzuhara/tomosanpo/internal/models"
	"github.com/yuzuhara/tomosanpo/internal/ws"
)

type UserHandler struct {
	db  *database.Database
	hub *ws.Hub
}

func NewUserHandler(db *database.Database, hub *ws.Hub) *UserHandler {
	return &UserHandler{db: db, hub: hub}
}

// GetMe возвращает профиль текущего пользователя
func (h *UserHandler) GetMe(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	user, err := h.db.GetUser(userID.String())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, formatUserResponse(user, true))
}

// UpdateMe обновляет только переданные поля профиля
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	user, err := h.db.GetUser(userID.String())
	if err != nil {
		fail(c, err)
		return
	}

	var req struct {
		Username  string `json:"username" binding:"omitempty,min=3,max=50"`
		AvatarURL string `json:"avatar_url" binding:"omitempty,max=500"`
		PetName   string `json:"pet_name" binding:"omitempty,max=50"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Username != "" {
		user.Username = req.Username
	}
	if req.AvatarURL != "" {
		user.AvatarURL = req.AvatarURL
	}
	if req.PetName != "" {
		user.PetName = req.PetName
	}

	if err := h.db.UpdateUser(user); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, formatUserResponse(user, true))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.db.GetUser(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, formatUserResponse(user, false))
}

// SearchUsers ищет пользователей по подстроке имени
func (h *UserHandler) SearchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	users, err := h.db.SearchUsersByUsername(query)
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]gin.H, len(users))
	for i := range users {
		out[i] = formatUserResponse(&users[i], false)
	}

	c.JSON(http.StatusOK, gin.H{"users": out})
}

// GetOnlineUsers — пользователи с активным WebSocket соединением
func (h *UserHandler) GetOnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"online": h.hub.GetOnlineUsers()})
}

func formatUserResponse(user *models.User, own bool) gin.H {
	resp := gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"avatar_url":   user.AvatarURL,
		"pet_name":     user.PetName,
		"last_seen_at": user.LastSeenAt,
	}
	if own {
		resp["email"] = user.Email
	}
	return resp
}
