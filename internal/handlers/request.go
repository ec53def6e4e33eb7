package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yuzuhara/tomosanpo/internal/database"
	"github.com/yuzuhara/tomosanpo/internal/handlers/dto"
	"github.com/yuzuhara/tomosanpo/internal/matching"
	"github.com/yuzuhara/tomosanpo/internal/middleware"
	"github.com/yuzuhara/tomosanpo/internal/models"
	"github.com/yuzuhara/tomosanpo/internal/realtime"
)

type RequestHandler struct {
	db      *database.Database
	service *matching.Service
}

func NewRequestHandler(db *database.Database, service *matching.Service) *RequestHandler {
	return &RequestHandler{db: db, service: service}
}

// CreateRequest публикует новую заявку на встречу
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req dto.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.Create(userID, matching.CreateInput{
		Kind:            req.Kind,
		Content:         req.Content,
		Location:        req.Location,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, formatRequestResponse(created, realtime.NewNameCache(h.db)))
}

// ListOpenRequests — доска активных заявок для текущего пользователя
func (h *RequestHandler) ListOpenRequests(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	requests, err := h.service.ListOpen(userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": formatRequestList(requests, realtime.NewNameCache(h.db))})
}

// ListMyRequests — заявки, где пользователь хост
func (h *RequestHandler) ListMyRequests(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	requests, err := h.service.ListMine(userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": formatRequestList(requests, realtime.NewNameCache(h.db))})
}

// ListMatchedRequests — состоявшиеся встречи пользователя
func (h *RequestHandler) ListMatchedRequests(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	requests, err := h.service.ListMatched(userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": formatRequestList(requests, realtime.NewNameCache(h.db))})
}

func (h *RequestHandler) GetRequest(c *gin.Context) {
	req, err := h.service.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, formatRequestResponse(req, realtime.NewNameCache(h.db)))
}

func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	if err := h.service.Delete(requestID, userID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "request deleted"})
}

// Apply — отклик текущего пользователя на заявку
func (h *RequestHandler) Apply(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	if err := h.service.Apply(requestID, userID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "applied"})
}

// Withdraw отзывает свой отклик
func (h *RequestHandler) Withdraw(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	if err := h.service.Withdraw(requestID, userID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "application withdrawn"})
}

// Approve — хост одобряет заявителя
func (h *RequestHandler) Approve(c *gin.Context) {
	h.memberAction(c, h.service.Approve, "applicant approved")
}

// Reject — хост отклоняет заявителя
func (h *RequestHandler) Reject(c *gin.Context) {
	h.memberAction(c, h.service.Reject, "applicant rejected")
}

func (h *RequestHandler) memberAction(c *gin.Context, action func(requestID, memberID, actorID uuid.UUID) error, message string) {
	actorID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	memberID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := action(requestID, memberID, actorID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

// RemoveParticipant убирает участника; хост может убрать любого,
// участник — только себя
func (h *RequestHandler) RemoveParticipant(c *gin.Context) {
	actorID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	participantID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.service.RemoveParticipant(requestID, participantID, actorID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "participant removed"})
}

func formatRequestList(requests []models.Request, names *realtime.NameCache) []gin.H {
	out := make([]gin.H, len(requests))
	for i := range requests {
		out[i] = formatRequestResponse(&requests[i], names)
	}
	return out
}

// formatRequestResponse форматирует заявку вместе с участниками.
// Имена резолвятся через кеш: в списках один пользователь не ходит в
// базу дважды.
func formatRequestResponse(req *models.Request, names *realtime.NameCache) gin.H {
	formatMembers := func(members []models.RequestMember) []gin.H {
		out := make([]gin.H, len(members))
		for i, m := range members {
			name := m.User.Username
			if name == "" {
				name = names.Name(m.UserID)
			}
			out[i] = gin.H{
				"user_id":    m.UserID,
				"username":   name,
				"applied_at": m.AppliedAt,
			}
			if m.ApprovedAt != nil {
				out[i]["approved_at"] = m.ApprovedAt
			}
		}
		return out
	}

	hostName := req.Host.Username
	if hostName == "" {
		hostName = names.Name(req.HostID)
	}

	return gin.H{
		"id":               req.ID,
		"host_id":          req.HostID,
		"host_name":        hostName,
		"kind":             req.Kind,
		"content":          req.Content,
		"location":         req.Location,
		"start_time":       req.StartTime,
		"duration_minutes": req.DurationMinutes,
		"max_participants": req.MaxParticipants,
		"video_room_id":    req.VideoRoomID,
		"created_at":       req.CreatedAt,
		"applicants":       formatMembers(req.Applicants()),
		"participants":     formatMembers(req.Participants()),
	}
}
